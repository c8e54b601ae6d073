package decision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-town/internal/agents"
)

func sampleRequest() Request {
	return Request{
		ResidentID: "william",
		CurrentState: agents.State{
			Position:      agents.Position{X: 3, Y: 4},
			CurrentAction: agents.ActionIdle,
			Home:          "house_william",
			Workplace:     "office",
			IsHome:        true,
		},
		Timestamp: time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestHTTPSource_Decide(t *testing.T) {
	var gotID string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-ID")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"command":"move_work"}`))
	}))
	defer srv.Close()

	resp, err := NewHTTPSource(srv.URL, time.Second).Decide(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "move_work", resp.Command)

	_, err = uuid.Parse(gotID)
	assert.NoError(t, err, "request id %q", gotID)
	assert.Equal(t, "william", got["residentId"])
	assert.EqualValues(t, sampleRequest().Timestamp, got["timestamp"])
	state, ok := got["currentState"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "idle", state["currentAction"])
	assert.Equal(t, true, state["isHome"])
}

func TestHTTPSource_FailuresAreTransport(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"command":"idle"}`},
		{"not found", http.StatusNotFound, ""},
		{"malformed", http.StatusOK, `{"command":`},
		{"not json", http.StatusOK, `move_home`},
		{"missing command", http.StatusOK, `{"action":"idle"}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewHTTPSource(srv.URL, time.Second).Decide(context.Background(), sampleRequest())
			assert.ErrorIs(t, err, ErrTransport)
		})
	}
}

func TestHTTPSource_UnreachableAndCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSource(url, time.Second).Decide(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, ErrTransport)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewHTTPSource("http://127.0.0.1:1", time.Second).Decide(ctx, sampleRequest())
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandler_ServesSource(t *testing.T) {
	srv := httptest.NewServer(Handler(NewScheduleSource(1, nil, 0, 0)))
	defer srv.Close()

	resp, err := NewHTTPSource(srv.URL, time.Second).Decide(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "move_work", resp.Command)
}

func TestHandler_Rejects(t *testing.T) {
	failing := SourceFunc(func(context.Context, Request) (Response, error) {
		return Response{}, assert.AnError
	})
	h := Handler(failing)

	for _, tc := range []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"get", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", http.StatusBadRequest},
		{"no resident", http.MethodPost, `{"timestamp": 1}`, http.StatusBadRequest},
		{"source error", http.MethodPost, `{"residentId": "olivia"}`, http.StatusBadGateway},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, "/decide", strings.NewReader(tc.body)))
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}
