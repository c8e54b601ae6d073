package decision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-town/internal/llm"
)

func fakeHaiku(t *testing.T, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLLMSource_Decide(t *testing.T) {
	srv := fakeHaiku(t, `{"command": "start_work", "reasoning": "Busy day."}`)
	src := NewLLMSource(llm.NewClient("sk-test", llm.Options{BaseURL: srv.URL}), []string{"office"})

	resp, err := src.Decide(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "start_work", resp.Command)
}

func TestLLMSource_PassesUnknownCommands(t *testing.T) {
	srv := fakeHaiku(t, `{"command": "fly away"}`)
	src := NewLLMSource(llm.NewClient("sk-test", llm.Options{BaseURL: srv.URL}), nil)

	resp, err := src.Decide(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "fly away", resp.Command)
}

func TestLLMSource_PromptUsesResidentName(t *testing.T) {
	var body struct {
		System string `json:"system"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": `{"command": "idle"}`}},
		})
	}))
	t.Cleanup(srv.Close)
	src := NewLLMSource(llm.NewClient("sk-test", llm.Options{BaseURL: srv.URL}), nil)

	req := sampleRequest()
	req.CurrentState.Name = "William Hart"
	_, err := src.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, body.System, "You are William Hart,")
}

func TestLLMSource_FailuresAreTransport(t *testing.T) {
	for _, reply := range []string{"I would rather not.", `{"reasoning": "Tired."}`} {
		srv := fakeHaiku(t, reply)
		src := NewLLMSource(llm.NewClient("sk-test", llm.Options{BaseURL: srv.URL}), nil)
		_, err := src.Decide(context.Background(), sampleRequest())
		assert.ErrorIs(t, err, ErrTransport, reply)
	}

	disabled := NewLLMSource(llm.NewClient("", llm.Options{}), nil)
	_, err := disabled.Decide(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, llm.ErrDisabled)
}
