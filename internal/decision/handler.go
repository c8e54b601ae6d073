package decision

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Handler serves a Source over HTTP: POST a Request, receive a Response.
// Source failures map to 502 so clients treat them as transport failures.
func Handler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "POST only")
			return
		}

		var req Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxResponseBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if req.ResidentID == "" {
			writeError(w, http.StatusBadRequest, "residentId is required")
			return
		}

		resp, err := src.Decide(r.Context(), req)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, r.Context().Err()) {
				status = http.StatusGatewayTimeout
			}
			slog.Warn("decision failed",
				"resident", req.ResidentID,
				"request_id", r.Header.Get("X-Request-ID"),
				"error", err,
			)
			writeError(w, status, "decision failed")
			return
		}

		slog.Info("decision",
			"resident", req.ResidentID,
			"request_id", r.Header.Get("X-Request-ID"),
			"command", resp.Command,
		)
		writeJSON(w, http.StatusOK, resp)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
