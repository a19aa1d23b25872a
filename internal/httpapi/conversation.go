package httpapi

import (
	"net/http"
	"time"

	"github.com/andywolf/codexd/internal/conversation"
)

type ingestEvent struct {
	Speaker   string     `json:"speaker"`
	Message   string     `json:"message"`
	Timestamp *time.Time `json:"timestamp"`
	Source    string     `json:"source"`
}

type ingestRequest struct {
	SessionID string        `json:"session_id"`
	Events    []ingestEvent `json:"events"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.suggester == nil {
		httpError(w, http.StatusInternalServerError, "conversation store is not configured")
		return
	}

	var req ingestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" || len(req.Events) == 0 {
		httpError(w, http.StatusBadRequest, "session_id and events are required")
		return
	}
	events := make([]conversation.Event, 0, len(req.Events))
	for _, e := range req.Events {
		if e.Speaker == "" || e.Message == "" {
			httpError(w, http.StatusBadRequest, "each event needs a speaker and a message")
			return
		}
		events = append(events, conversation.Event{
			Speaker:   e.Speaker,
			Message:   e.Message,
			Timestamp: e.Timestamp,
			Source:    e.Source,
		})
	}

	suggestion, err := s.suggester.IngestAndSuggest(r.Context(), req.SessionID, events)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}
