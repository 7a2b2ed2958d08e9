package api

import (
	"net/http"
)

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)
	eventType := r.URL.Query().Get("type")

	events, err := s.eventRepo.List(r.Context(), limit, eventType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	s.hub.HandleWS(w, r)
}
