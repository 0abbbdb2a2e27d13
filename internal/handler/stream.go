package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamgate/gate-server-go/internal/audit"
	"github.com/streamgate/gate-server-go/internal/middleware"
	"github.com/streamgate/gate-server-go/internal/service"
)

type StreamHandler struct {
	streamService  *service.StreamService
	sessionService *service.SessionService
}

func NewStreamHandler(streamService *service.StreamService, sessionService *service.SessionService) *StreamHandler {
	return &StreamHandler{streamService: streamService, sessionService: sessionService}
}

func (h *StreamHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/current", h.Current)
	r.Post("/watch", h.Watch)
	r.Post("/stop", h.Stop)
	return r
}

// Current describes the upcoming or live stream without the playback URL.
func (h *StreamHandler) Current(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	result, err := h.streamService.Current(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Watch takes the viewer slot and returns the playback URL. 402 without a
// completed payment, 409 while another device holds the slot.
func (h *StreamHandler) Watch(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	session := middleware.GetSession(r.Context())

	result, err := h.streamService.Watch(r.Context(), user.ID, session)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventStreamClaim,
		UserID:    user.ID,
		SessionID: session.ID,
		Details:   map[string]interface{}{"streamId": result.StreamID},
	})

	writeJSON(w, http.StatusOK, result)
}

// Stop releases the viewer slot without logging the device out.
func (h *StreamHandler) Stop(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())

	if err := h.sessionService.ReleaseStream(r.Context(), session.ID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
