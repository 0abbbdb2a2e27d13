package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamgate/gate-server-go/internal/audit"
	"github.com/streamgate/gate-server-go/internal/middleware"
	"github.com/streamgate/gate-server-go/internal/model"
	"github.com/streamgate/gate-server-go/internal/service"
)

// SessionHandler exposes the streaming session gate: conflict checks before
// playback and user-initiated session closing.
type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/check", h.Check)
	r.Get("/check", h.List)
	r.Post("/close", h.Close)
	r.Get("/close", h.ListActive)
	return r
}

type checkRequest struct {
	DeviceFingerprint string `json:"deviceFingerprint"`
}

// Check reports whether the calling device may start streaming. The body
// fingerprint, when present, overrides the one recorded at login so a client
// can re-identify itself after a browser update.
func (h *SessionHandler) Check(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	session := middleware.GetSession(r.Context())

	var req checkRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, err)
		return
	}

	fingerprint := req.DeviceFingerprint
	if fingerprint == "" && session != nil {
		fingerprint = session.FingerprintID
	}

	result, err := h.sessionService.CheckSession(r.Context(), user.ID, fingerprint)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// List returns every active session of the caller with streaming counts.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	list, err := h.sessionService.ListSessions(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

type closeRequest struct {
	SessionID *string `json:"sessionId"`
	StreamID  *string `json:"streamId"`
	Reason    string  `json:"reason" validate:"omitempty,oneof=user_request admin_action session_timeout device_limit"`
}

type closeResponse struct {
	Success        bool   `json:"success"`
	ClosedSessions int64  `json:"closedSessions"`
	Reason         string `json:"reason"`
}

// Close deactivates the caller's sessions. sessionId wins over streamId;
// neither means close everything. The reason defaults to user_request.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req closeRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, err)
		return
	}

	reason := model.CloseReason(req.Reason)
	if req.Reason == "" {
		reason = model.CloseReasonUserRequest
	}

	closed, err := h.sessionService.CloseSessions(r.Context(), user.ID, service.CloseParams{
		SessionID: req.SessionID,
		StreamID:  req.StreamID,
		Reason:    reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventSessionClose,
		UserID: user.ID,
		Details: map[string]interface{}{
			"closed": closed,
			"reason": string(reason),
		},
	})

	writeJSON(w, http.StatusOK, closeResponse{
		Success:        true,
		ClosedSessions: closed,
		Reason:         string(reason),
	})
}

type activeSessionsResponse struct {
	ActiveSessions []model.Session `json:"activeSessions"`
	Count          int             `json:"count"`
}

// ListActive is the read companion of Close: the sessions a close-all would hit.
func (h *SessionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	list, err := h.sessionService.ListSessions(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, activeSessionsResponse{
		ActiveSessions: list.Sessions,
		Count:          list.TotalSessions,
	})
}
