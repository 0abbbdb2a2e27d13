package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/streamgate/gate-server-go/internal/audit"
	apperrors "github.com/streamgate/gate-server-go/internal/errors"
	"github.com/streamgate/gate-server-go/internal/middleware"
	"github.com/streamgate/gate-server-go/internal/model"
	"github.com/streamgate/gate-server-go/internal/service"
)

type AdminHandler struct {
	adminService *service.AdminService
	adminMW      *middleware.AdminSessionMiddleware
	loginLimiter *middleware.LoginRateLimiter
	isProduction bool
}

func NewAdminHandler(
	adminService *service.AdminService,
	adminMW *middleware.AdminSessionMiddleware,
	loginLimiter *middleware.LoginRateLimiter,
	isProduction bool,
) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		adminMW:      adminMW,
		loginLimiter: loginLimiter,
		isProduction: isProduction,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(h.loginLimiter.Handler).Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.adminMW.Handler)
		r.Get("/stats", h.Stats)
		r.Get("/users", h.ListUsers)
		r.Get("/users/{userID}/sessions", h.ListUserSessions)
		r.Delete("/users/{userID}/sessions/{sessionID}", h.EvictSession)
		r.Get("/payments", h.ListPayments)
		r.Post("/payments/{paymentID}/refund", h.RefundPayment)
		r.Patch("/streams/{streamID}", h.UpdateStream)
	})
	return r
}

type adminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.adminService.Login(r.Context(), req.Password)
	if err != nil {
		writeError(w, apperrors.Internal("Login failed").WithCause(err))
		return
	}
	if token == "" {
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventAuthFailure,
			Details: map[string]interface{}{"surface": "admin_login"},
		})
		writeError(w, apperrors.Unauthorized("Invalid password"))
		return
	}

	middleware.SetSessionCookie(w, middleware.AdminSessionCookie, token, "/v1/admin", h.isProduction)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.AdminSessionCookie); err == nil && cookie.Value != "" {
		if err := h.adminService.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, apperrors.Database(err))
			return
		}
	}

	middleware.ClearSessionCookie(w, middleware.AdminSessionCookie, "/v1/admin")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type pagedResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	users, total, err := h.adminService.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: users, Total: total})
}

func (h *AdminHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	payments, total, err := h.adminService.ListPayments(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: payments, Total: total})
}

func (h *AdminHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")

	pmt, err := h.adminService.RefundPayment(r.Context(), paymentID)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventRefundIssued,
		Details: map[string]interface{}{"paymentId": paymentID},
	})

	writeJSON(w, http.StatusOK, pmt)
}

type updateStreamRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	PlaybackURL *string    `json:"playbackUrl"`
	PriceMinor  *int64     `json:"priceMinor" validate:"omitempty,min=0"`
	Currency    *string    `json:"currency" validate:"omitempty,len=3"`
	StartsAt    *time.Time `json:"startsAt"`
	IsLive      *bool      `json:"isLive"`
}

func (h *AdminHandler) UpdateStream(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "streamID")

	var req updateStreamRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	stream, err := h.adminService.UpdateStream(r.Context(), streamID, model.UpdateStreamParams{
		Title:       req.Title,
		Description: req.Description,
		PlaybackURL: req.PlaybackURL,
		PriceMinor:  req.PriceMinor,
		Currency:    req.Currency,
		StartsAt:    req.StartsAt,
		IsLive:      req.IsLive,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stream)
}

func (h *AdminHandler) ListUserSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	sessions, err := h.adminService.ListUserSessions(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// EvictSession force-closes another user's device session with reason
// admin_action.
func (h *AdminHandler) EvictSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.adminService.EvictSession(r.Context(), userID, sessionID); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventSessionEvict,
		UserID:    userID,
		SessionID: sessionID,
	})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
