package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamgate/gate-server-go/internal/audit"
	apperrors "github.com/streamgate/gate-server-go/internal/errors"
	"github.com/streamgate/gate-server-go/internal/middleware"
	"github.com/streamgate/gate-server-go/internal/model"
	"github.com/streamgate/gate-server-go/internal/service"
)

type AuthHandler struct {
	authService  *service.AuthService
	authMW       *middleware.AuthMiddleware
	loginLimiter *middleware.LoginRateLimiter
	isProduction bool
}

func NewAuthHandler(
	authService *service.AuthService,
	authMW *middleware.AuthMiddleware,
	loginLimiter *middleware.LoginRateLimiter,
	isProduction bool,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		authMW:       authMW,
		loginLimiter: loginLimiter,
		isProduction: isProduction,
	}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(h.loginLimiter.Handler).Post("/request-link", h.RequestLink)
	r.With(h.loginLimiter.Handler).Post("/verify", h.Verify)
	r.With(h.loginLimiter.Handler).Get("/verify", h.VerifyFromLink)
	r.Post("/logout", h.Logout)
	r.With(h.authMW.Handler).Get("/me", h.Me)
	return r
}

type requestLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestLink sends a login link. The response is identical whether or not
// the address belongs to a user.
func (h *AuthHandler) RequestLink(w http.ResponseWriter, r *http.Request) {
	var req requestLinkRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	err := h.authService.RequestLink(r.Context(), req.Email)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeRateLimitExceeded {
			writeError(w, err)
			return
		}
		// Swallow everything else: a mailer outage must not leak which
		// addresses exist.
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventLoginFailure,
			Details: map[string]interface{}{"stage": "request_link"},
		})
	} else {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginLinkRequest})
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the address is valid, a login link has been sent.",
	})
}

type verifyRequest struct {
	Token             string `json:"token" validate:"required"`
	DeviceFingerprint string `json:"deviceFingerprint"`
	DeviceLabel       string `json:"deviceLabel"`
	Browser           string `json:"browser"`
	OS                string `json:"os"`
}

type verifyResponse struct {
	User    *model.User    `json:"user"`
	Session *model.Session `json:"session"`
}

// Verify exchanges a magic-link token for a session cookie.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.authService.VerifyLink(
		r.Context(),
		req.Token,
		req.DeviceFingerprint,
		model.DeviceInfo{
			DeviceLabel: req.DeviceLabel,
			Browser:     req.Browser,
			OS:          req.OS,
		},
		r.UserAgent(),
		r.RemoteAddr,
	)
	if err != nil {
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventLoginFailure,
			Details: map[string]interface{}{"stage": "verify"},
		})
		writeError(w, err)
		return
	}

	middleware.SetSessionCookie(w, middleware.UserSessionCookie, result.SessionToken, "/", h.isProduction)

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventLoginSuccess,
		UserID:    result.User.ID,
		SessionID: result.Session.ID,
	})

	writeJSON(w, http.StatusOK, verifyResponse{
		User:    result.User,
		Session: result.Session,
	})
}

// VerifyFromLink handles the emailed link directly. The browser opening the
// link cannot send a fingerprint, so the session falls back to the derived
// one; a client app that can fingerprint uses the POST variant instead.
func (h *AuthHandler) VerifyFromLink(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, apperrors.MissingRequired("token"))
		return
	}

	result, err := h.authService.VerifyLink(
		r.Context(), token, "", model.DeviceInfo{}, r.UserAgent(), r.RemoteAddr,
	)
	if err != nil {
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventLoginFailure,
			Details: map[string]interface{}{"stage": "verify_link"},
		})
		writeError(w, err)
		return
	}

	middleware.SetSessionCookie(w, middleware.UserSessionCookie, result.SessionToken, "/", h.isProduction)

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventLoginSuccess,
		UserID:    result.User.ID,
		SessionID: result.Session.ID,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout closes the session behind the cookie and clears it. Always 200.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.UserSessionCookie); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, apperrors.Database(err))
			return
		}
		audit.LogFromRequest(r, audit.Event{Type: audit.EventLogout})
	}

	middleware.ClearSessionCookie(w, middleware.UserSessionCookie, "/")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	session := middleware.GetSession(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"user":    user,
		"session": session,
	})
}
