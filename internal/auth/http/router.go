package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AlibekovAA/examination-system/internal/auth/service"
	"github.com/AlibekovAA/examination-system/internal/common/constants"
	commonerrors "github.com/AlibekovAA/examination-system/internal/common/errors"
	commonhttp "github.com/AlibekovAA/examination-system/internal/common/http"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
)

const (
	AccountPrefix = "/account"

	msgEmailConfirmed   = "Email confirmed successfully."
	msgConfirmationSent = "If the email is registered and not yet confirmed, a new confirmation link has been sent."
	msgTokenRevoked     = "Token revoked"
)

type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput, origin service.RequestOrigin) (service.AuthResult, error)
	Login(ctx context.Context, input service.LoginInput) (service.AuthResult, error)
	ConfirmEmail(ctx context.Context, input service.ConfirmEmailInput) error
	ResendConfirmation(ctx context.Context, input service.ResendConfirmationInput, origin service.RequestOrigin) error
	RefreshToken(ctx context.Context, token string) (service.AuthResult, error)
	RevokeToken(ctx context.Context, token string) error
}

// RateLimits groups the per-endpoint limiters. A nil field disables limiting
// for that endpoint.
type RateLimits struct {
	Login    func(http.Handler) http.Handler
	Register func(http.Handler) http.Handler
	Refresh  func(http.Handler) http.Handler
}

type Handler struct {
	auth   AuthService
	log    *logger.Logger
	errors *commonhttp.ErrorHandler
}

func NewHandler(auth AuthService, log *logger.Logger) *Handler {
	return &Handler{
		auth:   auth,
		log:    log,
		errors: commonhttp.NewErrorHandler(log),
	}
}

// Routes returns the /account sub-router. Patterns are lower case; mount it
// behind CaseInsensitivePaths so /account/ConfirmEmail resolves too.
func (h *Handler) Routes(limits RateLimits) chi.Router {
	r := chi.NewRouter()
	r.With(optional(limits.Register)).Post("/register", h.register)
	r.With(optional(limits.Login)).Post("/login", h.login)
	r.Get("/confirmemail", h.confirmEmail)
	r.With(optional(limits.Register)).Post("/resendconfirmation", h.resendConfirmation)
	r.With(optional(limits.Refresh)).Post("/refreshtoken", h.refreshToken)
	r.Post("/revoketoken", h.revokeToken)
	return r
}

// CaseInsensitivePaths lower-cases the routing path of requests under prefix.
// The request URL itself is left untouched.
func CaseInsensitivePaths(prefix string) func(http.Handler) http.Handler {
	prefix = strings.ToLower(prefix)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lower := strings.ToLower(r.URL.Path)
			if strings.HasPrefix(lower, prefix+"/") || lower == prefix {
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					rctx.RoutePath = lower
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func optional(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "register_invalid_json",
		}).Warnf("register failed: invalid json: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}

	result, err := h.auth.Register(r.Context(), service.RegisterInput{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Type:     strings.TrimSpace(req.Type),
	}, requestOrigin(r))
	if err != nil {
		h.writeAuthFailure(w, r, err)
		return
	}

	commonhttp.WriteResult(w, http.StatusOK, toAuthResponse(result))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "login_invalid_json",
		}).Warnf("login failed: invalid json: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}

	result, err := h.auth.Login(r.Context(), service.LoginInput{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		h.writeAuthFailure(w, r, err)
		return
	}

	setRefreshCookie(w, result.RefreshToken, result.RefreshTokenExpiration)
	commonhttp.WriteResult(w, http.StatusOK, toAuthResponse(result))
}

func (h *Handler) confirmEmail(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	err := h.auth.ConfirmEmail(r.Context(), service.ConfirmEmailInput{
		Email: strings.TrimSpace(query.Get("email")),
		Code:  query.Get("code"),
	})
	if err != nil {
		h.writeAuthFailure(w, r, err)
		return
	}

	commonhttp.WriteResult(w, http.StatusOK, messageResponse{Message: msgEmailConfirmed})
}

func (h *Handler) resendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req resendConfirmationRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}

	err := h.auth.ResendConfirmation(r.Context(), service.ResendConfirmationInput{
		Email: strings.TrimSpace(req.Email),
	}, requestOrigin(r))
	if err != nil {
		h.writeAuthFailure(w, r, err)
		return
	}

	commonhttp.WriteResult(w, http.StatusOK, messageResponse{Message: msgConfirmationSent})
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeMissingRefreshToken, "missing refresh token", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}

	result, err := h.auth.RefreshToken(r.Context(), cookie.Value)
	if err != nil {
		h.writeAuthFailure(w, r, err)
		return
	}

	setRefreshCookie(w, result.RefreshToken, result.RefreshTokenExpiration)
	commonhttp.WriteResult(w, http.StatusOK, toAuthResponse(result))
}

// revokeToken takes the token from the body, falling back to the cookie.
func (h *Handler) revokeToken(w http.ResponseWriter, r *http.Request) {
	var req revokeTokenRequest
	if r.ContentLength != 0 {
		if err := commonhttp.DecodeJSON(r, &req); err != nil {
			commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, commonhttp.TraceIDFromContext(r.Context()))
			return
		}
	}

	token := strings.TrimSpace(req.Token)
	fromCookie := false
	if token == "" {
		if cookie, err := r.Cookie(constants.RefreshTokenCookieName); err == nil {
			token = cookie.Value
			fromCookie = true
		}
	}
	if token == "" {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeMissingRefreshToken, "token is required", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}

	if err := h.auth.RevokeToken(r.Context(), token); err != nil {
		h.writeAuthFailure(w, r, err)
		return
	}

	if fromCookie {
		clearRefreshCookie(w)
	}
	commonhttp.WriteResult(w, http.StatusOK, messageResponse{Message: msgTokenRevoked})
}

// writeAuthFailure renders caller mistakes inside the result envelope and
// leaves 5xx failures to the shared error handler.
func (h *Handler) writeAuthFailure(w http.ResponseWriter, r *http.Request, err error) {
	domainErr, ok := commonerrors.AsDomainError(err)
	if !ok || domainErr.HTTPStatus() >= http.StatusInternalServerError {
		h.errors.HandleError(w, r, err)
		return
	}

	h.errors.RecordDomainError(r, domainErr)
	commonhttp.WriteResult(w, domainErr.HTTPStatus(), authResponse{
		IsAuthenticated: false,
		Message:         domainErr.Message(),
	})
}

func requestOrigin(r *http.Request) service.RequestOrigin {
	return service.RequestOrigin{
		Scheme: commonhttp.RequestScheme(r),
		Host:   r.Host,
	}
}

func setRefreshCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	if token == "" {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt.UTC(),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}
