package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/credential"
)

type ctxKey struct{}

// WithAccountID stores the authenticated account id on ctx.
func WithAccountID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// AccountIDFrom returns the id set by WithAccountID.
func AccountIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok
}

// Handler exposes HTTP endpoints for the verification flows.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// AccountView is the public projection of an account.
type AccountView struct {
	ID        int64     `json:"id,string"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func viewOf(a *entity.Account) AccountView {
	return AccountView{
		ID:        a.ID,
		Username:  a.Username,
		FullName:  a.FullName,
		Phone:     a.Phone,
		Status:    string(a.Status),
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// VerifyResponse is returned by verify.
type VerifyResponse struct {
	Account AccountView           `json:"account"`
	Tokens  *credential.TokenPair `json:"tokens"`
}

type identifierRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotRequest struct {
	Phone string `json:"phone"`
}

type resetOtpRequest struct {
	OtpSession string `json:"otp_session"`
	Code       string `json:"code"`
}

type resetRequest struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

type phoneRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.svc.SignUp(r.Context(), req)
	if err != nil {
		h.fail(w, "signup", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, viewOf(a))
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req identifierRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.VerifyAccount(r.Context(), req.Identifier, req.Code)
	if err != nil {
		h.fail(w, "verify", err)
		return
	}
	h.writeJSON(w, http.StatusOK, VerifyResponse{Account: viewOf(res.Account), Tokens: res.Tokens})
}

func (h *Handler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req identifierRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ResendCode(r.Context(), req.Identifier); err != nil {
		h.fail(w, "resend code", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req identifierRequest
	if !h.decode(w, r, &req) {
		return
	}
	pair, err := h.svc.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	h.writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		h.fail(w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	pair, err := h.svc.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, "refresh", err)
		return
	}
	h.writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.svc.ForgotPassword(r.Context(), req.Phone)
	if err != nil {
		h.fail(w, "forgot password", err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{"otp_session": session})
}

func (h *Handler) ValidateResetOtp(w http.ResponseWriter, r *http.Request) {
	var req resetOtpRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.svc.ValidateResetOtp(r.Context(), req.OtpSession, req.Code)
	if err != nil {
		h.fail(w, "validate reset otp", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"reset_token": token})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.ResetToken, req.NewPassword); err != nil {
		h.fail(w, "reset password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) InitiateChangePhone(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req phoneRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.InitiateChangePhone(r.Context(), id, req.Phone); err != nil {
		h.fail(w, "initiate phone change", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) CompleteChangePhone(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req phoneRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.svc.CompleteChangePhone(r.Context(), id, req.Code)
	if err != nil {
		h.fail(w, "complete phone change", err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(a))
}

func (h *Handler) ResendChangePhoneOtp(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	if err := h.svc.ResendChangePhoneOtp(r.Context(), id); err != nil {
		h.fail(w, "resend phone change otp", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) DisableAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req passwordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.DisableAccount(r.Context(), id, req.Password); err != nil {
		h.fail(w, "disable account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return false
	}
	return true
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := AccountIDFrom(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	return id, ok
}

// fail writes the error's kind and message. Unclassified errors are logged
// and hidden behind a generic message.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := apperr.HTTPStatus(err)
	var ae *apperr.Error
	if status == http.StatusInternalServerError || !errors.As(err, &ae) {
		h.logger.Errorw(op+" failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": op + " failed"})
		return
	}
	h.logger.Debugw(op+" rejected", "kind", ae.Kind, "err", err)
	h.writeJSON(w, status, map[string]string{"error": ae.Message, "kind": string(ae.Kind)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Register mounts the endpoints under /api/v1/auth. authn guards the routes
// that act on the caller's own account.
func (h *Handler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup", h.SignUp)
		r.Post("/verify", h.Verify)
		r.Post("/resend", h.ResendCode)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Post("/refresh", h.Refresh)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/validate-reset-otp", h.ValidateResetOtp)
		r.Post("/reset-password", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/phone/initiate", h.InitiateChangePhone)
			r.Post("/phone/complete", h.CompleteChangePhone)
			r.Post("/phone/resend", h.ResendChangePhoneOtp)
			r.Post("/account/disable", h.DisableAccount)
		})
	})
}
