package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/ephemeral"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/notify"
)

// ForgotPassword starts a reset: it opens an otp-session for the account
// owning phone and triggers an OTP. For an unknown phone, or an account that
// is not ACTIVE, it returns a decoy session id that resolves nowhere.
func (s *Service) ForgotPassword(ctx context.Context, phone string) (sessionID string, err error) {
	defer func() { s.observe("forgot_password", err) }()

	normalized, err := s.phones.Normalize(phone)
	if err != nil {
		return "", err
	}
	a, err := s.accounts.GetByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, entity.ErrAccountNotFound) {
			s.logger.Debugw("forgot password for unknown phone")
			return uuid.NewString(), nil
		}
		return "", err
	}
	if err := a.EnsureActive(); err != nil {
		s.logger.Debugw("forgot password for inactive account", "account_id", a.ID, "status", a.Status)
		return uuid.NewString(), nil
	}

	sessionID = uuid.NewString()
	if err := s.ephemeral.Set(ctx, ephemeral.OtpSessionKey(sessionID), strconv.FormatInt(a.ID, 10), s.cfg.OtpSessionTTL); err != nil {
		return "", err
	}
	s.publish(ctx, notify.ReasonPasswordReset, a, "")
	return sessionID, nil
}

// ValidateResetOtp exchanges an otp-session plus the OTP for a one-time
// password-reset token. The session is closed once the code is accepted.
func (s *Service) ValidateResetOtp(ctx context.Context, sessionID, code string) (resetToken string, err error) {
	defer func() { s.observe("validate_reset_otp", err) }()

	sessionKey := ephemeral.OtpSessionKey(strings.TrimSpace(sessionID))
	accountID, err := s.lookupAccountID(ctx, sessionKey, ErrOtpSessionInvalid)
	if err != nil {
		return "", err
	}
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if err := a.EnsureActive(); err != nil {
		return "", err
	}
	if err := s.consumeOtp(ctx, a.ID, code); err != nil {
		return "", err
	}
	if err := s.ephemeral.Delete(ctx, sessionKey); err != nil {
		s.logger.Warnw("close otp session failed", "account_id", a.ID, "err", err)
	}

	resetToken = uuid.NewString()
	if err := s.ephemeral.Set(ctx, ephemeral.ResetTokenKey(resetToken), strconv.FormatInt(a.ID, 10), s.cfg.ResetTokenTTL); err != nil {
		return "", err
	}
	return resetToken, nil
}

// ResetPassword sets a new password using a reset token. The token is
// deleted on success and existing refresh tokens are revoked.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) (err error) {
	defer func() { s.observe("reset_password", err) }()

	tokenKey := ephemeral.ResetTokenKey(strings.TrimSpace(resetToken))
	accountID, err := s.lookupAccountID(ctx, tokenKey, ErrInvalidResetToken)
	if err != nil {
		return err
	}
	if newPassword == "" {
		return ErrPasswordRequired
	}
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := a.EnsureActive(); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	a.SetPasswordHash(hash)
	if err := s.accounts.Save(ctx, a); err != nil {
		return err
	}
	if err := s.ephemeral.Delete(ctx, tokenKey); err != nil {
		return err
	}
	if err := s.creds.Revoke(ctx, a.ID); err != nil {
		s.logger.Warnw("revoke refresh token after reset failed", "account_id", a.ID, "err", err)
	}
	s.logger.Infow("password reset", "account_id", a.ID)
	return nil
}
