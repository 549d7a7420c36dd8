package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/credential"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/notify"
)

// SignUpRequest carries the registration fields.
type SignUpRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// VerifyResult is returned once an account is activated.
type VerifyResult struct {
	Account *entity.Account
	Tokens  *credential.TokenPair
}

// SignUp creates a PENDING_VERIFICATION account and asks for an OTP to be sent.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (acct *entity.Account, err error) {
	defer func() { s.observe("signup", err) }()

	username := strings.TrimSpace(req.Username)
	if err := entity.ValidateUsername(username); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, ErrPasswordRequired
	}
	phone, err := s.phones.Normalize(req.Phone)
	if err != nil {
		return nil, err
	}

	taken, err := s.accounts.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, entity.ErrUsernameTaken
	}
	taken, err = s.accounts.ExistsByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, entity.ErrPhoneTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	a, err := entity.New(s.ids.NextID(), username, req.FullName, phone, hash, s.cfg.DefaultRole)
	if err != nil {
		return nil, err
	}
	// the store converts a lost uniqueness race into AlreadyExists
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Infow("account created", "account_id", a.ID, "username", a.Username)

	s.publish(ctx, notify.ReasonSignup, a, "")
	return a, nil
}

// VerifyAccount activates a pending account with the OTP sent at signup and
// issues its first credentials. Status is checked before the code is
// consumed so a repeated call never burns a fresh code.
func (s *Service) VerifyAccount(ctx context.Context, identifier, code string) (res *VerifyResult, err error) {
	defer func() { s.observe("verify_account", err) }()

	a, err := s.resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, entity.ErrAccountNotFound) {
			return nil, ErrInvalidOtp
		}
		return nil, err
	}
	probe := *a
	if err := probe.Activate(); err != nil {
		return nil, err
	}
	if err := s.consumeOtp(ctx, a.ID, code); err != nil {
		return nil, err
	}
	if err := a.Activate(); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Infow("account activated", "account_id", a.ID)

	tokens, err := s.creds.GenerateTokens(ctx, a)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Account: a, Tokens: tokens}, nil
}

// ResendCode re-publishes the verification event for a pending account. An
// unknown identifier or an account past verification succeeds silently, so
// the response never tells whether the identifier is registered.
func (s *Service) ResendCode(ctx context.Context, identifier string) (err error) {
	defer func() { s.observe("resend_code", err) }()

	a, err := s.resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, entity.ErrAccountNotFound) {
			s.logger.Debugw("resend code for unknown identifier")
			return nil
		}
		return err
	}
	probe := *a
	if err := probe.Activate(); err != nil {
		s.logger.Debugw("resend code skipped", "account_id", a.ID, "status", a.Status)
		return nil
	}
	s.publish(ctx, notify.ReasonResend, a, "")
	return nil
}
