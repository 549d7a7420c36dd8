package auth

import (
	"context"
	"errors"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/credential"
)

// Login authenticates by username or phone. Unknown identifiers and wrong
// passwords fail identically, and both pay for one hash comparison.
func (s *Service) Login(ctx context.Context, identifier, password string) (pair *credential.TokenPair, err error) {
	defer func() { s.observe("login", err) }()

	a, err := s.resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, entity.ErrAccountNotFound) {
			s.burnVerify(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if a.PasswordHash == "" || !s.hasher.Verify(a.PasswordHash, password) {
		s.logger.Debugw("login failed", "account_id", a.ID)
		return nil, ErrInvalidCredentials
	}
	if err := a.EnsureActive(); err != nil {
		return nil, err
	}
	s.rehash(ctx, a, password)
	return s.creds.GenerateTokens(ctx, a)
}

// rehash upgrades a hash made with outdated parameters. Failures only cost
// the upgrade, never the login.
func (s *Service) rehash(ctx context.Context, a *entity.Account, password string) {
	rh, ok := s.hasher.(Rehasher)
	if !ok || !rh.NeedsRehash(a.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warnw("password rehash failed", "account_id", a.ID, "err", err)
		return
	}
	a.SetPasswordHash(hash)
	if err := s.accounts.Save(ctx, a); err != nil {
		s.logger.Warnw("save rehashed password failed", "account_id", a.ID, "err", err)
		return
	}
	s.logger.Infow("password hash upgraded", "account_id", a.ID)
}

// Logout drops the refresh token; unknown or blank tokens are no-ops.
func (s *Service) Logout(ctx context.Context, refreshToken string) (err error) {
	defer func() { s.observe("logout", err) }()
	return s.creds.Logout(ctx, refreshToken)
}

// RefreshToken rotates a refresh token into a new pair.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (pair *credential.TokenPair, err error) {
	defer func() { s.observe("refresh_token", err) }()
	return s.creds.Refresh(ctx, refreshToken)
}
