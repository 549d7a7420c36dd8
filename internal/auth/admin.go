package auth

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/ephemeral"
)

// LockAccount is an operator action; the account's refresh token is revoked.
func (s *Service) LockAccount(ctx context.Context, accountID int64) (acct *entity.Account, err error) {
	defer func() { s.observe("lock_account", err) }()

	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := a.Lock(); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, a); err != nil {
		return nil, err
	}
	if err := s.creds.Revoke(ctx, a.ID); err != nil {
		return nil, err
	}
	s.logger.Infow("account locked", "account_id", a.ID)
	return a, nil
}

// UnlockAccount is the operator reversal of LockAccount.
func (s *Service) UnlockAccount(ctx context.Context, accountID int64) (acct *entity.Account, err error) {
	defer func() { s.observe("unlock_account", err) }()

	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := a.Unlock(); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Infow("account unlocked", "account_id", a.ID)
	return a, nil
}

// DisableAccount is self-service and requires the current password.
func (s *Service) DisableAccount(ctx context.Context, accountID int64, password string) (err error) {
	defer func() { s.observe("disable_account", err) }()

	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(a.PasswordHash, password) {
		return ErrInvalidCredentials
	}
	if err := a.Disable(); err != nil {
		return err
	}
	if err := s.accounts.Save(ctx, a); err != nil {
		return err
	}
	if err := s.creds.Revoke(ctx, a.ID); err != nil {
		return err
	}
	s.logger.Infow("account disabled", "account_id", a.ID)
	return nil
}

// DeleteAccount is an operator action removing an account outright. The
// refresh token goes first so no credential outlives its owner.
func (s *Service) DeleteAccount(ctx context.Context, accountID int64) (err error) {
	defer func() { s.observe("delete_account", err) }()

	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.creds.Revoke(ctx, a.ID); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, a.ID); err != nil {
		return err
	}
	if err := s.ephemeral.Delete(ctx, ephemeral.PendingPhoneKey(a.ID)); err != nil {
		s.logger.Warnw("drop pending phone failed", "account_id", a.ID, "err", err)
	}
	s.logger.Infow("account deleted", "account_id", a.ID, "status", a.Status)
	return nil
}
