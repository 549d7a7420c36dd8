package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/ephemeral"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/notify"
)

// InitiateChangePhone records a pending phone for the account, replacing any
// earlier pending request, and sends an OTP to the new number.
func (s *Service) InitiateChangePhone(ctx context.Context, accountID int64, newPhone string) (err error) {
	defer func() { s.observe("initiate_change_phone", err) }()

	phone, err := s.phones.Normalize(newPhone)
	if err != nil {
		return err
	}
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := a.EnsureActive(); err != nil {
		return err
	}
	if phone == a.Phone {
		return ErrSamePhone
	}
	owner, err := s.accounts.GetByPhone(ctx, phone)
	switch {
	case err == nil && owner.ID != a.ID:
		return ErrPhoneInUse
	case err != nil && !errors.Is(err, entity.ErrAccountNotFound):
		return err
	}

	if err := s.ephemeral.Set(ctx, ephemeral.PendingPhoneKey(a.ID), phone, s.cfg.PhoneChangeTTL); err != nil {
		return err
	}
	s.publish(ctx, notify.ReasonPhoneChange, a, phone)
	return nil
}

// CompleteChangePhone applies the pending phone once the OTP is confirmed.
func (s *Service) CompleteChangePhone(ctx context.Context, accountID int64, code string) (acct *entity.Account, err error) {
	defer func() { s.observe("complete_change_phone", err) }()

	pendingKey := ephemeral.PendingPhoneKey(accountID)
	phone, err := s.pendingPhone(ctx, pendingKey)
	if err != nil {
		return nil, err
	}
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := a.EnsureActive(); err != nil {
		return nil, err
	}
	if err := s.consumeOtp(ctx, a.ID, code); err != nil {
		return nil, err
	}
	if err := a.ChangePhone(phone); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, a); err != nil {
		return nil, err
	}
	if err := s.ephemeral.Delete(ctx, pendingKey); err != nil {
		s.logger.Warnw("delete pending phone failed", "account_id", a.ID, "err", err)
	}
	s.logger.Infow("phone changed", "account_id", a.ID)
	return a, nil
}

// ResendChangePhoneOtp sends a fresh code for an open phone change and
// restarts the pending record's TTL so it outlives the new code.
func (s *Service) ResendChangePhoneOtp(ctx context.Context, accountID int64) (err error) {
	defer func() { s.observe("resend_change_phone_otp", err) }()

	pendingKey := ephemeral.PendingPhoneKey(accountID)
	phone, err := s.pendingPhone(ctx, pendingKey)
	if err != nil {
		return err
	}
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := a.EnsureActive(); err != nil {
		return err
	}
	if err := s.ephemeral.Set(ctx, pendingKey, phone, s.cfg.PhoneChangeTTL); err != nil {
		return err
	}
	s.publish(ctx, notify.ReasonPhoneChange, a, phone)
	return nil
}

func (s *Service) pendingPhone(ctx context.Context, key string) (string, error) {
	phone, err := s.ephemeral.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ephemeral.ErrNotFound) {
			return "", ErrPhoneChangeNotInitiated
		}
		return "", fmt.Errorf("load pending phone: %w", err)
	}
	return phone, nil
}
