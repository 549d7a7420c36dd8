package entity

import "github.com/ovaphlow/pitchfork/service-account-go/internal/apperr"

// Lifecycle errors. All of them are AccountStateConflict so callers can map
// them uniformly.
var (
	ErrAlreadyActive          = apperr.New(apperr.KindAccountStateConflict, "account already active")
	ErrLockedCannotActivate   = apperr.New(apperr.KindAccountStateConflict, "account locked, cannot activate")
	ErrDisabledCannotActivate = apperr.New(apperr.KindAccountStateConflict, "account disabled, cannot activate")
	ErrAlreadyLocked          = apperr.New(apperr.KindAccountStateConflict, "account already locked")
	ErrNotLocked              = apperr.New(apperr.KindAccountStateConflict, "account is not locked")
	ErrMustBeActive           = apperr.New(apperr.KindAccountStateConflict, "account must be active")

	ErrPendingVerification = apperr.New(apperr.KindAccountStateConflict, "account pending verification, finish signup first")
	ErrAccountLocked       = apperr.New(apperr.KindAccountStateConflict, "account locked, contact support")
	ErrAccountDisabled     = apperr.New(apperr.KindAccountStateConflict, "account disabled")
	ErrUnknownStatus       = apperr.New(apperr.KindAccountStateConflict, "account status unknown")
)

// Activate moves PENDING_VERIFICATION to ACTIVE.
func (a *Account) Activate() error {
	switch a.Status {
	case StatusPendingVerification:
		a.Status = StatusActive
		a.touch()
		return nil
	case StatusActive:
		return ErrAlreadyActive
	case StatusLocked:
		return ErrLockedCannotActivate
	case StatusDisabled:
		return ErrDisabledCannotActivate
	}
	return ErrUnknownStatus
}

// Lock is an operator action allowed from PENDING_VERIFICATION or ACTIVE.
func (a *Account) Lock() error {
	if a.Status != StatusPendingVerification && a.Status != StatusActive {
		return ErrAlreadyLocked
	}
	a.Status = StatusLocked
	a.touch()
	return nil
}

// Unlock moves LOCKED back to ACTIVE.
func (a *Account) Unlock() error {
	if a.Status != StatusLocked {
		return ErrNotLocked
	}
	a.Status = StatusActive
	a.touch()
	return nil
}

// Disable is the self-service ACTIVE to DISABLED transition.
func (a *Account) Disable() error {
	if a.Status != StatusActive {
		return ErrMustBeActive
	}
	a.Status = StatusDisabled
	a.touch()
	return nil
}

// EnsureActive guards login, refresh, password reset and phone change.
func (a *Account) EnsureActive() error {
	switch a.Status {
	case StatusActive:
		return nil
	case StatusPendingVerification:
		return ErrPendingVerification
	case StatusLocked:
		return ErrAccountLocked
	case StatusDisabled:
		return ErrAccountDisabled
	}
	return ErrUnknownStatus
}
