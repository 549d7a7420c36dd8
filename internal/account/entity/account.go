package entity

import (
	"regexp"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/apperr"
)

// Status is the lifecycle state of an account row.
type Status string

const (
	StatusPendingVerification Status = "PENDING_VERIFICATION"
	StatusActive              Status = "ACTIVE"
	StatusLocked              Status = "LOCKED"
	StatusDisabled            Status = "DISABLED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingVerification, StatusActive, StatusLocked, StatusDisabled:
		return true
	}
	return false
}

// Account represents a row in the `accounts` table.
// Status must only be changed through the lifecycle methods in lifecycle.go.
type Account struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	FullName     string    `db:"full_name"`
	Phone        string    `db:"phone"`
	PasswordHash string    `db:"password_hash"`
	Status       Status    `db:"status"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

var (
	e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

	ErrInvalidUsername = apperr.New(apperr.KindInvalidInput, "username must be 4-50 characters without spaces")
	ErrInvalidPhone    = apperr.New(apperr.KindInvalidPhone, "phone must be in E.164 format")
	ErrInvalidFullName = apperr.New(apperr.KindInvalidInput, "full name is required")

	ErrAccountNotFound = apperr.New(apperr.KindNotFound, "account not found")
	ErrUsernameTaken   = apperr.New(apperr.KindAlreadyExists, "username already registered")
	ErrPhoneTaken      = apperr.New(apperr.KindAlreadyExists, "phone already registered")
	ErrAccountExists   = apperr.New(apperr.KindAlreadyExists, "account already exists")
)

// New builds a PENDING_VERIFICATION account. phone must already be normalized.
func New(id int64, username, fullName, phone, passwordHash, role string) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, ErrInvalidFullName
	}
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Account{
		ID:           id,
		Username:     username,
		FullName:     strings.TrimSpace(fullName),
		Phone:        phone,
		PasswordHash: passwordHash,
		Status:       StatusPendingVerification,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateUsername checks length (4-50 runes) and the absence of whitespace.
func ValidateUsername(username string) error {
	n := len([]rune(username))
	if n < 4 || n > 50 || strings.IndexFunc(username, isSpace) >= 0 {
		return ErrInvalidUsername
	}
	return nil
}

// ValidatePhone checks the E.164 shape.
func ValidatePhone(phone string) error {
	if !e164Pattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

// ChangePhone sets a new, already normalized phone number.
func (a *Account) ChangePhone(phone string) error {
	if err := ValidatePhone(phone); err != nil {
		return err
	}
	a.Phone = phone
	a.touch()
	return nil
}

// SetPasswordHash replaces the stored hash.
func (a *Account) SetPasswordHash(hash string) {
	a.PasswordHash = hash
	a.touch()
}

func (a *Account) touch() { a.UpdatedAt = time.Now().UTC() }

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', 0x85, 0xA0:
		return true
	}
	return false
}
