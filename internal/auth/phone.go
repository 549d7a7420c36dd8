package auth

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/apperr"
)

// PhoneNormalizer turns user input into an E.164 string.
type PhoneNormalizer interface {
	Normalize(raw string) (string, error)
}

// PhoneNumberNormalizer uses libphonenumber rules. Numbers without a leading
// '+' are parsed in DefaultRegion.
type PhoneNumberNormalizer struct {
	DefaultRegion string
}

var ErrInvalidPhoneNumber = apperr.New(apperr.KindInvalidPhone, "phone number invalid")

func (n PhoneNumberNormalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhoneNumber
	}
	num, err := phonenumbers.Parse(raw, n.DefaultRegion)
	if err != nil {
		return "", ErrInvalidPhoneNumber
	}
	// possible (length) rather than valid (allocated range) so test ranges such as 555 pass
	if !phonenumbers.IsPossibleNumber(num) {
		return "", ErrInvalidPhoneNumber
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
