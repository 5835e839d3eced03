package validator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	minNickname = 2
	maxNickname = 8
	maxTitle    = 255
	maxContents = 65535
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateEmail checks if email format is valid
func (v *Validator) ValidateEmail(email string) error {
	if len(email) == 0 || len(email) > 255 || !emailRegex.MatchString(email) {
		return apperrors.Invalid("email is not a valid address")
	}
	return nil
}

// ValidatePassword only requires a non-blank password; strength rules are
// left to the client.
func (v *Validator) ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return apperrors.Invalid("password is required")
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return apperrors.Invalid("password too long (max 72 bytes)")
	}
	return nil
}

// ValidateNickname counts runes, not bytes.
func (v *Validator) ValidateNickname(nickname string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(nickname))
	if n < minNickname || n > maxNickname {
		return apperrors.Invalid("nickname must be 2-8 characters")
	}
	return nil
}

func (v *Validator) ValidateTodoTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperrors.Invalid("title cannot be empty")
	}
	if len(title) > maxTitle {
		return apperrors.Invalid("title too long (max 255 characters)")
	}
	return nil
}

func (v *Validator) ValidateTodoContents(contents string) error {
	if len(contents) > maxContents {
		return apperrors.Invalid("contents too long (max 64KB)")
	}
	return nil
}

// SanitizeString removes null bytes and surrounding whitespace
func (v *Validator) SanitizeString(input string) string {
	return strings.TrimSpace(strings.ReplaceAll(input, "\x00", ""))
}
