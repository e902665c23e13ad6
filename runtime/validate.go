package runtime

import (
	"unicode"

	"blindchat/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type usernameAnnounce struct {
	Username string `validate:"required,min=1,max=32"`
}

// ValidateUsername accepts the display name sent in the announce frame.
// Names are free form but must be printable and carry at least one
// non space character. Uniqueness is not enforced, identity is the
// connection, not the name.
func ValidateUsername(name string) error {
	if err := validate.Struct(usernameAnnounce{Username: name}); err != nil {
		return errors.ErrInvalidUsername
	}
	if !isPrintableName(name) {
		return errors.ErrInvalidUsername
	}
	return nil
}

func isPrintableName(s string) bool {
	hasVisible := false
	for _, char := range s {
		if !unicode.IsPrint(char) {
			return false
		}
		if !unicode.IsSpace(char) {
			hasVisible = true
		}
	}
	return hasVisible
}
