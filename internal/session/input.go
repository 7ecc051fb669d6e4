package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// profileInput is what the create-user and update-profile prompts collect.
type profileInput struct {
	Name    string `validate:"required,max=64"`
	Address string `validate:"max=128"`
	Phone   string `validate:"max=32"`
}

func (s *Session) promptProfile(nameLabel, addressLabel, phoneLabel string) (profileInput, error) {
	var in profileInput
	var err error
	if in.Name, err = s.prompt(nameLabel); err != nil {
		return in, err
	}
	if in.Address, err = s.prompt(addressLabel); err != nil {
		return in, err
	}
	if in.Phone, err = s.prompt(phoneLabel); err != nil {
		return in, err
	}
	return in, nil
}

// check returns a readable message when in fails validation, or "".
func (s *Session) check(in profileInput) string {
	if err := s.validate.Struct(in); err != nil {
		return formatValidationError(err).Error()
	}
	return ""
}

// promptAmount reads a positive decimal. ok is false when the text was
// rejected; the reason has already been printed.
func (s *Session) promptAmount(label string) (amount decimal.Decimal, ok bool, err error) {
	text, err := s.prompt(label)
	if err != nil {
		return decimal.Zero, false, err
	}
	amount, err = ParseAmount(text)
	if err != nil {
		s.println(err.Error())
		return decimal.Zero, false, nil
	}
	return amount, true, nil
}

// ParseAmount parses a user-entered amount. It must be a plain decimal
// greater than zero.
func ParseAmount(text string) (decimal.Decimal, error) {
	if text == "" {
		return decimal.Zero, errors.New("amount is required")
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", text)
	}
	if !amount.IsPositive() {
		return decimal.Zero, errors.New("amount must be greater than zero")
	}
	return amount, nil
}

// formatValidationError converts validator.ValidationErrors into a human-readable error message.
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
			default:
				messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
			}
		}
		return fmt.Errorf("validation failed: %s", strings.Join(messages, ", "))
	}
	return err
}
