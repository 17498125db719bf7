package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// validate checks request DTOs by their `validate` tags. Handlers only decode;
// every rule lives here so non-HTTP callers get the same checks.
var validate = validator.New()

func validateDTO(dto interface{}) error {
	err := validate.Struct(dto)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), ErrInvalidInput)
	}
	return fmt.Errorf("%v: %w", err, ErrInvalidInput)
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", field, ErrInvalidInput)
	}
	return id, nil
}

func positive(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%s must be positive: %w", field, ErrInvalidInput)
	}
	return nil
}
