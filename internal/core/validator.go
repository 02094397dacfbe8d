package core

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"vitalmsg/internal/types"
)

// Validator wraps go-playground/validator with the domain rules used on the
// ingestion boundary: jurisdiction codes and accepted message kinds.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the custom tags registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Registration only fails for a blank tag name.
	_ = v.RegisterValidation("jurisdiction", func(fl validator.FieldLevel) bool {
		return types.ValidJurisdiction(fl.Field().String())
	})
	_ = v.RegisterValidation("message_kind", func(fl validator.FieldLevel) bool {
		return types.MessageKind(fl.Field().String()).Valid()
	})

	return &Validator{validate: v}
}

// ValidateStruct validates s against its struct tags, translating the first
// failure into a client-facing validation AppError.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]

		var code types.ErrorCode
		switch fe.Tag() {
		case "required":
			code = types.ErrCodeValidationMissingField
		case "jurisdiction":
			code = types.ErrCodeValidationJurisdiction
		case "message_kind":
			code = types.ErrCodeValidationKind
		default:
			code = types.ErrCodeValidationPayload
		}

		return types.NewAppErrorWithDetails(code, "invalid value for "+fe.Field(), err, map[string]any{
			"field": fe.Field(),
			"rule":  fe.Tag(),
		})
	}

	return types.NewAppError(types.ErrCodeValidationPayload, "invalid request", err)
}
