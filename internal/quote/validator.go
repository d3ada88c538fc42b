package quote

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/printpress/internal/model"
)

// Validator は見積依頼の入力をvalidateタグに従って検証する。
type Validator struct {
	validate *validator.Validate
}

// NewValidator はJSON項目名でエラーを報告するValidatorを生成する。
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate は全項目を検証し、違反があれば*model.ValidationErrorを返す。
// 空白のみの値は未入力とみなす。fieldsそのものは変更しない。
func (v *Validator) Validate(fields model.QuoteFields) error {
	fields.Name = strings.TrimSpace(fields.Name)
	fields.Email = strings.TrimSpace(fields.Email)
	fields.Phone = strings.TrimSpace(fields.Phone)
	fields.ServiceType = strings.TrimSpace(fields.ServiceType)
	fields.Description = strings.TrimSpace(fields.Description)

	err := v.validate.Struct(fields)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate quote: %w", err)
	}

	out := &model.ValidationError{Fields: make([]model.FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, model.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
