package service

import (
	"errors"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	snowflakePattern = regexp.MustCompile(`^\d{17,19}$`)

	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("snowflake", func(fl validator.FieldLevel) bool {
			return snowflakePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// IsSnowflake 平台 ID 为 17 到 19 位数字
func IsSnowflake(id string) bool { return snowflakePattern.MatchString(id) }

func validID(field, id string) error {
	if !IsSnowflake(id) {
		return invalid(field, "snowflake")
	}
	return nil
}

func validateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return invalid(verrs[0].Field(), verrs[0].Tag())
	}
	return invalid("input", err.Error())
}
