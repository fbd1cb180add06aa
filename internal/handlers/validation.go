package handlers

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var pageIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type pageIDParam struct {
	PageID string `validate:"required,max=255,page_id"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("page_id", func(fl validator.FieldLevel) bool {
		return pageIDPattern.MatchString(fl.Field().String())
	})
	return v
}

var validate = newValidator()

// validPageID reports whether id is a well formed organization identifier
func validPageID(id string) bool {
	return validate.Struct(pageIDParam{PageID: id}) == nil
}
