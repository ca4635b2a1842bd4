package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	appvalidator "github.com/jwalitptl/lab-api/pkg/validator"
)

// UseJSONFieldNames makes gin's binding validator report fields by their
// json names, so bind errors read the same as service validation errors.
func UseJSONFieldNames() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(appvalidator.JSONFieldName)
	}
}
