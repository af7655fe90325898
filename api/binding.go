package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	billetera "github.com/billetera/billetera-api"
	"github.com/billetera/billetera-api/core"
	"github.com/billetera/billetera-api/service"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

var registerOnce sync.Once

// RegisterValidations installs the custom rules on gin's validator engine
// and reports fields by their json/form names. It is safe to call more than
// once. It panics when the rules cannot be installed, since requests would
// otherwise skip them.
func RegisterValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic(fmt.Sprintf("api: unexpected validator engine %T", binding.Validator.Engine()))
		}
		v.RegisterTagNameFunc(fieldName)
		v.RegisterCustomTypeFunc(nullableString, service.Nullable[string]{})
		if err := v.RegisterValidation("currency", isCurrency); err != nil {
			panic(fmt.Sprintf("api: register currency rule: %v", err))
		}
	})
}

func nullableString(field reflect.Value) any {
	n, ok := field.Interface().(service.Nullable[string])
	if !ok {
		return nil
	}
	return service.NullableValue(n)
}

// isCurrency accepts three ASCII letters in any case.
func isCurrency(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// bindingError converts a ShouldBind failure into a 422 VALIDATION_ERROR.
// Input that could not be decoded at all is reported against source.
func bindingError(err error, source string) *core.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
		return core.ErrValidation.With(details, err)
	}
	return core.ErrValidation.With(
		[]FieldError{{Field: source, Rule: "parse", Param: err.Error()}}, err)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, bindingError(err, "body"))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		respondError(c, bindingError(err, "query"))
		return false
	}
	return true
}

func respondError(c *gin.Context, err error) {
	billetera.GinErrorHandler(c, err)
}

func respond(c *gin.Context, v any) {
	c.JSON(http.StatusOK, v)
}
