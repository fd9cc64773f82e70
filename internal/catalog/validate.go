package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/shopfront/internal/domain"
)

// Validated parameter structs. Fields are already trimmed and merged with
// any stored values, so every rule applies to the final record.

type categoryParams struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type productParams struct {
	Name        string          `json:"name" validate:"required,min=2,max=200"`
	Description string          `json:"description" validate:"required,min=10,max=2000"`
	CategoryID  uuid.UUID       `json:"categoryId" validate:"required"`
	BasePrice   decimal.Decimal `json:"basePrice" validate:"gte=0,lte=9999999999.99"`
	Images      []string        `json:"images" validate:"dive,url"`
}

type skuParams struct {
	Code       string            `json:"sku" validate:"required,skucode"`
	Name       string            `json:"name" validate:"required,min=2,max=200"`
	Price      decimal.Decimal   `json:"price" validate:"gte=0,lte=9999999999.99"`
	Inventory  int               `json:"inventory" validate:"gte=0,lte=2147483647"`
	Attributes domain.Attributes `json:"attributes" validate:"attrkeys"`
}

// messages maps "field.tag" to a user-facing message.
type messages map[string]string

var categoryMessages = messages{
	"name.required":   "Category name is required",
	"name.min":        "Category name must be at least 2 characters",
	"name.max":        "Category name cannot exceed 100 characters",
	"description.max": "Description cannot exceed 500 characters",
}

var productMessages = messages{
	"name.required":         "Product name is required",
	"name.min":              "Product name must be at least 2 characters",
	"name.max":              "Product name cannot exceed 200 characters",
	"description.required":  "Product description is required",
	"description.min":       "Description must be at least 10 characters",
	"description.max":       "Description cannot exceed 2000 characters",
	"categoryId.required":   "Category is required",
	"basePrice.required":    "Base price is required",
	"basePrice.gte":         "Base price cannot be negative",
	"basePrice.lte":         "Base price cannot exceed 9999999999.99",
	"basePrice.cents":       "Base price cannot have more than 2 decimal places",
	"images.url":            "All images must be valid URLs",
}

var skuMessages = messages{
	"sku.required":        "SKU is required",
	"sku.skucode":         "SKU must contain only alphanumeric characters and hyphens",
	"name.required":       "SKU name is required",
	"name.min":            "SKU name must be at least 2 characters",
	"name.max":            "SKU name cannot exceed 200 characters",
	"price.required":      "Price is required",
	"price.gte":           "Price cannot be negative",
	"price.lte":           "Price cannot exceed 9999999999.99",
	"price.cents":         "Price cannot have more than 2 decimal places",
	"inventory.required":  "Inventory is required",
	"inventory.gte":       "Inventory cannot be negative",
	"inventory.lte":       "Inventory cannot exceed 2147483647",
	"attributes.attrkeys": "Attribute keys cannot be empty",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Compare money as a number so gte/lte apply.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	must(v.RegisterValidation("skucode", func(fl validator.FieldLevel) bool {
		return skuCodeRe.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("attrkeys", func(fl validator.FieldLevel) bool {
		attrs, ok := fl.Field().Interface().(domain.Attributes)
		if !ok {
			return false
		}
		for _, a := range attrs {
			if strings.TrimSpace(a.Key) == "" {
				return false
			}
		}
		return true
	}))

	// Prices are stored as NUMERIC(12,2); anything finer would be rounded
	// by Postgres but kept by the memory store.
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		p := sl.Current().Interface().(productParams)
		if !wholeCents(p.BasePrice) {
			sl.ReportError(p.BasePrice, "basePrice", "BasePrice", "cents", "")
		}
	}, productParams{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		p := sl.Current().Interface().(skuParams)
		if !wholeCents(p.Price) {
			sl.ReportError(p.Price, "price", "Price", "cents", "")
		}
	}, skuParams{})

	return v
}

// wholeCents reports whether d has no more than two decimal places. Values
// the range tags already reject are left to them.
func wholeCents(d decimal.Decimal) bool {
	if d.IsNegative() || d.GreaterThan(maxPrice) {
		return true
	}
	return d.Equal(d.Truncate(2))
}

var maxPrice = decimal.RequireFromString("9999999999.99")

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// validateInput validates params and also reports each missing field, so a
// client sees every problem with a request at once.
func validateInput(op string, params any, msgs messages, missing ...string) error {
	err := validateParams(op, params, msgs)
	if err != nil && !domain.IsValidationError(err) {
		return err
	}
	for _, field := range missing {
		err = domain.AddFieldError(err, field, msgs[field+".required"])
	}
	if ve, ok := err.(*domain.ValidationError); ok {
		ve.Op = op
	}
	return err
}

// validateParams runs struct validation and converts failures into a
// domain.ValidationError keyed by JSON field name.
func validateParams(op string, params any, msgs messages) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.Internal(err, op, "validation failed")
	}

	var out error
	for _, fe := range fieldErrs {
		out = domain.AddFieldError(out, fe.Field(), fieldMessage(fe, msgs))
	}
	if ve, ok := out.(*domain.ValidationError); ok {
		ve.Op = op
	}
	return out
}

func fieldMessage(fe validator.FieldError, msgs messages) string {
	field := fe.Field()
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	if msg, ok := msgs[field+"."+fe.Tag()]; ok {
		return msg
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
