package referral

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ContractDetails is supplied when a referral moves to Under Contract.
type ContractDetails struct {
	PropertyAddress           string  `json:"propertyAddress" validate:"required"`
	PropertyCity              string  `json:"propertyCity" validate:"required"`
	PropertyState             string  `json:"propertyState" validate:"required"`
	PropertyPostalCode        string  `json:"propertyPostalCode" validate:"required"`
	ContractPriceDollars      float64 `json:"contractPriceDollars" validate:"gt=0"`
	AgentCommissionPercentage float64 `json:"agentCommissionPercentage" validate:"gt=0,lte=100"`
	ReferralFeePercentage     float64 `json:"referralFeePercentage" validate:"gt=0,lte=100"`
}

const FieldContractDetails = "contractDetails"

var (
	validatorOnce   sync.Once
	sharedValidator *validator.Validate
)

func structValidator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		sharedValidator = v
	})
	return sharedValidator
}

// Validate trims the text fields and reports every invalid field.
func (d *ContractDetails) Validate() error {
	if d == nil {
		return NewValidationError(FieldContractDetails, "required when status is Under Contract")
	}

	d.PropertyAddress = strings.TrimSpace(d.PropertyAddress)
	d.PropertyCity = strings.TrimSpace(d.PropertyCity)
	d.PropertyState = strings.TrimSpace(d.PropertyState)
	d.PropertyPostalCode = strings.TrimSpace(d.PropertyPostalCode)

	return fieldErrors(structValidator().Struct(d), FieldContractDetails+".", FieldContractDetails)
}

// fieldErrors turns validator output into a ValidationError whose keys are
// json field names under prefix.
func fieldErrors(err error, prefix string, fallbackField string) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError(fallbackField, err.Error())
	}

	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[prefix+fe.Field()] = describeRule(fe)
	}
	return out
}

func (d ContractDetails) Property() Property {
	return Property{
		Address:    d.PropertyAddress,
		City:       d.PropertyCity,
		State:      d.PropertyState,
		PostalCode: d.PropertyPostalCode,
	}
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "email":
		return "must be an email address"
	case "required_without":
		return "is required when the other name is empty"
	default:
		return "failed " + fe.Tag()
	}
}
