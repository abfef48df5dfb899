package config

import (
	"time"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/badrinath-dash/apigee-audit-connector/internal/window"
)

// New returns a configured validator with custom struct-level validation
// registered for Input.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// register struct-level validation for Input to cover the rules the tag
	// language cannot express: start date format and extra-parameter JSON.
	v.RegisterStructValidation(inputStructValidation, Input{})

	return v
}

func inputStructValidation(sl validatorv10.StructLevel) {
	in := sl.Current().Interface().(Input)

	if in.StartFrom != "" {
		if _, err := window.ParseStart(in.StartFrom); err != nil {
			sl.ReportError(in.StartFrom, "start_from", "StartFrom", "start_date_format", err.Error())
		}
	}

	if _, err := in.ExtraParams(); err != nil {
		sl.ReportError(in.APIParameters, "api_parameters", "APIParameters", "json_object", err.Error())
	}
}

// validateStartDate applies the wall-clock range policy (no future dates
// beyond skew tolerance, nothing older than retention) with an explicit
// clock, producing the operator-facing *Error.
func validateStartDate(in *Input, now time.Time) error {
	if in.StartFrom == "" {
		return nil
	}
	if err := window.ValidateStart(in.StartFrom, now); err != nil {
		return &Error{Field: in.Name + ".start_from", Reason: err.Error()}
	}
	return nil
}
