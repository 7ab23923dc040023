// Package features assembles loan applicant attributes into the fixed feature
// row the approval models were trained on.
//
// The package owns the applicant schema (field names, enumerated values and
// numeric constraints) and the derived-feature transform applied before
// scoring. Everything here is pure and safe for concurrent use.
package features

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field names as submitted by the form and expected by the model artifacts.
const (
	FieldGender            = "Gender"
	FieldMarried           = "Married"
	FieldDependents        = "Dependents"
	FieldEducation         = "Education"
	FieldSelfEmployed      = "Self_Employed"
	FieldApplicantIncome   = "ApplicantIncome"
	FieldCoapplicantIncome = "CoapplicantIncome"
	FieldLoanAmount        = "LoanAmount"
	FieldLoanAmountTerm    = "Loan_Amount_Term"
	FieldCreditHistory     = "Credit_History"
	FieldPropertyArea      = "Property_Area"
	FieldIncomePerLoan     = "Income_Per_Loan"
)

// ErrInvalidInput is matched by every InvalidInputError.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports a malformed or out-of-range applicant field.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// allowedValues lists the enumerated values for every categorical field.
var allowedValues = map[string][]string{
	FieldGender:       {"Male", "Female"},
	FieldMarried:      {"Yes", "No"},
	FieldDependents:   {"0", "1", "2", "3+"},
	FieldEducation:    {"Graduate", "Not Graduate"},
	FieldSelfEmployed: {"Yes", "No"},
	FieldPropertyArea: {"Urban", "Semiurban", "Rural"},
}

// AllowedValues returns a copy of the enumerated values accepted for field,
// or nil when field is not categorical.
func AllowedValues(field string) []string {
	vals, ok := allowedValues[field]
	if !ok {
		return nil
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}

// ApplicantRecord is one loan application as submitted. It is built per
// request and discarded after the response is produced.
type ApplicantRecord struct {
	Gender            string  `json:"Gender"`
	Married           string  `json:"Married"`
	Dependents        string  `json:"Dependents"`
	Education         string  `json:"Education"`
	SelfEmployed      string  `json:"Self_Employed"`
	ApplicantIncome   float64 `json:"ApplicantIncome"`
	CoapplicantIncome float64 `json:"CoapplicantIncome"`
	LoanAmount        float64 `json:"LoanAmount"`
	LoanAmountTerm    float64 `json:"Loan_Amount_Term"`
	CreditHistory     float64 `json:"Credit_History"`
	PropertyArea      string  `json:"Property_Area"`
}

// Validate checks enumerated values and numeric constraints. It returns the
// first violation as an *InvalidInputError.
func (r ApplicantRecord) Validate() error {
	categorical := []struct {
		field, value string
	}{
		{FieldGender, r.Gender},
		{FieldMarried, r.Married},
		{FieldDependents, r.Dependents},
		{FieldEducation, r.Education},
		{FieldSelfEmployed, r.SelfEmployed},
		{FieldPropertyArea, r.PropertyArea},
	}
	for _, c := range categorical {
		if !contains(allowedValues[c.field], c.value) {
			return invalid(c.field, "value %q must be one of %s", c.value, strings.Join(allowedValues[c.field], ", "))
		}
	}

	numeric := []struct {
		field string
		value float64
	}{
		{FieldApplicantIncome, r.ApplicantIncome},
		{FieldCoapplicantIncome, r.CoapplicantIncome},
		{FieldLoanAmount, r.LoanAmount},
		{FieldLoanAmountTerm, r.LoanAmountTerm},
		{FieldCreditHistory, r.CreditHistory},
	}
	for _, n := range numeric {
		if math.IsNaN(n.value) || math.IsInf(n.value, 0) {
			return invalid(n.field, "value must be a finite number")
		}
	}

	if r.ApplicantIncome < 0 {
		return invalid(FieldApplicantIncome, "must be >= 0, got %g", r.ApplicantIncome)
	}
	if r.CoapplicantIncome < 0 {
		return invalid(FieldCoapplicantIncome, "must be >= 0, got %g", r.CoapplicantIncome)
	}
	if r.LoanAmount <= 0 {
		return invalid(FieldLoanAmount, "must be > 0, got %g", r.LoanAmount)
	}
	if r.LoanAmountTerm <= 0 {
		return invalid(FieldLoanAmountTerm, "must be > 0, got %g", r.LoanAmountTerm)
	}
	if r.CreditHistory != 0 && r.CreditHistory != 1 {
		return invalid(FieldCreditHistory, "must be 0 or 1, got %g", r.CreditHistory)
	}
	return nil
}

// ParseApplicant builds a record from string form values, as delivered by an
// HTML form post. get returns the raw value for a field name. Values are
// trimmed; numbers are parsed as float64. The result is validated.
func ParseApplicant(get func(field string) string) (ApplicantRecord, error) {
	var (
		rec  ApplicantRecord
		err  error
		text = func(field string) (string, error) {
			v := strings.TrimSpace(get(field))
			if v == "" {
				return "", invalid(field, "required field missing")
			}
			return v, nil
		}
		number = func(field string) (float64, error) {
			v, err := text(field)
			if err != nil {
				return 0, err
			}
			f, perr := strconv.ParseFloat(v, 64)
			if perr != nil {
				return 0, invalid(field, "value %q is not a number", v)
			}
			return f, nil
		}
	)

	if rec.Gender, err = text(FieldGender); err != nil {
		return ApplicantRecord{}, err
	}
	if rec.Married, err = text(FieldMarried); err != nil {
		return ApplicantRecord{}, err
	}
	if rec.Dependents, err = text(FieldDependents); err != nil {
		return ApplicantRecord{}, err
	}
	if rec.Education, err = text(FieldEducation); err != nil {
		return ApplicantRecord{}, err
	}
	if rec.SelfEmployed, err = text(FieldSelfEmployed); err != nil {
		return ApplicantRecord{}, err
	}
	if rec.ApplicantIncome, err = number(FieldApplicantIncome); err != nil {
		return ApplicantRecord{}, err
	}
	if rec.CoapplicantIncome, err = number(FieldCoapplicantIncome); err != nil {
		return ApplicantRecord{}, err
	}
	if rec.LoanAmount, err = number(FieldLoanAmount); err != nil {
		return ApplicantRecord{}, err
	}
	if rec.LoanAmountTerm, err = number(FieldLoanAmountTerm); err != nil {
		return ApplicantRecord{}, err
	}
	if rec.CreditHistory, err = number(FieldCreditHistory); err != nil {
		return ApplicantRecord{}, err
	}
	if rec.PropertyArea, err = text(FieldPropertyArea); err != nil {
		return ApplicantRecord{}, err
	}

	if err := rec.Validate(); err != nil {
		return ApplicantRecord{}, err
	}
	return rec, nil
}

func contains(vals []string, v string) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
