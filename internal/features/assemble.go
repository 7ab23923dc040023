package features

import (
	"fmt"
	"math"
)

// Columns is the feature row schema in training order. Income_Per_Loan is
// appended after the raw applicant columns.
var Columns = []string{
	FieldGender,
	FieldMarried,
	FieldDependents,
	FieldEducation,
	FieldSelfEmployed,
	FieldApplicantIncome,
	FieldCoapplicantIncome,
	FieldLoanAmount,
	FieldLoanAmountTerm,
	FieldCreditHistory,
	FieldPropertyArea,
	FieldIncomePerLoan,
}

// ColumnKind distinguishes categorical from numeric columns.
type ColumnKind int

const (
	UnknownColumn ColumnKind = iota
	NumericColumn
	CategoricalColumn
)

// KindOf reports how column is represented in a Row.
func KindOf(column string) ColumnKind {
	switch column {
	case FieldGender, FieldMarried, FieldDependents, FieldEducation, FieldSelfEmployed, FieldPropertyArea:
		return CategoricalColumn
	case FieldApplicantIncome, FieldCoapplicantIncome, FieldLoanAmount, FieldLoanAmountTerm,
		FieldCreditHistory, FieldIncomePerLoan:
		return NumericColumn
	default:
		return UnknownColumn
	}
}

// Row is a single derived feature row. ApplicantIncome holds log1p of the
// submitted income; IncomePerLoan was computed from the raw income.
type Row struct {
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
	IncomePerLoan     float64 `json:"Income_Per_Loan"`
}

// Assemble validates rec and derives the model feature row.
//
// Income_Per_Loan = ApplicantIncome / (LoanAmount + 1) is taken from the raw
// income, and only then is ApplicantIncome replaced by log1p(ApplicantIncome).
// Both models were fitted on exactly this order.
func Assemble(rec ApplicantRecord) (Row, error) {
	if err := rec.Validate(); err != nil {
		return Row{}, err
	}
	denom := rec.LoanAmount + 1
	if denom == 0 {
		return Row{}, invalid(FieldLoanAmount, "LoanAmount + 1 must not be zero")
	}

	row := Row{
		Gender:            rec.Gender,
		Married:           rec.Married,
		Dependents:        rec.Dependents,
		Education:         rec.Education,
		SelfEmployed:      rec.SelfEmployed,
		ApplicantIncome:   rec.ApplicantIncome,
		CoapplicantIncome: rec.CoapplicantIncome,
		LoanAmount:        rec.LoanAmount,
		LoanAmountTerm:    rec.LoanAmountTerm,
		CreditHistory:     rec.CreditHistory,
		PropertyArea:      rec.PropertyArea,
	}
	row.IncomePerLoan = row.ApplicantIncome / denom
	row.ApplicantIncome = math.Log1p(row.ApplicantIncome)
	return row, nil
}

// Numeric returns the value of a numeric column.
func (r Row) Numeric(column string) (float64, bool) {
	switch column {
	case FieldApplicantIncome:
		return r.ApplicantIncome, true
	case FieldCoapplicantIncome:
		return r.CoapplicantIncome, true
	case FieldLoanAmount:
		return r.LoanAmount, true
	case FieldLoanAmountTerm:
		return r.LoanAmountTerm, true
	case FieldCreditHistory:
		return r.CreditHistory, true
	case FieldIncomePerLoan:
		return r.IncomePerLoan, true
	}
	return 0, false
}

// Categorical returns the value of a categorical column.
func (r Row) Categorical(column string) (string, bool) {
	switch column {
	case FieldGender:
		return r.Gender, true
	case FieldMarried:
		return r.Married, true
	case FieldDependents:
		return r.Dependents, true
	case FieldEducation:
		return r.Education, true
	case FieldSelfEmployed:
		return r.SelfEmployed, true
	case FieldPropertyArea:
		return r.PropertyArea, true
	}
	return "", false
}

// Values returns the row as column name to value, in the shape a dataframe
// row would have. Used for debug logging and the JSON API.
func (r Row) Values() map[string]any {
	out := make(map[string]any, len(Columns))
	for _, c := range Columns {
		if v, ok := r.Numeric(c); ok {
			out[c] = v
			continue
		}
		if v, ok := r.Categorical(c); ok {
			out[c] = v
		}
	}
	return out
}

func (r Row) String() string {
	return fmt.Sprintf("Row{income=%.4f income_per_loan=%.4f loan=%.2f term=%.0f credit=%.0f area=%s}",
		r.ApplicantIncome, r.IncomePerLoan, r.LoanAmount, r.LoanAmountTerm, r.CreditHistory, r.PropertyArea)
}
