package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"loan-predictor/internal/features"
	"loan-predictor/internal/ml"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	tmpl *template.Template
}

func mustParsePages() *pages {
	tmpl := template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
	return &pages{tmpl: tmpl}
}

// render executes the named page into a buffer so a template failure can
// still produce a clean 500.
func (p *pages) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// formField is one input on the applicant form.
type formField struct {
	Name    string
	Label   string
	Value   string
	Options []formOption // nil for numeric inputs
}

type formOption struct {
	Value    string
	Label    string
	Selected bool
}

type formView struct {
	Fields []formField
	Error  *features.InvalidInputError
}

// formDefaults are pre-filled so a user only has to supply income and loan
// amount.
var formDefaults = map[string]string{
	features.FieldGender:            "Male",
	features.FieldMarried:           "Yes",
	features.FieldDependents:        "0",
	features.FieldEducation:         "Graduate",
	features.FieldSelfEmployed:      "No",
	features.FieldCoapplicantIncome: "0",
	features.FieldLoanAmountTerm:    "360",
	features.FieldCreditHistory:     "1.0",
	features.FieldPropertyArea:      "Semiurban",
}

var formLayout = []struct {
	name  string
	label string
}{
	{features.FieldApplicantIncome, "Monthly Income ($)"},
	{features.FieldLoanAmount, "Loan Request ($)"},
	{features.FieldCreditHistory, "Credit History Status"},
	{features.FieldMarried, "Married"},
	{features.FieldEducation, "Education"},
	{features.FieldPropertyArea, "Property Area"},
	{features.FieldGender, "Gender"},
	{features.FieldDependents, "Dependents"},
	{features.FieldSelfEmployed, "Self Employed"},
	{features.FieldCoapplicantIncome, "Coapplicant Income ($)"},
	{features.FieldLoanAmountTerm, "Loan Term"},
}

var creditOptions = []formOption{
	{Value: "1.0", Label: "Clean (No defaults/paid on time)"},
	{Value: "0.0", Label: "Poor (Previous defaults detected)"},
}

// newFormView builds the form, keeping submitted values when values is
// non-nil.
func newFormView(values func(string) string, formErr *features.InvalidInputError) formView {
	view := formView{Error: formErr}
	for _, f := range formLayout {
		value := formDefaults[f.name]
		if values != nil {
			if v := values(f.name); v != "" {
				value = v
			}
		}

		field := formField{Name: f.name, Label: f.label, Value: value}
		switch {
		case f.name == features.FieldCreditHistory:
			for _, o := range creditOptions {
				o.Selected = o.Value == value || (value == "1" && o.Value == "1.0") || (value == "0" && o.Value == "0.0")
				field.Options = append(field.Options, o)
			}
		case features.KindOf(f.name) == features.CategoricalColumn:
			for _, v := range features.AllowedValues(f.name) {
				field.Options = append(field.Options, formOption{Value: v, Label: v, Selected: v == value})
			}
		}
		view.Fields = append(view.Fields, field)
	}
	return view
}

type resultView struct {
	RequestID    string
	Decision     ml.Decision
	Approved     bool
	Caption      string
	Policy       ml.Policy
	CreditLabel  string
	IncomeRatio  string
	LRConfidence float64
	DTConfidence float64
	Combined     string // empty unless the policy averages
}

func newResultView(requestID string, rec features.ApplicantRecord, res ml.PredictionResult) resultView {
	combined := ""
	if res.CombinedScore != nil {
		combined = fmt.Sprintf("%.1f%%", *res.CombinedScore*100)
	}
	caption := "Logistic Model Decision"
	if res.CombinedScore != nil {
		caption = "Averaged Model Decision"
	}
	credit := "Poor"
	if rec.CreditHistory == 1 {
		credit = "Healthy"
	}
	return resultView{
		RequestID:    requestID,
		Decision:     res.Decision,
		Approved:     res.Decision == ml.Approved,
		Caption:      caption,
		Policy:       res.Policy,
		CreditLabel:  credit,
		IncomeRatio:  fmt.Sprintf("%.2fx", rec.ApplicantIncome/rec.LoanAmount),
		LRConfidence: res.LRProbability * 100,
		DTConfidence: res.DTProbability * 100,
		Combined:     combined,
	}
}

type unavailableView struct {
	RequestID string
}
