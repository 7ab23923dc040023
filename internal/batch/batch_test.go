package batch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loan-predictor/internal/features"
	"loan-predictor/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Loan_ID,Gender,Married,Dependents,Education,Self_Employed,ApplicantIncome,CoapplicantIncome,LoanAmount,Loan_Amount_Term,Credit_History,Property_Area,Loan_Status\n"

const dataset = header +
	"LP001,Male,Yes,0,Graduate,No,5000,0,150,360,1,Semiurban,Y\n" +
	"LP002,Female,No,3+,Not Graduate,Yes,2500,1000,90,180,0,Rural,N\n" +
	"LP003,Male,Yes,1,Graduate,No,4000,0,,360,1,Urban,Y\n" +
	"LP004,Male,No,2,Graduate,No,6000,0,120,360,1,Urban,N\n"

func creditScorer(t *testing.T, withTree bool) *ml.Scorer {
	t.Helper()
	pre := ml.Preprocessor{Numeric: []ml.NumericSpec{{Column: features.FieldCreditHistory}}}
	lr, err := (&ml.Artifact{
		Name:         "lr",
		Kind:         ml.KindLogistic,
		Preprocessor: pre,
		Logistic:     &ml.LogisticParams{Coefficients: []float64{4}, Intercept: -2},
	}).Build()
	require.NoError(t, err)

	var dt ml.Classifier
	if withTree {
		dt, err = (&ml.Artifact{
			Name:         "dt",
			Kind:         ml.KindTree,
			Preprocessor: pre,
			Tree: &ml.TreeParams{Nodes: []ml.TreeNode{
				{Feature: 0, Threshold: 0.5, Left: 1, Right: 2},
				{Left: -1, Right: -1, Value: []float64{8, 2}},
				{Left: -1, Right: -1, Value: []float64{3, 7}},
			}},
		}).Build()
		require.NoError(t, err)
	}
	return ml.NewScorer(ml.NewModels(lr, dt), ml.PolicyAveraged, nil)
}

func loadDataset(t *testing.T, data string) *DataLoader {
	t.Helper()
	dl := NewDataLoader()
	require.NoError(t, dl.Load(strings.NewReader(data)))
	return dl
}

func TestDataLoader_Load(t *testing.T) {
	dl := loadDataset(t, dataset)
	require.Equal(t, 4, dl.GetDataCount())

	first := dl.Next()
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "LP001", first.LoanID)
	assert.Equal(t, "5000", first.Get(features.FieldApplicantIncome))
	require.NotNil(t, first.Label)
	assert.True(t, *first.Label)

	second := dl.Next()
	require.NotNil(t, second.Label)
	assert.False(t, *second.Label)
	assert.Equal(t, "3+", second.Get(features.FieldDependents))

	dl.Reset()
	assert.True(t, dl.HasNext())
}

func TestDataLoader_MissingColumn(t *testing.T) {
	data := "Gender,Married\nMale,Yes\n"
	err := NewDataLoader().Load(strings.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestDataLoader_NoLabels(t *testing.T) {
	data := "Gender,Married,Dependents,Education,Self_Employed,ApplicantIncome,CoapplicantIncome,LoanAmount,Loan_Amount_Term,Credit_History,Property_Area\n" +
		"Male,Yes,0,Graduate,No,5000,0,150,360,1,Semiurban\n"
	dl := loadDataset(t, data)
	app := dl.Next()
	assert.Nil(t, app.Label)
	assert.Empty(t, app.LoanID)
}

func TestDataLoader_LoadFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loans.csv")
	require.NoError(t, os.WriteFile(path, []byte(dataset), 0o600))

	dl := NewDataLoader()
	require.NoError(t, dl.LoadFromCSV(path))
	assert.Equal(t, 4, dl.GetDataCount())

	assert.Error(t, NewDataLoader().LoadFromCSV(filepath.Join(t.TempDir(), "missing.csv")))
}

func TestEngine_Run(t *testing.T) {
	engine := NewEngine(creditScorer(t, true), loadDataset(t, dataset))
	require.NoError(t, engine.Run())

	res := engine.GetResults()
	assert.Equal(t, ml.PolicyAveraged, res.Policy)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 3, res.Scored)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, 2, res.Approved)
	assert.Equal(t, 1, res.Rejected)
	assert.InDelta(t, 2.0/3.0, res.ApprovalRate, 1e-12)

	// LP001 and LP002 match their labels, LP004 does not.
	assert.Equal(t, 3, res.Labeled)
	assert.InDelta(t, 2.0/3.0, res.Agreement, 1e-12)

	invalid := res.Outcomes[2]
	assert.Nil(t, invalid.Result)
	assert.Equal(t, "LP003", invalid.LoanID)
	assert.Equal(t, features.FieldLoanAmount, invalid.Field)
	assert.NotEmpty(t, invalid.Error)

	rejected := res.Outcomes[1]
	require.NotNil(t, rejected.Result)
	assert.Equal(t, ml.Rejected, rejected.Result.Decision)
	assert.InDelta(t, 0.2, rejected.Result.DTProbability, 1e-12)
}

func TestEngine_ModelUnavailable(t *testing.T) {
	engine := NewEngine(creditScorer(t, false), loadDataset(t, dataset))
	err := engine.Run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ml.ErrModelUnavailable))
}

func TestReporter(t *testing.T) {
	engine := NewEngine(creditScorer(t, true), loadDataset(t, dataset))
	require.NoError(t, engine.Run())
	reporter := NewReporter(engine.GetResults(), filepath.Join(t.TempDir(), "out"))

	t.Run("decision log", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, reporter.WriteDecisions(&buf))

		rows, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 5)
		assert.Equal(t, []string{"2", "LP001", "APPROVED", "0.8808", "0.7000", "0.7904", "Y", ""}, rows[1])
		assert.Equal(t, "INVALID", rows[3][2])
		assert.True(t, strings.HasPrefix(rows[3][7], "LoanAmount: "))
	})

	t.Run("files", func(t *testing.T) {
		require.NoError(t, reporter.GenerateReport())

		_, err := os.Stat(filepath.Join(reporter.outputPath, decisionsFile))
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(reporter.outputPath, resultsFile))
		require.NoError(t, err)
		var report struct {
			Summary  map[string]any `json:"summary"`
			Outcomes []Outcome      `json:"outcomes"`
		}
		require.NoError(t, json.Unmarshal(data, &report))
		assert.Equal(t, float64(3), report.Summary["scored"])
		assert.Equal(t, float64(3), report.Summary["labeled"])
		assert.Len(t, report.Outcomes, 4)
	})

	t.Run("summary", func(t *testing.T) {
		var buf bytes.Buffer
		reporter.PrintSummary(&buf)
		out := buf.String()
		assert.Contains(t, out, "Applications: 4 (scored 3, invalid 1)")
		assert.Contains(t, out, "Approval Rate: 66.67%")
		assert.Contains(t, out, "Label Agreement: 66.67% of 3 labeled")
	})
}
