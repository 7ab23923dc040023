package ml

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"loan-predictor/internal/features"

	"github.com/stretchr/testify/require"
)

// stubClassifier returns a fixed probability and counts calls.
type stubClassifier struct {
	name  string
	p     float64
	err   error
	calls atomic.Int64
}

func (s *stubClassifier) Name() string { return s.name }

func (s *stubClassifier) PredictProbability(features.Row) (float64, error) {
	s.calls.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return s.p, nil
}

var errStubFailure = errors.New("stub failure")

func sampleApplicant() features.ApplicantRecord {
	return features.ApplicantRecord{
		Gender:            "Male",
		Married:           "Yes",
		Dependents:        "0",
		Education:         "Graduate",
		SelfEmployed:      "No",
		ApplicantIncome:   5000,
		CoapplicantIncome: 0,
		LoanAmount:        150,
		LoanAmountTerm:    360,
		CreditHistory:     1.0,
		PropertyArea:      "Semiurban",
	}
}

func sampleRow(t *testing.T) features.Row {
	t.Helper()
	row, err := features.Assemble(sampleApplicant())
	require.NoError(t, err)
	return row
}

// creditLogistic scores sigmoid(-2 + 4*Credit_History).
func creditLogistic() *Artifact {
	return &Artifact{
		Name:    "loan_logistic_model",
		Version: "test",
		Kind:    KindLogistic,
		Preprocessor: Preprocessor{
			Numeric: []NumericSpec{{Column: features.FieldCreditHistory}},
		},
		Logistic: &LogisticParams{Coefficients: []float64{4}, Intercept: -2},
	}
}

// creditTree sends Credit_History <= 0.5 to a 20% leaf and the rest to a
// 70% leaf.
func creditTree() *Artifact {
	return &Artifact{
		Name:    "loan_tree_model",
		Version: "test",
		Kind:    KindTree,
		Preprocessor: Preprocessor{
			Numeric: []NumericSpec{{Column: features.FieldCreditHistory}},
		},
		Tree: &TreeParams{Nodes: []TreeNode{
			{Feature: 0, Threshold: 0.5, Left: 1, Right: 2},
			{Left: -1, Right: -1, Value: []float64{80, 20}},
			{Left: -1, Right: -1, Value: []float64{30, 70}},
		}},
	}
}

func writeArtifact(t *testing.T, dir, file string, art *Artifact) string {
	t.Helper()
	data, err := json.MarshalIndent(art, "", "  ")
	require.NoError(t, err)
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
