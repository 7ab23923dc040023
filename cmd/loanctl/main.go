package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"loan-predictor/internal/batch"
	"loan-predictor/internal/cfg"
	"loan-predictor/internal/client"
	"loan-predictor/internal/common"
	"loan-predictor/internal/features"
	"loan-predictor/internal/ml"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: loanctl <command> [flags]

commands:
  predict   score an applicant on a running server
  score     score an applicant against local model artifacts
  health    show server health
  models    validate local model artifacts
  batch     score a CSV of applications against local model artifacts
`

func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := cfg.LoadEnvFile(".env"); err != nil {
		log.Warn().Err(err).Msg("ignoring .env file")
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "predict":
		err = runPredict(args)
	case "score":
		err = runScore(args)
	case "health":
		err = runHealth(args)
	case "models":
		err = runModels(args)
	case "batch":
		err = runBatch(args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var invalid *features.InvalidInputError
	switch {
	case err == nil:
	case errors.As(err, &invalid):
		fmt.Fprintf(os.Stderr, "invalid input: %s: %s\n", invalid.Field, invalid.Message)
		os.Exit(1)
	case errors.Is(err, ml.ErrModelUnavailable):
		fmt.Fprintln(os.Stderr, "model unavailable")
		os.Exit(3)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applicantFlags registers one flag per form field, pre-filled with the
// form defaults.
func applicantFlags(fs *flag.FlagSet) func() (features.ApplicantRecord, error) {
	values := map[string]*string{}
	defaults := map[string]string{
		features.FieldGender:            "Male",
		features.FieldMarried:           "Yes",
		features.FieldDependents:        "0",
		features.FieldEducation:         "Graduate",
		features.FieldSelfEmployed:      "No",
		features.FieldApplicantIncome:   "",
		features.FieldCoapplicantIncome: "0",
		features.FieldLoanAmount:        "",
		features.FieldLoanAmountTerm:    "360",
		features.FieldCreditHistory:     "1",
		features.FieldPropertyArea:      "Semiurban",
	}
	for field, def := range defaults {
		values[field] = fs.String(field, def, field)
	}
	return func() (features.ApplicantRecord, error) {
		return features.ParseApplicant(func(field string) string {
			if v, ok := values[field]; ok {
				return *v
			}
			return ""
		})
	}
}

func runPredict(args []string) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	server := fs.String("server", envOr(common.EnvServerURL, common.DefaultServerURL), "server base URL")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	requestID := fs.String("request-id", "", "X-Request-ID to send")
	applicant := applicantFlags(fs)
	fs.Parse(args)

	rec, err := applicant()
	if err != nil {
		return err
	}
	resp, err := client.New(*server, *timeout).Predict(context.Background(), rec, *requestID)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runScore(args []string) error {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	policy := fs.String("policy", "", "decision policy: averaged or logistic (default from config)")
	applicant := applicantFlags(fs)
	fs.Parse(args)

	c, err := cfg.Load()
	if err != nil {
		return err
	}
	if *policy != "" {
		if c.DecisionPolicy, err = ml.ParsePolicy(*policy); err != nil {
			return err
		}
	}

	rec, err := applicant()
	if err != nil {
		return err
	}
	scorer := ml.NewScorer(ml.LoadModels(c.ModelPaths(), nil), c.DecisionPolicy, nil)
	row, res, err := scorer.ScoreApplicant(rec)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"features": row, "result": res})
}

func runHealth(args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	server := fs.String("server", envOr(common.EnvServerURL, common.DefaultServerURL), "server base URL")
	fs.Parse(args)

	health, err := client.New(*server, 5*time.Second).Health(context.Background())
	if err != nil {
		return err
	}
	if err := printJSON(health); err != nil {
		return err
	}
	if health.Status != "ok" {
		return fmt.Errorf("server is %s", health.Status)
	}
	return nil
}

func runModels(args []string) error {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	fs.Parse(args)

	c, err := cfg.Load()
	if err != nil {
		return err
	}
	models := ml.LoadModels(c.ModelPaths(), nil)
	if err := printJSON(models.Status()); err != nil {
		return err
	}
	if !models.Ready() {
		return fmt.Errorf("%d of 2 models loaded: %w", loadedCount(models), ml.ErrModelUnavailable)
	}
	return nil
}

func runBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	input := fs.String("input", "", "CSV file of applications (required)")
	output := fs.String("output", "", "directory for decisions.csv and batch_results.json")
	policy := fs.String("policy", "", "decision policy: averaged or logistic (default from config)")
	fs.Parse(args)

	if *input == "" {
		return fmt.Errorf("batch: -input is required")
	}
	c, err := cfg.Load()
	if err != nil {
		return err
	}
	if *policy != "" {
		if c.DecisionPolicy, err = ml.ParsePolicy(*policy); err != nil {
			return err
		}
	}

	data := batch.NewDataLoader()
	if err := data.LoadFromCSV(*input); err != nil {
		return err
	}
	engine := batch.NewEngine(ml.NewScorer(ml.LoadModels(c.ModelPaths(), nil), c.DecisionPolicy, nil), data)
	if err := engine.Run(); err != nil {
		return err
	}

	reporter := batch.NewReporter(engine.GetResults(), *output)
	if *output != "" {
		if err := reporter.GenerateReport(); err != nil {
			return err
		}
	}
	reporter.PrintSummary(os.Stdout)
	return nil
}

func loadedCount(m *ml.Models) int {
	n := 0
	for _, st := range m.Status() {
		if st.Loaded {
			n++
		}
	}
	return n
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
