package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	decisionsFile = "decisions.csv"
	resultsFile   = "batch_results.json"
)

// Reporter writes batch results to disk and to a terminal.
type Reporter struct {
	results    *Results
	outputPath string
}

func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{results: results, outputPath: outputPath}
}

// GenerateReport writes the per-application decision log and the JSON
// summary into the output directory.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := r.generateDecisionLog(); err != nil {
		return err
	}
	return r.generateJSONReport()
}

func (r *Reporter) generateDecisionLog() error {
	csvPath := filepath.Join(r.outputPath, decisionsFile)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create decision log: %w", err)
	}
	defer file.Close()

	if err := r.WriteDecisions(file); err != nil {
		return fmt.Errorf("failed to write decision log: %w", err)
	}
	log.Info().Str("file", csvPath).Msg("Decision log generated")
	return nil
}

// WriteDecisions writes one CSV line per application.
func (r *Reporter) WriteDecisions(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := []string{
		"Line", "Loan_ID", "Decision", "LR Probability", "DT Probability",
		"Combined Score", "Label", "Error",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, o := range r.results.Outcomes {
		record := []string{strconv.Itoa(o.Line), o.LoanID, "", "", "", "", label(o.Label), ""}
		if o.Result != nil {
			record[2] = string(o.Result.Decision)
			record[3] = fmt.Sprintf("%.4f", o.Result.LRProbability)
			record[4] = fmt.Sprintf("%.4f", o.Result.DTProbability)
			if o.Result.CombinedScore != nil {
				record[5] = fmt.Sprintf("%.4f", *o.Result.CombinedScore)
			}
		} else {
			record[2] = "INVALID"
			record[7] = o.Field + ": " + o.Error
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func label(l *bool) string {
	switch {
	case l == nil:
		return ""
	case *l:
		return "Y"
	default:
		return "N"
	}
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, resultsFile)

	report := map[string]any{
		"summary":      r.summary(),
		"outcomes":     r.results.Outcomes,
		"generated_at": time.Now(),
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

func (r *Reporter) summary() map[string]any {
	s := map[string]any{
		"policy":        r.results.Policy,
		"start_time":    r.results.StartTime,
		"end_time":      r.results.EndTime,
		"total":         r.results.Total,
		"scored":        r.results.Scored,
		"invalid":       r.results.Invalid,
		"approved":      r.results.Approved,
		"rejected":      r.results.Rejected,
		"approval_rate": r.results.ApprovalRate,
	}
	if r.results.Labeled > 0 {
		s["labeled"] = r.results.Labeled
		s["agreement"] = r.results.Agreement
	}
	return s
}

// PrintSummary writes a human-readable summary to w.
func (r *Reporter) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "=== BATCH SCORING RESULTS ===")
	fmt.Fprintf(w, "Policy: %s\n", r.results.Policy)
	fmt.Fprintf(w, "Applications: %d (scored %d, invalid %d)\n", r.results.Total, r.results.Scored, r.results.Invalid)
	fmt.Fprintf(w, "Approved: %d\n", r.results.Approved)
	fmt.Fprintf(w, "Rejected: %d\n", r.results.Rejected)
	fmt.Fprintf(w, "Approval Rate: %.2f%%\n", r.results.ApprovalRate*100)
	if r.results.Labeled > 0 {
		fmt.Fprintf(w, "Label Agreement: %.2f%% of %d labeled\n", r.results.Agreement*100, r.results.Labeled)
	}
	fmt.Fprintln(w, "=============================")
}
