package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"loan-predictor/internal/features"

	"github.com/rs/zerolog/log"
)

// Columns outside the feature schema that a dataset may carry.
const (
	ColumnLoanID     = "Loan_ID"
	ColumnLoanStatus = "Loan_Status"
)

// Application is one CSV row. Values holds the raw field text so rows that
// fail validation can still be reported.
type Application struct {
	Line   int
	LoanID string
	Values map[string]string
	// Label is the known outcome when the dataset has a Loan_Status column.
	Label *bool
}

// Get returns the raw value of field. It satisfies the getter accepted by
// features.ParseApplicant.
func (a Application) Get(field string) string {
	return a.Values[field]
}

type DataLoader struct {
	data  []Application
	index int
}

func NewDataLoader() *DataLoader {
	return &DataLoader{}
}

// LoadFromCSV reads applications from a CSV file with a header row.
func (dl *DataLoader) LoadFromCSV(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	if err := dl.Load(file); err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	log.Info().
		Str("file", filePath).
		Int("applications", len(dl.data)).
		Msg("CSV data loaded successfully")
	return nil
}

// Load reads applications from r. Every input column of the feature schema
// must be present in the header.
func (dl *DataLoader) Load(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	indices := make(map[string]int)
	for i, col := range header {
		indices[strings.TrimSpace(col)] = i
	}
	for _, col := range features.Columns {
		if col == features.FieldIncomePerLoan {
			continue
		}
		if _, ok := indices[col]; !ok {
			return fmt.Errorf("CSV header is missing column %q", col)
		}
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		app := Application{Line: line, Values: make(map[string]string, len(indices))}
		for col, i := range indices {
			if i < len(record) {
				app.Values[col] = record[i]
			}
		}
		app.LoanID = app.Values[ColumnLoanID]
		if status, ok := app.Values[ColumnLoanStatus]; ok {
			app.Label = parseLabel(status)
		}
		dl.data = append(dl.data, app)
	}
	return nil
}

func parseLabel(status string) *bool {
	var v bool
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "Y", "1", "APPROVED":
		v = true
	case "N", "0", "REJECTED":
		v = false
	default:
		return nil
	}
	return &v
}

func (dl *DataLoader) Reset() {
	dl.index = 0
}

func (dl *DataLoader) HasNext() bool {
	return dl.index < len(dl.data)
}

func (dl *DataLoader) Next() Application {
	app := dl.data[dl.index]
	dl.index++
	return app
}

func (dl *DataLoader) GetDataCount() int {
	return len(dl.data)
}
