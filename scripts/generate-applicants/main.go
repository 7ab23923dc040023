package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strconv"
)

var header = []string{
	"Loan_ID", "Gender", "Married", "Dependents", "Education", "Self_Employed",
	"ApplicantIncome", "CoapplicantIncome", "LoanAmount", "Loan_Amount_Term",
	"Credit_History", "Property_Area",
}

// Generates synthetic applications for trying out loanctl batch.
func main() {
	var (
		output = flag.String("output", "applicants.csv", "Output CSV file")
		count  = flag.Int("count", 100, "Number of applications to generate")
		seed   = flag.Int64("seed", 1, "Random seed")
	)
	flag.Parse()

	file, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *output, err)
	}
	defer file.Close()

	rng := rand.New(rand.NewSource(*seed))
	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		log.Fatalf("Failed to write header: %v", err)
	}
	for i := 0; i < *count; i++ {
		if err := writer.Write(generateApplicant(rng, i)); err != nil {
			log.Fatalf("Failed to write row: %v", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Fatalf("Failed to flush: %v", err)
	}

	fmt.Printf("Generated %d applications in %s\n", *count, *output)
}

func pick(rng *rand.Rand, values ...string) string {
	return values[rng.Intn(len(values))]
}

func generateApplicant(rng *rand.Rand, i int) []string {
	// Incomes are roughly log-normal around 4000 a month.
	income := math.Round(math.Exp(8.3 + 0.6*rng.NormFloat64()))
	coapplicant := 0.0
	if rng.Float64() < 0.55 {
		coapplicant = math.Round(math.Exp(7.4 + 0.7*rng.NormFloat64()))
	}
	loan := math.Max(9, math.Round(income/40+60*rng.NormFloat64()+60))
	credit := "1"
	if rng.Float64() < 0.16 {
		credit = "0"
	}

	return []string{
		fmt.Sprintf("LP%06d", i+1),
		pick(rng, "Male", "Male", "Male", "Female"),
		pick(rng, "Yes", "Yes", "No"),
		pick(rng, "0", "0", "0", "1", "2", "3+"),
		pick(rng, "Graduate", "Graduate", "Graduate", "Not Graduate"),
		pick(rng, "No", "No", "No", "No", "No", "Yes"),
		strconv.FormatFloat(income, 'f', -1, 64),
		strconv.FormatFloat(coapplicant, 'f', -1, 64),
		strconv.FormatFloat(loan, 'f', -1, 64),
		pick(rng, "360", "360", "360", "360", "180", "480", "300"),
		credit,
		pick(rng, "Urban", "Semiurban", "Rural"),
	}
}
