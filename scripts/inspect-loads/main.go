package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"loan-predictor/internal/storage"
)

func main() {
	var (
		dataPath = flag.String("data", "./data", "Data directory path")
		model    = flag.String("model", "", "Only show loads of this model slot (logistic or tree)")
		limit    = flag.Int("limit", 50, "Maximum number of events to show")
	)
	flag.Parse()

	fmt.Printf("Inspecting model load history in: %s\n", *dataPath)

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	var records []storage.ModelLoadRecord
	if *model != "" {
		records, err = store.GetModelLoads(*model, time.Time{}, time.Now())
	} else {
		records, err = store.RecentModelLoads(*limit)
	}
	if err != nil {
		log.Fatalf("Failed to fetch model loads: %v", err)
	}
	if *model != "" && len(records) > *limit {
		records = records[len(records)-*limit:]
	}

	if len(records) == 0 {
		fmt.Println("No model load events recorded.")
		return
	}
	for _, r := range records {
		status := "loaded"
		if !r.Loaded {
			status = "FAILED: " + r.Error
		}
		fmt.Printf("%s  %-8s  %-20s %-8s %s  %s\n",
			r.LoadedAt.Format(time.RFC3339), r.Model, r.Name, r.Version, shortHash(r.SHA256), status)
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
