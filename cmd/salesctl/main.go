// salesctl is a small operator tool for the sales forecast API: health
// checks, ad-hoc predictions, and local inspection of the audit log and
// prediction history.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"sales-forecast-api/internal/audit"
	"sales-forecast-api/internal/client"
	"sales-forecast-api/internal/forecast"
	"sales-forecast-api/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "health":
		err = runHealth(os.Args[2:])
	case "predict":
		err = runPredict(os.Args[2:])
	case "batch":
		err = runBatch(os.Args[2:])
	case "audit":
		err = runAudit(os.Args[2:])
	case "history":
		err = runHistory(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal().Err(err).Msg(os.Args[1] + " failed")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: salesctl <command> [flags]

commands:
  health    check the API is up
  predict   score a single date/store/item
  batch     score a JSON file of requests
  audit     print recent audit log entries
  history   export prediction history as JSON lines`)
}

func runHealth(args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8000", "API base URL")
	fs.Parse(args)

	c := client.New(*addr, 5*time.Second)
	status, err := c.Health()
	if err != nil {
		return err
	}
	fmt.Println(status)
	return nil
}

func runPredict(args []string) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8000", "API base URL")
	date := fs.String("date", "", "date in YYYY-MM-DD format")
	store := fs.Int("store", 0, "store identifier")
	item := fs.Int("item", 0, "item identifier")
	fs.Parse(args)

	if *date == "" {
		return fmt.Errorf("-date is required")
	}

	c := client.New(*addr, 10*time.Second)
	resp, err := c.Predict(forecast.PredictionRequest{Date: date, Store: store, Item: item})
	if err != nil {
		return err
	}
	fmt.Printf("sales: %d\n", resp.Sales)
	return nil
}

func runBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8000", "API base URL")
	file := fs.String("file", "", "JSON file with an array of prediction requests")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("-file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	var reqs []forecast.PredictionRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return fmt.Errorf("parse %s: %w", *file, err)
	}

	c := client.New(*addr, 30*time.Second)
	resps, err := c.PredictBatch(reqs)
	if err != nil {
		return err
	}
	out := json.NewEncoder(os.Stdout)
	return out.Encode(resps)
}

func runAudit(args []string) error {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	db := fs.String("db", "api_logs.db", "audit database path")
	n := fs.Int("n", 10, "number of entries to print")
	fs.Parse(args)

	store, err := audit.Open(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(context.Background(), *n)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("#%d %s\n  request:  %s\n  response: %s\n",
			e.ID, e.Timestamp.Format(time.RFC3339), e.RequestData, e.ResponseData)
	}
	return nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	dataPath := fs.String("data", "", "prediction history data directory")
	since := fs.Duration("since", 24*time.Hour, "how far back to export")
	fs.Parse(args)

	if *dataPath == "" {
		return fmt.Errorf("-data is required")
	}
	store, err := storage.New(*dataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Range(time.Now().Add(-*since), time.Now())
	if err != nil {
		return err
	}
	out := json.NewEncoder(os.Stdout)
	for _, rec := range records {
		if err := out.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}
