// Command dataloader imports reference data, currently the activity list, from
// a CSV file with a "name" header column.
//
//	dataloader -file data/activity.csv
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"eventhub-api/config"
	"eventhub-api/database"
	"eventhub-api/logging"
)

func main() {
	path := flag.String("file", "data/activity.csv", "CSV file with a name column")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	f, err := os.Open(*path)
	if err != nil {
		logging.Fatal().Err(err).Str("file", *path).Msg("failed to open data file")
	}
	defer f.Close()

	names, err := readNames(f)
	if err != nil {
		logging.Fatal().Err(err).Str("file", *path).Msg("failed to read data file")
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logging.Fatal().Err(err).Msg("failed to migrate database")
	}

	created, err := database.SeedActivities(db, names)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load activities")
	}
	logging.Info().Int64("created", created).Int("read", len(names)).Msg("successfully loaded data")
}

// readNames returns the trimmed values of the "name" column.
func readNames(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, err
	}
	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), "name") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("missing name column in header %v", header)
	}

	var names []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if col >= len(record) {
			continue
		}
		if name := strings.TrimSpace(record[col]); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
