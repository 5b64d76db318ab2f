package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/thesavant42/scorekeeper/internal/db"
	"github.com/thesavant42/scorekeeper/internal/models"
)

func main() {
	dbPath := flag.String("db", "scores.db", "Path to SQLite database")
	outputPath := flag.String("output", "scores.csv", "Output CSV file")
	favorites := flag.Bool("favorites", false, "Only export favorites")
	flag.Parse()

	database, err := db.New(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	var filter models.PoolFilter
	if *favorites {
		filter.Favorite = favorites
	}
	records, err := database.ListScores(context.Background(), filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query database: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(*outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"score_code", "completion", "is_favorite", "remark", "updated_at"}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write header: %v\n", err)
		os.Exit(1)
	}

	count := 0
	for _, rec := range records {
		if err := w.Write(row(rec)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write row: %v\n", err)
			continue
		}
		count++
	}

	fmt.Printf("Exported %d scores to %s\n", count, *outputPath)
}

func row(rec models.ScoreRecord) []string {
	return []string{
		rec.ScoreCode,
		strconv.Itoa(rec.Completion),
		strconv.FormatBool(rec.IsFavorite),
		rec.Remark,
		rec.CreatedAt.Format(time.DateTime),
	}
}
