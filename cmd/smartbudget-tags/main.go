package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"smartbudget/internal/config"
	"smartbudget/internal/log"
	"smartbudget/internal/storage"
	"smartbudget/internal/taxonomy"
)

// smartbudget-tags administers the label taxonomy. Lifecycle
// operations must not run while a pipeline pass is in flight.
//
// Usage:
//
//	smartbudget-tags rename <old> <new>
//	smartbudget-tags merge <source,...> <target>
//	smartbudget-tags split <source> <new> <expense-id,...>
//	smartbudget-tags set-weight <label-id> <weight>
func main() {
	_ = godotenv.Load()

	logger := log.Setup("smartbudget-tags", log.LevelFromEnv())

	cfg := config.Load()
	if cfg.SQLiteDBPath == "" {
		logger.Error("SQLITE_DB_PATH is required")
		os.Exit(1)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()
	tax := taxonomy.New(repo)

	switch args[0] {
	case "rename":
		if len(args) != 3 {
			usage()
			os.Exit(2)
		}
		err = tax.Rename(ctx, args[1], args[2])
	case "merge":
		if len(args) != 3 {
			usage()
			os.Exit(2)
		}
		err = tax.Merge(ctx, splitList(args[1]), args[2])
	case "split":
		if len(args) != 4 {
			usage()
			os.Exit(2)
		}
		var ids []int64
		ids, err = parseIDs(args[3])
		if err == nil {
			err = tax.Split(ctx, args[1], args[2], ids)
		}
	case "set-weight":
		if len(args) != 3 {
			usage()
			os.Exit(2)
		}
		var labelID int64
		var weight float64
		labelID, err = strconv.ParseInt(args[1], 10, 64)
		if err == nil {
			weight, err = strconv.ParseFloat(args[2], 64)
		}
		if err == nil {
			err = tax.SetWeight(ctx, labelID, weight, time.Now())
		}
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("Taxonomy operation failed", "operation", args[0], "error", err)
		os.Exit(1)
	}

	logger.Info("Taxonomy operation applied", "operation", args[0])
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, p := range splitList(s) {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid expense id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  smartbudget-tags rename <old> <new>
  smartbudget-tags merge <source,...> <target>
  smartbudget-tags split <source> <new> <expense-id,...>
  smartbudget-tags set-weight <label-id> <weight>`)
}
