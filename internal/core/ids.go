package core

import (
	"hash/fnv"
	"math"
	"strconv"
)

// Stable id derivation. Ids must be reproducible across processes and
// runs, so they are FNV-1a 64 content hashes over the natural key,
// masked to a non-negative value that fits SQLite's signed INTEGER.

func stableID(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() & math.MaxInt64)
}

// ExpenseID derives the canonical expense id from the source row's
// natural key.
func ExpenseID(sourceSystem, sourceRowID string) int64 {
	return stableID(sourceSystem + ":" + sourceRowID)
}

// RecommendationID derives the recommendation id from the related
// expense id, making regeneration idempotent.
func RecommendationID(expenseID int64) int64 {
	return stableID("rec:" + strconv.FormatInt(expenseID, 10))
}
