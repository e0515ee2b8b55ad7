package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewChangeID generates a unique change ID with the "chg_" prefix
func NewChangeID() string {
	return "chg_" + uuid.New().String()
}

// NewMatchID generates a unique entity-match ID with the "match_" prefix
func NewMatchID() string {
	return "match_" + uuid.New().String()
}

// NewHistoryID generates a unique status-history ID with the "hist_" prefix
func NewHistoryID() string {
	return "hist_" + uuid.New().String()
}

// NewEntityID generates a unique entity ID for the given category prefix.
// Prefixes: bld (builder), cmy (community), home, agt (agent).
func NewEntityID(prefix string) string {
	return prefix + "_" + uuid.New().String()
}
