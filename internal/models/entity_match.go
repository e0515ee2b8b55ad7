package models

import "time"

// EntityMatch records one identity-resolution attempt. Write-once, kept for
// audit and resolver debugging.
type EntityMatch struct {
	ID string `json:"id" badgerhold:"key"`

	EntityType     EntityType             `json:"entity_type"`
	DiscoveredName string                 `json:"discovered_name"`
	DiscoveredData map[string]interface{} `json:"discovered_data,omitempty"`

	// MatchedEntityID is empty when the candidate resolved as new.
	MatchedEntityID string  `json:"matched_entity_id,omitempty"`
	MatchConfidence float64 `json:"match_confidence"`
	MatchMethod     string  `json:"match_method,omitempty"`

	JobID     string    `json:"job_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusHistory is one entry in the append-only per-entity status log.
// Entries are never mutated or deleted.
type StatusHistory struct {
	ID string `json:"id" badgerhold:"key"`

	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`

	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	ChangedBy string `json:"changed_by"`
	Reason    string `json:"reason,omitempty"`

	ChangedAt time.Time `json:"changed_at"`
}
