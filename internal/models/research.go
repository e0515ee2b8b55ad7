package models

import "time"

// ResearchResult is the structured outcome of one knowledge-service query.
// Exactly one of Attributes (single entity) or Entities (inventory/list
// responses) is populated depending on the job type.
type ResearchResult struct {
	EntityType EntityType `json:"entity_type"`

	// Attributes holds the primary entity's attribute map.
	Attributes map[string]interface{} `json:"attributes,omitempty"`

	// Entities holds one attribute map per discovered item for inventory
	// and list-style queries.
	Entities []map[string]interface{} `json:"entities,omitempty"`

	// Builders names organizations mentioned in a community response,
	// used for cascade discovery.
	Builders []string `json:"builders,omitempty"`

	SourceURLs []string `json:"source_urls,omitempty"`
	Confidence float64  `json:"confidence"`
}

// PrimarySource returns the first source URL, or "".
func (r *ResearchResult) PrimarySource() string {
	if len(r.SourceURLs) > 0 {
		return r.SourceURLs[0]
	}
	return ""
}

// NotificationKind identifies the decision-pipeline event being delivered.
type NotificationKind string

const (
	NotificationAutoApproved   NotificationKind = "auto_approved"
	NotificationReviewRequired NotificationKind = "review_required"
	NotificationAutoDenied     NotificationKind = "auto_denied"
)

// NotificationEvent carries a decision outcome to the notification sink.
// Delivery failures must never fail the originating job.
type NotificationEvent struct {
	Kind       NotificationKind       `json:"kind"`
	EntityType EntityType             `json:"entity_type"`
	EntityID   string                 `json:"entity_id,omitempty"`
	EntityName string                 `json:"entity_name,omitempty"`
	ChangeID   string                 `json:"change_id"`
	Snapshot   map[string]interface{} `json:"snapshot,omitempty"`
	Confidence float64                `json:"confidence"`
	Reason     string                 `json:"reason"`
	OccurredAt time.Time              `json:"occurred_at"`
}
