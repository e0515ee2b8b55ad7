// -----------------------------------------------------------------------
// Change - Proposed mutation to the system of record
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// ChangeType classifies a proposed mutation.
type ChangeType string

const (
	ChangeTypeAdded    ChangeType = "added"
	ChangeTypeModified ChangeType = "modified"
	ChangeTypeRemoved  ChangeType = "removed"
)

// ReviewStatus tracks a change through the approval pipeline.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// SystemReviewer is the reviewer recorded for decisions made by the
// auto-approval engine.
const SystemReviewer = "system"

// Change is a proposed mutation to an entity awaiting approval. Changes are
// created by collector workflows, resolved by the decision engine or a human
// reviewer, and never deleted - they form the audit trail.
type Change struct {
	ID string `json:"id" badgerhold:"key"`

	EntityType EntityType `json:"entity_type"`
	// EntityID is empty for new entities.
	EntityID    string `json:"entity_id,omitempty"`
	IsNewEntity bool   `json:"is_new_entity"`

	ChangeType ChangeType `json:"change_type"`

	// Field-level diff for modified changes.
	FieldName string      `json:"field_name,omitempty"`
	OldValue  interface{} `json:"old_value,omitempty"`
	NewValue  interface{} `json:"new_value,omitempty"`

	// Full attribute map for new entities.
	ProposedEntityData map[string]interface{} `json:"proposed_entity_data,omitempty"`

	Confidence float64 `json:"confidence"`
	SourceURL  string  `json:"source_url,omitempty"`

	ReviewStatus ReviewStatus `json:"review_status"`
	ReviewedBy   string       `json:"reviewed_by,omitempty"`
	ReviewReason string       `json:"review_reason,omitempty"`
	ReviewedAt   *time.Time   `json:"reviewed_at,omitempty"`

	// JobID links the change back to the collection job that proposed it.
	JobID string `json:"job_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewFieldChange creates a modified change for a single differing field.
func NewFieldChange(id string, entityType EntityType, entityID, field string, oldValue, newValue interface{}, confidence float64, sourceURL string) *Change {
	return &Change{
		ID:           id,
		EntityType:   entityType,
		EntityID:     entityID,
		ChangeType:   ChangeTypeModified,
		FieldName:    field,
		OldValue:     oldValue,
		NewValue:     newValue,
		Confidence:   confidence,
		SourceURL:    sourceURL,
		ReviewStatus: ReviewStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
}

// NewEntityChange creates an added change proposing a new entity.
func NewEntityChange(id string, entityType EntityType, proposed map[string]interface{}, confidence float64, sourceURL string) *Change {
	return &Change{
		ID:                 id,
		EntityType:         entityType,
		IsNewEntity:        true,
		ChangeType:         ChangeTypeAdded,
		ProposedEntityData: proposed,
		Confidence:         confidence,
		SourceURL:          sourceURL,
		ReviewStatus:       ReviewStatusPending,
		CreatedAt:          time.Now().UTC(),
	}
}

// NewRemovedChange creates a removed change for an entity absent from the
// latest collection sweep.
func NewRemovedChange(id string, entityType EntityType, entityID string, confidence float64, sourceURL string) *Change {
	return &Change{
		ID:           id,
		EntityType:   entityType,
		EntityID:     entityID,
		ChangeType:   ChangeTypeRemoved,
		Confidence:   confidence,
		SourceURL:    sourceURL,
		ReviewStatus: ReviewStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
}

// MarkApproved stamps the change approved by the given reviewer.
func (c *Change) MarkApproved(reviewedBy, reason string) error {
	if c.ReviewStatus != ReviewStatusPending {
		return fmt.Errorf("change %s: already %s", c.ID, c.ReviewStatus)
	}
	c.ReviewStatus = ReviewStatusApproved
	c.ReviewedBy = reviewedBy
	c.ReviewReason = reason
	now := time.Now().UTC()
	c.ReviewedAt = &now
	return nil
}

// MarkRejected stamps the change rejected with the generated reason.
func (c *Change) MarkRejected(reviewedBy, reason string) error {
	if c.ReviewStatus != ReviewStatusPending {
		return fmt.Errorf("change %s: already %s", c.ID, c.ReviewStatus)
	}
	c.ReviewStatus = ReviewStatusRejected
	c.ReviewedBy = reviewedBy
	c.ReviewReason = reason
	now := time.Now().UTC()
	c.ReviewedAt = &now
	return nil
}
