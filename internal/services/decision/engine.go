// -----------------------------------------------------------------------
// Decision engine - confidence-based auto-approval classification
// -----------------------------------------------------------------------

package decision

import (
	"fmt"
	"strings"

	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/models"
)

// Verdict is the classification of a proposed change.
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictDeny    Verdict = "deny"
	VerdictReview  Verdict = "review"
)

// Outcome is a verdict with its machine-generated reason.
type Outcome struct {
	Verdict Verdict
	Reason  string
}

// Engine classifies proposed changes. Decide is a pure function of the
// change snapshot: it never touches the store.
type Engine struct {
	approveThreshold float64
	denyThreshold    float64
}

// NewEngine creates a decision engine with the configured thresholds.
func NewEngine(config *common.DecisionConfig) *Engine {
	return &Engine{
		approveThreshold: config.ApproveThreshold,
		denyThreshold:    config.DenyThreshold,
	}
}

// Decide classifies a change. Only newly-added home entities are
// auto-processable; every other change routes to review. Approve requires
// confidence strictly above the approve threshold with positive price and
// square footage; deny requires confidence strictly below the deny
// threshold or an invalid required field; the boundary values themselves
// fall to review.
func (e *Engine) Decide(change *models.Change) Outcome {
	if !change.IsNewEntity || change.EntityType != models.EntityTypeHome {
		return Outcome{
			Verdict: VerdictReview,
			Reason:  fmt.Sprintf("%s %s changes require manual review", change.EntityType, change.ChangeType),
		}
	}

	proposed, err := models.DecodeProposedHome(change.ProposedEntityData)
	if err != nil {
		return Outcome{
			Verdict: VerdictDeny,
			Reason:  fmt.Sprintf("proposed home data is invalid: %v", err),
		}
	}

	confidence := change.Confidence
	price := proposed.Price
	squareFeet := proposed.SquareFeet

	if confidence > e.approveThreshold && price > 0 && squareFeet > 0 {
		return Outcome{
			Verdict: VerdictApprove,
			Reason: fmt.Sprintf("confidence %.2f exceeds %.2f with valid price and square footage",
				confidence, e.approveThreshold),
		}
	}

	var failures []string
	if confidence < e.denyThreshold {
		failures = append(failures, fmt.Sprintf("confidence %.2f below %.2f", confidence, e.denyThreshold))
	}
	if price < 1 {
		failures = append(failures, fmt.Sprintf("price %.2f is not positive", price))
	}
	if squareFeet < 1 {
		failures = append(failures, fmt.Sprintf("square footage %d is not positive", squareFeet))
	}
	if len(failures) > 0 {
		return Outcome{
			Verdict: VerdictDeny,
			Reason:  "auto-denied: " + strings.Join(failures, "; "),
		}
	}

	return Outcome{
		Verdict: VerdictReview,
		Reason: fmt.Sprintf("confidence %.2f between %.2f and %.2f requires manual review",
			confidence, e.denyThreshold, e.approveThreshold),
	}
}
