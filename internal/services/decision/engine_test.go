package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/models"
)

func testEngine() *Engine {
	return NewEngine(&common.DecisionConfig{
		ApproveThreshold: 0.90,
		DenyThreshold:    0.75,
	})
}

func homeChange(confidence float64, price float64, squareFeet int) *models.Change {
	return models.NewEntityChange("chg_test", models.EntityTypeHome, map[string]interface{}{
		"address":     "14 Birch Ct",
		"price":       price,
		"square_feet": squareFeet,
	}, confidence, "https://example.com/listing")
}

func TestDecideApprovesHighConfidence(t *testing.T) {
	outcome := testEngine().Decide(homeChange(0.95, 425000, 2100))
	assert.Equal(t, VerdictApprove, outcome.Verdict)
	assert.NotEmpty(t, outcome.Reason)
}

func TestDecideDeniesLowConfidence(t *testing.T) {
	outcome := testEngine().Decide(homeChange(0.50, 425000, 2100))
	assert.Equal(t, VerdictDeny, outcome.Verdict)
	assert.Contains(t, outcome.Reason, "confidence 0.50")
}

func TestDecideReviewsMiddleBand(t *testing.T) {
	outcome := testEngine().Decide(homeChange(0.85, 425000, 2100))
	assert.Equal(t, VerdictReview, outcome.Verdict)
}

func TestDecideBoundaryValuesRouteToReview(t *testing.T) {
	// Approve requires strictly above 0.90, deny strictly below 0.75.
	assert.Equal(t, VerdictReview, testEngine().Decide(homeChange(0.90, 425000, 2100)).Verdict)
	assert.Equal(t, VerdictReview, testEngine().Decide(homeChange(0.75, 425000, 2100)).Verdict)
}

func TestDecideDeniesInvalidRequiredFields(t *testing.T) {
	outcome := testEngine().Decide(homeChange(0.95, 0, 2100))
	assert.Equal(t, VerdictDeny, outcome.Verdict)
	assert.Contains(t, outcome.Reason, "price")

	outcome = testEngine().Decide(homeChange(0.95, 425000, 0))
	assert.Equal(t, VerdictDeny, outcome.Verdict)
	assert.Contains(t, outcome.Reason, "square footage")
}

func TestDecideEnumeratesAllFailures(t *testing.T) {
	outcome := testEngine().Decide(homeChange(0.40, 0, 0))
	assert.Equal(t, VerdictDeny, outcome.Verdict)
	assert.Contains(t, outcome.Reason, "confidence")
	assert.Contains(t, outcome.Reason, "price")
	assert.Contains(t, outcome.Reason, "square footage")
}

func TestDecideRoutesNonHomeToReview(t *testing.T) {
	change := models.NewEntityChange("chg_b", models.EntityTypeBuilder, map[string]interface{}{
		"name": "Cedar Ridge Homes",
	}, 0.99, "")
	assert.Equal(t, VerdictReview, testEngine().Decide(change).Verdict)
}

func TestDecideRoutesFieldChangesToReview(t *testing.T) {
	change := models.NewFieldChange("chg_f", models.EntityTypeHome, "home_1", "price", 400000.0, 410000.0, 0.99, "")
	assert.Equal(t, VerdictReview, testEngine().Decide(change).Verdict)
}
