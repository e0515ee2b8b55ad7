package decision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	badgerstore "github.com/ternarybob/prospectus/internal/storage/badger"
)

type silentNotifier struct{}

func (silentNotifier) Notify(ctx context.Context, event *models.NotificationEvent) {}

func testService(t *testing.T) (*Service, interfaces.StorageManager) {
	t.Helper()
	logger := arbor.NewLogger()

	manager, err := badgerstore.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	svc := NewService(testEngine(), manager, silentNotifier{}, logger)
	return svc, manager
}

func TestProcessAutoApprovesHighConfidenceHome(t *testing.T) {
	svc, manager := testService(t)
	ctx := context.Background()

	change := homeChange(0.95, 425000, 2100)
	require.NoError(t, manager.ChangeStorage().SaveChange(ctx, change))

	outcome, err := svc.Process(ctx, change)
	require.NoError(t, err)
	require.Equal(t, VerdictApprove, outcome.Verdict)
	require.Equal(t, models.ReviewStatusApproved, change.ReviewStatus)
	require.Equal(t, models.SystemReviewer, change.ReviewedBy)
	require.NotEmpty(t, change.EntityID)

	home, err := manager.EntityStorage().GetHome(ctx, change.EntityID)
	require.NoError(t, err)
	require.Equal(t, "14 Birch Ct", home.Address)
	require.Equal(t, models.SystemReviewer, home.ApprovedBy)
}

func TestApproveManuallyMaterializesBuilder(t *testing.T) {
	svc, manager := testService(t)
	ctx := context.Background()

	change := models.NewEntityChange("chg_builder", models.EntityTypeBuilder, map[string]interface{}{
		"name":         "Cedar Ridge Homes",
		"website":      "https://cedarridgehomes.com",
		"city":         "Boise",
		"state":        "ID",
		"community_id": "community_17",
	}, 0.82, "https://example.com/builders")
	require.NoError(t, manager.ChangeStorage().SaveChange(ctx, change))

	require.NoError(t, svc.ApproveManually(ctx, change, "jordan", "verified against county records"))
	require.Equal(t, models.ReviewStatusApproved, change.ReviewStatus)
	require.NotEmpty(t, change.EntityID)

	builder, err := manager.EntityStorage().GetBuilder(ctx, change.EntityID)
	require.NoError(t, err)
	require.Equal(t, "Cedar Ridge Homes", builder.Name)
	require.Equal(t, "jordan", builder.ApprovedBy)
	require.Equal(t, models.StatusActive, builder.Status)
	require.Equal(t, []string{"community_17"}, builder.CommunityIDs)
}

func TestApproveManuallyMaterializesCommunity(t *testing.T) {
	svc, manager := testService(t)
	ctx := context.Background()

	change := models.NewEntityChange("chg_community", models.EntityTypeCommunity, map[string]interface{}{
		"name":        "Willow Bend",
		"city":        "Meridian",
		"state":       "ID",
		"stage":       "under_construction",
		"total_units": 120,
	}, 0.80, "https://example.com/communities")
	require.NoError(t, manager.ChangeStorage().SaveChange(ctx, change))

	require.NoError(t, svc.ApproveManually(ctx, change, "jordan", ""))
	require.NotEmpty(t, change.EntityID)

	community, err := manager.EntityStorage().GetCommunity(ctx, change.EntityID)
	require.NoError(t, err)
	require.Equal(t, "Willow Bend", community.Name)
	require.Equal(t, 120, community.TotalUnits)
	require.Equal(t, models.StatusActive, community.Status)
}

func TestApproveManuallyMaterializesAgent(t *testing.T) {
	svc, manager := testService(t)
	ctx := context.Background()

	change := models.NewEntityChange("chg_agent", models.EntityTypeAgent, map[string]interface{}{
		"name":       "Dana Reyes",
		"email":      "dana@cedarridgehomes.com",
		"builder_id": "builder_4",
	}, 0.78, "https://example.com/agents")
	require.NoError(t, manager.ChangeStorage().SaveChange(ctx, change))

	require.NoError(t, svc.ApproveManually(ctx, change, "jordan", ""))
	require.NotEmpty(t, change.EntityID)

	agent, err := manager.EntityStorage().GetAgent(ctx, change.EntityID)
	require.NoError(t, err)
	require.Equal(t, "Dana Reyes", agent.Name)
	require.Equal(t, "builder_4", agent.BuilderID)
	require.Equal(t, models.StatusActive, agent.Status)
}

func TestApproveManuallyRejectsInvalidProposedData(t *testing.T) {
	svc, manager := testService(t)
	ctx := context.Background()

	change := models.NewEntityChange("chg_bad", models.EntityTypeBuilder, map[string]interface{}{
		"website": "https://example.com",
	}, 0.82, "https://example.com/builders")
	require.NoError(t, manager.ChangeStorage().SaveChange(ctx, change))

	err := svc.ApproveManually(ctx, change, "jordan", "")
	require.Error(t, err)
	require.Equal(t, models.ReviewStatusPending, change.ReviewStatus)
}

func TestApproveManuallyRequiresNamedReviewer(t *testing.T) {
	svc, manager := testService(t)
	ctx := context.Background()

	change := homeChange(0.85, 425000, 2100)
	require.NoError(t, manager.ChangeStorage().SaveChange(ctx, change))

	require.Error(t, svc.ApproveManually(ctx, change, "", ""))
	require.Error(t, svc.ApproveManually(ctx, change, models.SystemReviewer, ""))
	require.Equal(t, models.ReviewStatusPending, change.ReviewStatus)
}
