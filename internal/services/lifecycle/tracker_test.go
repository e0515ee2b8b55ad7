package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	badgerstore "github.com/ternarybob/prospectus/internal/storage/badger"
)

func testTracker(t *testing.T) (*Tracker, interfaces.StorageManager) {
	t.Helper()
	logger := arbor.NewLogger()

	manager, err := badgerstore.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	tracker := NewTracker(manager, &common.LifecycleConfig{GraceDays: 60, SweepSchedule: "0 3 * * *"}, logger)
	return tracker, manager
}

func seedAgent(t *testing.T, manager interfaces.StorageManager, id string, lastSeen time.Time) {
	t.Helper()
	seen := lastSeen.UTC()
	agent := &models.Agent{
		ID:         id,
		BuilderID:  "bld_1",
		Name:       "Jordan Reyes",
		Status:     models.StatusActive,
		LastSeenAt: &seen,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := manager.EntityStorage().SaveAgent(context.Background(), agent); err != nil {
		t.Fatalf("failed to seed agent: %v", err)
	}
}

func TestTransitionAppliesTableAndHistory(t *testing.T) {
	tracker, manager := testTracker(t)
	ctx := context.Background()

	community := &models.Community{
		ID:        "cmy_1",
		Name:      "Willow Bend",
		Status:    models.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := manager.EntityStorage().SaveCommunity(ctx, community); err != nil {
		t.Fatal(err)
	}

	next, err := tracker.Transition(ctx, models.EntityTypeCommunity, "cmy_1", EventSellOut, models.SystemReviewer, "all units sold")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if next != models.StatusSoldOut {
		t.Fatalf("next = %s, want sold_out", next)
	}

	stored, err := manager.EntityStorage().GetCommunity(ctx, "cmy_1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.StatusSoldOut {
		t.Fatalf("persisted status = %s, want sold_out", stored.Status)
	}

	history, err := manager.HistoryStorage().ListHistory(ctx, "cmy_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history))
	}
	if history[0].OldStatus != "active" || history[0].NewStatus != "sold_out" {
		t.Fatalf("history entry = %+v", history[0])
	}
}

func TestTransitionRejectsUnmappedPair(t *testing.T) {
	tracker, manager := testTracker(t)
	ctx := context.Background()

	community := &models.Community{ID: "cmy_1", Name: "Willow Bend", Status: models.StatusSoldOut}
	if err := manager.EntityStorage().SaveCommunity(ctx, community); err != nil {
		t.Fatal(err)
	}

	_, err := tracker.Transition(ctx, models.EntityTypeCommunity, "cmy_1", EventSellOut, models.SystemReviewer, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	// No history entry is written for a rejected transition.
	history, err := manager.HistoryStorage().ListHistory(ctx, "cmy_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Fatalf("rejected transition wrote %d history entries", len(history))
	}
}

func TestSweepInsideGraceWindowStaysActive(t *testing.T) {
	tracker, manager := testTracker(t)
	now := time.Now().UTC()
	seedAgent(t, manager, "agt_1", now.AddDate(0, 0, -59))

	deactivated, err := tracker.SweepStaleAgents(context.Background(), now)
	if err != nil {
		t.Fatal(err)
	}
	if deactivated != 0 {
		t.Fatalf("deactivated = %d, want 0", deactivated)
	}

	agent, _ := manager.EntityStorage().GetAgent(context.Background(), "agt_1")
	if agent.Status != models.StatusActive {
		t.Fatalf("agent status = %s, want active", agent.Status)
	}
}

func TestSweepPastGraceWindowDeactivates(t *testing.T) {
	tracker, manager := testTracker(t)
	now := time.Now().UTC()
	seedAgent(t, manager, "agt_1", now.AddDate(0, 0, -61))

	deactivated, err := tracker.SweepStaleAgents(context.Background(), now)
	if err != nil {
		t.Fatal(err)
	}
	if deactivated != 1 {
		t.Fatalf("deactivated = %d, want 1", deactivated)
	}

	agent, _ := manager.EntityStorage().GetAgent(context.Background(), "agt_1")
	if agent.Status != models.StatusInactive {
		t.Fatalf("agent status = %s, want inactive", agent.Status)
	}

	history, err := manager.HistoryStorage().ListHistory(context.Background(), "agt_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Reason == "" {
		t.Fatalf("expected one history entry with a reason, got %+v", history)
	}
}

func TestMarkSeenResetsClockWithoutStatusChange(t *testing.T) {
	tracker, manager := testTracker(t)
	now := time.Now().UTC()
	seedAgent(t, manager, "agt_1", now.AddDate(0, 0, -30))

	if err := tracker.MarkSeen(context.Background(), models.EntityTypeAgent, "agt_1", now); err != nil {
		t.Fatal(err)
	}

	agent, _ := manager.EntityStorage().GetAgent(context.Background(), "agt_1")
	if agent.Status != models.StatusActive {
		t.Fatalf("MarkSeen changed status to %s", agent.Status)
	}
	if agent.LastSeenAt == nil || !agent.LastSeenAt.Equal(now) {
		t.Fatalf("LastSeenAt = %v, want %v", agent.LastSeenAt, now)
	}

	history, err := manager.HistoryStorage().ListHistory(context.Background(), "agt_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Fatalf("MarkSeen wrote %d history entries", len(history))
	}
}

func TestDeriveAvailability(t *testing.T) {
	cases := []struct {
		name string
		c    models.Community
		want models.EntityStatus
	}{
		{"sold out", models.Community{TotalUnits: 100, AvailableUnits: 0, SoldUnits: 100}, models.StatusSoldOut},
		{"limited by available", models.Community{TotalUnits: 100, AvailableUnits: 8, SoldUnits: 92}, models.StatusLimited},
		{"limited by sold", models.Community{TotalUnits: 100, AvailableUnits: 15, SoldUnits: 90}, models.StatusLimited},
		{"available", models.Community{TotalUnits: 100, AvailableUnits: 60, SoldUnits: 40}, models.StatusAvailable},
		{"stage fallback upcoming", models.Community{Stage: "pre_sales"}, models.StatusUpcoming},
		{"stage fallback closed", models.Community{Stage: "closed"}, models.StatusSoldOut},
		{"stage fallback default", models.Community{Stage: "selling"}, models.StatusAvailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveAvailability(&tc.c); got != tc.want {
				t.Fatalf("DeriveAvailability = %s, want %s", got, tc.want)
			}
		})
	}
}
