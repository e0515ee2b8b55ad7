package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	badgerstore "github.com/ternarybob/prospectus/internal/storage/badger"
)

func testResolver(t *testing.T) (*Resolver, interfaces.EntityStorage) {
	t.Helper()
	logger := arbor.NewLogger()

	manager, err := badgerstore.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	r := NewResolver(manager.EntityStorage(), &common.ResolverConfig{FuzzyThreshold: 0.85}, logger)
	return r, manager.EntityStorage()
}

func seedBuilder(t *testing.T, entities interfaces.EntityStorage, builder *models.Builder) {
	t.Helper()
	builder.Status = models.StatusActive
	builder.CreatedAt = time.Now().UTC()
	builder.UpdatedAt = builder.CreatedAt
	if err := entities.SaveBuilder(context.Background(), builder); err != nil {
		t.Fatalf("failed to seed builder: %v", err)
	}
}

func TestResolveWebsiteMatchWithLocation(t *testing.T) {
	r, entities := testResolver(t)
	seedBuilder(t, entities, &models.Builder{
		ID:      "bld_1",
		Name:    "Cedar Ridge Homes",
		Website: "https://www.cedarridgehomes.com/",
		City:    "Austin",
		State:   "TX",
	})

	res, err := r.Resolve(context.Background(), &Candidate{
		Name:    "Cedar Ridge Home Builders",
		Website: "cedarridgehomes.com",
		City:    "Austin",
		State:   "TX",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res == nil {
		t.Fatal("expected a match")
	}
	if res.MatchedID != "bld_1" || res.Method != MethodWebsite {
		t.Fatalf("got %+v, want bld_1 via %s", res, MethodWebsite)
	}
	if res.Confidence != 0.98 {
		t.Fatalf("website confidence = %v, want 0.98", res.Confidence)
	}
}

func TestResolveIdempotent(t *testing.T) {
	r, entities := testResolver(t)
	seedBuilder(t, entities, &models.Builder{
		ID:      "bld_1",
		Name:    "Summit Peak Construction",
		Website: "summitpeak.com",
		City:    "Denver",
		State:   "CO",
	})

	candidate := &Candidate{
		Name:    "Summit Peak Construction",
		Website: "https://summitpeak.com",
		City:    "Denver",
		State:   "CO",
	}

	first, err := r.Resolve(context.Background(), candidate)
	if err != nil || first == nil {
		t.Fatalf("first resolve: res=%v err=%v", first, err)
	}
	second, err := r.Resolve(context.Background(), candidate)
	if err != nil || second == nil {
		t.Fatalf("second resolve: res=%v err=%v", second, err)
	}
	if first.MatchedID != second.MatchedID {
		t.Fatalf("resolver not idempotent: %s vs %s", first.MatchedID, second.MatchedID)
	}
}

func TestResolveSharedWebsiteDistinctRegionsNotMerged(t *testing.T) {
	r, entities := testResolver(t)
	seedBuilder(t, entities, &models.Builder{
		ID:           "bld_tx",
		Name:         "National Builders Group",
		Website:      "nationalbuilders.com",
		City:         "Dallas",
		State:        "TX",
		ServiceAreas: []string{"Dallas, TX", "Fort Worth, TX"},
	})

	// Same corporate website, non-overlapping region.
	res, err := r.Resolve(context.Background(), &Candidate{
		Name:    "National Builders Group",
		Website: "nationalbuilders.com",
		City:    "Portland",
		State:   "OR",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res != nil && res.Method == MethodWebsite {
		t.Fatalf("distinct regional office merged on shared website: %+v", res)
	}
}

func TestResolveParentNameMatch(t *testing.T) {
	r, entities := testResolver(t)
	seedBuilder(t, entities, &models.Builder{
		ID:           "bld_1",
		Name:         "Lakeview Homes LLC",
		CommunityIDs: []string{"cmy_9"},
	})

	res, err := r.Resolve(context.Background(), &Candidate{
		Name:              "Lakeview Homes",
		ParentCommunityID: "cmy_9",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || res.Method != MethodParentName {
		t.Fatalf("got %+v, want %s", res, MethodParentName)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("parent name confidence = %v, want 1.0", res.Confidence)
	}
}

func TestResolveNameLocationOutsideParentIsDifferentInstance(t *testing.T) {
	r, entities := testResolver(t)
	seedBuilder(t, entities, &models.Builder{
		ID:           "bld_1",
		Name:         "Harbor Homes",
		City:         "Tampa",
		State:        "FL",
		CommunityIDs: []string{"cmy_other"},
	})

	// Name and location line up, but the builder is linked to a different
	// community than the one the candidate was discovered in.
	res, err := r.Resolve(context.Background(), &Candidate{
		Name:              "Harbor Homes",
		City:              "Tampa",
		State:             "FL",
		ParentCommunityID: "cmy_mine",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res != nil {
		t.Fatalf("expected no match for out-of-parent instance, got %+v", res)
	}
}

func TestResolveNameLocationMatch(t *testing.T) {
	r, entities := testResolver(t)
	seedBuilder(t, entities, &models.Builder{
		ID:    "bld_1",
		Name:  "Harbor Homes, Inc.",
		City:  "Tampa",
		State: "FL",
	})

	res, err := r.Resolve(context.Background(), &Candidate{
		Name:  "Harbor Homes",
		City:  "Tampa",
		State: "FL",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || res.Method != MethodNameLocation {
		t.Fatalf("got %+v, want %s", res, MethodNameLocation)
	}
	if res.Confidence != 0.90 {
		t.Fatalf("name+location confidence = %v, want 0.90", res.Confidence)
	}
}

func TestResolveFuzzyNameWithLocationBoostCapped(t *testing.T) {
	r, entities := testResolver(t)
	seedBuilder(t, entities, &models.Builder{
		ID:    "bld_1",
		Name:  "Brookstone Builders",
		City:  "Nashville",
		State: "TN",
	})

	res, err := r.Resolve(context.Background(), &Candidate{
		Name:  "Brookstone Builder",
		City:  "Nashville",
		State: "TN",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || res.Method != MethodFuzzyName {
		t.Fatalf("got %+v, want %s", res, MethodFuzzyName)
	}
	if res.Confidence > 0.92 {
		t.Fatalf("fuzzy confidence %v exceeds cap", res.Confidence)
	}
}

func TestResolveNoMatchIsNew(t *testing.T) {
	r, entities := testResolver(t)
	seedBuilder(t, entities, &models.Builder{
		ID:    "bld_1",
		Name:  "Brookstone Builders",
		City:  "Nashville",
		State: "TN",
	})

	res, err := r.Resolve(context.Background(), &Candidate{
		Name:  "Willow Creek Custom Homes",
		City:  "Boise",
		State: "ID",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res != nil {
		t.Fatalf("unrelated candidate matched: %+v", res)
	}
}
