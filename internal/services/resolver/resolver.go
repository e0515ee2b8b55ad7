// -----------------------------------------------------------------------
// Identity resolver - duplicate detection for discovered builders
// -----------------------------------------------------------------------

package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// Match method names recorded on EntityMatch rows.
const (
	MethodParentName   = "parent_name_match"
	MethodWebsite      = "website_match"
	MethodEmail        = "email_match"
	MethodPhone        = "phone_match"
	MethodNameLocation = "name_location_match"
	MethodFuzzyName    = "fuzzy_name_match"
)

// Tier confidences. Tier-2 identifiers carry different weights: a shared
// website is stronger evidence than a shared phone line.
const (
	confidenceParentName   = 1.0
	confidenceWebsite      = 0.98
	confidenceEmail        = 0.96
	confidencePhone        = 0.93
	confidenceNameLocation = 0.90
	fuzzyLocationBoost     = 0.10
	fuzzyConfidenceCap     = 0.92
)

// Candidate is a newly discovered builder awaiting identity resolution.
type Candidate struct {
	Name         string
	Website      string
	Email        string
	Phone        string
	City         string
	State        string
	ServiceAreas []string

	// ParentCommunityID is the community context the candidate was
	// discovered in, when known.
	ParentCommunityID string
}

// Resolution is a successful match against an existing builder.
type Resolution struct {
	MatchedID  string
	Confidence float64
	Method     string
}

// Resolver finds existing builder records matching discovered candidates.
// Tiers are evaluated in strict priority order, returning on first hit;
// no hit across all four tiers means the candidate is new.
type Resolver struct {
	entities       interfaces.EntityStorage
	fuzzyThreshold float64
	logger         arbor.ILogger
}

// NewResolver creates a resolver over the entity store.
func NewResolver(entities interfaces.EntityStorage, config *common.ResolverConfig, logger arbor.ILogger) *Resolver {
	threshold := config.FuzzyThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return &Resolver{
		entities:       entities,
		fuzzyThreshold: threshold,
		logger:         logger,
	}
}

// Resolve evaluates the four match tiers for a candidate. A nil Resolution
// with nil error means no existing record matches: the candidate is new.
func (r *Resolver) Resolve(ctx context.Context, candidate *Candidate) (*Resolution, error) {
	if candidate == nil || strings.TrimSpace(candidate.Name) == "" {
		return nil, fmt.Errorf("candidate requires a name")
	}

	builders, err := r.entities.ListBuilders(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load builder candidates: %w", err)
	}

	normName := common.NormalizeName(candidate.Name)
	normWebsite := common.NormalizeWebsite(candidate.Website)
	normEmail := common.NormalizeEmail(candidate.Email)
	normPhone := common.NormalizePhone(candidate.Phone)

	// Tier 1: exact name already linked to the same parent community.
	if candidate.ParentCommunityID != "" {
		for _, builder := range builders {
			if common.NormalizeName(builder.Name) == normName && builder.LinkedToCommunity(candidate.ParentCommunityID) {
				return r.resolved(builder.ID, confidenceParentName, MethodParentName), nil
			}
		}
	}

	// Tier 2: unique contact identifier plus location validation. The
	// location gate keeps distinct regional offices that share one
	// corporate identifier from being collapsed.
	for _, builder := range builders {
		if !r.locationCompatible(candidate, builder) {
			continue
		}
		if normWebsite != "" && common.NormalizeWebsite(builder.Website) == normWebsite {
			return r.resolved(builder.ID, confidenceWebsite, MethodWebsite), nil
		}
		if normEmail != "" && common.NormalizeEmail(builder.Email) == normEmail {
			return r.resolved(builder.ID, confidenceEmail, MethodEmail), nil
		}
		if normPhone != "" && common.NormalizePhone(builder.Phone) == normPhone {
			return r.resolved(builder.ID, confidencePhone, MethodPhone), nil
		}
	}

	// Tier 3: normalized name + city + state. With a parent context, a
	// name+location match outside that context is a different local
	// instance, not a duplicate.
	if candidate.City != "" && candidate.State != "" {
		for _, builder := range builders {
			if common.NormalizeName(builder.Name) != normName {
				continue
			}
			if common.NormalizeLocation(builder.City) != common.NormalizeLocation(candidate.City) ||
				common.NormalizeLocation(builder.State) != common.NormalizeLocation(candidate.State) {
				continue
			}
			if candidate.ParentCommunityID != "" && !builder.LinkedToCommunity(candidate.ParentCommunityID) {
				continue
			}
			return r.resolved(builder.ID, confidenceNameLocation, MethodNameLocation), nil
		}
	}

	// Tier 4: fuzzy name similarity, restricted to location-compatible
	// candidates, further restricted to the parent context when given.
	var best *Resolution
	for _, builder := range builders {
		if !r.locationCompatible(candidate, builder) {
			continue
		}
		if candidate.ParentCommunityID != "" && !builder.LinkedToCommunity(candidate.ParentCommunityID) {
			continue
		}

		ratio := nameSimilarity(normName, common.NormalizeName(builder.Name))
		if ratio < r.fuzzyThreshold {
			continue
		}

		confidence := ratio
		if common.NormalizeLocation(builder.City) == common.NormalizeLocation(candidate.City) &&
			common.NormalizeLocation(builder.State) == common.NormalizeLocation(candidate.State) &&
			candidate.City != "" && candidate.State != "" {
			confidence += fuzzyLocationBoost
		}
		if confidence > fuzzyConfidenceCap {
			confidence = fuzzyConfidenceCap
		}

		if best == nil || confidence > best.Confidence {
			best = &Resolution{MatchedID: builder.ID, Confidence: confidence, Method: MethodFuzzyName}
		}
	}
	if best != nil {
		return best, nil
	}

	return nil, nil
}

func (r *Resolver) resolved(id string, confidence float64, method string) *Resolution {
	r.logger.Debug().
		Str("matched_id", id).
		Str("method", method).
		Float64("confidence", confidence).
		Msg("Identity resolved to existing builder")
	return &Resolution{MatchedID: id, Confidence: confidence, Method: method}
}

// locationCompatible checks the candidate's declared city/state, service
// areas, or parent link against the stored builder. A candidate with no
// location signal at all is treated as compatible: there is no evidence of
// distinctness to act on.
func (r *Resolver) locationCompatible(candidate *Candidate, builder *models.Builder) bool {
	if candidate.ParentCommunityID != "" && builder.LinkedToCommunity(candidate.ParentCommunityID) {
		return true
	}

	hasSignal := candidate.City != "" || candidate.State != "" || len(candidate.ServiceAreas) > 0
	if !hasSignal {
		return candidate.ParentCommunityID == ""
	}

	if candidate.City != "" && candidate.State != "" &&
		common.NormalizeLocation(builder.City) == common.NormalizeLocation(candidate.City) &&
		common.NormalizeLocation(builder.State) == common.NormalizeLocation(candidate.State) {
		return true
	}

	if candidate.State != "" && areasMention(builder.ServiceAreas, candidate.State) {
		return true
	}
	for _, area := range candidate.ServiceAreas {
		if builder.State != "" && areasMention([]string{area}, builder.State) {
			return true
		}
		if common.NormalizeLocation(area) != "" && sameArea(builder.ServiceAreas, area) {
			return true
		}
	}

	return false
}

// areasMention reports whether any "City, ST" area names the token as a
// whole word. Token-exact comparison avoids "or" matching inside "worth".
func areasMention(areas []string, token string) bool {
	token = common.NormalizeLocation(token)
	if token == "" {
		return false
	}
	for _, area := range areas {
		for _, part := range splitArea(area) {
			if part == token {
				return true
			}
		}
	}
	return false
}

func sameArea(areas []string, area string) bool {
	norm := common.NormalizeLocation(area)
	for _, other := range areas {
		if common.NormalizeLocation(other) == norm {
			return true
		}
	}
	return false
}

func splitArea(area string) []string {
	return strings.FieldsFunc(common.NormalizeLocation(area), func(r rune) bool {
		return r == ',' || r == ' '
	})
}

// nameSimilarity returns an edit-distance ratio in [0,1].
func nameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	return 1 - float64(distance)/float64(longest)
}
