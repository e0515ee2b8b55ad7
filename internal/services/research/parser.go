package research

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/prospectus/internal/models"
)

// ErrUnparsableResponse marks a knowledge-service response that could not
// be parsed as structured data. This is a data-quality failure, not a
// transient one: callers must fail the job without retrying.
var ErrUnparsableResponse = errors.New("knowledge service returned unparsable response")

// responseEnvelope is the raw JSON shape every research response must use.
type responseEnvelope struct {
	Entity     map[string]interface{}   `json:"entity"`
	Entities   []map[string]interface{} `json:"entities"`
	Builders   []string                 `json:"builders"`
	SourceURLs []string                 `json:"source_urls"`
	Confidence *float64                 `json:"confidence"`
}

// extractJSON strips markdown fences and any prose around the outermost
// JSON object. Models occasionally wrap output despite instructions.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// parseResponse converts raw provider output into a ResearchResult, or
// fails with ErrUnparsableResponse.
func parseResponse(entityType models.EntityType, raw string) (*models.ResearchResult, error) {
	jsonText := extractJSON(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("%w: no JSON object found in %d-byte response", ErrUnparsableResponse, len(raw))
	}

	var envelope responseEnvelope
	if err := json.Unmarshal([]byte(jsonText), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableResponse, err)
	}

	if envelope.Entity == nil && len(envelope.Entities) == 0 {
		return nil, fmt.Errorf("%w: response carries neither entity nor entities", ErrUnparsableResponse)
	}
	if envelope.Confidence == nil {
		return nil, fmt.Errorf("%w: response missing confidence", ErrUnparsableResponse)
	}

	confidence := *envelope.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return &models.ResearchResult{
		EntityType: entityType,
		Attributes: envelope.Entity,
		Entities:   envelope.Entities,
		Builders:   envelope.Builders,
		SourceURLs: envelope.SourceURLs,
		Confidence: confidence,
	}, nil
}
