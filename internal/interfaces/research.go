package interfaces

import (
	"context"

	"github.com/ternarybob/prospectus/internal/models"
)

// Message represents one turn of a provider conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// ResearchRequest describes one knowledge-service query: an entity name or
// search query plus optional location context and a max-output-size cap.
type ResearchRequest struct {
	EntityType models.EntityType
	JobType    models.JobType
	Name       string
	Location   string
	Filters    map[string]interface{}
	MaxTokens  int
}

// ResearchService is the external knowledge service. Implementations must
// surface non-structured responses as a typed failure, not a success.
type ResearchService interface {
	Research(ctx context.Context, req *ResearchRequest) (*models.ResearchResult, error)
	HealthCheck(ctx context.Context) error
}
