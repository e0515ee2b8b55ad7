package research

import (
	"fmt"
	"strings"

	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

const systemInstruction = `You are a research assistant for a new-home construction data platform.
You answer with a single JSON object and nothing else: no markdown fences, no prose before or after.
Every response must include "source_urls" (array of strings) and "confidence" (number between 0 and 1).
Use null for unknown fields. Never invent addresses, prices, or contact details.`

// entitySchemas describes the attribute map expected per entity type.
var entitySchemas = map[models.EntityType]string{
	models.EntityTypeBuilder: `{"name": string, "website": string|null, "email": string|null, "phone": string|null,
"city": string|null, "state": string|null, "service_areas": [string]}`,
	models.EntityTypeCommunity: `{"name": string, "city": string|null, "state": string|null, "stage": string|null,
"total_units": int|null, "available_units": int|null, "sold_units": int|null, "builders": [string]}`,
	models.EntityTypeHome: `{"address": string, "plan": string|null, "price": number|null, "square_feet": int|null,
"beds": int|null, "baths": number|null, "status": string|null}`,
	models.EntityTypeAgent: `{"name": string, "email": string|null, "phone": string|null, "title": string|null}`,
}

// buildPrompt renders the natural-language research request for a job.
func buildPrompt(req *interfaces.ResearchRequest) string {
	var b strings.Builder

	subject := req.Name
	if req.Location != "" {
		subject = fmt.Sprintf("%s in %s", subject, req.Location)
	}

	switch req.JobType {
	case models.JobTypeDiscovery:
		fmt.Fprintf(&b, "Research the %s %q. ", req.EntityType, subject)
		b.WriteString("Return a JSON object with:\n")
		fmt.Fprintf(&b, `"entity": %s`, entitySchemas[req.EntityType])
		if req.EntityType == models.EntityTypeCommunity {
			b.WriteString("\nInclude every builder organization active in the community in \"builders\".")
		}
	case models.JobTypeUpdate:
		fmt.Fprintf(&b, "Find the current public details for the %s %q. ", req.EntityType, subject)
		b.WriteString("Return a JSON object with:\n")
		fmt.Fprintf(&b, `"entity": %s`, entitySchemas[req.EntityType])
	case models.JobTypeInventory:
		fmt.Fprintf(&b, "List the currently advertised homes for %q. ", subject)
		b.WriteString("Return a JSON object with:\n")
		fmt.Fprintf(&b, `"entities": [%s]`, entitySchemas[models.EntityTypeHome])
	}

	b.WriteString("\nAlso include \"source_urls\" and \"confidence\".")

	if len(req.Filters) > 0 {
		b.WriteString("\nApply these constraints:")
		for key, value := range req.Filters {
			fmt.Fprintf(&b, "\n- %s: %v", key, value)
		}
	}

	return b.String()
}
