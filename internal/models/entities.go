// -----------------------------------------------------------------------
// Domain entities - builders, communities, homes, agents
// -----------------------------------------------------------------------

package models

import "time"

// EntityStatus is the lifecycle status of a domain entity. Legal transitions
// are defined by the lifecycle tracker's transition table, not here.
type EntityStatus string

const (
	// Shared statuses
	StatusActive   EntityStatus = "active"
	StatusInactive EntityStatus = "inactive"

	// Community statuses
	StatusUpcoming         EntityStatus = "upcoming"
	StatusUnderDevelopment EntityStatus = "under_development"
	StatusSoldOut          EntityStatus = "sold_out"

	// Home statuses
	StatusAvailable   EntityStatus = "available"
	StatusLimited     EntityStatus = "limited"
	StatusPendingSale EntityStatus = "pending_sale"
	StatusSold        EntityStatus = "sold"
)

// Builder is a home-construction organization.
type Builder struct {
	ID   string `json:"id" badgerhold:"key"`
	Name string `json:"name"`

	Website string `json:"website,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`

	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
	// ServiceAreas lists "City, ST" markets the builder operates in.
	ServiceAreas []string `json:"service_areas,omitempty"`

	// CommunityIDs links the builder to the communities it builds in.
	CommunityIDs []string `json:"community_ids,omitempty"`

	Status     EntityStatus `json:"status"`
	LastSeenAt *time.Time   `json:"last_seen_at,omitempty"`

	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	ApprovedBy string     `json:"approved_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FieldMap returns the tracked fields for update-job diffing.
func (b *Builder) FieldMap() map[string]interface{} {
	return map[string]interface{}{
		"name":    b.Name,
		"website": b.Website,
		"email":   b.Email,
		"phone":   b.Phone,
		"city":    b.City,
		"state":   b.State,
	}
}

// LinkedToCommunity reports whether the builder is already associated with
// the given community.
func (b *Builder) LinkedToCommunity(communityID string) bool {
	for _, id := range b.CommunityIDs {
		if id == communityID {
			return true
		}
	}
	return false
}

// Community is a geographic development of homes.
type Community struct {
	ID   string `json:"id" badgerhold:"key"`
	Name string `json:"name"`

	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`

	// Stage is the declared development stage ("pre_construction",
	// "under_construction", "completed"). Used as the availability
	// fallback when inventory counts are absent.
	Stage string `json:"stage,omitempty"`

	TotalUnits     int `json:"total_units"`
	AvailableUnits int `json:"available_units"`
	SoldUnits      int `json:"sold_units"`

	BuilderIDs []string `json:"builder_ids,omitempty"`

	Status     EntityStatus `json:"status"`
	LastSeenAt *time.Time   `json:"last_seen_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FieldMap returns the tracked fields for update-job diffing.
func (c *Community) FieldMap() map[string]interface{} {
	return map[string]interface{}{
		"name":            c.Name,
		"city":            c.City,
		"state":           c.State,
		"stage":           c.Stage,
		"total_units":     c.TotalUnits,
		"available_units": c.AvailableUnits,
		"sold_units":      c.SoldUnits,
	}
}

// Home is a listed unit within a community.
type Home struct {
	ID string `json:"id" badgerhold:"key"`

	CommunityID string `json:"community_id,omitempty"`
	BuilderID   string `json:"builder_id,omitempty"`

	Address    string  `json:"address"`
	Plan       string  `json:"plan,omitempty"`
	Price      float64 `json:"price"`
	SquareFeet int     `json:"square_feet"`
	Beds       int     `json:"beds,omitempty"`
	Baths      float64 `json:"baths,omitempty"`

	Status     EntityStatus `json:"status"`
	LastSeenAt *time.Time   `json:"last_seen_at,omitempty"`

	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	ApprovedBy string     `json:"approved_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FieldMap returns the tracked fields for update-job diffing.
func (h *Home) FieldMap() map[string]interface{} {
	return map[string]interface{}{
		"address":     h.Address,
		"plan":        h.Plan,
		"price":       h.Price,
		"square_feet": h.SquareFeet,
		"beds":        h.Beds,
		"baths":       h.Baths,
	}
}

// Agent is a sales representative for a builder.
type Agent struct {
	ID string `json:"id" badgerhold:"key"`

	BuilderID string `json:"builder_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Title     string `json:"title,omitempty"`

	Status     EntityStatus `json:"status"`
	LastSeenAt *time.Time   `json:"last_seen_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FieldMap returns the tracked fields for update-job diffing.
func (a *Agent) FieldMap() map[string]interface{} {
	return map[string]interface{}{
		"name":  a.Name,
		"email": a.Email,
		"phone": a.Phone,
		"title": a.Title,
	}
}
