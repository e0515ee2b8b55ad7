// -----------------------------------------------------------------------
// Proposed entities - typed views over knowledge-service attribute maps
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ProposedBuilder is the typed form of a proposed builder attribute map,
// validated at the collector boundary before any downstream use.
type ProposedBuilder struct {
	Name         string   `json:"name" validate:"required"`
	Website      string   `json:"website,omitempty" validate:"omitempty,max=500"`
	Email        string   `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string   `json:"phone,omitempty"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	ServiceAreas []string `json:"service_areas,omitempty"`
}

// ProposedCommunity is the typed form of a proposed community attribute map.
type ProposedCommunity struct {
	Name           string   `json:"name" validate:"required"`
	City           string   `json:"city,omitempty"`
	State          string   `json:"state,omitempty"`
	Stage          string   `json:"stage,omitempty"`
	TotalUnits     int      `json:"total_units,omitempty" validate:"gte=0"`
	AvailableUnits int      `json:"available_units,omitempty" validate:"gte=0"`
	SoldUnits      int      `json:"sold_units,omitempty" validate:"gte=0"`
	Builders       []string `json:"builders,omitempty"`
}

// ProposedHome is the typed form of a proposed home attribute map. Price and
// square feet stay unconstrained here: the decision engine, not validation,
// rejects non-positive values.
type ProposedHome struct {
	Address    string  `json:"address" validate:"required"`
	Plan       string  `json:"plan,omitempty"`
	Price      float64 `json:"price"`
	SquareFeet int     `json:"square_feet"`
	Beds       int     `json:"beds,omitempty" validate:"gte=0"`
	Baths      float64 `json:"baths,omitempty" validate:"gte=0"`
	Status     string  `json:"status,omitempty"`
}

// ProposedAgent is the typed form of a proposed agent attribute map.
type ProposedAgent struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty"`
	Title string `json:"title,omitempty"`
}

// decodeProposed round-trips an attribute map through JSON into the typed
// form, then validates it.
func decodeProposed(data map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode proposed entity data: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode proposed entity data: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("proposed entity data failed validation: %w", err)
	}
	return nil
}

// DecodeProposedBuilder validates and types a builder attribute map.
func DecodeProposedBuilder(data map[string]interface{}) (*ProposedBuilder, error) {
	var p ProposedBuilder
	if err := decodeProposed(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeProposedCommunity validates and types a community attribute map.
func DecodeProposedCommunity(data map[string]interface{}) (*ProposedCommunity, error) {
	var p ProposedCommunity
	if err := decodeProposed(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeProposedHome validates and types a home attribute map.
func DecodeProposedHome(data map[string]interface{}) (*ProposedHome, error) {
	var p ProposedHome
	if err := decodeProposed(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeProposedAgent validates and types an agent attribute map.
func DecodeProposedAgent(data map[string]interface{}) (*ProposedAgent, error) {
	var p ProposedAgent
	if err := decodeProposed(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
