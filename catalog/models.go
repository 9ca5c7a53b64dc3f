// Package catalog holds the reference data a customization resolves against:
// replaceable thalis and extra items. Catalog prices are authoritative —
// client-supplied prices for extras are ignored.
package catalog

import (
	"github.com/xraph/thali/id"
	"github.com/xraph/thali/types"
)

// Thali is a meal unit that can replace a subscription's default meal.
type Thali struct {
	types.Entity
	ID            id.ThaliID        `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Price         types.Money       `json:"price"`
	IsReplaceable bool              `json:"is_replaceable"`
	IsAvailable   bool              `json:"is_available"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ExtraItem is a standalone catalog item that can be added to a meal.
type ExtraItem struct {
	types.Entity
	ID          id.ExtraItemID `json:"id"`
	Name        string         `json:"name"`
	Price       types.Money    `json:"price"`
	IsAvailable bool           `json:"is_available"`
}
