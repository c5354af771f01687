package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WantItem is one entry of the collector's want-list. ID is the release id in
// string form and is stable across syncs.
type WantItem struct {
	ID           string              `json:"id" validate:"required"`
	ReleaseID    int                 `json:"release_id" validate:"gt=0"`
	Artist       string              `json:"artist"`
	Title        string              `json:"title"`
	Notes        string              `json:"notes,omitempty"`
	MaxPrice     decimal.NullDecimal `json:"max_price"`
	MinCondition string              `json:"min_condition,omitempty" validate:"omitempty,condexpr"`
	DateAdded    time.Time           `json:"date_added,omitempty"`
}

// Key implements snapshot.Keyed.
func (w WantItem) Key() string { return w.ID }

// SavedSearch is a standing query against the marketplace.
type SavedSearch struct {
	ID           string              `json:"id" validate:"required"`
	Query        string              `json:"query" validate:"required_without_all=Formats Genres"`
	Formats      []string            `json:"formats,omitempty"`
	Genres       []string            `json:"genres,omitempty"`
	Currency     string              `json:"currency,omitempty" validate:"omitempty,len=3"`
	MaxPrice     decimal.NullDecimal `json:"max_price"`
	MinCondition string              `json:"min_condition,omitempty" validate:"omitempty,condexpr"`
	MinDiscount  *int                `json:"min_discount,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// Key implements snapshot.Keyed.
func (s SavedSearch) Key() string { return s.ID }
