// Package models defines conversation state structures for TrackTalk flows.
package models

import "time"

// Path identifies which scripted branch of the intake dialogue is active.
type Path string

// Path constants.
const (
	PathInitial    Path = "initial"
	PathHasProduct Path = "has-product"
	PathNeedsHelp  Path = "needs-help"
)

// IsValidPath checks if the given path is supported.
func IsValidPath(p Path) bool {
	switch p {
	case PathInitial, PathHasProduct, PathNeedsHelp:
		return true
	default:
		return false
	}
}

// TargetType distinguishes an absolute price target from a percent drop.
type TargetType string

// Target type constants.
const (
	TargetTypePrice       TargetType = "target_price"
	TargetTypePercentDrop TargetType = "percent_drop"
)

// IsValidTargetType checks if the given target type is supported.
func IsValidTargetType(t TargetType) bool {
	return t == TargetTypePrice || t == TargetTypePercentDrop
}

// ProductData accumulates the slots collected over one intake conversation.
// Merges are additive: later answers never erase earlier ones unless they
// overwrite the same slot.
type ProductData struct {
	Name         string     `json:"name,omitempty"`
	Link         string     `json:"link,omitempty"`
	Image        string     `json:"image,omitempty"`
	Category     string     `json:"category,omitempty"`
	Requirements string     `json:"requirements,omitempty"`
	Budget       string     `json:"budget,omitempty"`
	StoreKey     string     `json:"store_key,omitempty"`
	TargetType   TargetType `json:"target_type,omitempty"`
	TargetValue  float64    `json:"target_value,omitempty"`
	Phone        string     `json:"phone,omitempty"` // canonical +972 form
	FirstName    string     `json:"first_name,omitempty"`
}

// Merge overlays non-empty fields of other onto d, returning the result.
func (d ProductData) Merge(other ProductData) ProductData {
	if other.Name != "" {
		d.Name = other.Name
	}
	if other.Link != "" {
		d.Link = other.Link
	}
	if other.Image != "" {
		d.Image = other.Image
	}
	if other.Category != "" {
		d.Category = other.Category
	}
	if other.Requirements != "" {
		d.Requirements = other.Requirements
	}
	if other.Budget != "" {
		d.Budget = other.Budget
	}
	if other.StoreKey != "" {
		d.StoreKey = other.StoreKey
	}
	if other.TargetType != "" {
		d.TargetType = other.TargetType
	}
	if other.TargetValue != 0 {
		d.TargetValue = other.TargetValue
	}
	if other.Phone != "" {
		d.Phone = other.Phone
	}
	if other.FirstName != "" {
		d.FirstName = other.FirstName
	}
	return d
}

// ConversationState is the durable position of one session within the intake
// dialogue. Within one path, Step is monotonically non-decreasing except on an
// explicit "check another product" reset.
type ConversationState struct {
	Path         Path        `json:"path"`
	Step         int         `json:"step"`
	Product      ProductData `json:"product_data"`
	AskedForLink bool        `json:"asked_for_link,omitempty"` // link/image slot is asked at most once
	Elaborations int         `json:"elaborations,omitempty"`   // count of default-elaboration fallbacks taken
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewConversationState returns the starting state for a fresh session.
func NewConversationState() ConversationState {
	return ConversationState{Path: PathInitial, Step: 0, UpdatedAt: time.Now()}
}

// Reset returns the state rewound for a "check another product" restart.
// Identity slots (phone, first name) survive the reset; product slots do not.
func (s ConversationState) Reset() ConversationState {
	return ConversationState{
		Path: PathInitial,
		Step: 0,
		Product: ProductData{
			Phone:     s.Product.Phone,
			FirstName: s.Product.FirstName,
		},
		UpdatedAt: time.Now(),
	}
}
