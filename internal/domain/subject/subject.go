package subject

import (
	"strings"
	"time"
)

// Category selects among message variants. It never changes scheduling.
type Category string

const (
	CategoryGirl Category = "Girl"
	CategoryBoy  Category = "Boy"
	CategoryAny  Category = "Any"
)

// ParseCategory normalizes user input to a known Category.
func ParseCategory(raw string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "girl":
		return CategoryGirl, true
	case "boy":
		return CategoryBoy, true
	case "any", "":
		return CategoryAny, true
	default:
		return "", false
	}
}

// Subject represents a person whose birthday is tracked.
type Subject struct {
	ID        string // UUID, immutable once created
	Name      string
	BirthDate time.Time // only year/month/day are significant
	Relation  string    // free-text label, e.g. "Niece"
	Category  Category
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
