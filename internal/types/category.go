package types

import (
	"fmt"
	"strings"
)

// Category is one member of the fixed enumeration of response domains.
type Category string

const (
	CategoryExercise   Category = "exercise"
	CategoryFood       Category = "food"
	CategorySchedule   Category = "schedule"
	CategoryMotivation Category = "motivation"
	CategoryGeneral    Category = "general"
)

// AllCategories lists the enum in static priority order (highest first).
// The combiner's priority fallback and the keyword tie-breaks depend on this order.
var AllCategories = []Category{
	CategoryExercise,
	CategoryFood,
	CategorySchedule,
	CategoryMotivation,
	CategoryGeneral,
}

// categoryAliases maps loose model output onto enum members.
var categoryAliases = map[string]Category{
	"exercise":   CategoryExercise,
	"workout":    CategoryExercise,
	"training":   CategoryExercise,
	"fitness":    CategoryExercise,
	"food":       CategoryFood,
	"diet":       CategoryFood,
	"nutrition":  CategoryFood,
	"meal":       CategoryFood,
	"schedule":   CategorySchedule,
	"calendar":   CategorySchedule,
	"planning":   CategorySchedule,
	"motivation": CategoryMotivation,
	"mindset":    CategoryMotivation,
	"general":    CategoryGeneral,
}

// ParseCategory normalizes s and returns the matching enum member.
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.Trim(key, `"'/#*`)
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// IsValid reports whether c is a member of the enum.
func (c Category) IsValid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Priority returns the static rank of c (0 is highest). Unknown categories rank last.
func (c Category) Priority() int {
	for i, known := range AllCategories {
		if c == known {
			return i
		}
	}
	return len(AllCategories)
}

// Title returns the display name used in section headers.
func (c Category) Title() string {
	s := string(c)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// NormalizeCategories drops invalid entries and duplicates, preserving order,
// and truncates to max (max <= 0 means no limit).
func NormalizeCategories(in []Category, max int) []Category {
	seen := make(map[Category]bool, len(in))
	out := make([]Category, 0, len(in))
	for _, c := range in {
		if !c.IsValid() || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	// general only makes sense on its own
	if len(out) > 1 {
		filtered := out[:0]
		for _, c := range out {
			if c != CategoryGeneral {
				filtered = append(filtered, c)
			}
		}
		out = filtered
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// ContainsCategory reports whether cats includes c.
func ContainsCategory(cats []Category, c Category) bool {
	for _, x := range cats {
		if x == c {
			return true
		}
	}
	return false
}
