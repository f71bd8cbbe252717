package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category is a closed set of product families with their own demand coefficients.
type Category string

const (
	CategoryMedicamentos Category = "medicamentos"
	CategoryInsumos      Category = "insumos"
	CategoryEquipamentos Category = "equipamentos"
)

// DefaultCategory is used whenever no category or an unknown one is given.
const DefaultCategory = CategoryMedicamentos

// CategoryProfile holds the demand coefficients of one category.
type CategoryProfile struct {
	Category             Category `json:"category"`
	PatientWeight        float64  `json:"patient_weight"`
	SeasonalMultiplier   float64  `json:"seasonal_multiplier"`
	MinimumStockFraction float64  `json:"minimum_stock_fraction"`
	SafetyLeadDays       int      `json:"safety_lead_days"`
}

var profiles = [...]CategoryProfile{
	{Category: CategoryMedicamentos, PatientWeight: 0.8, SeasonalMultiplier: 1.2, MinimumStockFraction: 0.3, SafetyLeadDays: 15},
	{Category: CategoryInsumos, PatientWeight: 0.6, SeasonalMultiplier: 1.1, MinimumStockFraction: 0.2, SafetyLeadDays: 10},
	{Category: CategoryEquipamentos, PatientWeight: 0.4, SeasonalMultiplier: 1.0, MinimumStockFraction: 0.5, SafetyLeadDays: 30},
}

// ProfileFor returns the profile of c, or the default profile when c is unknown.
func ProfileFor(c Category) CategoryProfile {
	for _, p := range profiles {
		if p.Category == c {
			return p
		}
	}
	return profiles[0]
}

// Profiles returns a copy of the profile table.
func Profiles() []CategoryProfile {
	out := make([]CategoryProfile, len(profiles))
	copy(out, profiles[:])
	return out
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, p := range profiles {
		if p.Category == c {
			return true
		}
	}
	return false
}

// ParseCategory accepts category names with or without accents, case and plural.
func ParseCategory(s string) (Category, bool) {
	key := FoldKey(s)
	if key == "" {
		return "", false
	}
	for _, p := range profiles {
		name := string(p.Category)
		if key == name || key+"s" == name {
			return p.Category, true
		}
	}
	return "", false
}

// FoldKey lowercases s, trims it and strips diacritics ("Código" -> "codigo").
func FoldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
