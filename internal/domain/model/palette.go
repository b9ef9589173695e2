package model

// DefaultSeasonColor is used for seasons missing from a palette.
const DefaultSeasonColor = "gray"

// ColorEntry is one season -> colour assignment of a palette table.
type ColorEntry struct {
	Season string
	Color  string
}

// SeasonPalette is an ordered season colour table. Entries are kept exactly as
// entered; when a season name appears more than once the last entry wins.
type SeasonPalette struct {
	entries  []ColorEntry
	resolved map[string]string
}

func NewSeasonPalette(entries ...ColorEntry) SeasonPalette {
	resolved := make(map[string]string, len(entries))
	for _, e := range entries {
		resolved[e.Season] = e.Color
	}
	return SeasonPalette{entries: entries, resolved: resolved}
}

// Color returns the colour for a season, DefaultSeasonColor when unknown.
func (p SeasonPalette) Color(season string) string {
	if c, ok := p.resolved[season]; ok {
		return c
	}
	return DefaultSeasonColor
}

// Entries returns the table as entered, duplicates included.
func (p SeasonPalette) Entries() []ColorEntry {
	out := make([]ColorEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Overridden lists season names that were assigned more than once.
func (p SeasonPalette) Overridden() []string {
	seen := make(map[string]int, len(p.entries))
	var dup []string
	for _, e := range p.entries {
		seen[e.Season]++
		if seen[e.Season] == 2 {
			dup = append(dup, e.Season)
		}
	}
	return dup
}

// SeasonAnalysisPalette colours the season analysis markers. Rabi is listed
// twice in the product table; brown is the effective colour.
var SeasonAnalysisPalette = NewSeasonPalette(
	ColorEntry{"Kharif", "orange"},
	ColorEntry{"Rabi", "green"},
	ColorEntry{"Winter", "blue"},
	ColorEntry{"Autumn", "pink"},
	ColorEntry{"Rabi", "brown"},
	ColorEntry{"Summer", "yellow"},
	ColorEntry{"Whole Year", "Red"},
)

// CombinedAnalysisPalette colours the combined view scatter markers. Rabi is
// listed twice; cyan is the effective colour. Autumn is not listed.
var CombinedAnalysisPalette = NewSeasonPalette(
	ColorEntry{"Kharif", "purple"},
	ColorEntry{"Rabi", "orange"},
	ColorEntry{"Rabi", "cyan"},
	ColorEntry{"Winter", "Yellow"},
	ColorEntry{"Summer", "Green"},
	ColorEntry{"Whole Year", "Red"},
)
