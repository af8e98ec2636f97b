package structure

// Built-in structure ids.
const (
	LegacyID      = "legacy"
	AVJournalID   = "av-journal"
	SimpleDreamID = "simple-dream"
)

// Defaults returns the journal structures registered when no schema source is
// configured, in registration order.
func Defaults() []Structure {
	return []Structure{
		{
			ID:            LegacyID,
			Name:          "Legacy Journal",
			Description:   "Journal entry with nested dream diary and metrics callouts",
			NestingMode:   NestingNested,
			RootType:      "journal-entry",
			ChildTypes:    []string{"dream-diary", "dream-metrics"},
			MetricsType:   "dream-metrics",
			RequiredTypes: []string{"journal-entry", "dream-diary"},
			OptionalTypes: []string{"dream-metrics"},
		},
		{
			ID:            AVJournalID,
			Name:          "AV Journal",
			Description:   "Audio-visual journal with nested dream diary and metrics callouts",
			NestingMode:   NestingNested,
			RootType:      "av-journal",
			ChildTypes:    []string{"dream-diary", "dream-metrics"},
			MetricsType:   "dream-metrics",
			RequiredTypes: []string{"av-journal", "dream-diary"},
			OptionalTypes: []string{"dream-metrics"},
		},
		{
			ID:            SimpleDreamID,
			Name:          "Simple Dream",
			Description:   "Flat dream record with analysis sections",
			NestingMode:   NestingFlat,
			RootType:      "dream",
			ChildTypes:    []string{"symbols", "reflections", "interpretation", "dream-metrics"},
			MetricsType:   "dream-metrics",
			RequiredTypes: []string{"dream", "symbols"},
			OptionalTypes: []string{"reflections", "interpretation", "dream-metrics"},
		},
	}
}
