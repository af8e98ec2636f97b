package rule

// Defaults returns the sample rules registered with the built-in structures.
func Defaults() []Rule {
	return []Rule{
		{
			ID:          "trailing-whitespace",
			Name:        "Trailing whitespace",
			Kind:        KindFormat,
			Severity:    SeverityWarning,
			Pattern:     `(?m)[ \t]+$`,
			PatternType: PatternRegex,
			Negative:    true,
			Message:     "Line ends with trailing whitespace",
			Priority:    10,
			Enabled:     true,
		},
		{
			ID:          "todo-marker",
			Name:        "Unresolved TODO",
			Kind:        KindContent,
			Severity:    SeverityInfo,
			Pattern:     "TODO",
			PatternType: PatternLiteral,
			Negative:    true,
			Message:     "Unresolved TODO marker",
			Priority:    20,
			Enabled:     true,
		},
	}
}
