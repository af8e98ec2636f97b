package structure

import (
	"github.com/artpar/calloutlint/domain/callout"
)

// MaxScore is the only detection score that is accepted.
const MaxScore = 3

// Score rates how well the block types fit s:
// +1 root present, +1 any child type present, +1 metrics type set and present.
func Score(s Structure, blocks []callout.Block) int {
	var root, child, metrics bool
	for _, b := range blocks {
		switch {
		case b.Type == s.RootType:
			root = true
		case s.IsChild(b.Type):
			child = true
		}
		if s.MetricsType != "" && b.Type == s.MetricsType {
			metrics = true
		}
	}

	score := 0
	if root {
		score++
	}
	if child {
		score++
	}
	if metrics {
		score++
	}
	return score
}

// Detect returns the first structure, in the given order, whose score reaches
// MaxScore. Structures without a metrics type can never be detected.
func Detect(blocks []callout.Block, structures []Structure) (Structure, bool) {
	for _, s := range structures {
		if Score(s, blocks) == MaxScore {
			return s, true
		}
	}
	return Structure{}, false
}
