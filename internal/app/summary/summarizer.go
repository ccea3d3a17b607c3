package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/cfpulse/cfpulse/internal/domain/summary"
)

// maxListedProblems caps how many problem names the summary text spells out.
const maxListedProblems = 5

var _ summary.Summarizer = (*TemplateSummarizer)(nil)

// TemplateSummarizer renders summary text from a fixed template. It is the
// default Summarizer; an external model can replace it behind the same port.
type TemplateSummarizer struct{}

// NewTemplateSummarizer creates the default template-based summarizer.
func NewTemplateSummarizer() *TemplateSummarizer { return &TemplateSummarizer{} }

// Summarize renders one user's week into a short human-readable paragraph.
func (t *TemplateSummarizer) Summarize(_ context.Context, stats summary.WeekStats) (string, error) {
	if stats.Attempted == 0 {
		return fmt.Sprintf("%s had no Codeforces activity this week.", stats.Handle), nil
	}
	if stats.Solved == 0 {
		return fmt.Sprintf("%s attempted %s this week without an accepted solution yet. Keep at it!",
			stats.Handle, problemCount(stats.Attempted)), nil
	}

	listed := stats.SolvedProblems
	suffix := ""
	if len(listed) > maxListedProblems {
		suffix = fmt.Sprintf(" and %d more", len(listed)-maxListedProblems)
		listed = listed[:maxListedProblems]
	}
	return fmt.Sprintf("%s solved %s this week (%d attempted): %s%s.",
		stats.Handle,
		problemCount(stats.Solved),
		stats.Attempted,
		strings.Join(listed, ", "),
		suffix,
	), nil
}

func problemCount(n int) string {
	if n == 1 {
		return "1 problem"
	}
	return fmt.Sprintf("%d problems", n)
}
