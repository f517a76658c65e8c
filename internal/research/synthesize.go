package research

import (
	"context"
	"fmt"
	"github.com/mkarhu/inquest/internal/errors"
	"log/slog"
	"strings"
)

type Synthesizer struct {
	completer Completer
	logger    *slog.Logger
}

func NewSynthesizer(completer Completer, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		completer: completer,
		logger:    logger.With("source", "Synthesizer"),
	}
}

// FinalAnswer combines every summarized sub-question with the original query
// into one free-text answer. This is a single opaque completion call; a
// failure here aborts the pass.
func (s *Synthesizer) FinalAnswer(ctx context.Context, originalQuery string, answers []Answer) (string, error) {
	blocks := make([]string, len(answers))
	for i, answer := range answers {
		var b strings.Builder
		b.WriteString(answer.Question)
		for _, bullet := range answer.Bullets {
			b.WriteString("\n  - ")
			b.WriteString(bullet)
		}
		blocks[i] = b.String()
	}

	prompt := fmt.Sprintf(`ORIGINAL QUERY:
%s

SUB-QUESTION SUMMARIES:
%s

Write a clear, structured, comprehensive answer that synthesizes all the information above.`,
		originalQuery, strings.Join(blocks, "\n\n"))

	answer, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", errors.Wrap(err, "synthesis completion", slog.String("query", originalQuery))
	}
	return answer, nil
}
