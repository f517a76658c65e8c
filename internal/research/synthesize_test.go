package research_test

import (
	"context"
	"github.com/mkarhu/inquest/internal/research"
	"github.com/mkarhu/inquest/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

type capturingCompleter struct {
	prompt   string
	response string
}

func (c *capturingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.prompt = prompt
	return c.response, nil
}

func TestSynthesizer_CombinesAllSummaries(t *testing.T) {
	completer := &capturingCompleter{response: "Photosynthesis converts light into chemical energy."}
	synthesizer := research.NewSynthesizer(completer, testhelpers.NewLogger(io.Discard))

	answer, err := synthesizer.FinalAnswer(context.Background(), "What is photosynthesis?", []research.Answer{
		{
			Question: "What is the chemical equation of photosynthesis?",
			Bullets:  []string{"Six CO2 and six H2O yield glucose and oxygen"},
		},
		{
			Question: "Which organelles perform photosynthesis?",
			Bullets:  []string{"Chloroplasts host the light reactions", "Thylakoid membranes hold the pigments"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Photosynthesis converts light into chemical energy.", answer)

	require.Contains(t, completer.prompt, "What is photosynthesis?")
	require.Contains(t, completer.prompt, "What is the chemical equation of photosynthesis?")
	require.Contains(t, completer.prompt, "  - Chloroplasts host the light reactions")
	require.Contains(t, completer.prompt, "  - Thylakoid membranes hold the pigments")
}
