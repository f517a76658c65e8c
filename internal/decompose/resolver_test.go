package decompose_test

import (
	"context"
	"github.com/mkarhu/inquest/internal/decompose"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/repositories"
	"github.com/mkarhu/inquest/internal/sqlite"
	"github.com/mkarhu/inquest/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"strings"
	"testing"
)

// scriptedCompleter answers classification and decomposition prompts with
// canned responses and counts every invocation.
type scriptedCompleter struct {
	classification    string
	decomposition     string
	classificationErr error
	decompositionErr  error
	calls             int
}

func (c *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.calls++
	if strings.Contains(prompt, "Classify the following query") {
		return c.classification, c.classificationErr
	}
	return c.decomposition, c.decompositionErr
}

type staticMemory struct {
	context string
	err     error
}

func (m staticMemory) Retrieve(context.Context, string, int) (string, error) {
	return m.context, m.err
}

func newResolverFixture(t *testing.T, completer *scriptedCompleter, memory staticMemory) *decompose.Resolver {
	t.Helper()
	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbs.Close() })
	runs := repositories.NewRunRepository(dbs, logger)
	return decompose.NewResolver(completer, memory, runs, logger)
}

const photosynthesisDecomposition = `{
	"sub_questions": [
		"What is the chemical equation of photosynthesis?",
		"Which organelles perform photosynthesis?",
		"How do light and dark reactions differ?"
	],
	"primary_intent": "Explain how photosynthesis works",
	"relationship": "hierarchical",
	"difficulty_level": "moderate"
}`

func TestResolver_IdempotentDecomposition(t *testing.T) {
	completer := &scriptedCompleter{
		classification: `{"category": "factual"}`,
		decomposition:  photosynthesisDecomposition,
	}
	resolver := newResolverFixture(t, completer, staticMemory{})
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "What is photosynthesis?")
	require.NoError(t, err)
	require.Equal(t, decompose.SourceFresh, first.Source)
	require.Len(t, first.SubQuestions, 3)
	require.Equal(t, "factual", first.Classification)
	require.Equal(t, 2, completer.calls, "one classification and one decomposition call")

	second, err := resolver.Resolve(ctx, "What is photosynthesis?")
	require.NoError(t, err)
	require.Equal(t, decompose.SourceCached, second.Source)
	require.Equal(t, first.RunID, second.RunID, "cache hit reuses the run")
	require.Equal(t, first.SubQuestions, second.SubQuestions)
	require.Equal(t, 2, completer.calls, "cache hit makes no completion calls")
}

func TestResolver_ClassificationFailureDefaultsToAmbiguous(t *testing.T) {
	completer := &scriptedCompleter{
		classificationErr: errors.NewSentinel("completion unavailable"),
		decomposition:     photosynthesisDecomposition,
	}
	resolver := newResolverFixture(t, completer, staticMemory{})

	result, err := resolver.Resolve(context.Background(), "What is photosynthesis?")
	require.NoError(t, err)
	require.Equal(t, "ambiguous", result.Classification)
	require.Equal(t, decompose.SourceDegraded, result.Source)
	require.Len(t, result.SubQuestions, 3, "decomposition still ran")
}

func TestResolver_DecompositionFailureFallsBackToSingleQuestion(t *testing.T) {
	completer := &scriptedCompleter{
		classification:   `{"category": "factual"}`,
		decompositionErr: errors.NewSentinel("completion unavailable"),
	}
	resolver := newResolverFixture(t, completer, staticMemory{})
	ctx := context.Background()

	result, err := resolver.Resolve(ctx, "What is photosynthesis?")
	require.NoError(t, err)
	require.Equal(t, decompose.SourceDegraded, result.Source)
	require.Equal(t, []string{"What is photosynthesis?"}, result.SubQuestions)
	require.Equal(t, "Answer the query directly", result.PrimaryIntent)
	require.Equal(t, "parallel", result.Relationship)
	require.Equal(t, "moderate", result.DifficultyLevel)

	// The degraded run is persisted and reused like any other.
	cached, err := resolver.Resolve(ctx, "What is photosynthesis?")
	require.NoError(t, err)
	require.Equal(t, decompose.SourceCached, cached.Source)
	require.Equal(t, result.RunID, cached.RunID)
}

func TestResolver_UnparsableResponsesDegrade(t *testing.T) {
	completer := &scriptedCompleter{
		classification: "not json at all",
		decomposition:  "still not json",
	}
	resolver := newResolverFixture(t, completer, staticMemory{})

	result, err := resolver.Resolve(context.Background(), "Anything")
	require.NoError(t, err)
	require.Equal(t, decompose.SourceDegraded, result.Source)
	require.Equal(t, "ambiguous", result.Classification)
	require.Equal(t, []string{"Anything"}, result.SubQuestions)
}

func TestResolver_NormalizesStructuredSubQuestions(t *testing.T) {
	completer := &scriptedCompleter{
		classification: `{"category": "ambiguous"}`,
		decomposition: `{
			"sub_questions": [
				"How did WW2 end?",
				{"factual": "What was the role of atomic bombs?", "speculative": "How might the war have ended without them?"}
			],
			"primary_intent": "Cover both history and counterfactual",
			"relationship": "parallel",
			"difficulty_level": "complex"
		}`,
	}
	resolver := newResolverFixture(t, completer, staticMemory{})

	result, err := resolver.Resolve(context.Background(), "How did WW2 end and what if bombs weren't dropped?")
	require.NoError(t, err)
	require.Equal(t, []string{
		"How did WW2 end?",
		"[FACTUAL] What was the role of atomic bombs?",
		"[SPECULATIVE] How might the war have ended without them?",
	}, result.SubQuestions)
}

func TestResolver_MemoryFailureIsNonFatal(t *testing.T) {
	completer := &scriptedCompleter{
		classification: `{"category": "factual"}`,
		decomposition:  photosynthesisDecomposition,
	}
	resolver := newResolverFixture(t, completer, staticMemory{err: errors.NewSentinel("memory down")})

	result, err := resolver.Resolve(context.Background(), "What is photosynthesis?")
	require.NoError(t, err)
	require.Equal(t, decompose.SourceFresh, result.Source)
}
