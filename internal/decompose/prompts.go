package decompose

import (
	"fmt"
	"strings"
)

func withMemoryContext(query string, memoryContext string) string {
	if memoryContext == "" {
		return query
	}
	return fmt.Sprintf("%s\n\nPREVIOUS CONTEXT:\n%s", query, memoryContext)
}

func classificationPrompt(query string, memoryContext string) string {
	var b strings.Builder
	b.WriteString(`Classify the following query as 'factual', 'speculative', or 'ambiguous'.

DEFINITIONS:
- Factual: Has a single, verifiable, objective answer. Can be proven right/wrong with evidence.
  Examples: "What is the capital of France?", "How many planets are in our solar system?"
- Speculative: Involves opinions, predictions, subjective judgments, future possibilities, or what-if scenarios.
  Examples: "Will AI replace all jobs?", "Is pineapple good on pizza?"
- Ambiguous: Contains multiple topics, mixes factual and speculative elements, or is unclear/vague.
  Examples: "Explain WWII and what if Germany won", "Quantum computing and its ethical implications"

DECISION RULES:
1. If the query has BOTH verifiable facts AND opinions/predictions -> 'ambiguous'
2. If the query is vague or could be interpreted multiple ways -> 'ambiguous'
3. If the query is purely about preferences/future/predictions -> 'speculative'
4. If the query is purely about verifiable facts/current reality -> 'factual'

QUERY: `)
	b.WriteString(withMemoryContext(query, memoryContext))
	b.WriteString(`

Respond ONLY with a JSON object containing the "category" key.`)
	return b.String()
}

func decompositionPrompt(query string, classification string, memoryContext string) string {
	var b strings.Builder
	b.WriteString(`Decompose the query into specific searchable sub-questions.

ORIGINAL QUERY: `)
	b.WriteString(withMemoryContext(query, memoryContext))
	b.WriteString("\nCLASSIFICATION: ")
	b.WriteString(classification)
	b.WriteString(`

DECOMPOSITION RULES:
1. If the query contains BOTH factual AND speculative elements, create SEPARATE sub-questions for each
2. For speculative parts (what-if, could-have, alternative scenarios), frame hypothetical questions
3. For factual parts, focus on verifiable events, data, timelines
4. Ensure ALL parts of the original query are covered by the sub-questions
5. Each sub-question must be independently answerable with a web search

Respond ONLY with a JSON object of this shape:
{
  "sub_questions": ["...", "..."],
  "primary_intent": "main goal of the original query",
  "relationship": "sequential|parallel|hierarchical|comparative",
  "difficulty_level": "simple|moderate|complex"
}`)
	return b.String()
}
