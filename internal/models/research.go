// Package models defines the persisted data model of a research run.
package models

import (
	"database/sql"
	"time"
)

// Query classification categories.
const (
	ClassificationFactual     = "factual"
	ClassificationSpeculative = "speculative"
	ClassificationAmbiguous   = "ambiguous"
)

// Search types for evidence gathering.
const (
	SearchTypeDepth   = "depth"
	SearchTypeBreadth = "breadth"
)

// Judge overall statuses.
const (
	StatusReadyToDeliver    = "READY_TO_DELIVER"
	StatusNeedsMoreResearch = "NEEDS_MORE_RESEARCH"
)

// Coverage classifications assigned by the judge per sub-question.
const (
	CoverageCovered          = "covered"
	CoveragePartiallyCovered = "partially_covered"
	CoverageMissing          = "missing"
)

// Run is one end-to-end research session for one original query.
type Run struct {
	ID              string         `db:"id"`
	OriginalQuery   string         `db:"original_query"`
	Classification  string         `db:"classification"`
	PrimaryIntent   string         `db:"primary_intent"`
	Relationship    string         `db:"relationship"`
	DifficultyLevel string         `db:"difficulty_level"`
	FinalAnswer     sql.NullString `db:"final_answer"`
	MarkdownPath    sql.NullString `db:"markdown_path"`
	HTMLPath        sql.NullString `db:"html_path"`
	CreatedAt       time.Time      `db:"created_at"`
}

// SubQuestion is one atomic, independently answerable question belonging to a
// run. Position is 1-based and defines the stable ordering for reporting and
// judge input. Follow-up questions appended in later passes receive positions
// after the existing ones.
type SubQuestion struct {
	ID            int64     `db:"id"`
	ResearchRunID string    `db:"research_run_id"`
	SubQuestion   string    `db:"sub_question"`
	Position      int       `db:"position"`
	CreatedAt     time.Time `db:"created_at"`
}

// SearchResult is one piece of evidence tied to a sub-question and a search
// type. URL rows and snippet rows are inserted separately; both belong to the
// same evidence set.
type SearchResult struct {
	ID            int64           `db:"id"`
	SubQuestionID int64           `db:"sub_question_id"`
	SearchQuery   string          `db:"search_query"`
	SearchType    string          `db:"search_type"`
	URL           sql.NullString  `db:"url"`
	Title         sql.NullString  `db:"title"`
	Snippet       sql.NullString  `db:"snippet"`
	Score         sql.NullFloat64 `db:"score"`
	SourceEngine  string          `db:"source_engine"`
	FetchedAt     time.Time       `db:"fetched_at"`
}

// SubQuestionSummary is the single cached bullet-point answer for a
// sub-question. At most one summary exists per sub-question and it is never
// recomputed, even if new evidence arrives later.
type SubQuestionSummary struct {
	ID            int64     `db:"id"`
	SubQuestionID int64     `db:"sub_question_id"`
	SummaryJSON   string    `db:"summary_json"`
	CreatedAt     time.Time `db:"created_at"`
}

// JudgeEvaluation is one quality assessment of a synthesized answer. A run
// accumulates one evaluation per pass; the most recent is authoritative.
type JudgeEvaluation struct {
	ID                   int64     `db:"id"`
	ResearchRunID        string    `db:"research_run_id"`
	OverallStatus        string    `db:"overall_status"`
	ConfidenceScore      float64   `db:"confidence_score"`
	CoverageAssessment   string    `db:"coverage_assessment"`
	DetectedGaps         string    `db:"detected_gaps"`
	RecommendedFollowUp  string    `db:"recommended_follow_up"`
	TerminationReasoning string    `db:"termination_reasoning"`
	EvaluatedAt          time.Time `db:"evaluated_at"`
}
