// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the statute-engine
// research pipeline: case briefs, issues, retrieved passages, findings,
// opinions, and the research trace.
package types

// Language selects a corpus partition. The statute corpus carries
// independent embeddings per language; queries must name the partition
// they search.
type Language string

const (
	LangArabic  Language = "ar"
	LangEnglish Language = "en"
)

// Provenance records how a passage entered a retrieval run's passage set.
type Provenance string

const (
	// ProvenanceSearch marks a passage returned by vector similarity search.
	ProvenanceSearch Provenance = "search"

	// ProvenanceCrossReference marks a passage added by resolving an
	// in-text article reference via direct lookup.
	ProvenanceCrossReference Provenance = "via_cross_reference"
)

// Passage is one retrieved statute or regulation unit.
type Passage struct {
	// SourceID is the canonical corpus identifier for this passage.
	// Passage sets are deduplicated by SourceID, keeping the highest
	// similarity seen.
	SourceID string `json:"source_id" yaml:"source_id"`

	// LawID identifies the law or regulation the passage belongs to.
	LawID string `json:"law_id" yaml:"law_id"`

	// Article is the article number within the law (e.g. "12", "4bis").
	Article string `json:"article" yaml:"article"`

	// Language is the corpus partition the passage was retrieved from.
	Language Language `json:"language" yaml:"language"`

	// Text is the passage text in the retrieval language.
	Text string `json:"text" yaml:"text"`

	// AltText is the companion translation, when the corpus carries one.
	AltText string `json:"alt_text,omitempty" yaml:"alt_text,omitempty"`

	// Similarity is the cosine similarity to the query vector, in [0,1].
	// Cross-referenced passages carry a synthetic similarity of 1.0.
	Similarity float64 `json:"similarity" yaml:"similarity"`

	// Topics are topic tags assigned at corpus ingestion, if classified.
	Topics []string `json:"topics,omitempty" yaml:"topics,omitempty"`

	// Provenance records whether the passage came from search or from
	// cross-reference expansion.
	Provenance Provenance `json:"provenance" yaml:"provenance"`
}

// Query is one reformulated search request for an issue. Queries are
// ephemeral: created per retrieval attempt and recorded in the trace.
type Query struct {
	// Text is the literal query text.
	Text string `json:"text" yaml:"text"`

	// Language selects the corpus partition to search.
	Language Language `json:"language" yaml:"language"`

	// Hypothetical is optional synthetic statute-like text drafted to
	// answer the question. When present it is embedded instead of Text.
	// Hypothetical text is never a citable source.
	Hypothetical string `json:"hypothetical,omitempty" yaml:"hypothetical,omitempty"`

	// Topic is the checklist topic this query targets, if any.
	Topic string `json:"topic,omitempty" yaml:"topic,omitempty"`
}

// IsEmpty reports whether the query has no searchable text.
func (q Query) IsEmpty() bool {
	return q.Text == "" && q.Hypothetical == ""
}

// EmbeddingText returns the text to embed: the hypothetical passage when
// one was drafted, otherwise the literal query text.
func (q Query) EmbeddingText() string {
	if q.Hypothetical != "" {
		return q.Hypothetical
	}
	return q.Text
}
