// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Party describes one party to the instrument under review.
type Party struct {
	// Name is the party's display name.
	Name string `json:"name" yaml:"name"`

	// Role is the party's role in the instrument (e.g. "grantor", "attorney").
	Role string `json:"role" yaml:"role"`

	// ClaimedCapacity is the legal capacity the party claims to act in
	// (e.g. "self", "authorized signatory", "legal guardian").
	ClaimedCapacity string `json:"claimed_capacity,omitempty" yaml:"claimed_capacity,omitempty"`

	// IsEntity reports whether the party is a juridical person rather
	// than a natural person. Entity parties trigger conditional topics
	// such as entity authority.
	IsEntity bool `json:"is_entity,omitempty" yaml:"is_entity,omitempty"`
}

// CaseBrief is the condensed, structured case summary produced by an
// upstream collaborator. It is immutable input to the research engine.
type CaseBrief struct {
	// CaseID identifies the case in the upstream case-management system.
	CaseID string `json:"case_id" yaml:"case_id"`

	// CaseType names the case-type profile that supplies the required
	// topic checklist (e.g. "power-of-attorney", "declaration").
	CaseType string `json:"case_type" yaml:"case_type"`

	// Language is the primary corpus language for this case's research.
	Language Language `json:"language" yaml:"language"`

	// Parties lists the parties with their roles and claimed capacities.
	Parties []Party `json:"parties" yaml:"parties"`

	// InstrumentScope lists the powers or declarations the instrument covers.
	InstrumentScope []string `json:"instrument_scope,omitempty" yaml:"instrument_scope,omitempty"`

	// Discrepancies lists field-level discrepancies reported by the
	// upstream validation tier (e.g. name spelling mismatches).
	Discrepancies []string `json:"discrepancies,omitempty" yaml:"discrepancies,omitempty"`
}

// Validate rejects malformed briefs before any orchestration starts.
// This is the only input error surfaced to the caller; everything after
// it degrades rather than fails.
func (b *CaseBrief) Validate() error {
	if b.CaseID == "" {
		return fmt.Errorf("case brief missing case_id")
	}
	if b.CaseType == "" {
		return fmt.Errorf("case brief %s missing case_type", b.CaseID)
	}
	if len(b.Parties) == 0 {
		return fmt.Errorf("case brief %s has no parties", b.CaseID)
	}
	switch b.Language {
	case LangArabic, LangEnglish:
	case "":
		return fmt.Errorf("case brief %s missing language", b.CaseID)
	default:
		return fmt.Errorf("case brief %s has unsupported language %q", b.CaseID, b.Language)
	}
	return nil
}

// HasEntityParty reports whether any party is a juridical person.
func (b *CaseBrief) HasEntityParty() bool {
	for _, p := range b.Parties {
		if p.IsEntity {
			return true
		}
	}
	return false
}
