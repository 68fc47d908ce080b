// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package decompose

import (
	"github.com/pdiddy/statute-engine/pkg/types"
)

// Condition gates a conditional topic on a case fact.
type Condition string

const (
	// CondAlways marks an unconditional topic.
	CondAlways Condition = ""

	// CondEntityParty triggers when any party is a juridical person.
	CondEntityParty Condition = "entity_party"

	// CondHasDiscrepancies triggers when the upstream validation tier
	// reported field discrepancies.
	CondHasDiscrepancies Condition = "has_discrepancies"
)

// Met evaluates the condition against the brief.
func (c Condition) Met(brief *types.CaseBrief) bool {
	switch c {
	case CondAlways:
		return true
	case CondEntityParty:
		return brief.HasEntityParty()
	case CondHasDiscrepancies:
		return len(brief.Discrepancies) > 0
	default:
		return false
	}
}

// TopicRequirement is one entry in a case-type checklist.
type TopicRequirement struct {
	// Topic is the checklist topic (lowercase, hyphenated).
	Topic string

	// Mandatory topics always produce an issue, even when the case
	// facts seem to trivially satisfy them, so coverage accounting
	// stays consistent across cases.
	Mandatory bool

	// Condition gates conditional topics; mandatory topics ignore it.
	Condition Condition

	// Priority tiers the issue emitted for this topic.
	Priority types.Priority
}

// Profile is the standard checklist for one case type.
type Profile struct {
	CaseType string
	Topics   []TopicRequirement
}

// profiles maps case types to their checklists. Unknown case types fall
// back to the generic profile.
var profiles = map[string]Profile{
	"power-of-attorney": {
		CaseType: "power-of-attorney",
		Topics: []TopicRequirement{
			{Topic: "capacity", Mandatory: true, Priority: types.PriorityCritical},
			{Topic: "scope-of-authority", Mandatory: true, Priority: types.PriorityCritical},
			{Topic: "document-sufficiency", Mandatory: true, Priority: types.PriorityImportant},
			{Topic: "procedural-compliance", Mandatory: true, Priority: types.PriorityImportant},
			{Topic: "entity-authority", Condition: CondEntityParty, Priority: types.PriorityImportant},
			{Topic: "identity-verification", Condition: CondHasDiscrepancies, Priority: types.PriorityImportant},
			{Topic: "revocation-and-duration", Priority: types.PrioritySupplementary, Condition: CondAlways, Mandatory: false},
		},
	},
	"declaration": {
		CaseType: "declaration",
		Topics: []TopicRequirement{
			{Topic: "capacity", Mandatory: true, Priority: types.PriorityCritical},
			{Topic: "document-sufficiency", Mandatory: true, Priority: types.PriorityImportant},
			{Topic: "procedural-compliance", Mandatory: true, Priority: types.PriorityImportant},
			{Topic: "identity-verification", Condition: CondHasDiscrepancies, Priority: types.PriorityImportant},
		},
	},
	"generic": {
		CaseType: "generic",
		Topics: []TopicRequirement{
			{Topic: "capacity", Mandatory: true, Priority: types.PriorityCritical},
			{Topic: "document-sufficiency", Mandatory: true, Priority: types.PriorityImportant},
			{Topic: "procedural-compliance", Mandatory: true, Priority: types.PriorityImportant},
		},
	},
}

// ProfileFor returns the checklist for a case type, falling back to the
// generic profile for unknown types.
func ProfileFor(caseType string) Profile {
	if p, ok := profiles[caseType]; ok {
		return p
	}
	return profiles["generic"]
}

// ActiveTopics returns the requirements in effect for a brief: every
// mandatory topic, plus conditional topics whose trigger is present.
func (p Profile) ActiveTopics(brief *types.CaseBrief) []TopicRequirement {
	var active []TopicRequirement
	for _, tr := range p.Topics {
		if tr.Mandatory || tr.Condition.Met(brief) {
			active = append(active, tr)
		}
	}
	return active
}
