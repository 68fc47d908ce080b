package types

import "testing"

func validBrief() CaseBrief {
	return CaseBrief{
		CaseID:   "case-1",
		CaseType: "power-of-attorney",
		Language: LangArabic,
		Parties:  []Party{{Name: "Alia Hassan", Role: "principal"}},
	}
}

func TestCaseBrief_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CaseBrief)
		wantErr bool
	}{
		{"valid", func(b *CaseBrief) {}, false},
		{"missing case id", func(b *CaseBrief) { b.CaseID = "" }, true},
		{"missing case type", func(b *CaseBrief) { b.CaseType = "" }, true},
		{"no parties", func(b *CaseBrief) { b.Parties = nil }, true},
		{"missing language", func(b *CaseBrief) { b.Language = "" }, true},
		{"unsupported language", func(b *CaseBrief) { b.Language = "fr" }, true},
		{"english language", func(b *CaseBrief) { b.Language = LangEnglish }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBrief()
			tt.mutate(&b)
			err := b.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCaseBrief_HasEntityParty(t *testing.T) {
	b := validBrief()
	if b.HasEntityParty() {
		t.Error("HasEntityParty() = true for natural persons only")
	}
	b.Parties = append(b.Parties, Party{Name: "Gulf Trading LLC", Role: "agent", IsEntity: true})
	if !b.HasEntityParty() {
		t.Error("HasEntityParty() = false with an entity party")
	}
}

func TestQuery_EmbeddingText(t *testing.T) {
	q := Query{Text: "literal"}
	if got := q.EmbeddingText(); got != "literal" {
		t.Errorf("EmbeddingText() = %q, want literal text", got)
	}
	q.Hypothetical = "drafted passage"
	if got := q.EmbeddingText(); got != "drafted passage" {
		t.Errorf("EmbeddingText() = %q, want the hypothetical", got)
	}
	if q.IsEmpty() {
		t.Error("IsEmpty() = true for a populated query")
	}
	if !(Query{}).IsEmpty() {
		t.Error("IsEmpty() = false for the zero query")
	}
}
