package corpus

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/statute-engine/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(tmpDir, lawsDir), 0o755); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(types.CorpusConfig{CorpusDir: tmpDir, MaxResults: 20})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, tmpDir
}

func writeLawFile(t *testing.T, dir string, law LawFile) {
	t.Helper()
	data, err := yaml.Marshal(&law)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, lawsDir, law.LawID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func civilCode() LawFile {
	return LawFile{
		LawID:        "civil-code",
		Title:        "Civil Transactions Law",
		Year:         1985,
		Jurisdiction: "federal",
		Passages: []PassageFile{
			{
				Article:  "85",
				Language: types.LangEnglish,
				Text:     "A person attains full legal capacity at the age of majority.",
				Topics:   []string{"capacity"},
			},
			{
				SourceID: "civil-code/art-152/ar",
				Article:  "152",
				Language: types.LangArabic,
				Text:     "يشترط في الوكالة أن يكون الموكل أهلاً للتصرف",
				AltText:  "The principal of an agency must have capacity to dispose.",
			},
		},
	}
}

// --- tests ---

func TestIngestAndLookup(t *testing.T) {
	store, dir := testStore(t)
	writeLawFile(t, dir, civilCode())

	summary, err := store.Ingest(context.Background(), io.Discard)
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if summary.Indexed != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 1 indexed", summary)
	}

	p, err := store.GetByReference(context.Background(), "civil-code", "85", types.LangEnglish)
	if err != nil {
		t.Fatalf("GetByReference() error: %v", err)
	}
	if p == nil {
		t.Fatal("GetByReference() = nil for an ingested passage")
	}
	// source_id is derived when the law file omits it.
	if p.SourceID != "civil-code/art-85/en" {
		t.Errorf("source id = %q, want derived civil-code/art-85/en", p.SourceID)
	}
	if len(p.Topics) != 1 || p.Topics[0] != "capacity" {
		t.Errorf("topics = %v, want [capacity]", p.Topics)
	}

	// Explicit source_id is preserved.
	p, err = store.GetByReference(context.Background(), "civil-code", "152", types.LangArabic)
	if err != nil {
		t.Fatalf("GetByReference() error: %v", err)
	}
	if p == nil || p.SourceID != "civil-code/art-152/ar" {
		t.Fatalf("arabic passage = %+v, want explicit source id", p)
	}
	if p.AltText == "" {
		t.Error("alt text not stored")
	}
}

func TestGetByReference_NotFound(t *testing.T) {
	store, dir := testStore(t)
	writeLawFile(t, dir, civilCode())
	if _, err := store.Ingest(context.Background(), io.Discard); err != nil {
		t.Fatal(err)
	}

	// A missing reference is expected, not an error.
	p, err := store.GetByReference(context.Background(), "civil-code", "999", types.LangEnglish)
	if err != nil {
		t.Errorf("GetByReference() error: %v, want nil", err)
	}
	if p != nil {
		t.Errorf("GetByReference() = %+v, want nil for a missing article", p)
	}
}

func TestIngest_SkipsUnchangedFiles(t *testing.T) {
	store, dir := testStore(t)
	writeLawFile(t, dir, civilCode())

	if _, err := store.Ingest(context.Background(), io.Discard); err != nil {
		t.Fatal(err)
	}
	summary, err := store.Ingest(context.Background(), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 || summary.Indexed != 0 {
		t.Errorf("second ingest summary = %+v, want 1 skipped", summary)
	}
}

func TestIngest_CountsMalformedFiles(t *testing.T) {
	store, dir := testStore(t)
	path := filepath.Join(dir, lawsDir, "broken.yaml")
	if err := os.WriteFile(path, []byte("{{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Ingest(context.Background(), io.Discard)
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 failed", summary)
	}
}

func TestSearch(t *testing.T) {
	store, dir := testStore(t)
	writeLawFile(t, dir, civilCode())
	if _, err := store.Ingest(context.Background(), io.Discard); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(context.Background(), SearchOptions{Query: "capacity"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	// Matches the English text and the Arabic passage's alt text.
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}

	// Language filter narrows to one partition.
	results, err = store.Search(context.Background(), SearchOptions{Query: "capacity", Language: types.LangEnglish})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 1 || results[0].Language != types.LangEnglish {
		t.Errorf("filtered results = %+v, want one English passage", results)
	}
}

func TestSearch_SubstringFallback(t *testing.T) {
	// Without the sqlite_fts5 build tag the FTS5 module is absent; the
	// store must still open, serve lookups, and answer keyword queries
	// by substring matching.
	store, dir := testStore(t)
	writeLawFile(t, dir, civilCode())
	if _, err := store.Ingest(context.Background(), io.Discard); err != nil {
		t.Fatal(err)
	}
	store.ftsAvailable = false

	p, err := store.GetByReference(context.Background(), "civil-code", "85", types.LangEnglish)
	if err != nil || p == nil {
		t.Fatalf("GetByReference() = %v, %v, want a passage", p, err)
	}

	results, err := store.Search(context.Background(), SearchOptions{Query: "capacity"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2 (text and alt text match)", len(results))
	}

	results, err = store.Search(context.Background(), SearchOptions{Query: "capacity majority"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 1 || results[0].Article != "85" {
		t.Errorf("multi-term results = %+v, want only article 85", results)
	}
}

func TestExportYAML(t *testing.T) {
	store, dir := testStore(t)
	writeLawFile(t, dir, civilCode())
	if _, err := store.Ingest(context.Background(), io.Discard); err != nil {
		t.Fatal(err)
	}

	if err := store.ExportYAML(context.Background(), SearchOptions{}); err != nil {
		t.Fatalf("ExportYAML() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, indexDir, "export.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var exported []types.Passage
	if err := yaml.Unmarshal(data, &exported); err != nil {
		t.Fatalf("exported YAML does not parse: %v", err)
	}
	if len(exported) != 2 {
		t.Errorf("exported %d passages, want 2", len(exported))
	}
}
