// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus persists the bilingual statute corpus in SQLite and
// serves direct article lookups for cross-reference expansion, plus a
// keyword search for the CLI. It does not do similarity search; that is
// the external vector search service's job.
package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/statute-engine/pkg/types"
)

const (
	lawsDir  = "laws"
	indexDir = "index"
	dbFile   = "corpus.db"
)

// LawFile is the YAML source format for one law under corpus/laws/.
type LawFile struct {
	LawID        string        `yaml:"law_id"`
	Title        string        `yaml:"title"`
	Year         int           `yaml:"year"`
	Jurisdiction string        `yaml:"jurisdiction"`
	Passages     []PassageFile `yaml:"passages"`
}

// PassageFile is one passage as it appears in a law source file.
type PassageFile struct {
	SourceID string         `yaml:"source_id"`
	Article  string         `yaml:"article"`
	Language types.Language `yaml:"language"`
	Text     string         `yaml:"text"`
	AltText  string         `yaml:"alt_text,omitempty"`
	Topics   []string       `yaml:"topics,omitempty"`
}

// Store manages the statute corpus SQLite database.
type Store struct {
	db         *sql.DB
	corpusDir  string
	maxResults int

	// ftsAvailable reports whether the FTS5 virtual table exists. The
	// sqlite driver only compiles the FTS5 module behind the
	// sqlite_fts5 build tag; without it the store still serves direct
	// lookups and Search degrades to substring matching.
	ftsAvailable bool
}

// NewStore opens or creates the corpus database at
// corpusDir/index/corpus.db, creating the schema if needed.
func NewStore(cfg types.CorpusConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.CorpusDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		corpusDir:  cfg.CorpusDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS laws (
			id TEXT PRIMARY KEY,
			title TEXT,
			year INTEGER,
			jurisdiction TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS passages (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id TEXT NOT NULL UNIQUE,
			law_id TEXT NOT NULL REFERENCES laws(id),
			article TEXT NOT NULL,
			language TEXT NOT NULL,
			text TEXT NOT NULL,
			alt_text TEXT,
			topics TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_passages_ref
			ON passages(law_id, article, language)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			law_id TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='passages_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists > 0 {
		s.ftsAvailable = true
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE passages_fts USING fts5(text, alt_text, content=passages, content_rowid=rowid)`,
		`CREATE TRIGGER passages_ai AFTER INSERT ON passages BEGIN
			INSERT INTO passages_fts(rowid, text, alt_text) VALUES (new.rowid, new.text, new.alt_text);
		END`,
		`CREATE TRIGGER passages_ad AFTER DELETE ON passages BEGIN
			INSERT INTO passages_fts(passages_fts, rowid, text, alt_text) VALUES('delete', old.rowid, old.text, old.alt_text);
		END`,
		`CREATE TRIGGER passages_au AFTER UPDATE ON passages BEGIN
			INSERT INTO passages_fts(passages_fts, rowid, text, alt_text) VALUES('delete', old.rowid, old.text, old.alt_text);
			INSERT INTO passages_fts(rowid, text, alt_text) VALUES (new.rowid, new.text, new.alt_text);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "fts5") {
				// Driver built without the FTS5 module. Lookups and the
				// substring-search fallback still work.
				return nil
			}
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	s.ftsAvailable = true

	return nil
}

// IngestSummary holds counts from a corpus indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of law files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads law YAML files from corpusDir/laws/ and populates the
// database. It detects new, changed, and unchanged files for incremental
// updates.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	srcDir := filepath.Join(s.corpusDir, lawsDir)

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading laws directory %s: %w", srcDir, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		filePath := filepath.Join(srcDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", entry.Name(), err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		data, err := os.ReadFile(filePath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", entry.Name(), err)
			summary.Failed++
			continue
		}

		var law LawFile
		if err := yaml.Unmarshal(data, &law); err != nil {
			fmt.Fprintf(w, "failed  %s: parse error: %v\n", entry.Name(), err)
			summary.Failed++
			continue
		}
		if law.LawID == "" {
			fmt.Fprintf(w, "failed  %s: missing law_id\n", entry.Name())
			summary.Failed++
			continue
		}

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM ingest_status WHERE law_id = ?`, law.LawID,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", law.LawID)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		if err := s.ingestLaw(ctx, &law, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", law.LawID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d passages)\n", law.LawID, len(law.Passages))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d passages)\n", law.LawID, len(law.Passages))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

func (s *Store) ingestLaw(ctx context.Context, law *LawFile, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM passages WHERE law_id = ?`, law.LawID); err != nil {
			return fmt.Errorf("deleting old passages: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO laws (id, title, year, jurisdiction)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, year=excluded.year, jurisdiction=excluded.jurisdiction`,
		law.LawID, law.Title, law.Year, law.Jurisdiction,
	)
	if err != nil {
		return fmt.Errorf("upserting law: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO passages (source_id, law_id, article, language, text, alt_text, topics)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range law.Passages {
		sourceID := p.SourceID
		if sourceID == "" {
			sourceID = fmt.Sprintf("%s/art-%s/%s", law.LawID, p.Article, p.Language)
		}
		topicsJSON, _ := json.Marshal(p.Topics)
		_, err := stmt.ExecContext(ctx,
			sourceID, law.LawID, p.Article, string(p.Language),
			p.Text, p.AltText, string(topicsJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting passage %s: %w", sourceID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ingest_status (law_id, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(law_id) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		law.LawID, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating ingest status: %w", err)
	}

	return tx.Commit()
}

// GetByReference looks up one passage by law id, article number, and
// language partition. A missing passage is expected, not an error:
// the result is (nil, nil).
func (s *Store) GetByReference(ctx context.Context, lawID, article string, lang types.Language) (*types.Passage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT source_id, law_id, article, language, text, alt_text, topics
		 FROM passages WHERE law_id = ? AND article = ? AND language = ?`,
		lawID, article, string(lang),
	)

	p, err := scanPassage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up %s article %s: %w", lawID, article, err)
	}
	return p, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPassage(row rowScanner) (*types.Passage, error) {
	var (
		p          types.Passage
		lang       string
		altText    sql.NullString
		topicsJSON sql.NullString
	)
	if err := row.Scan(&p.SourceID, &p.LawID, &p.Article, &lang, &p.Text, &altText, &topicsJSON); err != nil {
		return nil, err
	}
	p.Language = types.Language(lang)
	if altText.Valid {
		p.AltText = altText.String
	}
	if topicsJSON.Valid {
		json.Unmarshal([]byte(topicsJSON.String), &p.Topics)
	}
	return &p, nil
}
