package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// GlossaryEntry represents a row in the glossary table.
type GlossaryEntry struct {
	ID         string
	SourceLang string
	TargetLang string
	SourceTerm string
	TargetTerm string
	CreatedAt  time.Time
}

// AddGlossaryTerm inserts a term or replaces the rendering of an existing
// one for the same language pair.
func (s *Store) AddGlossaryTerm(ctx context.Context, sourceLang, targetLang, sourceTerm, targetTerm string) error {
	sourceTerm, targetTerm = strings.TrimSpace(sourceTerm), strings.TrimSpace(targetTerm)
	if sourceTerm == "" || targetTerm == "" {
		return fmt.Errorf("glossary terms must not be empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO glossary (id, source_lang, target_lang, source_term, target_term)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(source_lang, target_lang, source_term) DO UPDATE SET target_term = excluded.target_term`,
		newID("gl"), normalizeLang(sourceLang), normalizeLang(targetLang), sourceTerm, targetTerm)
	return err
}

// ImportGlossary adds every pair in one transaction and returns how many
// were written.
func (s *Store) ImportGlossary(ctx context.Context, sourceLang, targetLang string, pairs [][2]string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO glossary (id, source_lang, target_lang, source_term, target_term)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(source_lang, target_lang, source_term) DO UPDATE SET target_term = excluded.target_term`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	src, tgt := normalizeLang(sourceLang), normalizeLang(targetLang)
	n := 0
	for _, p := range pairs {
		from, to := strings.TrimSpace(p[0]), strings.TrimSpace(p[1])
		if from == "" || to == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, newID("gl"), src, tgt, from, to); err != nil {
			return 0, fmt.Errorf("term %q: %w", from, err)
		}
		n++
	}

	return n, tx.Commit()
}

// GetGlossaryTerms returns the terms for a language pair as a
// source-term to target-term map, ready to embed in a prompt.
func (s *Store) GetGlossaryTerms(ctx context.Context, sourceLang, targetLang string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_term, target_term FROM glossary WHERE source_lang = ? AND target_lang = ?`,
		normalizeLang(sourceLang), normalizeLang(targetLang))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := make(map[string]string)
	for rows.Next() {
		var src, tgt string
		if err := rows.Scan(&src, &tgt); err != nil {
			return nil, err
		}
		terms[src] = tgt
	}
	return terms, rows.Err()
}

// ListGlossaryTerms returns glossary entries, optionally filtered by either
// side of the language pair (empty means any).
func (s *Store) ListGlossaryTerms(ctx context.Context, sourceLang, targetLang string) ([]GlossaryEntry, error) {
	var (
		where []string
		args  []any
	)
	if sourceLang != "" {
		where = append(where, "source_lang = ?")
		args = append(args, normalizeLang(sourceLang))
	}
	if targetLang != "" {
		where = append(where, "target_lang = ?")
		args = append(args, normalizeLang(targetLang))
	}

	query := `SELECT id, source_lang, target_lang, source_term, target_term, created_at FROM glossary`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY source_lang, target_lang, source_term`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []GlossaryEntry
	for rows.Next() {
		var e GlossaryEntry
		if err := rows.Scan(&e.ID, &e.SourceLang, &e.TargetLang, &e.SourceTerm, &e.TargetTerm, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteGlossaryTerm removes a glossary entry by ID.
func (s *Store) DeleteGlossaryTerm(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM glossary WHERE id = ?`, id)
}
