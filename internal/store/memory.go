package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// MemoryEntry is a row from the translation_memory table.
type MemoryEntry struct {
	ID             string
	SourceText     string
	SourceLang     string
	TargetLang     string
	TranslatedText string
	ServiceUsed    string
	UsageCount     int
	Invalidated    bool
	LastUsed       time.Time
}

// CacheStats summarises both caches.
type CacheStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
	SpeechEntries  int
	SpeechBytes    int64
	SpeechHits     int
}

// GetCachedTranslation returns the remembered translation of sourceText,
// bumping its usage counter on a hit. Invalidated entries are misses.
func (s *Store) GetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string) (string, bool, error) {
	key, src, tgt := normalizeText(sourceText), normalizeLang(sourceLang), normalizeLang(targetLang)

	var (
		text        string
		invalidated bool
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT translated_text, invalidated FROM translation_memory WHERE source_text = ? AND source_lang = ? AND target_lang = ?`,
		key, src, tgt).Scan(&text, &invalidated)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && invalidated) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE translation_memory SET usage_count = usage_count + 1, last_used = ? WHERE source_text = ? AND source_lang = ? AND target_lang = ?`,
		time.Now(), key, src, tgt)

	return text, true, err
}

// SaveToMemory stores or replaces the translation for a language pair.
// Replacing clears any earlier invalidation.
func (s *Store) SaveToMemory(ctx context.Context, sourceText, sourceLang, targetLang, translatedText, serviceUsed string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translation_memory (id, source_text, source_lang, target_lang, translated_text, service_used, usage_count, invalidated, last_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, FALSE, ?, ?)
		 ON CONFLICT(source_text, source_lang, target_lang) DO UPDATE SET
		 	translated_text = excluded.translated_text,
		 	service_used = excluded.service_used,
		 	invalidated = FALSE,
		 	last_used = excluded.last_used`,
		newID("mem"), normalizeText(sourceText), normalizeLang(sourceLang), normalizeLang(targetLang), translatedText, serviceUsed, now, now)
	return err
}

// InvalidateMemory keeps an entry for inspection but stops serving it.
func (s *Store) InvalidateMemory(ctx context.Context, id string) error {
	return s.execOne(ctx, `UPDATE translation_memory SET invalidated = TRUE WHERE id = ?`, id)
}

// DeleteMemory permanently removes a translation memory entry by ID.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM translation_memory WHERE id = ?`, id)
}

// ClearMemory removes all translation memory entries.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListMemory returns translation memory entries, most recently used first.
func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_text, source_lang, target_lang, translated_text, COALESCE(service_used, ''), usage_count, invalidated, last_used
		 FROM translation_memory ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.SourceText, &e.SourceLang, &e.TargetLang, &e.TranslatedText, &e.ServiceUsed, &e.UsageCount, &e.Invalidated, &e.LastUsed); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Stats returns summary statistics for the translation memory and the
// speech cache.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN NOT invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0)
		FROM translation_memory`).Scan(
		&stats.TotalEntries,
		&stats.ActiveEntries,
		&stats.InvalidEntries,
		&stats.TotalUsage,
	)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0), COALESCE(SUM(hits), 0) FROM speech_cache`).Scan(
		&stats.SpeechEntries,
		&stats.SpeechBytes,
		&stats.SpeechHits,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// FuzzyGetCachedTranslation returns the remembered translation whose source
// is most similar to sourceText, provided the similarity (0..1) reaches
// threshold. threshold <= 0 disables matching. Texts over maxFuzzyRunes are
// never fuzzy-matched.
func (s *Store) FuzzyGetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string, threshold float64) (string, bool, error) {
	if threshold <= 0 {
		return "", false, nil
	}

	key := normalizeText(sourceText)
	keyLen := len([]rune(key))
	if keyLen > maxFuzzyRunes {
		return "", false, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_text, translated_text FROM translation_memory
		 WHERE source_lang = ? AND target_lang = ? AND NOT invalidated`,
		normalizeLang(sourceLang), normalizeLang(targetLang))
	if err != nil {
		return "", false, err
	}
	defer rows.Close()

	var (
		best      string
		bestScore float64
	)
	for rows.Next() {
		var src, text string
		if err := rows.Scan(&src, &text); err != nil {
			return "", false, err
		}
		if lengthBound(keyLen, len([]rune(src))) < threshold {
			continue
		}
		if score := similarity(key, src); score >= threshold && score > bestScore {
			best, bestScore = text, score
		}
	}
	if err := rows.Err(); err != nil {
		return "", false, err
	}

	return best, best != "", nil
}

// execOne runs a statement addressed at a single row and reports
// ErrNotFound when nothing matched.
func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ErrNotFound is returned when an ID matches no row.
var ErrNotFound = errors.New("entry not found")
