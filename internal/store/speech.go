package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetSpeech returns cached audio for text spoken by provider in lang.
func (s *Store) GetSpeech(ctx context.Context, provider, lang, text string) ([]byte, bool, error) {
	key, l := normalizeText(text), normalizeLang(lang)

	var audio []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT audio FROM speech_cache WHERE provider = ? AND lang = ? AND text = ?`,
		provider, l, key).Scan(&audio)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE speech_cache SET hits = hits + 1, last_used = ? WHERE provider = ? AND lang = ? AND text = ?`,
		time.Now(), provider, l, key)

	return audio, true, err
}

// SaveSpeech caches audio. Clips larger than maxBytes are skipped and
// reported as not stored; maxBytes <= 0 means no limit.
func (s *Store) SaveSpeech(ctx context.Context, provider, lang, text string, audio []byte, maxBytes int) (bool, error) {
	if len(audio) == 0 || (maxBytes > 0 && len(audio) > maxBytes) {
		return false, nil
	}

	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO speech_cache (id, provider, lang, text, audio, size, hits, last_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		 ON CONFLICT(provider, lang, text) DO UPDATE SET
		 	audio = excluded.audio,
		 	size = excluded.size,
		 	last_used = excluded.last_used`,
		newID("sp"), provider, normalizeLang(lang), normalizeText(text), audio, len(audio), now, now)
	if err != nil {
		return false, err
	}
	return true, nil
}

// PurgeSpeech deletes cached audio not used since before. A zero time
// removes everything.
func (s *Store) PurgeSpeech(ctx context.Context, before time.Time) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if before.IsZero() {
		res, err = s.db.ExecContext(ctx, `DELETE FROM speech_cache`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM speech_cache WHERE last_used < ?`, before)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
