package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Kind string

const (
	KindTranscript Kind = "transcript"
	KindMatch      Kind = "match"
)

// Match is the song found for a transcript.
type Match struct {
	Artist     string
	TrackName  string
	AlbumName  string
	PreviewURL string
	ArtworkURL string
}

// Entry is one row of the history timeline.
type Entry struct {
	ID        int64
	SessionID string
	Kind      Kind
	Text      string
	Match     *Match
	CreatedAt time.Time
}

// Store keeps final transcripts and matched songs in SQLite.
// A Store opened with an empty path keeps nothing.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return Ephemeral(), nil
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Ephemeral returns a Store that keeps nothing.
func Ephemeral() *Store {
	return &Store{clock: time.Now}
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    text TEXT NOT NULL,
    artist TEXT,
    track_name TEXT,
    album_name TEXT,
    preview_url TEXT,
    artwork_url TEXT,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at);
CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Enabled reports whether entries are persisted.
func (s *Store) Enabled() bool {
	return s.db != nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) now() string {
	return s.clock().UTC().Format(time.RFC3339Nano)
}

func (s *Store) AppendTranscript(ctx context.Context, sessionID, text string) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries(session_id, kind, text, created_at) VALUES(?, ?, ?, ?)`,
		sessionID, string(KindTranscript), text, s.now())
	if err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

// AppendMatch records that term found m.
func (s *Store) AppendMatch(ctx context.Context, sessionID, term string, m Match) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries(session_id, kind, text, artist, track_name, album_name, preview_url, artwork_url, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, string(KindMatch), term, m.Artist, m.TrackName, m.AlbumName, m.PreviewURL, m.ArtworkURL, s.now())
	if err != nil {
		return fmt.Errorf("append match: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, kind, text, artist, track_name, album_name, preview_url, artwork_url, created_at
		 FROM entries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                    Entry
			kind, created                        string
			artist, track, album, preview, artwk sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &kind, &e.Text, &artist, &track, &album, &preview, &artwk, &created); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Kind = Kind(kind)
		if e.Kind == KindMatch {
			e.Match = &Match{
				Artist:     artist.String,
				TrackName:  track.String,
				AlbumName:  album.String,
				PreviewURL: preview.String,
				ArtworkURL: artwk.String,
			}
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune keeps the newest keep entries and deletes the rest. keep <= 0 keeps everything.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if s.db == nil || keep <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE id NOT IN (SELECT id FROM entries ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}
