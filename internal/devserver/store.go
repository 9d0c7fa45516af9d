package devserver

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dxblostfound/lostfound/internal/utils"
	"github.com/dxblostfound/lostfound/pkg/matching"
)

// TimestampLayout is how created_at is stored and served: naive UTC with
// microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000"

var ErrNotFound = errors.New("item not found")

// Item is a stored report.
type Item struct {
	ID             int64
	Kind           matching.Kind
	Title          string
	Description    string
	LocationType   string
	LocationDetail string
	TimeFrame      string
	ImageExt       string
	ImageSHA       string
	CreatedAt      time.Time
}

// ImagePath is the relative media path the item's photo is served under.
func (it Item) ImagePath() string {
	return fmt.Sprintf("/media/%s/%d%s", it.Kind, it.ID, it.ImageExt)
}

// Store keeps fixture items in SQLite. It holds the database lock for its
// whole lifetime.
type Store struct {
	sql  *sql.DB
	lock *utils.DBLock
	now  func() time.Time
}

// OpenStore opens the database at path, or at the default location when path
// is empty.
func OpenStore(path string) (*Store, error) {
	path, err := utils.GetAbsDBPath(path)
	if err != nil {
		return nil, err
	}
	lock, err := utils.NewDBLock(path)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(); err != nil {
		return nil, err
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		lock.Unlock()
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS items (
  id              INTEGER PRIMARY KEY,
  type            TEXT NOT NULL CHECK (type IN ('lost','found')),
  title           TEXT NOT NULL,
  description     TEXT,
  location_type   TEXT NOT NULL,
  location_detail TEXT,
  time_frame      TEXT NOT NULL,
  image_ext       TEXT NOT NULL,
  image_sha       TEXT NOT NULL,
  image_blob      BLOB NOT NULL,
  idempotency_key TEXT,
  created_at      TEXT NOT NULL,
  UNIQUE(type, idempotency_key)
);
CREATE INDEX IF NOT EXISTS idx_items_type ON items(type, created_at);
    `); err != nil {
		db.Close()
		lock.Unlock()
		return nil, err
	}
	return &Store{sql: db, lock: lock, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	err := s.sql.Close()
	if uerr := s.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

// Insert stores a new item. When key is non-empty and an item of the same
// kind was already stored under it, that item is returned unchanged and
// created is false. That includes a concurrent insert under the same key
// winning the race.
func (s *Store) Insert(ctx context.Context, it Item, image []byte, key string) (stored Item, created bool, err error) {
	if key != "" {
		existing, err := s.byKey(ctx, it.Kind, key)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Item{}, false, err
		}
	}

	sum := sha256.Sum256(image)
	it.ImageSHA = hex.EncodeToString(sum[:])
	it.CreatedAt = s.now().UTC().Truncate(time.Microsecond)

	res, err := s.sql.ExecContext(ctx, `INSERT INTO items(type, title, description, location_type, location_detail, time_frame, image_ext, image_sha, image_blob, idempotency_key, created_at) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		string(it.Kind), it.Title, nullIfEmpty(it.Description), it.LocationType, nullIfEmpty(it.LocationDetail), it.TimeFrame,
		it.ImageExt, it.ImageSHA, image, nullIfEmpty(key), it.CreatedAt.Format(TimestampLayout))
	if err != nil {
		if key != "" && isUniqueViolation(err) {
			if existing, gerr := s.byKey(ctx, it.Kind, key); gerr == nil {
				return existing, false, nil
			}
		}
		return Item{}, false, err
	}
	it.ID, err = res.LastInsertId()
	if err != nil {
		return Item{}, false, err
	}
	return it, true, nil
}

// List returns the items of kind, newest first.
func (s *Store) List(ctx context.Context, kind matching.Kind) ([]Item, error) {
	rows, err := s.sql.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE type = ? ORDER BY created_at DESC, id DESC`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Image returns the stored photo of an item.
func (s *Store) Image(ctx context.Context, kind matching.Kind, id int64) (Item, []byte, error) {
	it, err := s.getBy(ctx, "type = ? AND id = ?", string(kind), id)
	if err != nil {
		return Item{}, nil, err
	}
	var blob []byte
	if err := s.sql.QueryRowContext(ctx, "SELECT image_blob FROM items WHERE id = ?", id).Scan(&blob); err != nil {
		return Item{}, nil, err
	}
	return it, blob, nil
}

const itemColumns = "id, type, title, description, location_type, location_detail, time_frame, image_ext, image_sha, created_at"

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row scanner) (Item, error) {
	var (
		it            Item
		kind, created string
		desc, detail  sql.NullString
	)
	if err := row.Scan(&it.ID, &kind, &it.Title, &desc, &it.LocationType, &detail, &it.TimeFrame, &it.ImageExt, &it.ImageSHA, &created); err != nil {
		return Item{}, err
	}
	it.Kind = matching.Kind(kind)
	it.Description = desc.String
	it.LocationDetail = detail.String
	t, err := time.Parse(TimestampLayout, created)
	if err != nil {
		return Item{}, fmt.Errorf("item %d: %w", it.ID, err)
	}
	it.CreatedAt = t
	return it, nil
}

func (s *Store) getBy(ctx context.Context, where string, args ...interface{}) (Item, error) {
	it, err := scanItem(s.sql.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return it, err
}

func (s *Store) byKey(ctx context.Context, kind matching.Kind, key string) (Item, error) {
	return s.getBy(ctx, "type = ? AND idempotency_key = ?", string(kind), key)
}

// isUniqueViolation matches both the extended and the primary result code.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || serr.Code() == sqlite3.SQLITE_CONSTRAINT
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
