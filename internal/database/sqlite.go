package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leca/ourstory/internal/model"
	_ "modernc.org/sqlite"
)

// Compile-time check that SQLiteDB implements Database.
var _ Database = (*SQLiteDB)(nil)

// SQLiteDB implements Database backed by SQLite.
type SQLiteDB struct {
	db *sql.DB
}

const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// NewSQLiteDB opens (or creates) an SQLite database at dsn, runs migrations
// and makes sure the valentine message row exists.
// For an in-memory database pass "file::memory:".
func NewSQLiteDB(dsn string) (*SQLiteDB, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?" + pragmas
	} else if !strings.Contains(dsn, "_pragma") {
		dsn += "&" + pragmas
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every connection to ":memory:" would otherwise see its own empty database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &SQLiteDB{db: db}
	if err := s.ensureValentine(context.Background(), time.Now().UTC()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Memories
// ---------------------------------------------------------------------------

const memoryColumns = `id, title, date, section, body, location, sort_order, created_at, updated_at`

const imageColumns = `id, memory_id, filename, url, width, height, alt, sort_order, created_at`

func (s *SQLiteDB) ListMemories(ctx context.Context) ([]*model.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memoryColumns+`
		FROM memories
		ORDER BY sort_order ASC, created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	memories, err := scanMemories(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Memory, len(memories))
	for _, m := range memories {
		byID[m.ID] = m
	}

	imgRows, err := s.db.QueryContext(ctx, `
		SELECT `+imageColumns+`
		FROM memory_images
		ORDER BY memory_id ASC, sort_order ASC, created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer imgRows.Close()

	for imgRows.Next() {
		img, err := scanImage(imgRows)
		if err != nil {
			return nil, err
		}
		if m, ok := byID[img.MemoryID]; ok {
			m.Images = append(m.Images, img)
		}
	}
	return memories, imgRows.Err()
}

func (s *SQLiteDB) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+imageColumns+`
		FROM memory_images WHERE memory_id = ?
		ORDER BY sort_order ASC, created_at ASC, id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list memory images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		m.Images = append(m.Images, img)
	}
	return m, rows.Err()
}

func (s *SQLiteDB) MemoryExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check memory: %w", err)
	}
	return n > 0, nil
}

// CreateMemory inserts m and assigns its sort order as one past the current
// maximum, both in the same statement.
func (s *SQLiteDB) CreateMemory(ctx context.Context, m *model.Memory) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO memories (id, title, date, section, body, location, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM memories), ?, ?)
		RETURNING sort_order`,
		m.ID, m.Title, nullString(m.Date), m.Section, m.Body, nullString(m.Location),
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	).Scan(&m.SortOrder)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// UpdateMemory writes the editable fields and updated_at. sort_order is left alone.
func (s *SQLiteDB) UpdateMemory(ctx context.Context, m *model.Memory) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET title = ?, date = ?, section = ?, body = ?, location = ?, updated_at = ?
		WHERE id = ?`,
		m.Title, nullString(m.Date), m.Section, m.Body, nullString(m.Location),
		formatTime(m.UpdatedAt), m.ID,
	)
	if err != nil {
		return fmt.Errorf("update memory: %w", err)
	}
	return checkRowsAffected(res, "memory")
}

// DeleteMemory removes the memory; its image rows go with it through the
// foreign key cascade.
func (s *SQLiteDB) DeleteMemory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	return checkRowsAffected(res, "memory")
}

// ReorderMemories applies each item on its own. Unknown ids update nothing.
// A failing item does not stop the rest; all failures are returned joined.
func (s *SQLiteDB) ReorderMemories(ctx context.Context, items []model.OrderItem) error {
	var errs []error
	for _, item := range items {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE memories SET sort_order = ? WHERE id = ?`,
			item.SortOrder, item.ID,
		); err != nil {
			errs = append(errs, fmt.Errorf("reorder memory %s: %w", item.ID, err))
		}
	}
	return errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

// CreateImage inserts img with a sort order one past the memory's current maximum.
func (s *SQLiteDB) CreateImage(ctx context.Context, img *model.Image) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO memory_images (id, memory_id, filename, url, width, height, alt, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM memory_images WHERE memory_id = ?), ?)
		RETURNING sort_order`,
		img.ID, img.MemoryID, img.Filename, img.URL, img.Width, img.Height, img.Alt,
		img.MemoryID, formatTime(img.CreatedAt),
	).Scan(&img.SortOrder)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetImage(ctx context.Context, memoryID, imageID string) (*model.Image, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+imageColumns+`
		FROM memory_images WHERE id = ? AND memory_id = ?`,
		imageID, memoryID,
	)
	return scanImage(row)
}

func (s *SQLiteDB) UpdateImageAlt(ctx context.Context, memoryID, imageID, alt string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE memory_images SET alt = ? WHERE id = ? AND memory_id = ?`,
		alt, imageID, memoryID,
	)
	if err != nil {
		return fmt.Errorf("update image alt: %w", err)
	}
	return checkRowsAffected(res, "image")
}

func (s *SQLiteDB) DeleteImage(ctx context.Context, memoryID, imageID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_images WHERE id = ? AND memory_id = ?`,
		imageID, memoryID,
	)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return checkRowsAffected(res, "image")
}

// ReorderImages has the same tolerant semantics as ReorderMemories, scoped
// to images owned by memoryID.
func (s *SQLiteDB) ReorderImages(ctx context.Context, memoryID string, items []model.OrderItem) error {
	var errs []error
	for _, item := range items {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE memory_images SET sort_order = ? WHERE id = ? AND memory_id = ?`,
			item.SortOrder, item.ID, memoryID,
		); err != nil {
			errs = append(errs, fmt.Errorf("reorder image %s: %w", item.ID, err))
		}
	}
	return errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// Valentine message
// ---------------------------------------------------------------------------

func (s *SQLiteDB) GetValentine(ctx context.Context) (*model.ValentineMessage, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT title, body, signature, typed_effect, updated_at
		FROM valentine_message WHERE id = ?`, model.ValentineID)

	msg := &model.ValentineMessage{}
	var signature sql.NullString
	var typed int
	var updated string
	if err := row.Scan(&msg.Title, &msg.Body, &signature, &typed, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("valentine message: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get valentine message: %w", err)
	}
	msg.Signature = stringPtr(signature)
	msg.TypedEffect = typed != 0
	msg.UpdatedAt = parseTime(updated)
	return msg, nil
}

func (s *SQLiteDB) UpdateValentine(ctx context.Context, msg *model.ValentineMessage) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE valentine_message SET title = ?, body = ?, signature = ?, typed_effect = ?, updated_at = ?
		WHERE id = ?`,
		msg.Title, msg.Body, nullString(msg.Signature), boolToInt(msg.TypedEffect),
		formatTime(msg.UpdatedAt), model.ValentineID,
	)
	if err != nil {
		return fmt.Errorf("update valentine message: %w", err)
	}
	return checkRowsAffected(res, "valentine message")
}

// ensureValentine writes the initial singleton row if it is missing.
func (s *SQLiteDB) ensureValentine(ctx context.Context, now time.Time) error {
	msg := model.InitialValentine(now)
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO valentine_message (id, title, body, signature, typed_effect, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		model.ValentineID, msg.Title, msg.Body, nullString(msg.Signature),
		boolToInt(msg.TypedEffect), formatTime(msg.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("seed valentine message: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Admin users
// ---------------------------------------------------------------------------

func (s *SQLiteDB) GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM admin_users WHERE username = ?`, username)

	u := &model.AdminUser{}
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("admin user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get admin user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

func (s *SQLiteDB) CreateAdmin(ctx context.Context, u *model.AdminUser) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_users (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, formatTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scannable) (*model.Memory, error) {
	m := &model.Memory{Images: []*model.Image{}}
	var date, location sql.NullString
	var created, updated string

	err := row.Scan(&m.ID, &m.Title, &date, &m.Section, &m.Body, &location,
		&m.SortOrder, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("memory: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan memory: %w", err)
	}
	m.Date = stringPtr(date)
	m.Location = stringPtr(location)
	m.CreatedAt = parseTime(created)
	m.UpdatedAt = parseTime(updated)
	return m, nil
}

func scanMemories(rows *sql.Rows) ([]*model.Memory, error) {
	memories := []*model.Memory{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func scanImage(row scannable) (*model.Image, error) {
	img := &model.Image{}
	var created string

	err := row.Scan(&img.ID, &img.MemoryID, &img.Filename, &img.URL, &img.Width,
		&img.Height, &img.Alt, &img.SortOrder, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("image: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan image: %w", err)
	}
	img.CreatedAt = parseTime(created)
	return img, nil
}

// timeLayout is RFC 3339 with fixed-width nanoseconds so stored values sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkRowsAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
