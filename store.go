package scootblog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup by slug or id misses.
var ErrNotFound = errors.New("not found")

// ErrUnavailable is returned when the backing store is unreachable or a
// query exceeds its time budget. Handlers surface it as 503.
var ErrUnavailable = errors.New("storage unavailable")

// Store wraps a SQLite database and provides CRUD operations for blog posts.
// All methods honor the store's per-query time budget.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations. queryTimeout bounds every
// query issued through this store; zero means a 5s default.
func NewStore(path string, queryTimeout time.Duration) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Enable WAL mode for concurrent read/write access, set a busy timeout
	// so writers wait instead of returning SQLITE_BUSY immediately, and tune
	// performance: synchronous=NORMAL is safe with WAL and avoids an fsync
	// per transaction; larger cache and mmap reduce disk I/O.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	s := &Store{db: db, timeout: queryTimeout}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS blogs (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    excerpt TEXT NOT NULL,
    content TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    image TEXT NOT NULL DEFAULT '',
    image2 TEXT NOT NULL DEFAULT '',
    image3 TEXT NOT NULL DEFAULT '',
    is_active INTEGER NOT NULL DEFAULT 1,
    author_name TEXT NOT NULL DEFAULT '',
    author_title TEXT NOT NULL DEFAULT '',
    author_bio TEXT NOT NULL DEFAULT '',
    meta_title TEXT NOT NULL DEFAULT '',
    meta_description TEXT NOT NULL DEFAULT '',
    meta_tags TEXT NOT NULL DEFAULT '',
    canonical_url TEXT NOT NULL DEFAULT '',
    blog_posting_schema TEXT NOT NULL DEFAULT '',
    author_schema TEXT NOT NULL DEFAULT '',
    faq_schema TEXT NOT NULL DEFAULT '',
    og_title TEXT NOT NULL DEFAULT '',
    og_description TEXT NOT NULL DEFAULT '',
    og_image TEXT NOT NULL DEFAULT '',
    og_url TEXT NOT NULL DEFAULT '',
    twitter_title TEXT NOT NULL DEFAULT '',
    twitter_description TEXT NOT NULL DEFAULT '',
    twitter_image TEXT NOT NULL DEFAULT '',
    published_date TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blogs_public_listing
    ON blogs (is_active, published_date DESC, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_blogs_admin_listing
    ON blogs (created_at DESC, id DESC);
`)
	return err
}

const postColumns = `id, slug, title, excerpt, content, category,
    image, image2, image3, is_active,
    author_name, author_title, author_bio,
    meta_title, meta_description, meta_tags, canonical_url,
    blog_posting_schema, author_schema, faq_schema,
    og_title, og_description, og_image, og_url,
    twitter_title, twitter_description, twitter_image,
    published_date, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(sc rowScanner) (BlogPost, error) {
	var p BlogPost
	var active int
	var published, created, updated string
	err := sc.Scan(
		&p.ID, &p.Slug, &p.Title, &p.Excerpt, &p.Content, &p.Category,
		&p.Image, &p.Image2, &p.Image3, &active,
		&p.AuthorName, &p.AuthorTitle, &p.AuthorBio,
		&p.MetaTitle, &p.MetaDescription, &p.MetaTags, &p.CanonicalURL,
		&p.BlogPostingSchema, &p.AuthorSchema, &p.FAQSchema,
		&p.OGTitle, &p.OGDescription, &p.OGImage, &p.OGURL,
		&p.TwitterTitle, &p.TwitterDescription, &p.TwitterImage,
		&published, &created, &updated,
	)
	if err != nil {
		return BlogPost{}, err
	}
	p.IsActive = active == 1
	p.PublishedDate = parseStoredTime(published)
	p.CreatedAt = parseStoredTime(created)
	p.UpdatedAt = parseStoredTime(updated)
	return p, nil
}

func parseStoredTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func storeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// mapErr translates driver errors into the store's error taxonomy.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: query exceeded time budget", ErrUnavailable)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy") {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (s *Store) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, s.timeout)
}

func (f ListFilter) whereClause() (string, []any) {
	var conds []string
	var args []any
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		// SQLite's lower() folds ASCII only, so the substring match is
		// case-insensitive for ASCII text and case-sensitive beyond it.
		conds = append(conds, `(instr(lower(title), ?) > 0 OR instr(lower(content), ?) > 0 OR instr(lower(excerpt), ?) > 0)`)
		args = append(args, q, q, q)
	}
	if f.Category != "" {
		conds = append(conds, `category = ?`)
		args = append(args, f.Category)
	}
	if f.Active != nil {
		conds = append(conds, `is_active = ?`)
		args = append(args, boolToInt(*f.Active))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (o Order) clause() string {
	if o == OrderCreated {
		return " ORDER BY created_at DESC, id DESC"
	}
	return " ORDER BY published_date DESC, created_at DESC, id DESC"
}

// Count returns the number of posts matching the filter.
func (s *Store) Count(ctx context.Context, f ListFilter) (int, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	where, args := f.whereClause()
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blogs`+where, args...).Scan(&n)
	if err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

// List returns posts matching the filter in the given order. limit <= 0
// means no limit.
func (s *Store) List(ctx context.Context, f ListFilter, ord Order, limit, offset int) ([]BlogPost, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	where, args := f.whereClause()
	q := `SELECT ` + postColumns + ` FROM blogs` + where + ord.clause()
	if limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return posts, nil
}

// GetBySlug returns a single active post by slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (BlogPost, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	p, err := scanPost(s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM blogs WHERE slug = ? AND is_active = 1`, slug))
	if err != nil {
		return BlogPost{}, mapErr(err)
	}
	return p, nil
}

// GetByID returns a post by id regardless of active status (admin lookup).
func (s *Store) GetByID(ctx context.Context, id string) (BlogPost, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	p, err := scanPost(s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM blogs WHERE id = ?`, id))
	if err != nil {
		return BlogPost{}, mapErr(err)
	}
	return p, nil
}

// Related returns up to limit active posts other than excludeID, most
// recently published first.
func (s *Store) Related(ctx context.Context, excludeID string, limit int) ([]BlogPost, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM blogs WHERE is_active = 1 AND id != ?`+
			OrderPublished.clause()+` LIMIT ?`, excludeID, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return posts, nil
}

// Categories returns the sorted set of distinct categories across all posts.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM blogs WHERE category != '' ORDER BY category`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, mapErr(err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return categories, nil
}

const nonIdentityColumns = `title = ?, excerpt = ?, content = ?, category = ?,
    image = ?, image2 = ?, image3 = ?, is_active = ?,
    author_name = ?, author_title = ?, author_bio = ?,
    meta_title = ?, meta_description = ?, meta_tags = ?, canonical_url = ?,
    blog_posting_schema = ?, author_schema = ?, faq_schema = ?,
    og_title = ?, og_description = ?, og_image = ?, og_url = ?,
    twitter_title = ?, twitter_description = ?, twitter_image = ?,
    published_date = ?, updated_at = ?`

func nonIdentityArgs(p BlogPost, now time.Time) []any {
	return []any{
		p.Title, p.Excerpt, p.Content, p.Category,
		p.Image, p.Image2, p.Image3, boolToInt(p.IsActive),
		p.AuthorName, p.AuthorTitle, p.AuthorBio,
		p.MetaTitle, p.MetaDescription, p.MetaTags, p.CanonicalURL,
		p.BlogPostingSchema, p.AuthorSchema, p.FAQSchema,
		p.OGTitle, p.OGDescription, p.OGImage, p.OGURL,
		p.TwitterTitle, p.TwitterDescription, p.TwitterImage,
		storeTime(p.PublishedDate), storeTime(now),
	}
}

// Upsert inserts the post or, if a post with the same slug exists, replaces
// its non-identity fields and refreshes updated_at. The existing id and
// created_at are preserved on update. Returns the id of the affected row
// and whether a new row was inserted.
func (s *Store) Upsert(ctx context.Context, p BlogPost) (id string, inserted bool, err error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, mapErr(err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var existingID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM blogs WHERE slug = ?`, p.Slug).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		id = p.ID
		if id == "" {
			id = uuid.NewString()
		}
		args := append([]any{id, p.Slug}, nonIdentityArgs(p, now)...)
		args = append(args, storeTime(now))
		_, err = tx.ExecContext(ctx, `INSERT INTO blogs (id, slug, title, excerpt, content, category,
    image, image2, image3, is_active,
    author_name, author_title, author_bio,
    meta_title, meta_description, meta_tags, canonical_url,
    blog_posting_schema, author_schema, faq_schema,
    og_title, og_description, og_image, og_url,
    twitter_title, twitter_description, twitter_image,
    published_date, updated_at, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		inserted = true
	case err != nil:
		return "", false, mapErr(err)
	default:
		id = existingID
		args := append(nonIdentityArgs(p, now), existingID)
		_, err = tx.ExecContext(ctx, `UPDATE blogs SET `+nonIdentityColumns+` WHERE id = ?`, args...)
	}
	if err != nil {
		return "", false, mapErr(err)
	}
	if err := tx.Commit(); err != nil {
		return "", false, mapErr(err)
	}
	return id, inserted, nil
}

// Update replaces the editable fields of the post with the given id,
// including its slug, and refreshes updated_at.
func (s *Store) Update(ctx context.Context, p BlogPost) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	now := time.Now().UTC()
	args := append([]any{p.Slug}, nonIdentityArgs(p, now)...)
	args = append(args, p.ID)
	res, err := s.db.ExecContext(ctx,
		`UPDATE blogs SET slug = ?, `+nonIdentityColumns+` WHERE id = ?`, args...)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a post by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `DELETE FROM blogs WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMany removes every post whose id is in ids and reports how many
// rows were deleted.
func (s *Store) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM blogs WHERE id IN (`+placeholders(len(ids))+`)`, idArgs(ids)...)
	if err != nil {
		return 0, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapErr(err)
	}
	return int(n), nil
}

// SetActive flips the visibility of a single post.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx,
		`UPDATE blogs SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), storeTime(time.Now().UTC()), id)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActiveMany sets the visibility of every post whose id is in ids and
// reports how many rows were updated.
func (s *Store) SetActiveMany(ctx context.Context, ids []string, active bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	args := append([]any{boolToInt(active), storeTime(time.Now().UTC())}, idArgs(ids)...)
	res, err := s.db.ExecContext(ctx,
		`UPDATE blogs SET is_active = ?, updated_at = ? WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapErr(err)
	}
	return int(n), nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
