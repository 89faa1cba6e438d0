package storage

import (
	"container/list"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/hyperjump/shohin/internal/ident"
	"github.com/hyperjump/shohin/internal/models"
)

// driverName is go-sqlite3 with a REGEXP function, which SQLite leaves to the application.
const driverName = "sqlite3_shohin"

// regexpCacheSize caps the compiled search patterns kept between queries.
const regexpCacheSize = 128

var regexps = newRegexpCache(regexpCacheSize)

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", matchRegexp, true)
		},
	})
}

// matchRegexp backs "X REGEXP Y", which SQLite evaluates as regexp(Y, X).
func matchRegexp(pattern, s string) (bool, error) {
	re, err := regexps.get(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

// regexpCache is a least-recently-used set of compiled patterns. Patterns come from
// client search terms, so the set is bounded.
type regexpCache struct {
	mu      sync.Mutex
	limit   int
	order   *list.List // front is most recent; values are *cachedRegexp
	entries map[string]*list.Element
}

type cachedRegexp struct {
	pattern string
	re      *regexp.Regexp
}

func newRegexpCache(limit int) *regexpCache {
	return &regexpCache{limit: limit, order: list.New(), entries: make(map[string]*list.Element)}
}

func (c *regexpCache) get(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	if el, ok := c.entries[pattern]; ok {
		c.order.MoveToFront(el)
		c.mu.Unlock()
		return el.Value.(*cachedRegexp).re, nil
	}
	c.mu.Unlock()

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[pattern]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cachedRegexp).re, nil
	}
	c.entries[pattern] = c.order.PushFront(&cachedRegexp{pattern: pattern, re: re})
	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cachedRegexp).pattern)
	}
	return re, nil
}

func (c *regexpCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// SQLiteStorage implements Storage using SQLite. List fields are stored as JSON text.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT,
		subcategory TEXT,
		duration TEXT,
		views TEXT,
		highlights TEXT NOT NULL DEFAULT '[]',
		transcript_summary TEXT,
		key_features TEXT NOT NULL DEFAULT '[]',
		price_range TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_videos_category ON videos(category);

	CREATE TABLE IF NOT EXISTS video_listings (
		id TEXT PRIMARY KEY,
		video_id TEXT NOT NULL,
		product_id TEXT,
		platform TEXT,
		title TEXT,
		views TEXT,
		rating REAL,
		key_timestamps TEXT NOT NULL DEFAULT '{}',
		product_links TEXT NOT NULL DEFAULT '[]',
		created_at TEXT,
		updated_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_listings_video_id ON video_listings(video_id);

	CREATE TABLE IF NOT EXISTS video_analytics (
		id TEXT PRIMARY KEY,
		product_id TEXT,
		engagement TEXT NOT NULL DEFAULT '{}',
		audience TEXT NOT NULL DEFAULT '{}',
		performance TEXT NOT NULL DEFAULT '{}',
		created_at TEXT,
		updated_at TEXT
	);
	`
	_, err := db.Exec(schema)
	return err
}

const videoColumns = `id, title, category, subcategory, duration, views, highlights,
	transcript_summary, key_features, price_range`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*models.Video, error) {
	var v models.Video
	var highlights, features string
	if err := row.Scan(&v.ID, &v.Title, &v.Category, &v.Subcategory, &v.Duration, &v.Views,
		&highlights, &v.TranscriptSummary, &features, &v.PriceRange); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(highlights), &v.Highlights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal highlights: %w", err)
	}
	if err := json.Unmarshal([]byte(features), &v.KeyFeatures); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key features: %w", err)
	}
	return &v, nil
}

func (s *SQLiteStorage) queryVideos(ctx context.Context, query string, args ...any) ([]*models.Video, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// UpsertVideo inserts or replaces a video. An empty ID is assigned a new store identifier.
func (s *SQLiteStorage) UpsertVideo(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = ident.New()
	}
	highlights, err := marshalList(video.Highlights)
	if err != nil {
		return err
	}
	features, err := marshalList(video.KeyFeatures)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO videos (`+videoColumns+`, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, category = excluded.category, subcategory = excluded.subcategory,
			duration = excluded.duration, views = excluded.views, highlights = excluded.highlights,
			transcript_summary = excluded.transcript_summary, key_features = excluded.key_features,
			price_range = excluded.price_range, updated_at = excluded.updated_at`,
		video.ID, video.Title, video.Category, video.Subcategory, video.Duration, video.Views,
		highlights, video.TranscriptSummary, features, video.PriceRange, now, now,
	)
	return err
}

// GetVideo returns a video by ID.
func (s *SQLiteStorage) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// SearchVideosByTitle returns videos whose title matches pattern, ignoring case, oldest first.
func (s *SQLiteStorage) SearchVideosByTitle(ctx context.Context, pattern string) ([]*models.Video, error) {
	return s.queryVideos(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE title REGEXP ? ORDER BY created_at, id`,
		"(?i)"+TitlePattern(pattern),
	)
}

// FindComparableVideos mirrors the $or query of the Mongo store. Empty reference fields are
// left out of the disjunction so blank values do not match each other.
func (s *SQLiteStorage) FindComparableVideos(ctx context.Context, ref *models.Video, limit int) ([]*models.Video, error) {
	var clauses []string
	args := []any{ref.ID}
	if ref.Title != "" {
		clauses = append(clauses, "title REGEXP ?")
		args = append(args, "(?i)"+TitlePattern(ref.Title))
	}
	for _, f := range []struct{ column, value string }{
		{"category", ref.Category},
		{"subcategory", ref.Subcategory},
		{"duration", ref.Duration},
		{"price_range", ref.PriceRange},
	} {
		if f.value != "" {
			clauses = append(clauses, f.column+" = ?")
			args = append(args, f.value)
		}
	}
	for _, f := range []struct {
		column string
		values []string
	}{
		{"highlights", ref.Highlights},
		{"key_features", ref.KeyFeatures},
	} {
		if len(f.values) == 0 {
			continue
		}
		encoded, err := marshalList(f.values)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM json_each(videos.%s) AS v WHERE v.value IN (SELECT value FROM json_each(?)))",
			f.column))
		args = append(args, encoded)
	}
	if len(clauses) == 0 {
		return nil, nil
	}
	args = append(args, limit)
	return s.queryVideos(ctx,
		`SELECT `+videoColumns+` FROM videos
		 WHERE id != ? AND (`+strings.Join(clauses, " OR ")+`)
		 ORDER BY created_at, id LIMIT ?`,
		args...,
	)
}

// UpsertListing inserts or replaces a listing. An empty ID is assigned a new store identifier.
func (s *SQLiteStorage) UpsertListing(ctx context.Context, l *models.VideoListing) error {
	if l.ID == "" {
		l.ID = ident.New()
	}
	timestamps, err := json.Marshal(nonNilMap(l.KeyTimestamps))
	if err != nil {
		return fmt.Errorf("failed to marshal key timestamps: %w", err)
	}
	links := l.ProductLinks
	if links == nil {
		links = []models.ProductLink{}
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("failed to marshal product links: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO video_listings
		 (id, video_id, product_id, platform, title, views, rating, key_timestamps, product_links, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.VideoID, l.ProductID, l.Platform, l.Title, l.Views, l.Rating,
		string(timestamps), string(linksJSON), l.CreatedAt, l.UpdatedAt,
	)
	return err
}

// ListingsByVideoID returns all listings of a video.
func (s *SQLiteStorage) ListingsByVideoID(ctx context.Context, videoID string) ([]*models.VideoListing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, video_id, product_id, platform, title, views, rating, key_timestamps, product_links, created_at, updated_at
		 FROM video_listings WHERE video_id = ? ORDER BY id`,
		videoID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*models.VideoListing
	for rows.Next() {
		var l models.VideoListing
		var timestamps, links string
		if err := rows.Scan(&l.ID, &l.VideoID, &l.ProductID, &l.Platform, &l.Title, &l.Views, &l.Rating,
			&timestamps, &links, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(timestamps), &l.KeyTimestamps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal key timestamps: %w", err)
		}
		if err := json.Unmarshal([]byte(links), &l.ProductLinks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal product links: %w", err)
		}
		listings = append(listings, &l)
	}
	return listings, rows.Err()
}

// UpsertAnalytics inserts or replaces the analytics of the video a.ID.
func (s *SQLiteStorage) UpsertAnalytics(ctx context.Context, a *models.VideoAnalytics) error {
	if a.ID == "" {
		return fmt.Errorf("analytics id is required")
	}
	engagement, err := json.Marshal(a.Engagement)
	if err != nil {
		return fmt.Errorf("failed to marshal engagement: %w", err)
	}
	audience, err := json.Marshal(a.Audience)
	if err != nil {
		return fmt.Errorf("failed to marshal audience: %w", err)
	}
	performance, err := json.Marshal(a.Performance)
	if err != nil {
		return fmt.Errorf("failed to marshal performance: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO video_analytics
		 (id, product_id, engagement, audience, performance, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ProductID, string(engagement), string(audience), string(performance), a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// GetAnalytics returns the analytics stored for videoID.
func (s *SQLiteStorage) GetAnalytics(ctx context.Context, videoID string) (*models.VideoAnalytics, error) {
	var a models.VideoAnalytics
	var engagement, audience, performance string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, product_id, engagement, audience, performance, created_at, updated_at
		 FROM video_analytics WHERE id = ?`, videoID,
	).Scan(&a.ID, &a.ProductID, &engagement, &audience, &performance, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("analytics %s: %w", videoID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	for _, f := range []struct {
		raw string
		dst any
	}{
		{engagement, &a.Engagement},
		{audience, &a.Audience},
		{performance, &a.Performance},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analytics: %w", err)
		}
	}
	return &a, nil
}

// CountVideos returns the total number of videos.
func (s *SQLiteStorage) CountVideos(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func marshalList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to marshal list: %w", err)
	}
	return string(data), nil
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
