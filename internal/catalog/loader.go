// Package catalog loads curated product review videos from YAML and spreadsheet files into the
// store and keeps a title matcher over them for upload matching.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/shohin/internal/ident"
	"github.com/hyperjump/shohin/internal/models"
)

// Entry is one catalog video with its optional listings and analytics.
type Entry struct {
	// Key identifies the entry within its file. With the file path it derives the store id,
	// so edits to an entry update the same record.
	Key          string `yaml:"key"`
	models.Video `yaml:",inline"`
	Listings     []models.VideoListing  `yaml:"listings"`
	Analytics    *models.VideoAnalytics `yaml:"analytics"`
}

type yamlFile struct {
	Videos []Entry `yaml:"videos"`
}

// listSeparator splits list cells in spreadsheets.
const listSeparator = ";"

// Load reads a catalog file by extension and assigns store ids to its entries.
func Load(path string) ([]Entry, error) {
	var entries []Entry
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		entries, err = loadYAML(path)
	case ".xlsx":
		entries, err = loadSheet(path)
	default:
		return nil, fmt.Errorf("unsupported catalog file: %s", path)
	}
	if err != nil {
		return nil, err
	}
	assignIDs(path, entries, time.Now().UTC().Format(time.RFC3339))
	return entries, nil
}

func loadYAML(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return f.Videos, nil
}

// loadSheet reads the first sheet. The first row names the columns; unknown columns are ignored
// and list columns hold values separated by semicolons.
func loadSheet(path string) ([]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make(map[string]int)
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var entries []Entry
	for _, row := range rows[1:] {
		cell := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		e := Entry{
			Key: cell("key"),
			Video: models.Video{
				ID:                cell("id"),
				Title:             cell("title"),
				Category:          cell("category"),
				Subcategory:       cell("subcategory"),
				Duration:          cell("duration"),
				Views:             cell("views"),
				Highlights:        splitList(cell("highlights")),
				TranscriptSummary: cell("transcript_summary"),
				KeyFeatures:       splitList(cell("key_features")),
				PriceRange:        cell("price_range"),
			},
		}
		if e.Title == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// assignIDs keeps ids already in store format and derives the rest from the file path and the
// entry's key, id, title, or position, in that order of preference.
func assignIDs(path string, entries []Entry, now string) {
	for i := range entries {
		e := &entries[i]
		if !ident.Valid(e.ID) {
			key := e.Key
			if key == "" {
				key = e.ID
			}
			if key == "" {
				key = e.Title
			}
			if key == "" {
				key = strconv.Itoa(i)
			}
			e.ID = ident.Stable(path, key)
		}
		for j := range e.Listings {
			l := &e.Listings[j]
			if !ident.Valid(l.ID) {
				l.ID = ident.Stable(e.ID, "listing", strconv.Itoa(j))
			}
			l.VideoID = e.ID
			if l.CreatedAt == "" {
				l.CreatedAt = now
			}
			if l.UpdatedAt == "" {
				l.UpdatedAt = now
			}
		}
		if e.Analytics != nil {
			e.Analytics.ID = e.ID
			if e.Analytics.CreatedAt == "" {
				e.Analytics.CreatedAt = now
			}
			if e.Analytics.UpdatedAt == "" {
				e.Analytics.UpdatedAt = now
			}
		}
	}
}
