package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// candidateLimit bounds how many ranked index hits are checked before scanning all titles.
const candidateLimit = 20

type titleDoc struct {
	Title string `json:"title"`
}

// Matcher finds the catalog video an upload title refers to. A catalog video matches when any
// word of its title occurs in the upload title, ignoring case. The bleve index ranks candidates
// so the closest title wins; a full scan catches substring matches the tokenizer misses.
type Matcher struct {
	index  bleve.Index
	mu     sync.RWMutex
	titles map[string]string // video id -> title
}

// NewMatcher opens or creates a bleve index at path. An empty path keeps the index in memory.
func NewMatcher(path string) (*Matcher, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", titleField)
	im.DefaultMapping = docMapping

	var index bleve.Index
	var err error
	switch {
	case path == "":
		index, err = bleve.NewMemOnly(im)
	default:
		if _, statErr := os.Stat(path); statErr == nil {
			index, err = bleve.Open(path)
		} else {
			index, err = bleve.New(path, im)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open title index: %w", err)
	}
	return &Matcher{index: index, titles: make(map[string]string)}, nil
}

// Add indexes or re-indexes the title of video id.
func (m *Matcher) Add(id, title string) error {
	if err := m.index.Index(id, titleDoc{Title: title}); err != nil {
		return fmt.Errorf("failed to index title: %w", err)
	}
	m.mu.Lock()
	m.titles[id] = title
	m.mu.Unlock()
	return nil
}

// Remove drops video id from the matcher.
func (m *Matcher) Remove(id string) error {
	m.mu.Lock()
	delete(m.titles, id)
	m.mu.Unlock()
	return m.index.Delete(id)
}

// Len returns the number of titles in the matcher.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.titles)
}

// Match returns the id of the catalog video matching title.
func (m *Matcher) Match(title string) (string, bool) {
	if strings.TrimSpace(title) == "" {
		return "", false
	}
	q := bleve.NewMatchQuery(title)
	q.SetField("title")
	req := bleve.NewSearchRequest(q)
	req.Size = candidateLimit

	m.mu.RLock()
	defer m.mu.RUnlock()
	if res, err := m.index.Search(req); err == nil {
		for _, hit := range res.Hits {
			// hits for ids no longer present are stale entries of a persisted index
			if t, ok := m.titles[hit.ID]; ok && sharesWord(t, title) {
				return hit.ID, true
			}
		}
	}

	ids := make([]string, 0, len(m.titles))
	for id := range m.titles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if sharesWord(m.titles[id], title) {
			return id, true
		}
	}
	return "", false
}

// sharesWord reports whether any whitespace-separated word of catalogTitle occurs in title.
func sharesWord(catalogTitle, title string) bool {
	title = strings.ToLower(title)
	for _, word := range strings.Fields(catalogTitle) {
		if strings.Contains(title, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// Close closes the index.
func (m *Matcher) Close() error {
	return m.index.Close()
}
