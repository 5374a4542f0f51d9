package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Filters defines which inbox messages are hidden from the scanner.
type Filters struct {
	IgnoreSenders           []string `json:"ignoreSenders"`
	IgnoreKeywordsInSubject []string `json:"ignoreKeywordsInSubject"`
	IgnoreKeywordsInBody    []string `json:"ignoreKeywordsInBody"`
}

// FilterManager handles loading, saving, and accessing the inbox filters.
type FilterManager struct {
	filePath string
	filters  *Filters
	mu       sync.RWMutex
}

// NewFilterManager loads the filters at filePath, creating the file when it is missing.
func NewFilterManager(filePath string) (*FilterManager, error) {
	m := &FilterManager{
		filePath: filePath,
		filters:  emptyFilters(),
	}
	if err := m.LoadFilters(); err != nil {
		return nil, err
	}
	return m, nil
}

func emptyFilters() *Filters {
	return &Filters{
		IgnoreSenders:           []string{},
		IgnoreKeywordsInSubject: []string{},
		IgnoreKeywordsInBody:    []string{},
	}
}

// Path returns the backing file.
func (m *FilterManager) Path() string { return m.filePath }

// LoadFilters loads filter rules from the JSON file.
func (m *FilterManager) LoadFilters() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.filters = emptyFilters()
			return m.saveFilters()
		}
		return fmt.Errorf("failed to read filters: %w", err)
	}

	filters := emptyFilters()
	if err := json.Unmarshal(data, filters); err != nil {
		return fmt.Errorf("failed to parse filters %s: %w", m.filePath, err)
	}
	m.filters = filters
	return nil
}

// saveFilters writes the current rules; callers hold the write lock.
func (m *FilterManager) saveFilters() error {
	data, err := json.MarshalIndent(m.filters, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(m.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create filters directory: %w", err)
		}
	}
	return os.WriteFile(m.filePath, data, 0o644)
}

// GetFilters returns a copy of the current filters.
func (m *FilterManager) GetFilters() Filters {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Filters{
		IgnoreSenders:           slices.Clone(m.filters.IgnoreSenders),
		IgnoreKeywordsInSubject: slices.Clone(m.filters.IgnoreKeywordsInSubject),
		IgnoreKeywordsInBody:    slices.Clone(m.filters.IgnoreKeywordsInBody),
	}
}

// AddIgnoreSender adds a sender to the ignore list and saves.
func (m *FilterManager) AddIgnoreSender(sender string) error {
	return m.add(func(f *Filters) *[]string { return &f.IgnoreSenders }, sender)
}

// AddIgnoreKeywordInSubject adds a subject keyword to the ignore list and saves.
func (m *FilterManager) AddIgnoreKeywordInSubject(keyword string) error {
	return m.add(func(f *Filters) *[]string { return &f.IgnoreKeywordsInSubject }, keyword)
}

// AddIgnoreKeywordInBody adds a body keyword to the ignore list and saves.
func (m *FilterManager) AddIgnoreKeywordInBody(keyword string) error {
	return m.add(func(f *Filters) *[]string { return &f.IgnoreKeywordsInBody }, keyword)
}

// RemoveIgnoreSender drops a sender rule. Removing a missing rule is not an error.
func (m *FilterManager) RemoveIgnoreSender(sender string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := slices.Index(m.filters.IgnoreSenders, sender)
	if idx < 0 {
		return nil
	}
	m.filters.IgnoreSenders = slices.Delete(m.filters.IgnoreSenders, idx, idx+1)
	return m.saveFilters()
}

func (m *FilterManager) add(field func(*Filters) *[]string, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("filter value must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := field(m.filters)
	if slices.Contains(*list, value) {
		return nil
	}
	*list = append(*list, value)
	return m.saveFilters()
}

// Matches reports whether a message with the given headers and body should be
// hidden, and which rule hid it.
func (f Filters) Matches(from, subject, body string) (bool, string) {
	from, subject, body = strings.ToLower(from), strings.ToLower(subject), strings.ToLower(body)
	for _, sender := range f.IgnoreSenders {
		if strings.Contains(from, strings.ToLower(sender)) {
			return true, "sender:" + sender
		}
	}
	for _, keyword := range f.IgnoreKeywordsInSubject {
		if strings.Contains(subject, strings.ToLower(keyword)) {
			return true, "subject:" + keyword
		}
	}
	for _, keyword := range f.IgnoreKeywordsInBody {
		if strings.Contains(body, strings.ToLower(keyword)) {
			return true, "body:" + keyword
		}
	}
	return false, ""
}
