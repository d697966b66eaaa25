// Package memory keeps task notes from earlier crew runs in a full-text index
// so later tasks can recall them.
package memory

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"
)

// Note is one remembered task output.
type Note struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	Agent     string    `json:"agent"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Score     float64   `json:"-"`
}

// NoteStoreConfig configures a NoteStore.
type NoteStoreConfig struct {
	// Path of the on-disk index. Empty keeps the index in memory.
	Path string
}

// NoteStore indexes notes with bleve (BM25).
type NoteStore struct {
	mu    sync.RWMutex
	index bleve.Index
}

// NewNoteStore opens the index at cfg.Path, creating it if needed.
func NewNoteStore(cfg NoteStoreConfig) (*NoteStore, error) {
	var (
		index bleve.Index
		err   error
	)
	switch {
	case cfg.Path == "":
		index, err = bleve.NewMemOnly(buildIndexMapping())
	default:
		if _, statErr := os.Stat(cfg.Path); os.IsNotExist(statErr) {
			index, err = bleve.New(cfg.Path, buildIndexMapping())
		} else {
			index, err = bleve.Open(cfg.Path)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open note index: %w", err)
	}
	return &NoteStore{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name

	keyword := bleve.NewKeywordFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", text)
	doc.AddFieldMappingsAt("task", keyword)
	doc.AddFieldMappingsAt("agent", keyword)
	doc.AddFieldMappingsAt("created_at", bleve.NewDateTimeFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	return m
}

// Remember indexes content produced by agent for task and returns the note ID.
func (s *NoteStore) Remember(ctx context.Context, task, agent, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	note := Note{
		ID:        uuid.New().String(),
		Task:      task,
		Agent:     agent,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.index.Index(note.ID, note); err != nil {
		return "", fmt.Errorf("failed to index note: %w", err)
	}
	return note.ID, nil
}

// Recall returns up to limit notes matching query, best first.
func (s *NoteStore) Recall(ctx context.Context, query string, limit int) ([]Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 3
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	req.Fields = []string{"*"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	notes := make([]Note, 0, len(res.Hits))
	for _, hit := range res.Hits {
		n := Note{ID: hit.ID, Score: hit.Score}
		n.Task, _ = hit.Fields["task"].(string)
		n.Agent, _ = hit.Fields["agent"].(string)
		n.Content, _ = hit.Fields["content"].(string)
		if ts, ok := hit.Fields["created_at"].(string); ok {
			n.CreatedAt, _ = time.Parse(time.RFC3339, ts)
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// Count returns the number of indexed notes.
func (s *NoteStore) Count() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Close closes the index.
func (s *NoteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}
