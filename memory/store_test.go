package memory

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNoteStore_RememberRecall(t *testing.T) {
	store, err := NewNoteStore(NoteStoreConfig{})
	if err != nil {
		t.Fatalf("NewNoteStore: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	notes := []struct{ task, agent, content string }{
		{"resume_analysis_task", "resume_analyst", "Candidate has eight years of Go and Kubernetes experience"},
		{"job_matching_task", "matchmaker", "The role asks for PostgreSQL tuning and on-call ownership"},
		{"web_research_task", "web_researcher", "Hiring company recently moved its platform to Kubernetes"},
	}
	for _, n := range notes {
		if _, err := store.Remember(ctx, n.task, n.agent, n.content); err != nil {
			t.Fatalf("Remember: %v", err)
		}
	}

	count, err := store.Count()
	if err != nil || count != 3 {
		t.Fatalf("Count = %d, %v", count, err)
	}

	got, err := store.Recall(ctx, "kubernetes", 10)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 kubernetes notes, got %d", len(got))
	}
	for _, n := range got {
		if n.ID == "" || n.Content == "" || n.Task == "" || n.Agent == "" {
			t.Errorf("incomplete note: %+v", n)
		}
		if n.Score <= 0 {
			t.Errorf("score should be positive, got %f", n.Score)
		}
	}
}

func TestNoteStore_RecallLimit(t *testing.T) {
	store, err := NewNoteStore(NoteStoreConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		store.Remember(ctx, "t", "a", "golang backend engineer")
	}
	got, err := store.Recall(ctx, "golang", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 notes, got %d", len(got))
	}
}

func TestNoteStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.bleve")
	ctx := context.Background()

	store, err := NewNoteStore(NoteStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Remember(ctx, "resume_writer_task", "resume_writer", "Emphasise distributed systems work"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewNoteStore(NoteStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Recall(ctx, "distributed", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Task != "resume_writer_task" {
		t.Errorf("unexpected recall after reopen: %+v", got)
	}
}

func TestNoteStore_CanceledContext(t *testing.T) {
	store, err := NewNoteStore(NoteStoreConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Remember(ctx, "t", "a", "x"); err == nil {
		t.Error("expected error for canceled context")
	}
}
