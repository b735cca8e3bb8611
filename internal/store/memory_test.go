package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mailassist/internal/model"

	"go.uber.org/zap"
)

func newFileStore(t *testing.T, path string) *MemoryStore {
	t.Helper()
	return NewMemoryStore(context.Background(), NewFilePersister(path), zap.NewNop())
}

func TestNewMemoryStore_SeedsDefaultPromptsWithoutSnapshot(t *testing.T) {
	s := NewMemoryStore(context.Background(), nil, zap.NewNop())

	prompts, err := s.ListPrompts(context.Background())
	if err != nil {
		t.Fatalf("ListPrompts: %v", err)
	}
	if len(prompts) != 3 {
		t.Fatalf("expected 3 default prompts, got %d", len(prompts))
	}
	for _, id := range []string{model.PromptCategorize, model.PromptActionItems, model.PromptAutoReply} {
		if _, err := s.GetPrompt(context.Background(), id); err != nil {
			t.Errorf("default prompt %q missing: %v", id, err)
		}
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(ctx, nil, zap.NewNop())

	_ = s.UpsertEmail(ctx, model.Email{
		ID:          "e1",
		ActionItems: []model.ActionItem{{Task: "original"}},
	})

	got, _ := s.GetEmail(ctx, "e1")
	got.ActionItems[0].Task = "mutated"
	got.Subject = "mutated"

	again, _ := s.GetEmail(ctx, "e1")
	if again.ActionItems[0].Task != "original" || again.Subject != "" {
		t.Fatalf("store state changed through returned copy: %+v", again)
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(ctx, nil, zap.NewNop())

	if _, err := s.GetEmail(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEmail: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetPrompt(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPrompt: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetDraft(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDraft: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteDraft(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteDraft: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListEmailsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(ctx, nil, zap.NewNop())
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	_ = s.UpsertEmail(ctx, model.Email{ID: "old", Timestamp: base})
	_ = s.UpsertEmail(ctx, model.Email{ID: "new", Timestamp: base.Add(time.Hour)})

	emails, _ := s.ListEmails(ctx)
	if len(emails) != 2 || emails[0].ID != "new" || emails[1].ID != "old" {
		t.Fatalf("unexpected order: %+v", emails)
	}
}

func TestMemoryStore_ReplaceEmails(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(ctx, nil, zap.NewNop())

	_ = s.UpsertEmail(ctx, model.Email{ID: "stale"})
	_ = s.ReplaceEmails(ctx, []model.Email{{ID: "a"}, {ID: "b"}})

	if _, err := s.GetEmail(ctx, "stale"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected stale email to be gone, got %v", err)
	}
	emails, _ := s.ListEmails(ctx)
	if len(emails) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(emails))
	}
}

func TestMemoryStore_MergeEmails(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(ctx, nil, zap.NewNop())

	_ = s.UpsertEmail(ctx, model.Email{ID: "keep", Subject: "kept"})
	_ = s.UpsertEmail(ctx, model.Email{ID: "a", Subject: "old"})
	_ = s.MergeEmails(ctx, []model.Email{{ID: "a", Subject: "new"}, {ID: "b"}})

	if e, err := s.GetEmail(ctx, "keep"); err != nil || e.Subject != "kept" {
		t.Fatalf("unrelated email changed: %+v, %v", e, err)
	}
	if e, _ := s.GetEmail(ctx, "a"); e.Subject != "new" {
		t.Errorf("a.Subject = %q, want new", e.Subject)
	}
	emails, _ := s.ListEmails(ctx)
	if len(emails) != 3 {
		t.Fatalf("expected 3 emails, got %d", len(emails))
	}
}

func TestMemoryStore_DeleteDraft(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(ctx, nil, zap.NewNop())

	_ = s.UpsertDraft(ctx, model.Draft{ID: "d1", Subject: "Re: hi"})
	if err := s.DeleteDraft(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDraft: %v", err)
	}
	drafts, _ := s.ListDrafts(ctx)
	if len(drafts) != 0 {
		t.Fatalf("expected no drafts, got %+v", drafts)
	}
}

func TestMemoryStore_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	s := newFileStore(t, path)
	_ = s.UpsertEmail(ctx, model.Email{
		ID:          "e1",
		Subject:     "Quarterly report",
		Category:    model.CategoryToDo,
		ActionItems: []model.ActionItem{{Task: "Send numbers", Deadline: "Friday"}},
	})
	_ = s.UpsertPrompt(ctx, model.PromptConfig{ID: model.PromptCategorize, Name: "Custom", Template: "custom"})
	_ = s.UpsertDraft(ctx, model.Draft{ID: "d1", To: "bob@example.com", Subject: "Re: report"})

	restarted := newFileStore(t, path)

	e, err := restarted.GetEmail(ctx, "e1")
	if err != nil {
		t.Fatalf("GetEmail after restart: %v", err)
	}
	if e.Category != model.CategoryToDo || len(e.ActionItems) != 1 || e.ActionItems[0].Deadline != "Friday" {
		t.Errorf("email not restored: %+v", e)
	}

	p, _ := restarted.GetPrompt(ctx, model.PromptCategorize)
	if p.Template != "custom" {
		t.Errorf("edited prompt not restored, got %q", p.Template)
	}
	d, err := restarted.GetDraft(ctx, "d1")
	if err != nil || d.To != "bob@example.com" {
		t.Errorf("draft not restored: %+v, %v", d, err)
	}
}

type snapshotPersister struct{ snap *Snapshot }

func (p snapshotPersister) Name() string { return "snapshot" }

func (p snapshotPersister) Load(ctx context.Context) (*Snapshot, error) { return p.snap, nil }

func (p snapshotPersister) Save(ctx context.Context, snap *Snapshot) error { return nil }

func TestNewMemoryStore_DoesNotReseedDefaultsOverSnapshot(t *testing.T) {
	ctx := context.Background()
	snap := &Snapshot{
		Emails: map[string]model.Email{},
		Prompts: map[string]model.PromptConfig{
			model.PromptCategorize: {Name: "Custom", Template: "custom"},
		},
		Drafts: map[string]model.Draft{},
	}

	s := NewMemoryStore(ctx, snapshotPersister{snap: snap}, zap.NewNop())

	prompts, err := s.ListPrompts(ctx)
	if err != nil {
		t.Fatalf("ListPrompts: %v", err)
	}
	if len(prompts) != 1 || prompts[0].ID != model.PromptCategorize || prompts[0].Template != "custom" {
		t.Fatalf("prompts = %+v, want only the restored categorize prompt", prompts)
	}
	if _, err := s.GetPrompt(ctx, model.PromptAutoReply); !errors.Is(err, ErrNotFound) {
		t.Errorf("auto_reply should stay absent, got %v", err)
	}
}

type failingPersister struct{ saves int }

func (f *failingPersister) Name() string { return "failing" }

func (f *failingPersister) Load(ctx context.Context) (*Snapshot, error) { return nil, ErrNoSnapshot }

func (f *failingPersister) Save(ctx context.Context, snap *Snapshot) error {
	f.saves++
	return errors.New("disk full")
}

func TestMemoryStore_PersistFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	p := &failingPersister{}
	s := NewMemoryStore(ctx, p, zap.NewNop())

	if err := s.UpsertEmail(ctx, model.Email{ID: "e1"}); err != nil {
		t.Fatalf("UpsertEmail should swallow persistence errors, got %v", err)
	}
	if _, err := s.GetEmail(ctx, "e1"); err != nil {
		t.Fatalf("email should still be in memory: %v", err)
	}
	if p.saves != 1 {
		t.Fatalf("expected 1 save attempt, got %d", p.saves)
	}
}
