package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mailassist/internal/model"
	"mailassist/internal/service/agent/agenttest"
	"mailassist/internal/store"

	"go.uber.org/zap"
)

func newService(t *testing.T, gw *agenttest.Gateway, emails ...model.Email) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore(context.Background(), nil, zap.NewNop())
	for _, e := range emails {
		if err := st.UpsertEmail(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}
	return NewService(st, gw, zap.NewNop()), st
}

func TestBuildInboxSummary(t *testing.T) {
	long := strings.Repeat("a", 250)
	exact := strings.Repeat("b", 200)

	out := BuildInboxSummary([]model.Email{
		{Sender: "alice@example.com", Subject: "Report", Category: model.CategoryToDo, Body: "short body"},
		{Sender: "news@example.com", Subject: "Weekly", Body: long},
		{Sender: "bob@example.com", Subject: "Exact", Body: exact},
		{Sender: "carol@example.com", Subject: "Summarized", Category: model.CategoryImportant, Summary: "Budget approved", Body: long},
	})

	checks := []string{
		"From: alice@example.com\nSubject: Report\nCategory: To-Do\nContent: short body\n",
		"Category: Uncategorized\nContent: " + strings.Repeat("a", 200) + "...\n",
		"Content: " + exact + "\n",
		"Summary: Budget approved\n",
	}
	for _, c := range checks {
		if !strings.Contains(out, c) {
			t.Errorf("summary missing %q\n---\n%s", c, out)
		}
	}
	if strings.Contains(out, exact+"...") {
		t.Error("200-character body should not be truncated")
	}
	if strings.Count(out, strings.Repeat("a", 201)) != 0 {
		t.Error("long body leaked past the preview limit")
	}
}

func TestPreviewCountsRunes(t *testing.T) {
	body := strings.Repeat("é", 201)
	got := preview(body)
	if got != strings.Repeat("é", 200)+"..." {
		t.Fatalf("unexpected preview length %d", len([]rune(got)))
	}
}

func TestAsk_RoutesToEmail(t *testing.T) {
	gw := &agenttest.Gateway{ChatFunc: func(content, q string) string { return "answer about " + content }}
	svc, _ := newService(t, gw, model.Email{ID: "e1", Body: "meeting at 3"})

	got, err := svc.Ask(context.Background(), "when?", "e1")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "answer about meeting at 3" {
		t.Fatalf("got %q", got)
	}
	if gw.CountOp("chat_email") != 1 || gw.CountOp("chat_inbox") != 0 {
		t.Fatalf("unexpected calls %+v", gw.Calls())
	}
}

func TestAsk_UnknownEmail(t *testing.T) {
	svc, _ := newService(t, &agenttest.Gateway{})
	if _, err := svc.Ask(context.Background(), "q", "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAsk_RoutesToInbox(t *testing.T) {
	gw := &agenttest.Gateway{ChatFunc: func(content, q string) string { return "inbox answer" }}
	svc, _ := newService(t, gw,
		model.Email{ID: "e1", Sender: "a@x.com", Subject: "One"},
		model.Email{ID: "e2", Sender: "b@x.com", Subject: "Two"},
	)

	got, err := svc.Ask(context.Background(), "anything urgent?", "")
	if err != nil || got != "inbox answer" {
		t.Fatalf("Ask = (%q, %v)", got, err)
	}
	calls := gw.Calls()
	if len(calls) != 1 || calls[0].Op != "chat_inbox" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if !strings.Contains(calls[0].Content, "Subject: One") || !strings.Contains(calls[0].Content, "Subject: Two") {
		t.Fatalf("inbox summary missing emails: %q", calls[0].Content)
	}
}

func TestGenerateDraft_UsesAutoReplyPromptByDefault(t *testing.T) {
	gw := &agenttest.Gateway{DraftFunc: func(content, instr string) string { return "draft" }}
	svc, st := newService(t, gw, model.Email{ID: "e1", Body: "Can we meet Tuesday?"})

	autoReply, _ := st.GetPrompt(context.Background(), model.PromptAutoReply)

	got, err := svc.GenerateDraft(context.Background(), "e1", "")
	if err != nil || got != "draft" {
		t.Fatalf("GenerateDraft = (%q, %v)", got, err)
	}
	if calls := gw.Calls(); calls[0].Extra != autoReply.Template {
		t.Fatalf("instructions = %q, want auto_reply template", calls[0].Extra)
	}

	_, _ = svc.GenerateDraft(context.Background(), "e1", "Decline politely")
	if calls := gw.Calls(); calls[1].Extra != "Decline politely" {
		t.Fatalf("explicit instructions not passed through: %q", calls[1].Extra)
	}
}

func TestGenerateDraft_UnknownEmail(t *testing.T) {
	svc, _ := newService(t, &agenttest.Gateway{})
	if _, err := svc.GenerateDraft(context.Background(), "missing", ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
