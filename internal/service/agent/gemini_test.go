package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	pkgconfig "mailassist/pkg/config"

	"go.uber.org/zap"
)

// geminiStub 返回固定文本，并记录最近一次请求
type geminiStub struct {
	status int
	text   string
	delay  time.Duration
	calls  atomic.Int32
	last   atomic.Pointer[generateRequest]
	path   atomic.Pointer[string]
}

func (s *geminiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.calls.Add(1)
	p := r.URL.Path
	s.path.Store(&p)

	var req generateRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.last.Store(&req)

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}
	if s.status != 0 && s.status != http.StatusOK {
		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
		return
	}
	resp := map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": s.text}}}},
		},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newStubClient(t *testing.T, stub *geminiStub, timeout time.Duration) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return NewGeminiClient(pkgconfig.LLMConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: timeout,
	}, zap.NewNop())
}

func TestGeminiClient_Generate(t *testing.T) {
	stub := &geminiStub{text: "To-Do"}
	c := newStubClient(t, stub, time.Second)

	got, ok := c.Generate(context.Background(), PromptRequest{Instructions: "Classify.", Content: "Please send the report"})
	if !ok || got != "To-Do" {
		t.Fatalf("Generate = (%q, %v)", got, ok)
	}

	req := stub.last.Load()
	if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "Classify." {
		t.Errorf("instructions not sent as system instruction: %+v", req.SystemInstruction)
	}
	if !strings.Contains(req.Contents[0].Parts[0].Text, "Please send the report") {
		t.Errorf("email body missing from user content: %q", req.Contents[0].Parts[0].Text)
	}
	if got := *stub.path.Load(); got != "/models/test-model:generateContent" {
		t.Errorf("unexpected path %q", got)
	}
}

func TestGeminiClient_GenerateFailure(t *testing.T) {
	stub := &geminiStub{status: http.StatusServiceUnavailable}
	c := newStubClient(t, stub, time.Second)

	if got, ok := c.Generate(context.Background(), PromptRequest{Content: "x"}); ok || got != "" {
		t.Fatalf("expected failure, got (%q, %v)", got, ok)
	}
}

func TestGeminiClient_Timeout(t *testing.T) {
	stub := &geminiStub{text: "late", delay: 500 * time.Millisecond}
	c := newStubClient(t, stub, 50*time.Millisecond)

	start := time.Now()
	_, ok := c.Generate(context.Background(), PromptRequest{Content: "x"})
	if ok {
		t.Fatal("expected timeout failure")
	}
	if time.Since(start) > 400*time.Millisecond {
		t.Fatalf("call was not bounded by the timeout: %v", time.Since(start))
	}
}

func TestGeminiClient_ExtractActionItems(t *testing.T) {
	stub := &geminiStub{text: "```json\n[{\"task\":\"Send slides\",\"deadline\":\"Monday\"}]\n```"}
	c := newStubClient(t, stub, time.Second)

	items, ok := c.ExtractActionItems(context.Background(), PromptRequest{Content: "x"})
	if !ok || len(items) != 1 || items[0].Task != "Send slides" || items[0].Deadline != "Monday" {
		t.Fatalf("ExtractActionItems = (%+v, %v)", items, ok)
	}
	if stub.last.Load().GenerationConfig.ResponseMimeType != "application/json" {
		t.Error("structured call should request a JSON response")
	}
}

func TestGeminiClient_ExtractActionItemsMalformed(t *testing.T) {
	stub := &geminiStub{text: "I could not find any tasks."}
	c := newStubClient(t, stub, time.Second)

	items, ok := c.ExtractActionItems(context.Background(), PromptRequest{Content: "x"})
	if !ok || items == nil || len(items) != 0 {
		t.Fatalf("malformed output should coerce to empty slice, got (%+v, %v)", items, ok)
	}
}

func TestGeminiClient_ChatDegradesToErrorText(t *testing.T) {
	stub := &geminiStub{status: http.StatusInternalServerError}
	c := newStubClient(t, stub, time.Second)

	if got := c.ChatWithEmail(context.Background(), "body", "what?"); !strings.HasPrefix(got, "Error") {
		t.Errorf("ChatWithEmail = %q", got)
	}
	if got := c.ChatWithInbox(context.Background(), "summary", "what?"); !strings.HasPrefix(got, "Error") {
		t.Errorf("ChatWithInbox = %q", got)
	}
	if got := c.GenerateDraftReply(context.Background(), "body", ""); !strings.HasPrefix(got, "Error") {
		t.Errorf("GenerateDraftReply = %q", got)
	}
}

func TestGeminiClient_DraftUsesDefaultInstructions(t *testing.T) {
	stub := &geminiStub{text: "Dear Bob, ..."}
	c := newStubClient(t, stub, time.Second)

	if got := c.GenerateDraftReply(context.Background(), "Can we meet?", "   "); got != "Dear Bob, ..." {
		t.Fatalf("GenerateDraftReply = %q", got)
	}
	user := stub.last.Load().Contents[0].Parts[0].Text
	if !strings.Contains(user, DefaultDraftInstructions) {
		t.Errorf("default instructions not used: %q", user)
	}
}

func TestGeminiClient_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	stub := &geminiStub{status: http.StatusBadGateway}
	c := newStubClient(t, stub, time.Second)
	if got := c.CircuitState(); got != "closed" {
		t.Fatalf("initial circuit state = %q", got)
	}

	for i := 0; i < 5; i++ {
		c.Generate(context.Background(), PromptRequest{Content: "x"})
	}
	// 阈值为 3，之后的调用不再到达服务端
	if got := stub.calls.Load(); got != 3 {
		t.Fatalf("expected 3 upstream calls before the breaker opened, got %d", got)
	}
	if got := c.CircuitState(); got != "open" {
		t.Errorf("circuit state = %q, want open", got)
	}
}
