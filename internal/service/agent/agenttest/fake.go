// Package agenttest 提供测试用的 agent.Gateway 实现。
package agenttest

import (
	"context"
	"sync"

	"mailassist/internal/model"
	"mailassist/internal/service/agent"
)

// Gateway 按函数字段返回结果，未设置的函数返回失败。记录每次调用。
type Gateway struct {
	GenerateFunc           func(req agent.PromptRequest) (string, bool)
	ExtractActionItemsFunc func(req agent.PromptRequest) ([]model.ActionItem, bool)
	ChatFunc               func(content, question string) string
	DraftFunc              func(emailContent, instructions string) string

	mu    sync.Mutex
	calls []Call
}

// Call 一次调用记录
type Call struct {
	Op      string
	Content string
	Extra   string
}

var _ agent.Gateway = (*Gateway)(nil)

func (g *Gateway) record(op, content, extra string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: op, Content: content, Extra: extra})
}

// Calls 返回调用记录的副本
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// CountOp 某种操作被调用的次数
func (g *Gateway) CountOp(op string) int {
	n := 0
	for _, c := range g.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (g *Gateway) Generate(ctx context.Context, req agent.PromptRequest) (string, bool) {
	g.record("generate", req.Content, req.Instructions)
	if g.GenerateFunc == nil {
		return "", false
	}
	return g.GenerateFunc(req)
}

func (g *Gateway) ExtractActionItems(ctx context.Context, req agent.PromptRequest) ([]model.ActionItem, bool) {
	g.record("action_items", req.Content, req.Instructions)
	if g.ExtractActionItemsFunc == nil {
		return nil, false
	}
	return g.ExtractActionItemsFunc(req)
}

func (g *Gateway) ChatWithEmail(ctx context.Context, emailContent, question string) string {
	g.record("chat_email", emailContent, question)
	if g.ChatFunc == nil {
		return "Error: not configured"
	}
	return g.ChatFunc(emailContent, question)
}

func (g *Gateway) ChatWithInbox(ctx context.Context, inboxSummary, question string) string {
	g.record("chat_inbox", inboxSummary, question)
	if g.ChatFunc == nil {
		return "Error: not configured"
	}
	return g.ChatFunc(inboxSummary, question)
}

func (g *Gateway) GenerateDraftReply(ctx context.Context, emailContent, instructions string) string {
	g.record("draft_reply", emailContent, instructions)
	if g.DraftFunc == nil {
		return "Error generating draft: not configured"
	}
	return g.DraftFunc(emailContent, instructions)
}
