// Package store 持有邮件、prompt、草稿三个集合，每次修改后通过 Persister 写出完整快照。
package store

import (
	"context"
	"errors"

	"mailassist/internal/model"
)

var (
	// ErrNotFound 对应 id 不存在
	ErrNotFound = errors.New("not found")
	// ErrNoSnapshot 持久化层中还没有快照
	ErrNoSnapshot = errors.New("no snapshot")
)

// Store 三个按 id 索引的集合；返回值都是副本
type Store interface {
	ListEmails(ctx context.Context) ([]model.Email, error)
	GetEmail(ctx context.Context, id string) (model.Email, error)
	UpsertEmail(ctx context.Context, email model.Email) error
	// ReplaceEmails 一次性替换整个邮件集合（重新加载种子数据时使用）
	ReplaceEmails(ctx context.Context, emails []model.Email) error
	// MergeEmails 按 id 写入多封邮件，其他邮件保持不变
	MergeEmails(ctx context.Context, emails []model.Email) error

	ListPrompts(ctx context.Context) ([]model.PromptConfig, error)
	GetPrompt(ctx context.Context, id string) (model.PromptConfig, error)
	UpsertPrompt(ctx context.Context, prompt model.PromptConfig) error

	ListDrafts(ctx context.Context) ([]model.Draft, error)
	GetDraft(ctx context.Context, id string) (model.Draft, error)
	UpsertDraft(ctx context.Context, draft model.Draft) error
	DeleteDraft(ctx context.Context, id string) error
}

// Snapshot 持久化的完整状态，三个顶层集合按 id 索引
type Snapshot struct {
	Emails  map[string]model.Email        `json:"emails"`
	Prompts map[string]model.PromptConfig `json:"prompts"`
	Drafts  map[string]model.Draft        `json:"drafts"`
}

// Persister 快照的持久化策略
type Persister interface {
	// Load 没有快照时返回 ErrNoSnapshot
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	// Name 用于日志和指标
	Name() string
}

// Pinger 可选接口，/readyz 用来检查持久化层是否可用
type Pinger interface {
	Ping(ctx context.Context) error
}
