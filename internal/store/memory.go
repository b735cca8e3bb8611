package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"mailassist/internal/model"
	"mailassist/pkg/metrics"

	"go.uber.org/zap"
)

// MemoryStore 内存中的三个集合，每次修改后同步写出完整快照。
// 持久化失败只记日志，内存状态始终是权威数据，下一次修改会再次尝试写入。
type MemoryStore struct {
	mu      sync.RWMutex
	emails  map[string]model.Email
	prompts map[string]model.PromptConfig
	drafts  map[string]model.Draft

	persister Persister
	logger    *zap.Logger
}

// NewMemoryStore 从快照恢复；没有快照（或快照无法读取）时写入内置 prompt
func NewMemoryStore(ctx context.Context, persister Persister, logger *zap.Logger) *MemoryStore {
	if persister == nil {
		persister = NopPersister{}
	}
	s := &MemoryStore{
		emails:    make(map[string]model.Email),
		prompts:   make(map[string]model.PromptConfig),
		drafts:    make(map[string]model.Draft),
		persister: persister,
		logger:    logger,
	}

	snap, err := persister.Load(ctx)
	switch {
	case err == nil:
		s.restore(snap)
		logger.Info("Store restored from snapshot",
			zap.String("driver", persister.Name()),
			zap.Int("emails", len(s.emails)),
			zap.Int("prompts", len(s.prompts)),
			zap.Int("drafts", len(s.drafts)),
		)
		return s
	case errors.Is(err, ErrNoSnapshot):
		logger.Info("No snapshot found, seeding default prompts",
			zap.String("driver", persister.Name()),
		)
	default:
		logger.Error("Failed to load snapshot, starting with default prompts",
			zap.String("driver", persister.Name()),
			zap.Error(err),
		)
	}

	for _, p := range DefaultPrompts() {
		s.prompts[p.ID] = p
	}
	return s
}

func (s *MemoryStore) restore(snap *Snapshot) {
	for id, e := range snap.Emails {
		e.ID = id
		s.emails[id] = e
	}
	for id, p := range snap.Prompts {
		p.ID = id
		s.prompts[id] = p
	}
	for id, d := range snap.Drafts {
		d.ID = id
		s.drafts[id] = d
	}
}

// Persister 返回当前的持久化策略
func (s *MemoryStore) Persister() Persister {
	return s.persister
}

// ---------- emails ----------

func (s *MemoryStore) ListEmails(ctx context.Context) ([]model.Email, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Email, 0, len(s.emails))
	for _, e := range s.emails {
		out = append(out, e.Clone())
	}
	// 按时间倒序，时间相同按 id，保证输出稳定
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetEmail(ctx context.Context, id string) (model.Email, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.emails[id]
	if !ok {
		return model.Email{}, ErrNotFound
	}
	return e.Clone(), nil
}

func (s *MemoryStore) UpsertEmail(ctx context.Context, email model.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emails[email.ID] = email.Clone()
	s.persist(ctx)
	return nil
}

func (s *MemoryStore) ReplaceEmails(ctx context.Context, emails []model.Email) error {
	next := make(map[string]model.Email, len(emails))
	for _, e := range emails {
		next[e.ID] = e.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.emails = next
	s.persist(ctx)
	return nil
}

func (s *MemoryStore) MergeEmails(ctx context.Context, emails []model.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range emails {
		s.emails[e.ID] = e.Clone()
	}
	s.persist(ctx)
	return nil
}

// ---------- prompts ----------

func (s *MemoryStore) ListPrompts(ctx context.Context) ([]model.PromptConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.PromptConfig, 0, len(s.prompts))
	for _, p := range s.prompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetPrompt(ctx context.Context, id string) (model.PromptConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prompts[id]
	if !ok {
		return model.PromptConfig{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) UpsertPrompt(ctx context.Context, prompt model.PromptConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts[prompt.ID] = prompt
	s.persist(ctx)
	return nil
}

// ---------- drafts ----------

func (s *MemoryStore) ListDrafts(ctx context.Context) ([]model.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Draft, 0, len(s.drafts))
	for _, d := range s.drafts {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetDraft(ctx context.Context, id string) (model.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[id]
	if !ok {
		return model.Draft{}, ErrNotFound
	}
	return d, nil
}

func (s *MemoryStore) UpsertDraft(ctx context.Context, draft model.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts[draft.ID] = draft
	s.persist(ctx)
	return nil
}

func (s *MemoryStore) DeleteDraft(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[id]; !ok {
		return ErrNotFound
	}
	delete(s.drafts, id)
	s.persist(ctx)
	return nil
}

// persist 调用方必须持有写锁
func (s *MemoryStore) persist(ctx context.Context) {
	snap := &Snapshot{
		Emails:  make(map[string]model.Email, len(s.emails)),
		Prompts: make(map[string]model.PromptConfig, len(s.prompts)),
		Drafts:  make(map[string]model.Draft, len(s.drafts)),
	}
	for id, e := range s.emails {
		snap.Emails[id] = e
	}
	for id, p := range s.prompts {
		snap.Prompts[id] = p
	}
	for id, d := range s.drafts {
		snap.Drafts[id] = d
	}

	// 请求结束后 ctx 可能已取消，快照写入不跟随请求取消
	if err := s.persister.Save(context.WithoutCancel(ctx), snap); err != nil {
		metrics.IncrementSnapshotWrite(s.persister.Name(), "failed")
		s.logger.Error("Failed to persist snapshot",
			zap.String("driver", s.persister.Name()),
			zap.Error(err),
		)
		return
	}
	metrics.IncrementSnapshotWrite(s.persister.Name(), "success")
}
