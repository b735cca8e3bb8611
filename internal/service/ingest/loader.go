// Package ingest 从种子文件加载邮件：手动导入按 id 合并，文件变化时整体替换收件箱。
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"mailassist/internal/model"
	"mailassist/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 种子文件中的时间格式，按顺序尝试；不带时区的按 UTC
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

type seedEmail struct {
	ID          string             `json:"id"`
	Sender      string             `json:"sender"`
	Subject     string             `json:"subject"`
	Body        string             `json:"body"`
	Timestamp   string             `json:"timestamp"`
	Read        bool               `json:"read"`
	Category    string             `json:"category"`
	ActionItems []model.ActionItem `json:"action_items"`
	Summary     string             `json:"summary"`
}

type Loader struct {
	path   string
	store  store.Store
	logger *zap.Logger

	mu      sync.Mutex
	lastMod time.Time
}

func NewLoader(path string, st store.Store, logger *zap.Logger) *Loader {
	return &Loader{
		path:   path,
		store:  st,
		logger: logger,
	}
}

// ParseTimestamp 解析种子文件中的时间，支持 "Z" 后缀和不带时区的格式
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Read 读取并解析种子文件
func (l *Loader) Read() ([]model.Email, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var raw []seedEmail
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", l.path, err)
	}

	emails := make([]model.Email, 0, len(raw))
	for _, r := range raw {
		e := model.Email{
			ID:          r.ID,
			Sender:      r.Sender,
			Subject:     r.Subject,
			Body:        r.Body,
			Read:        r.Read,
			Category:    model.Category(r.Category),
			ActionItems: r.ActionItems,
			Summary:     r.Summary,
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.ActionItems == nil {
			e.ActionItems = []model.ActionItem{}
		}
		if r.Timestamp != "" {
			ts, err := ParseTimestamp(r.Timestamp)
			if err != nil {
				// 保留邮件，时间留空
				l.logger.Warn("Invalid timestamp in seed file",
					zap.String("email_id", e.ID),
					zap.String("timestamp", r.Timestamp),
				)
			}
			e.Timestamp = ts
		}
		emails = append(emails, e)
	}
	return emails, nil
}

// Reload 读取种子文件并一次性替换 store 中的全部邮件
func (l *Loader) Reload(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reloadLocked(ctx)
}

func (l *Loader) reloadLocked(ctx context.Context) (int, error) {
	info, statErr := os.Stat(l.path)

	emails, err := l.Read()
	if err != nil {
		return 0, err
	}
	if err := l.store.ReplaceEmails(ctx, emails); err != nil {
		return 0, fmt.Errorf("replace emails: %w", err)
	}
	if statErr == nil {
		l.lastMod = info.ModTime()
	}

	l.logger.Info("Seed emails loaded",
		zap.String("path", l.path),
		zap.Int("emails", len(emails)),
	)
	return len(emails), nil
}

// Ingest 按 id 把种子邮件写入 store，不在种子文件中的邮件保留（POST /ingest 使用）
func (l *Loader) Ingest(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, statErr := os.Stat(l.path)
	emails, err := l.Read()
	if err != nil {
		return 0, err
	}
	if err := l.store.MergeEmails(ctx, emails); err != nil {
		return 0, fmt.Errorf("merge emails: %w", err)
	}
	if statErr == nil {
		l.lastMod = info.ModTime()
	}

	l.logger.Info("Seed emails ingested",
		zap.String("path", l.path),
		zap.Int("emails", len(emails)),
	)
	return len(emails), nil
}

// SeedIfEmpty 启动时调用：store 中没有邮件时才加载种子文件
func (l *Loader) SeedIfEmpty(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.store.ListEmails(ctx)
	if err != nil {
		return 0, fmt.Errorf("list emails: %w", err)
	}
	if len(existing) > 0 {
		// 已从快照恢复，只记录文件当前的修改时间，避免轮询立即覆盖
		if info, err := os.Stat(l.path); err == nil {
			l.lastMod = info.ModTime()
		}
		l.logger.Info("Store already holds emails, skipping seed", zap.Int("emails", len(existing)))
		return 0, nil
	}
	return l.reloadLocked(ctx)
}

// checkForChanges 文件修改时间变化时重新加载，返回是否加载
func (l *Loader) checkForChanges(ctx context.Context) (bool, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		// 文件暂时不存在时等待下一次检查
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lastMod.IsZero() {
		l.lastMod = info.ModTime()
		return false, nil
	}
	if info.ModTime().Equal(l.lastMod) {
		return false, nil
	}

	l.logger.Info("Seed file changed, reloading", zap.String("path", l.path))
	if _, err := l.reloadLocked(ctx); err != nil {
		// 解析失败（可能正在写入），记录本次时间，等待下一次修改
		l.lastMod = info.ModTime()
		return false, err
	}
	return true, nil
}

// Watch 按固定间隔检查种子文件的修改时间，ctx 取消时返回
func (l *Loader) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.logger.Info("Seed file watcher started",
		zap.String("path", l.path),
		zap.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Seed file watcher stopped")
			return
		case <-ticker.C:
			if _, err := l.checkForChanges(ctx); err != nil {
				l.logger.Error("Failed to reload seed file", zap.Error(err))
			}
		}
	}
}
