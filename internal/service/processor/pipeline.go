// Package processor 对邮件做分类和待办提取。
package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	contractsmq "mailassist/contracts/mq"
	"mailassist/internal/category"
	"mailassist/internal/model"
	"mailassist/internal/service/agent"
	"mailassist/internal/store"
	"mailassist/pkg/logger"
	"mailassist/pkg/metrics"

	"go.uber.org/zap"
)

// EventPublisher 处理完成后发布 email.processed 事件，可以为 nil
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// Summary 一次批处理的结果
type Summary struct {
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
}

type Pipeline struct {
	store   store.Store
	gateway agent.Gateway
	events  EventPublisher
	logger  *zap.Logger
}

func NewPipeline(st store.Store, gateway agent.Gateway, events EventPublisher, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:   st,
		gateway: gateway,
		events:  events,
		logger:  logger,
	}
}

// ProcessInbox 处理收件箱中的每一封邮件。单封邮件失败（包括 panic）只记日志，不影响其他邮件。
func (p *Pipeline) ProcessInbox(ctx context.Context) (summary Summary) {
	log := logger.WithTrace(ctx, p.logger)
	summary.StartedAt = time.Now()
	defer func() {
		summary.Duration = time.Since(summary.StartedAt)
		metrics.RecordBatchDuration(summary.Duration)
	}()

	emails, err := p.store.ListEmails(ctx)
	if err != nil {
		log.Error("Failed to list emails", zap.Error(err))
		return
	}
	summary.Total = len(emails)
	log.Info("Inbox processing started", zap.Int("emails", len(emails)))

	for _, e := range emails {
		if ctx.Err() != nil {
			log.Warn("Inbox processing interrupted", zap.Error(ctx.Err()))
			break
		}

		// 重新读取：列表返回之后邮件可能已被重新加载替换
		email, err := p.store.GetEmail(ctx, e.ID)
		if errors.Is(err, store.ErrNotFound) {
			summary.Skipped++
			continue
		}
		if err == nil {
			err = p.processSafely(ctx, email)
		}
		if err != nil {
			summary.Failed++
			metrics.IncrementEmailProcessed("failed")
			log.Error("Failed to process email",
				zap.String("email_id", e.ID),
				zap.Error(err),
			)
			continue
		}
		summary.Processed++
	}

	log.Info("Inbox processing finished",
		zap.Int("total", summary.Total),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", time.Since(summary.StartedAt)),
	)
	return
}

// ProcessEmail 处理单封邮件；id 不存在时什么也不做，错误直接返回给调用方
func (p *Pipeline) ProcessEmail(ctx context.Context, id string) error {
	email, err := p.store.GetEmail(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		logger.WithTrace(ctx, p.logger).Debug("Email not found, nothing to process", zap.String("email_id", id))
		return nil
	}
	if err != nil {
		return fmt.Errorf("get email %s: %w", id, err)
	}
	if err := p.process(ctx, email); err != nil {
		metrics.IncrementEmailProcessed("failed")
		return err
	}
	return nil
}

// processSafely 把 panic 转成 error，供批处理使用
func (p *Pipeline) processSafely(ctx context.Context, email model.Email) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing email %s: %v", email.ID, r)
		}
	}()
	return p.process(ctx, email)
}

func (p *Pipeline) process(ctx context.Context, email model.Email) error {
	log := logger.WithTrace(ctx, p.logger).With(zap.String("email_id", email.ID))
	recognized := email.Category.Valid()

	// 1. 分类
	catPrompt, err := p.store.GetPrompt(ctx, model.PromptCategorize)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Warn("Categorize prompt not configured, skipping categorization")
	case err != nil:
		return fmt.Errorf("get categorize prompt: %w", err)
	default:
		text, ok := p.gateway.Generate(ctx, agent.PromptRequest{
			Instructions: catPrompt.Instructions(),
			Content:      email.Body,
		})
		if ok && strings.TrimSpace(text) != "" {
			result := category.Normalize(text)
			if result.Label() != "" {
				email.Category = result.Label()
				recognized = result.IsRecognized()
			}
			if !result.IsRecognized() {
				log.Warn("Model response did not match a known category",
					zap.String("raw", result.Raw()),
					zap.String("guess", string(result.Label())),
				)
			}
		}
	}

	// 2. 只有 To-Do / Important 需要提取待办
	if email.Category.NeedsAction() {
		aiPrompt, err := p.store.GetPrompt(ctx, model.PromptActionItems)
		switch {
		case errors.Is(err, store.ErrNotFound):
			log.Warn("Action items prompt not configured, keeping existing action items")
		case err != nil:
			return fmt.Errorf("get action items prompt: %w", err)
		default:
			items, ok := p.gateway.ExtractActionItems(ctx, agent.PromptRequest{
				Instructions: aiPrompt.Instructions(),
				Content:      email.Body,
			})
			if ok && len(items) > 0 {
				email.ActionItems = items
			} else {
				email.ActionItems = []model.ActionItem{}
			}
		}
	} else {
		email.ActionItems = []model.ActionItem{}
	}

	// 3. 写回
	if err := p.store.UpsertEmail(ctx, email); err != nil {
		return fmt.Errorf("update email %s: %w", email.ID, err)
	}

	metrics.IncrementEmailProcessed("success")
	metrics.AddActionItems(len(email.ActionItems))
	if email.Category != "" {
		metrics.IncrementCategory(string(email.Category), recognized)
	}

	log.Info("Email processed",
		zap.String("category", string(email.Category)),
		zap.Bool("recognized", recognized),
		zap.Int("action_items", len(email.ActionItems)),
	)

	p.publishProcessed(ctx, email, recognized)
	return nil
}

// publishProcessed 事件发布失败不影响处理结果
func (p *Pipeline) publishProcessed(ctx context.Context, email model.Email, recognized bool) {
	if p.events == nil {
		return
	}
	payload := contractsmq.EmailProcessedPayload{
		EmailID:         email.ID,
		Category:        string(email.Category),
		Recognized:      recognized,
		ActionItemCount: len(email.ActionItems),
		ProcessedAt:     time.Now(),
	}
	if err := p.events.Publish(contractsmq.RoutingKeyEmailProcessed, payload); err != nil {
		logger.WithTrace(ctx, p.logger).Warn("Failed to publish email.processed event",
			zap.String("email_id", email.ID),
			zap.Error(err),
		)
	}
}
