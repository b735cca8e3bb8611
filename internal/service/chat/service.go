// Package chat 把用户问题路由到单封邮件或整个收件箱，并生成回复草稿。
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mailassist/internal/model"
	"mailassist/internal/service/agent"
	"mailassist/internal/store"
	"mailassist/pkg/logger"

	"go.uber.org/zap"
)

// previewLimit 收件箱摘要中正文预览的最大字符数
const previewLimit = 200

type Service struct {
	store   store.Store
	gateway agent.Gateway
	logger  *zap.Logger
}

func NewService(st store.Store, gateway agent.Gateway, logger *zap.Logger) *Service {
	return &Service{
		store:   st,
		gateway: gateway,
		logger:  logger,
	}
}

// Ask emailID 非空时针对单封邮件回答（邮件不存在返回 store.ErrNotFound），否则针对整个收件箱
func (s *Service) Ask(ctx context.Context, query, emailID string) (string, error) {
	log := logger.WithTrace(ctx, s.logger)

	if emailID != "" {
		email, err := s.store.GetEmail(ctx, emailID)
		if err != nil {
			return "", err
		}
		log.Info("Chat with email", zap.String("email_id", emailID))
		return s.gateway.ChatWithEmail(ctx, email.Body, query), nil
	}

	emails, err := s.store.ListEmails(ctx)
	if err != nil {
		return "", fmt.Errorf("list emails: %w", err)
	}
	log.Info("Chat with inbox", zap.Int("emails", len(emails)))
	return s.gateway.ChatWithInbox(ctx, BuildInboxSummary(emails), query), nil
}

// GenerateDraft 为邮件生成回复正文，不保存。
// instructions 为空时使用 auto_reply prompt，没有配置时由网关使用默认说明。
func (s *Service) GenerateDraft(ctx context.Context, emailID, instructions string) (string, error) {
	email, err := s.store.GetEmail(ctx, emailID)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(instructions) == "" {
		p, err := s.store.GetPrompt(ctx, model.PromptAutoReply)
		switch {
		case err == nil:
			instructions = p.Template
		case !errors.Is(err, store.ErrNotFound):
			return "", fmt.Errorf("get auto reply prompt: %w", err)
		}
	}

	logger.WithTrace(ctx, s.logger).Info("Generating draft reply", zap.String("email_id", emailID))
	return s.gateway.GenerateDraftReply(ctx, email.Body, instructions), nil
}

// BuildInboxSummary 每封邮件一段：发件人、主题、分类，
// 然后是已有摘要，或不超过 200 字符的完整正文，或前 200 字符加 "..."
func BuildInboxSummary(emails []model.Email) string {
	var sb strings.Builder
	for i, e := range emails {
		if i > 0 {
			sb.WriteString("\n")
		}
		cat := string(e.Category)
		if cat == "" {
			cat = "Uncategorized"
		}
		fmt.Fprintf(&sb, "From: %s\nSubject: %s\nCategory: %s\n", e.Sender, e.Subject, cat)

		if e.Summary != "" {
			fmt.Fprintf(&sb, "Summary: %s\n", e.Summary)
		} else {
			fmt.Fprintf(&sb, "Content: %s\n", preview(e.Body))
		}
	}
	return sb.String()
}

// preview 按字符（rune）截断
func preview(body string) string {
	r := []rune(body)
	if len(r) <= previewLimit {
		return body
	}
	return string(r[:previewLimit]) + "..."
}
