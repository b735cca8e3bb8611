package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	contractsmq "mailassist/contracts/mq"
	"mailassist/internal/model"
	"mailassist/internal/store"
	"mailassist/pkg/mq"
	"mailassist/pkg/util"

	"go.uber.org/zap"
)

const handlerName = "email_received"

// EmailProcessor 对单封邮件执行分类流程
type EmailProcessor interface {
	ProcessEmail(ctx context.Context, id string) error
}

// RetryCounter 记录每封邮件的处理次数
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// EmailReceivedHandler 接收外部收信服务推送的邮件：写入 store 后立即处理。
// deduper 为 nil 时不做去重；retries 为 nil 时使用进程内计数。
type EmailReceivedHandler struct {
	store      store.Store
	processor  EmailProcessor
	deduper    *util.Deduper
	retries    RetryCounter
	maxRetries int64
	logger     *zap.Logger
}

func NewEmailReceivedHandler(st store.Store, processor EmailProcessor, deduper *util.Deduper, retries RetryCounter, maxRetries int64, logger *zap.Logger) *EmailReceivedHandler {
	if retries == nil {
		retries = util.NewLocalRetryCounter()
	}
	return &EmailReceivedHandler{
		store:      st,
		processor:  processor,
		deduper:    deduper,
		retries:    retries,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// HandleEmailReceived 返回 mq.ErrNonRetryable 包装的错误时消息进入 DLQ，其他错误重新入队
func (h *EmailReceivedHandler) HandleEmailReceived(ctx context.Context, raw json.RawMessage) error {
	var p contractsmq.EmailReceivedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal email received payload", zap.Error(err))
		return mq.NonRetryable(err)
	}
	if p.EmailID == "" {
		return mq.NonRetryable(errors.New("email_id is required"))
	}

	log := h.logger.With(zap.String("email_id", p.EmailID))

	// 同一封邮件的重复投递只处理一次
	if h.deduper != nil && !h.deduper.AcquireOnce(ctx, handlerName, p.EmailID) {
		return nil
	}

	ts := p.ReceivedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	email := model.Email{
		ID:          p.EmailID,
		Sender:      p.Sender,
		Subject:     p.Subject,
		Body:        p.Body,
		Timestamp:   ts,
		ActionItems: []model.ActionItem{},
	}

	log.Info("Email received", zap.String("sender", p.Sender), zap.String("subject", p.Subject))

	err := h.store.UpsertEmail(ctx, email)
	if err == nil {
		err = h.processor.ProcessEmail(ctx, p.EmailID)
	}
	if err != nil {
		return h.onFailure(ctx, log, p.EmailID, err)
	}

	_ = h.retries.Reset(ctx, util.FormatRetryKey(handlerName, p.EmailID))
	return nil
}

// onFailure 释放去重锁允许重新投递；超过重试上限或不可重试时转为 DLQ
func (h *EmailReceivedHandler) onFailure(ctx context.Context, log *zap.Logger, emailID string, err error) error {
	if h.deduper != nil {
		h.deduper.Release(ctx, handlerName, emailID)
	}

	retryable, errType := util.IsRetryableError(err)
	key := util.FormatRetryKey(handlerName, emailID)

	count, cerr := h.retries.IncrementAndGet(ctx, key)
	if cerr != nil {
		log.Warn("Failed to increment retry counter", zap.Error(cerr))
		if !retryable {
			return mq.NonRetryable(err)
		}
		return err
	}

	if !util.ShouldRetry(count, h.maxRetries, retryable) {
		_ = h.retries.Reset(ctx, key)
		log.Error("Giving up on email",
			zap.String("error_type", errType),
			zap.Int64("attempts", count),
			zap.Error(err),
		)
		return mq.NonRetryable(fmt.Errorf("after %d attempts: %w", count, err))
	}

	log.Warn("Email processing failed, will retry",
		zap.String("error_type", errType),
		zap.Int64("attempts", count),
		zap.Error(err),
	)
	return err
}
