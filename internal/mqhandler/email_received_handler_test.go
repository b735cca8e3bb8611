package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	contractsmq "mailassist/contracts/mq"
	"mailassist/internal/model"
	"mailassist/internal/store"
	"mailassist/pkg/mq"
	"mailassist/pkg/util"

	"go.uber.org/zap"
)

type fakeProcessor struct {
	ids []string
	err error
}

func (f *fakeProcessor) ProcessEmail(ctx context.Context, id string) error {
	f.ids = append(f.ids, id)
	return f.err
}

func newHandler(t *testing.T, proc *fakeProcessor) (*EmailReceivedHandler, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore(context.Background(), nil, zap.NewNop())
	return NewEmailReceivedHandler(st, proc, nil, nil, 3, zap.NewNop()), st
}

func TestHandleEmailReceived_StoresAndProcesses(t *testing.T) {
	proc := &fakeProcessor{}
	h, st := newHandler(t, proc)

	received := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	raw, _ := json.Marshal(contractsmq.EmailReceivedPayload{
		EmailID:    "ext-1",
		Sender:     "alice@example.com",
		Subject:    "Hello",
		Body:       "Please review the doc",
		ReceivedAt: received,
	})

	if err := h.HandleEmailReceived(context.Background(), raw); err != nil {
		t.Fatalf("HandleEmailReceived: %v", err)
	}

	e, err := st.GetEmail(context.Background(), "ext-1")
	if err != nil {
		t.Fatalf("email not stored: %v", err)
	}
	if e.Subject != "Hello" || !e.Timestamp.Equal(received) || e.Category != model.Category("") {
		t.Errorf("unexpected email %+v", e)
	}
	if len(proc.ids) != 1 || proc.ids[0] != "ext-1" {
		t.Errorf("expected processing of ext-1, got %v", proc.ids)
	}
}

func TestHandleEmailReceived_BadPayloadIsNonRetryable(t *testing.T) {
	h, _ := newHandler(t, &fakeProcessor{})

	for name, raw := range map[string]string{
		"bad json":   `{"email_id": `,
		"missing id": `{"subject": "no id"}`,
	} {
		t.Run(name, func(t *testing.T) {
			err := h.HandleEmailReceived(context.Background(), json.RawMessage(raw))
			if !errors.Is(err, mq.ErrNonRetryable) {
				t.Fatalf("expected non-retryable error, got %v", err)
			}
		})
	}
}

func TestHandleEmailReceived_ProcessingErrors(t *testing.T) {
	raw, _ := json.Marshal(contractsmq.EmailReceivedPayload{EmailID: "ext-2", Body: "b"})

	// 超时可重试：重新入队
	h, _ := newHandler(t, &fakeProcessor{err: context.DeadlineExceeded})
	err := h.HandleEmailReceived(context.Background(), raw)
	if err == nil || errors.Is(err, mq.ErrNonRetryable) {
		t.Fatalf("timeout should be retried, got %v", err)
	}

	// 未知错误不可重试：进入 DLQ
	h, _ = newHandler(t, &fakeProcessor{err: errors.New("boom")})
	err = h.HandleEmailReceived(context.Background(), raw)
	if !errors.Is(err, mq.ErrNonRetryable) {
		t.Fatalf("unknown error should go to DLQ, got %v", err)
	}
}

func TestHandleEmailReceived_GivesUpAfterMaxRetriesWithoutRedis(t *testing.T) {
	raw, _ := json.Marshal(contractsmq.EmailReceivedPayload{EmailID: "ext-3", Body: "b"})
	h, _ := newHandler(t, &fakeProcessor{err: context.DeadlineExceeded})

	for attempt := 1; attempt <= 3; attempt++ {
		err := h.HandleEmailReceived(context.Background(), raw)
		if err == nil || errors.Is(err, mq.ErrNonRetryable) {
			t.Fatalf("attempt %d should be requeued, got %v", attempt, err)
		}
	}
	if err := h.HandleEmailReceived(context.Background(), raw); !errors.Is(err, mq.ErrNonRetryable) {
		t.Fatalf("attempt 4 should go to DLQ, got %v", err)
	}
	// 进入 DLQ 后计数清零，重新投递的同一封邮件再次获得重试机会
	if err := h.HandleEmailReceived(context.Background(), raw); err == nil || errors.Is(err, mq.ErrNonRetryable) {
		t.Fatalf("counter should restart after giving up, got %v", err)
	}
}

func TestHandleEmailReceived_SuccessResetsCounter(t *testing.T) {
	raw, _ := json.Marshal(contractsmq.EmailReceivedPayload{EmailID: "ext-4", Body: "b"})
	proc := &fakeProcessor{err: context.DeadlineExceeded}
	counter := util.NewLocalRetryCounter()
	st := store.NewMemoryStore(context.Background(), nil, zap.NewNop())
	h := NewEmailReceivedHandler(st, proc, nil, counter, 3, zap.NewNop())

	_ = h.HandleEmailReceived(context.Background(), raw)
	_ = h.HandleEmailReceived(context.Background(), raw)
	proc.err = nil
	if err := h.HandleEmailReceived(context.Background(), raw); err != nil {
		t.Fatalf("HandleEmailReceived: %v", err)
	}

	n, _ := counter.IncrementAndGet(context.Background(), util.FormatRetryKey(handlerName, "ext-4"))
	if n != 1 {
		t.Errorf("counter after success = %d, want fresh count 1", n)
	}
}
