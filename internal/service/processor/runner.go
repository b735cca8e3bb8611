package processor

import (
	"context"
	"sync"
	"sync/atomic"

	"mailassist/pkg/trace"
	"mailassist/pkg/util"

	"go.uber.org/zap"
)

const (
	batchLockHandler = "process_inbox"
	batchLockKey     = "batch"
)

// Runner 在后台运行批处理，同一时间只允许一个批次。
// lock 不为 nil 时还会通过 Redis 保证多个实例之间不重复运行。
type Runner struct {
	pipeline *Pipeline
	lock     *util.Deduper
	baseCtx  context.Context
	logger   *zap.Logger

	running atomic.Bool
	wg      sync.WaitGroup

	mu   sync.RWMutex
	last *Summary
}

// NewRunner baseCtx 取消时正在运行的批次会在当前邮件处理完后停止
func NewRunner(baseCtx context.Context, pipeline *Pipeline, lock *util.Deduper, logger *zap.Logger) *Runner {
	return &Runner{
		pipeline: pipeline,
		lock:     lock,
		baseCtx:  baseCtx,
		logger:   logger,
	}
}

// Trigger 启动后台批处理并立即返回；已有批次在运行时返回 false
func (r *Runner) Trigger(ctx context.Context) bool {
	if !r.running.CompareAndSwap(false, true) {
		return false
	}
	if r.lock != nil && !r.lock.AcquireOnce(ctx, batchLockHandler, batchLockKey) {
		r.running.Store(false)
		return false
	}

	// 请求返回后继续运行，只继承 trace_id
	runCtx := r.baseCtx
	if traceID := trace.FromContext(ctx); traceID != "" {
		runCtx = trace.WithContext(runCtx, traceID)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.running.Store(false)
		if r.lock != nil {
			defer r.lock.Release(context.WithoutCancel(runCtx), batchLockHandler, batchLockKey)
		}
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Inbox processing panicked", zap.Any("panic", rec))
			}
		}()

		summary := r.pipeline.ProcessInbox(runCtx)
		r.mu.Lock()
		r.last = &summary
		r.mu.Unlock()
	}()
	return true
}

// Running 是否有批次正在运行
func (r *Runner) Running() bool {
	return r.running.Load()
}

// LastSummary 最近一次完成的批次，没有时返回 nil
func (r *Runner) LastSummary() *Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil
	}
	s := *r.last
	return &s
}

// Wait 等待正在运行的批次结束（优雅退出时使用）
func (r *Runner) Wait() {
	r.wg.Wait()
}
