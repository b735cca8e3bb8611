// Package agent 封装对语言模型的调用。所有失败都在这一层吸收：
// 结构化调用返回 ok=false，面向用户的调用返回 "Error: ..." 文本。
package agent

import (
	"context"

	"mailassist/internal/model"
)

// DefaultDraftInstructions 生成草稿时未提供说明时使用
const DefaultDraftInstructions = "Draft a polite and professional reply to this email. Keep it concise."

// PromptRequest 一次基于 prompt 模板的调用
type PromptRequest struct {
	// Instructions 发送给模型的指令（system_template，缺省时为 template）
	Instructions string
	// Content 邮件正文
	Content string
}

// Gateway 语言模型网关
type Gateway interface {
	// Generate 返回自由文本；任何失败返回 ok=false
	Generate(ctx context.Context, req PromptRequest) (string, bool)
	// ExtractActionItems 要求模型输出 [{task, deadline}]。
	// 输出无法解析时返回空切片和 ok=true；调用失败返回 ok=false
	ExtractActionItems(ctx context.Context, req PromptRequest) ([]model.ActionItem, bool)

	ChatWithEmail(ctx context.Context, emailContent, question string) string
	ChatWithInbox(ctx context.Context, inboxSummary, question string) string
	GenerateDraftReply(ctx context.Context, emailContent, instructions string) string
}
