package mq

import "time"

// RoutingKeyEmailProcessed 一封邮件完成分类/待办提取
const RoutingKeyEmailProcessed = "email.processed"

// EmailProcessedPayload 邮件处理完成事件的 payload
type EmailProcessedPayload struct {
	EmailID         string    `json:"email_id"`
	Category        string    `json:"category"`
	Recognized      bool      `json:"recognized"`
	ActionItemCount int       `json:"action_item_count"`
	ProcessedAt     time.Time `json:"processed_at"`
}
