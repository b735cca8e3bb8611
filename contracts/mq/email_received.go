package mq

import "time"

// RoutingKeyEmailReceived 外部收信服务推送新邮件
const RoutingKeyEmailReceived = "email.received"

// EmailReceivedPayload 邮件收到事件的 payload
type EmailReceivedPayload struct {
	EmailID    string    `json:"email_id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}
