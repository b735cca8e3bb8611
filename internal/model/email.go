package model

import "time"

// Email 收件箱中的一封邮件
type Email struct {
	ID          string       `json:"id"`
	Sender      string       `json:"sender"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Timestamp   time.Time    `json:"timestamp"`
	Read        bool         `json:"read"`
	Category    Category     `json:"category,omitempty"`
	ActionItems []ActionItem `json:"action_items"`
	Summary     string       `json:"summary,omitempty"`
}

// ActionItem 从邮件中提取出的待办事项，deadline 可能为空或是非正式描述（如 "next Friday"）
type ActionItem struct {
	Task     string `json:"task"`
	Deadline string `json:"deadline"`
}

// Clone 返回深拷贝，store 对外只交出副本
func (e Email) Clone() Email {
	if e.ActionItems != nil {
		items := make([]ActionItem, len(e.ActionItems))
		copy(items, e.ActionItems)
		e.ActionItems = items
	}
	return e
}
