package model

// 内置 prompt 的 ID
const (
	PromptCategorize  = "categorize"
	PromptActionItems = "action_items"
	PromptAutoReply   = "auto_reply"
)

// PromptConfig 可编辑的 prompt 模板
type PromptConfig struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Template       string `json:"template"`
	SystemTemplate string `json:"system_template,omitempty"`
	Description    string `json:"description"`
}

// Instructions 优先使用 system_template，未配置时退回 template
func (p PromptConfig) Instructions() string {
	if p.SystemTemplate != "" {
		return p.SystemTemplate
	}
	return p.Template
}
