package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"mailassist/internal/model"
)

// stripCodeFence 去掉模型常见的 ```json ... ``` 包裹
func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// 去掉语言标记所在的第一行
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseActionItems 把模型输出转换成 ActionItem 列表。
// 接受数组、{"action_items": [...]}/{"tasks": [...]} 包装、单个对象；
// 无法识别时返回空切片。
func parseActionItems(text string) []model.ActionItem {
	var raw any
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &raw); err != nil {
		return []model.ActionItem{}
	}

	var list []any
	switch v := raw.(type) {
	case []any:
		list = v
	case map[string]any:
		if inner, ok := firstList(v, "action_items", "tasks", "items"); ok {
			list = inner
		} else {
			list = []any{v}
		}
	default:
		return []model.ActionItem{}
	}

	items := make([]model.ActionItem, 0, len(list))
	for _, entry := range list {
		switch e := entry.(type) {
		case map[string]any:
			task := stringField(e, "task", "description", "title")
			if task == "" {
				continue
			}
			items = append(items, model.ActionItem{
				Task:     task,
				Deadline: stringField(e, "deadline", "due", "due_date"),
			})
		case string:
			if t := strings.TrimSpace(e); t != "" {
				items = append(items, model.ActionItem{Task: t})
			}
		}
	}
	return items
}

func firstList(m map[string]any, keys ...string) ([]any, bool) {
	for _, k := range keys {
		if l, ok := m[k].([]any); ok {
			return l, true
		}
	}
	return nil, false
}

// stringField 取第一个存在的字段；null 视为空，数字等转成字符串
func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
		return fmt.Sprint(v)
	}
	return ""
}
