package model

// Category 邮件分类。处理后一般是下面四个标签之一，
// 归一化失败时是模型给出的“参考标签”，不保证在固定集合内。
type Category string

const (
	CategoryImportant  Category = "Important"
	CategoryToDo       Category = "To-Do"
	CategoryNewsletter Category = "Newsletter"
	CategorySpam       Category = "Spam"
)

// Categories 按匹配优先级排列
var Categories = []Category{
	CategoryImportant,
	CategoryToDo,
	CategoryNewsletter,
	CategorySpam,
}

// NeedsAction 只有 To-Do 和 Important 需要提取待办事项
func (c Category) NeedsAction() bool {
	return c == CategoryToDo || c == CategoryImportant
}

// Valid 是否属于固定标签集合
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}
