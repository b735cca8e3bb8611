// Package category 把模型返回的自由文本归一化为固定的分类标签。
package category

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"mailassist/internal/model"
)

// 模型常见的前缀说法，按优先级排列
var preambles = []string{
	"category:",
	"the category is",
	"this email is",
	"classified as",
	"categorized as",
}

// 只在前缀之后才认的别名
var aliases = []struct {
	text  string
	label model.Category
}{
	{"todo", model.CategoryToDo},
	{"to do", model.CategoryToDo},
}

// guessTrimChars 兜底时从首个 token 两端去掉的字符
const guessTrimChars = "\"'.,!?:"

// Result 归一化结果：要么识别出固定标签，要么只能给出一个猜测
type Result struct {
	label      model.Category
	raw        string
	recognized bool
}

// Recognized 构造一个已识别的结果
func Recognized(label model.Category) Result {
	return Result{label: label, raw: string(label), recognized: true}
}

// Unrecognized 构造一个未识别的结果，guess 是兜底得到的参考标签
func Unrecognized(raw string, guess model.Category) Result {
	return Result{label: guess, raw: raw}
}

// IsRecognized 是否命中固定标签
func (r Result) IsRecognized() bool { return r.recognized }

// Label 识别出的标签，或未识别时的参考标签（可能为空）
func (r Result) Label() model.Category { return r.label }

// Raw 原始模型输出
func (r Result) Raw() string { return r.raw }

// Normalize 依次尝试：子串匹配、前缀匹配、首 token 兜底
func Normalize(raw string) Result {
	text := strings.TrimSpace(raw)
	lower := strings.ToLower(text)

	// 1. 子串匹配，按标签优先级而不是出现位置
	for _, c := range model.Categories {
		if strings.Contains(lower, strings.ToLower(string(c))) {
			return Result{label: c, raw: raw, recognized: true}
		}
	}

	// 2. 前缀匹配：只看第一个出现的前缀
	for _, p := range preambles {
		idx := strings.Index(lower, p)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(lower[idx+len(p):])
		rest = strings.TrimLeft(rest, guessTrimChars+" ")
		if c, ok := matchPrefix(rest); ok {
			return Result{label: c, raw: raw, recognized: true}
		}
		break
	}

	// 3. 兜底：首个 token 去标点后首字母大写
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Unrecognized(raw, "")
	}
	guess := strings.Trim(fields[0], guessTrimChars)
	return Unrecognized(raw, model.Category(capitalize(guess)))
}

func matchPrefix(rest string) (model.Category, bool) {
	for _, c := range model.Categories {
		if strings.HasPrefix(rest, strings.ToLower(string(c))) {
			return c, true
		}
	}
	for _, a := range aliases {
		if strings.HasPrefix(rest, a.text) {
			return a.label, true
		}
	}
	return "", false
}

// capitalize 首字母大写，其余小写
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
