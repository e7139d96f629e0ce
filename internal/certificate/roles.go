package certificate

import "strings"

// DefaultCategory 是没有类别字段或类别值缺失时的归档类别。
const DefaultCategory = "Default"

// DefaultRecipient 是收件人姓名缺失时的文件名占位。
const DefaultRecipient = "recipient"

// RecipientName 在取值映射中定位收件人姓名：
// 取第一个标签包含 "name"（不区分大小写）的字段的取值。
func RecipientName(fields FieldList, values map[string]string) string {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f.Label), "name") {
			if v := strings.TrimSpace(values[f.ID]); v != "" {
				return v
			}
		}
	}
	return DefaultRecipient
}

// Category 在取值映射中定位类别：
// 取第一个标签包含 "category" 的字段的取值，缺失时返回 DefaultCategory。
func Category(fields FieldList, values map[string]string) string {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f.Label), "category") {
			if v := strings.TrimSpace(values[f.ID]); v != "" {
				return v
			}
			return DefaultCategory
		}
	}
	return DefaultCategory
}
