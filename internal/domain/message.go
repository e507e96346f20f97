package domain

// Sender 邮件发件人。
type Sender struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// MessageSummary 表示邮件列表中的一封邮件（各服务商统一后的形态）。
type MessageSummary struct {
	ID        string `json:"id"`
	From      Sender `json:"from"`
	Subject   string `json:"subject"`
	CreatedAt string `json:"createdAt"`
}

// MessageDetail 表示邮件正文详情。
//
// Text 和 HTML 恒为数组：上游返回裸字符串时包装为单元素数组，
// 字段缺失时为空数组，绝不为 nil。
type MessageDetail struct {
	MessageSummary
	Text []string `json:"text"`
	HTML []string `json:"html"`
}

// NormalizeBody 将上游 string / []string / 缺失 三种形态收敛为数组。
//
// 各服务商的详情接口对 html/text 字段的类型并不一致，
// 统一在反序列化之后调用本函数收口。
func NormalizeBody(v interface{}) []string {
	switch body := v.(type) {
	case nil:
		return []string{}
	case string:
		if body == "" {
			return []string{}
		}
		return []string{body}
	case []string:
		if body == nil {
			return []string{}
		}
		return body
	case []interface{}:
		out := make([]string, 0, len(body))
		for _, item := range body {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
