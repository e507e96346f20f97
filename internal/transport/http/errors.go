package httptransport

import (
	"errors"

	"tempmail/gateway/internal/provider"
	"tempmail/gateway/internal/service"
	"tempmail/gateway/internal/storage"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	storage.ErrMailboxNotFound:  "邮箱不存在",
	storage.ErrHistoryNotFound:  "历史记录不存在",
	service.ErrMessageNotFound:  "邮件不存在",
	provider.ErrUnknownProvider: "未知的邮箱服务商",
	provider.ErrMessageNotFound: "邮件不存在",
}

// GetErrorMessage 获取错误的中文消息
//
// 业务错误常被 %w 包装后上抛，用 errors.Is 而非直接查表匹配。
func GetErrorMessage(err error) string {
	for sentinel, msg := range errorMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return err.Error()
}

// 通用错误消息
const (
	MsgInvalidRequest = "请求参数格式错误"

	MsgMailboxCreateFailed = "创建邮箱失败，所有服务商均不可用"
	MsgMailboxNotFound     = "邮箱不存在"
	MsgMailboxDeleteFailed = "删除邮箱失败"
	MsgMailboxListFailed   = "获取邮箱列表失败"
	MsgExtendFailed        = "延长有效期失败"

	MsgMessageNotFound   = "邮件不存在"
	MsgMessageListFailed = "获取邮件列表失败"
	MsgMessageGetFailed  = "获取邮件详情失败"

	MsgHistoryNotFound     = "历史记录不存在"
	MsgHistoryListFailed   = "获取历史列表失败"
	MsgHistoryDeleteFailed = "删除历史记录失败"

	MsgDomainListFailed = "获取域名列表失败"

	MsgInternalError = "服务器内部错误，请稍后重试"
)
