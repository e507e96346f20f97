package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"tempmail/gateway/internal/domain"
	"tempmail/gateway/internal/service"
	"tempmail/gateway/internal/storage"
)

type historyResponse struct {
	ID           string    `json:"id"`
	Address      string    `json:"address"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiredAt    time.Time `json:"expiredAt"`
	MessageCount int       `json:"messageCount"`
}

type historyListResponse struct {
	Items []historyResponse `json:"items"`
	Count int               `json:"count"`
}

type deleteHistoryRequest struct {
	IDs []string `json:"ids"`
}

// listHistory 返回历史邮箱列表，最近过期的在前。
func (h *Handler) listHistory(c *gin.Context) {
	records, err := h.history.List()
	if err != nil {
		InternalError(c, MsgHistoryListFailed)
		return
	}

	items := make([]historyResponse, 0, len(records))
	for i := range records {
		items = append(items, toHistoryResponse(&records[i]))
	}
	Success(c, historyListResponse{Items: items, Count: len(items)})
}

// listHistoryMessages 用归档凭证拉取历史邮箱的邮件（尽力而为）。
func (h *Handler) listHistoryMessages(c *gin.Context) {
	messages, err := h.history.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrHistoryNotFound) {
			NotFound(c, MsgHistoryNotFound)
			return
		}
		InternalError(c, MsgMessageListFailed)
		return
	}
	Success(c, messageListResponse{Items: messages, Count: len(messages)})
}

// getHistoryMessage 获取历史邮箱中单封邮件的详情。
func (h *Handler) getHistoryMessage(c *gin.Context) {
	detail, err := h.history.MessageDetail(c.Request.Context(), c.Param("id"), c.Param("messageId"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrHistoryNotFound):
			NotFound(c, MsgHistoryNotFound)
		case errors.Is(err, service.ErrMessageNotFound):
			NotFound(c, MsgMessageNotFound)
		default:
			InternalError(c, MsgMessageGetFailed)
		}
		return
	}
	Success(c, detail)
}

// deleteHistory 批量删除历史记录，请求体为空时清空全部。
func (h *Handler) deleteHistory(c *gin.Context) {
	var req deleteHistoryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, MsgInvalidRequest)
			return
		}
	}

	deleted, err := h.history.Delete(req.IDs)
	if err != nil {
		InternalError(c, MsgHistoryDeleteFailed)
		return
	}
	Success(c, gin.H{"deleted": deleted})
}

// toHistoryResponse 转换历史实体为响应体。
func toHistoryResponse(record *domain.HistoryMailbox) historyResponse {
	return historyResponse{
		ID:           record.ID,
		Address:      record.Address,
		Provider:     record.Provider,
		CreatedAt:    record.CreatedAt,
		ExpiredAt:    record.ExpiredAt,
		MessageCount: record.MessageCount,
	}
}
