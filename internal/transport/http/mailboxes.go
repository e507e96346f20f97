package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"tempmail/gateway/internal/domain"
	"tempmail/gateway/internal/service"
	"tempmail/gateway/internal/storage"
)

type createMailboxRequest struct {
	Username string `json:"username"`
	Service  string `json:"service"`
	Domain   string `json:"domain"`
}

type mailboxResponse struct {
	ID           string    `json:"id"`
	Address      string    `json:"address"`
	Username     string    `json:"username"`
	Domain       string    `json:"domain"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	MessageCount int       `json:"messageCount"`
}

type mailboxListResponse struct {
	Items []mailboxResponse `json:"items"`
	Count int               `json:"count"`
}

type messageListResponse struct {
	Items []domain.MessageSummary `json:"items"`
	Count int                     `json:"count"`
}

// createMailbox 创建临时邮箱，带服务商故障转移。
func (h *Handler) createMailbox(c *gin.Context) {
	var req createMailboxRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, MsgInvalidRequest)
			return
		}
	}

	mailbox, err := h.mailboxes.Create(c.Request.Context(), service.CreateMailboxInput{
		Username: req.Username,
		Service:  req.Service,
		Domain:   req.Domain,
	})
	if err != nil {
		var createErr *service.CreateError
		if errors.As(err, &createErr) {
			ServiceUnavailable(c, MsgMailboxCreateFailed, gin.H{"attempts": createErr.Attempts})
			return
		}
		BadRequest(c, GetErrorMessage(err))
		return
	}

	Created(c, toMailboxResponse(mailbox))
}

// listMailboxes 返回活跃邮箱列表，最新创建的在前。
func (h *Handler) listMailboxes(c *gin.Context) {
	mailboxes, err := h.mailboxes.List()
	if err != nil {
		InternalError(c, MsgMailboxListFailed)
		return
	}

	items := make([]mailboxResponse, 0, len(mailboxes))
	for i := range mailboxes {
		items = append(items, toMailboxResponse(&mailboxes[i]))
	}
	Success(c, mailboxListResponse{Items: items, Count: len(items)})
}

// getMailbox 获取邮箱详情。
func (h *Handler) getMailbox(c *gin.Context) {
	mailbox, err := h.mailboxes.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			NotFound(c, MsgMailboxNotFound)
			return
		}
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, toMailboxResponse(mailbox))
}

// deleteMailbox 删除邮箱；重复删除返回未找到。
func (h *Handler) deleteMailbox(c *gin.Context) {
	if err := h.mailboxes.Delete(c.Param("id")); err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			NotFound(c, MsgMailboxNotFound)
			return
		}
		InternalError(c, MsgMailboxDeleteFailed)
		return
	}
	NoContent(c)
}

// extendMailbox 重置邮箱的到期时间为 now + 生命周期。
func (h *Handler) extendMailbox(c *gin.Context) {
	expiresAt, err := h.mailboxes.Extend(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			NotFound(c, MsgMailboxNotFound)
			return
		}
		InternalError(c, MsgExtendFailed)
		return
	}
	Success(c, gin.H{"expiresAt": expiresAt})
}

// listMessages 通过所属服务商拉取邮箱的邮件列表。
func (h *Handler) listMessages(c *gin.Context) {
	messages, err := h.mailboxes.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			NotFound(c, MsgMailboxNotFound)
			return
		}
		InternalError(c, MsgMessageListFailed)
		return
	}
	Success(c, messageListResponse{Items: messages, Count: len(messages)})
}

// getMessage 获取单封邮件的标准化详情。
func (h *Handler) getMessage(c *gin.Context) {
	detail, err := h.mailboxes.MessageDetail(c.Request.Context(), c.Param("id"), c.Param("messageId"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrMailboxNotFound):
			NotFound(c, MsgMailboxNotFound)
		case errors.Is(err, service.ErrMessageNotFound):
			NotFound(c, MsgMessageNotFound)
		default:
			InternalError(c, MsgMessageGetFailed)
		}
		return
	}
	Success(c, detail)
}

// listDomains 返回指定服务商的可用域名。
func (h *Handler) listDomains(c *gin.Context) {
	name, domains, err := h.mailboxes.Domains(c.Request.Context(), c.Query("service"))
	if err != nil {
		BadRequest(c, GetErrorMessage(err))
		return
	}
	Success(c, gin.H{
		"service": name,
		"domains": domains,
		"count":   len(domains),
	})
}

// toMailboxResponse 转换实体为响应体。
func toMailboxResponse(mailbox *domain.Mailbox) mailboxResponse {
	return mailboxResponse{
		ID:           mailbox.ID,
		Address:      mailbox.Address,
		Username:     mailbox.Username,
		Domain:       mailbox.Domain,
		Provider:     mailbox.Provider,
		CreatedAt:    mailbox.CreatedAt,
		ExpiresAt:    mailbox.ExpiresAt,
		MessageCount: mailbox.MessageCount,
	}
}
