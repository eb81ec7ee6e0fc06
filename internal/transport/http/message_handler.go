package httptransport

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/pool"
	"maildispatch/backend/internal/service"
	"maildispatch/backend/internal/storage"
)

// MessageHandler 邮件存取与投递的 HTTP 处理器。
type MessageHandler struct {
	messages   *service.MessageService
	accounts   *service.AccountService
	dispatcher *service.DispatchService
	logs       *service.LogService
	workers    *pool.WorkerPool
	logger     *zap.Logger
}

// NewMessageHandler 创建邮件处理器。
func NewMessageHandler(
	messages *service.MessageService,
	accounts *service.AccountService,
	dispatcher *service.DispatchService,
	logs *service.LogService,
	workers *pool.WorkerPool,
	logger *zap.Logger,
) *MessageHandler {
	return &MessageHandler{
		messages:   messages,
		accounts:   accounts,
		dispatcher: dispatcher,
		logs:       logs,
		workers:    workers,
		logger:     logger,
	}
}

// Store 保存邮件（幂等创建）。
//
// POST /v1/messages
func (h *MessageHandler) Store(c *gin.Context) {
	var payload service.MessagePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if _, err := h.accounts.Get(payload.AccountName); err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			h.logs.Append(nil, domain.LogKindNotFound,
				fmt.Sprintf("存信请求引用了不存在的账户 %s", payload.AccountName))
			NotFound(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	message, created, err := h.messages.CreateOrGet(&payload)
	if err != nil {
		h.logger.Error("保存邮件失败", zap.Error(err))
		InternalError(c, MsgMessageStoreFailed)
		return
	}
	if created {
		h.logs.Append(&message.ID, domain.LogKindInfo, "邮件已入库待投递")
		Created(c, message)
		return
	}
	SuccessWithMsg(c, "已存在相同内容的邮件", message)
}

// Dispatch 触发一封已入库邮件的异步投递。
//
// POST /v1/messages/:id/dispatch
func (h *MessageHandler) Dispatch(c *gin.Context) {
	id := c.Param("id")

	// 先同步确认邮件存在，投递本身进后台队列
	if _, err := h.messages.Get(id); err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	if !h.enqueueDispatch(id) {
		ServiceUnavailable(c, MsgDispatchQueueFull)
		return
	}
	Accepted(c, "已进入投递队列", gin.H{"message_id": id})
}

// StoreAndDispatch 保存并立即投递。
//
// POST /v1/messages/dispatch
func (h *MessageHandler) StoreAndDispatch(c *gin.Context) {
	var payload service.MessagePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if _, err := h.accounts.Get(payload.AccountName); err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	message, created, err := h.messages.CreateOrGet(&payload)
	if err != nil {
		h.logger.Error("保存邮件失败", zap.Error(err))
		InternalError(c, MsgMessageStoreFailed)
		return
	}
	if created {
		h.logs.Append(&message.ID, domain.LogKindInfo, "邮件已入库待投递")
	}

	if !h.enqueueDispatch(message.ID) {
		ServiceUnavailable(c, MsgDispatchQueueFull)
		return
	}
	Accepted(c, "已进入投递队列", message)
}

// Get 按 ID 获取邮件。
//
// GET /v1/messages/:id
func (h *MessageHandler) Get(c *gin.Context) {
	message, err := h.messages.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, message)
}

// List 分页列出邮件。
//
// GET /v1/messages?limit=&offset=
func (h *MessageHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		BadRequest(c, MsgInvalidOffset)
		return
	}

	messages, err := h.messages.List(limit, offset)
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, messages)
}

// Logs 列出某封邮件关联的投递日志。
//
// GET /v1/messages/:id/logs
func (h *MessageHandler) Logs(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.messages.Get(id); err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	entries, err := h.logs.ForMessage(id)
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, entries)
}

// enqueueDispatch 把投递任务放进后台队列，队列满时返回 false。
func (h *MessageHandler) enqueueDispatch(messageID string) bool {
	return h.workers.TrySubmit(func() {
		// 异步路径的结果只通过投递日志观察
		_ = h.dispatcher.Dispatch(context.Background(), messageID)
	})
}
