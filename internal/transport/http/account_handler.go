package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maildispatch/backend/internal/service"
	"maildispatch/backend/internal/storage"
)

// AccountHandler 发信账户管理的 HTTP 处理器。
type AccountHandler struct {
	accounts *service.AccountService
	logger   *zap.Logger
}

// NewAccountHandler 创建账户处理器。
func NewAccountHandler(accounts *service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

type registerAccountRequest struct {
	AccountName string `json:"account_name" binding:"required,max=50"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
}

// Register 注册发信账户。
//
// POST /v1/accounts
func (h *AccountHandler) Register(c *gin.Context) {
	var req registerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	account, err := h.accounts.Register(req.AccountName, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			Conflict(c, GetErrorMessage(err))
			return
		}
		h.logger.Error("注册账户失败", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}
	Created(c, account)
}

type updateAccountRequest struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password"`
}

// Update 更新账户的邮箱或口令。
//
// PUT /v1/accounts/:name
func (h *AccountHandler) Update(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	account, err := h.accounts.Update(c.Param("name"), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAccountNotFound):
			NotFound(c, GetErrorMessage(err))
		case errors.Is(err, storage.ErrAccountExists):
			Conflict(c, GetErrorMessage(err))
		default:
			h.logger.Error("更新账户失败", zap.Error(err))
			InternalError(c, MsgInternalError)
		}
		return
	}
	Success(c, account)
}

// List 列出全部账户。
//
// GET /v1/accounts
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accounts.List()
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, accounts)
}

// Get 按账户名读取账户。
//
// GET /v1/accounts/:name
func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.accounts.Get(c.Param("name"))
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, account)
}

// Delete 删除账户及其签名关联。
//
// DELETE /v1/accounts/:name
func (h *AccountHandler) Delete(c *gin.Context) {
	if err := h.accounts.Delete(c.Param("name")); err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}
	SuccessWithMsg(c, "账户已删除", nil)
}
