package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"maildispatch/backend/internal/service"
	"maildispatch/backend/internal/signature"
	"maildispatch/backend/internal/storage"
)

// SignatureHandler 账户签名管理的 HTTP 处理器。
type SignatureHandler struct {
	signatures *service.SignatureService
}

// NewSignatureHandler 创建签名处理器。
func NewSignatureHandler(signatures *service.SignatureService) *SignatureHandler {
	return &SignatureHandler{signatures: signatures}
}

// ListKeys 列出签名目录下可用的签名键。
//
// GET /v1/signatures
func (h *SignatureHandler) ListKeys(c *gin.Context) {
	keys, err := h.signatures.List()
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, keys)
}

type signatureKeyRequest struct {
	SignatureKey string `json:"signature_key" binding:"required"`
}

// Attach 把签名键关联到账户。
//
// POST /v1/accounts/:name/signatures
func (h *SignatureHandler) Attach(c *gin.Context) {
	var req signatureKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	ref, err := h.signatures.Attach(c.Param("name"), req.SignatureKey)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAccountNotFound),
			errors.Is(err, signature.ErrSignatureNotFound):
			NotFound(c, GetErrorMessage(err))
		default:
			InternalError(c, MsgInternalError)
		}
		return
	}
	Created(c, ref)
}

// Enable 启用账户的某个签名，其余签名同时停用。
//
// POST /v1/accounts/:name/signatures/enable
func (h *SignatureHandler) Enable(c *gin.Context) {
	var req signatureKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.signatures.Enable(c.Param("name"), req.SignatureKey); err != nil {
		switch {
		case errors.Is(err, storage.ErrAccountNotFound),
			errors.Is(err, storage.ErrSignatureRefNotFound):
			NotFound(c, GetErrorMessage(err))
		default:
			InternalError(c, MsgInternalError)
		}
		return
	}
	SuccessWithMsg(c, "签名已启用", nil)
}

// ListForAccount 列出账户的全部签名关联。
//
// GET /v1/accounts/:name/signatures
func (h *SignatureHandler) ListForAccount(c *gin.Context) {
	refs, err := h.signatures.ListForAccount(c.Param("name"))
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, refs)
}
