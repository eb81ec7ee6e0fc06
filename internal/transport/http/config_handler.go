package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/service"
	"maildispatch/backend/internal/storage"
)

// ConfigHandler 运行期配置变量的 HTTP 处理器。
type ConfigHandler struct {
	configVars *service.ConfigVarService
}

// NewConfigHandler 创建配置变量处理器。
func NewConfigHandler(configVars *service.ConfigVarService) *ConfigHandler {
	return &ConfigHandler{configVars: configVars}
}

type upsertConfigVarRequest struct {
	Key         string `json:"key" binding:"required,max=100"`
	Value       string `json:"value" binding:"required"`
	VarType     string `json:"var_type" binding:"required"`
	Description string `json:"description"`
}

// Upsert 写入或更新配置变量。
//
// PUT /v1/config-vars
func (h *ConfigHandler) Upsert(c *gin.Context) {
	var req upsertConfigVarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	variable := domain.ConfigVariable{
		Key:         req.Key,
		Value:       req.Value,
		VarType:     domain.ConfigVarType(req.VarType),
		Description: req.Description,
	}
	if err := h.configVars.Upsert(&variable); err != nil {
		if errors.Is(err, service.ErrInvalidConfigVar) {
			UnprocessableEntity(c, err.Error())
			return
		}
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, variable)
}

// Get 按键读取配置变量。
//
// GET /v1/config-vars/:key
func (h *ConfigHandler) Get(c *gin.Context) {
	variable, err := h.configVars.Get(c.Param("key"))
	if err != nil {
		if errors.Is(err, storage.ErrConfigVarNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, variable)
}

// List 列出全部配置变量。
//
// GET /v1/config-vars
func (h *ConfigHandler) List(c *gin.Context) {
	variables, err := h.configVars.List()
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, variables)
}
