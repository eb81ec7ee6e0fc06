package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"maildispatch/backend/internal/mdx"
)

// RenderHandler 块模板渲染的 HTTP 处理器。
type RenderHandler struct{}

// NewRenderHandler 创建渲染处理器。
func NewRenderHandler() *RenderHandler {
	return &RenderHandler{}
}

type renderRequest struct {
	Template string                 `json:"template" binding:"required"`
	Context  map[string]interface{} `json:"context"`
}

// Render 把块模板和上下文渲染成文本。
//
// POST /v1/render
func (h *RenderHandler) Render(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	rendered, err := mdx.Render(req.Template, mdx.FromAny(req.Context))
	if err != nil {
		if errors.Is(err, mdx.ErrRender) {
			UnprocessableEntity(c, err.Error())
			return
		}
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, gin.H{"rendered": rendered})
}
