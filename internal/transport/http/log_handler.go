package httptransport

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"maildispatch/backend/internal/service"
)

// LogHandler 投递日志查询的 HTTP 处理器。
type LogHandler struct {
	logs *service.LogService
}

// NewLogHandler 创建日志处理器。
func NewLogHandler(logs *service.LogService) *LogHandler {
	return &LogHandler{logs: logs}
}

// List 分页查询投递日志。
//
// GET /v1/logs?window=&offset=
// window 为必填正整数，offset 默认 0；返回跳过 offset 条最新
// 日志后的 window 条，按时间升序。
func (h *LogHandler) List(c *gin.Context) {
	windowRaw, ok := c.GetQuery("window")
	if !ok {
		BadRequest(c, MsgInvalidWindow)
		return
	}
	window, err := strconv.Atoi(windowRaw)
	if err != nil || window <= 0 {
		BadRequest(c, MsgInvalidWindow)
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		BadRequest(c, MsgInvalidOffset)
		return
	}

	entries, err := h.logs.List(window, offset)
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}

	total, err := h.logs.Count()
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, gin.H{
		"total":   total,
		"window":  window,
		"offset":  offset,
		"entries": entries,
	})
}
