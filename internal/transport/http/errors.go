package httptransport

import (
	"errors"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/mailer"
	"maildispatch/backend/internal/mdx"
	"maildispatch/backend/internal/signature"
	"maildispatch/backend/internal/storage"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = []struct {
	err error
	msg string
}{
	{storage.ErrMessageNotFound, "邮件不存在"},
	{storage.ErrAccountNotFound, "发信账户不存在"},
	{storage.ErrAccountExists, "账户名或邮箱已被占用"},
	{storage.ErrSignatureRefNotFound, "账户未关联该签名"},
	{storage.ErrConfigVarNotFound, "配置变量不存在"},
	{signature.ErrSignatureNotFound, "签名不存在"},
	{domain.ErrFilenameExtension, "附件文件名缺少有效扩展名"},
	{domain.ErrInlineNotImage, "内嵌附件必须是图片格式"},
	{domain.ErrContentNotBase64, "附件内容不是合法的base64"},
	{mdx.ErrRender, "模板渲染失败"},
	{mailer.ErrTransport, "邮件传输失败"},
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	for _, candidate := range errorMessages {
		if errors.Is(err, candidate.err) {
			return candidate.msg
		}
	}
	return err.Error()
}

// 通用错误消息
const (
	MsgInvalidRequest     = "请求参数格式错误"
	MsgInvalidWindow      = "window 必须是正整数"
	MsgInvalidOffset      = "offset 不能为负数"
	MsgMessageStoreFailed = "保存邮件失败"
	MsgDispatchQueueFull  = "投递队列已满，请稍后重试"
	MsgInternalError      = "服务器内部错误，请稍后重试"
)
