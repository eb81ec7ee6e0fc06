package domain

import (
	"encoding/base64"
	"errors"
	"strings"
)

var (
	ErrFilenameExtension = errors.New("attachment filename must have a valid extension")
	ErrInlineNotImage    = errors.New("inline attachment must be an image")
	ErrContentNotBase64  = errors.New("attachment content is not valid base64")
)

// inlineImageExtensions 允许内嵌显示的图片扩展名。
var inlineImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// AttachmentManifest 描述一个附件：原始内容（base64）与可选的内嵌标识。
//
// CID 非空时该附件作为 HTML 内嵌资源发送，文件名必须是图片扩展名。
type AttachmentManifest struct {
	Filename     string `json:"filename"`
	CID          string `json:"cid,omitempty"`
	ContentBytes string `json:"contentBytes"`
}

// Validate 校验附件描述是否可以发送。
func (a AttachmentManifest) Validate() error {
	if !hasValidExtension(a.Filename) {
		return ErrFilenameExtension
	}
	if a.CID != "" && !isInlineImage(a.Filename) {
		return ErrInlineNotImage
	}
	return nil
}

// DecodedContent 解码附件的原始字节。
func (a AttachmentManifest) DecodedContent() ([]byte, error) {
	content, err := base64.StdEncoding.DecodeString(a.ContentBytes)
	if err != nil {
		return nil, ErrContentNotBase64
	}
	return content, nil
}

// hasValidExtension 文件名必须包含非首、非尾的扩展名分隔点。
func hasValidExtension(filename string) bool {
	if !strings.Contains(filename, ".") {
		return false
	}
	if strings.HasPrefix(filename, ".") || strings.HasSuffix(filename, ".") {
		return false
	}
	return true
}

func isInlineImage(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range inlineImageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
