package domain

// SignatureBundle 由签名键解析出的可拼接内容：
// 重写后的 HTML 片段与每个内嵌资源对应的附件描述。
type SignatureBundle struct {
	HTML        string               `json:"html"`
	Attachments []AttachmentManifest `json:"attachments"`
}
