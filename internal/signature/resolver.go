package signature

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"maildispatch/backend/internal/domain"
)

// ErrSignatureNotFound 指定键的签名片段文件不存在。
var ErrSignatureNotFound = errors.New("signature not found")

// 资源目录里跳过的扩展名：标记语言与元数据文件不作为内嵌资源。
var skippedResourceExtensions = []string{".xml", ".txt", ".htm", ".html"}

// Resolver 从固定目录解析签名片段与内嵌资源。
//
// 目录布局沿用 Outlook 导出格式：<key>.htm 片段文件，旁边可能有
// 以签名键为前缀命名的资源文件夹（如 "<key>_files"）。
type Resolver struct {
	dir    string
	logger *zap.Logger
}

// NewResolver 创建签名解析器。
func NewResolver(dir string, logger *zap.Logger) *Resolver {
	return &Resolver{dir: dir, logger: logger}
}

// List 列出可用的签名键（目录下所有 .htm 文件去掉扩展名）。
//
// 签名目录不存在时视为没有签名，返回空列表而不报错。
func (r *Resolver) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Warn("签名目录不存在", zap.String("dir", r.dir))
			return []string{}, nil
		}
		return nil, fmt.Errorf("读取签名目录失败: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() && strings.HasSuffix(name, ".htm") {
			keys = append(keys, strings.TrimSuffix(name, ".htm"))
		}
	}
	return keys, nil
}

// Resolve 按键解析签名，返回重写后的 HTML 与内嵌资源附件。
//
// 片段按 utf-8 读取，字节序列不合法时回退 latin-1。资源文件夹按
// 签名键做不区分大小写的前缀匹配，多个候选时取名字最长的一个
//（同长按名字典序，保证确定性）。文件夹里每个资源文件被 base64
// 编码为一个附件，HTML 中指向它的 src=/background= 引用改写为
// cid:<文件名>。没有资源文件夹时原样返回片段、附件为空。
func (r *Resolver) Resolve(key string) (domain.SignatureBundle, error) {
	fragmentPath := filepath.Join(r.dir, key+".htm")
	raw, err := os.ReadFile(fragmentPath)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.SignatureBundle{}, fmt.Errorf("%w: %s", ErrSignatureNotFound, key)
		}
		return domain.SignatureBundle{}, fmt.Errorf("读取签名片段失败: %w", err)
	}
	html, err := decodeFragment(raw)
	if err != nil {
		return domain.SignatureBundle{}, err
	}

	folderName := r.findResourceFolder(key)
	attachments := []domain.AttachmentManifest{}
	if folderName != "" {
		folderPath := filepath.Join(r.dir, folderName)
		entries, err := os.ReadDir(folderPath)
		if err != nil {
			return domain.SignatureBundle{}, fmt.Errorf("读取签名资源目录失败: %w", err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if isSkippedResource(name) || !entry.Type().IsRegular() {
				continue
			}
			content, err := os.ReadFile(filepath.Join(folderPath, name))
			if err != nil {
				return domain.SignatureBundle{}, fmt.Errorf("读取签名资源 %s 失败: %w", name, err)
			}

			html = rewriteResourceRefs(html, folderName, name)
			attachments = append(attachments, domain.AttachmentManifest{
				Filename:     name,
				CID:          name,
				ContentBytes: base64.StdEncoding.EncodeToString(content),
			})
		}
	}

	return domain.SignatureBundle{HTML: html, Attachments: attachments}, nil
}

// decodeFragment 优先按 utf-8 解释字节，不合法时按 latin-1 解码。
func decodeFragment(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("签名片段编码无法识别: %w", err)
	}
	return string(decoded), nil
}

// findResourceFolder 找到与签名键前缀匹配的资源文件夹名，没有则返回空串。
func (r *Resolver) findResourceFolder(key string) string {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return ""
	}
	lowerKey := strings.ToLower(key)
	candidates := make([]string, 0, 1)
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(strings.ToLower(entry.Name()), lowerKey) {
			candidates = append(candidates, entry.Name())
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) > len(candidates[j])
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0]
}

func isSkippedResource(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range skippedResourceExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// rewriteResourceRefs 把 HTML 中引用 <folder>/<filename> 的 src=/background=
// 属性值改写为 cid:<filename>。路径分隔符斜杠反斜杠皆可匹配。
func rewriteResourceRefs(html, folder, filename string) string {
	pattern := regexp.MustCompile(
		`(?i)\b((?:src|background)\s*=\s*)(['"])` +
			`([^'"]*?\b` + regexp.QuoteMeta(folder) + `[\\/]` + regexp.QuoteMeta(filename) + `)` +
			`(['"])`,
	)
	return pattern.ReplaceAllStringFunc(html, func(match string) string {
		groups := pattern.FindStringSubmatch(match)
		attrEq, quote := groups[1], groups[2]
		return attrEq + quote + "cid:" + filename + quote
	})
}
