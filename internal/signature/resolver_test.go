package signature

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestResolver_List(t *testing.T) {
	t.Run("列出htm文件的签名键", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "公司签名.htm"), []byte("<p>sig</p>"))
		writeFile(t, filepath.Join(dir, "Personal.htm"), []byte("<p>sig</p>"))
		writeFile(t, filepath.Join(dir, "notes.txt"), []byte("x"))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "Personal_files"), 0o755))

		keys, err := NewResolver(dir, zap.NewNop()).List()
		assert.NoError(t, err)
		assert.ElementsMatch(t, []string{"公司签名", "Personal"}, keys)
	})

	t.Run("目录不存在时返回空列表", func(t *testing.T) {
		keys, err := NewResolver(filepath.Join(t.TempDir(), "missing"), zap.NewNop()).List()
		assert.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("不存在的签名键返回ErrSignatureNotFound", func(t *testing.T) {
		_, err := NewResolver(t.TempDir(), zap.NewNop()).Resolve("ghost")
		assert.ErrorIs(t, err, ErrSignatureNotFound)
	})

	t.Run("没有资源文件夹时原样返回片段", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "Plain.htm"), []byte("<p>此致敬礼</p>"))

		bundle, err := NewResolver(dir, zap.NewNop()).Resolve("Plain")
		assert.NoError(t, err)
		assert.Equal(t, "<p>此致敬礼</p>", bundle.HTML)
		assert.Empty(t, bundle.Attachments)
	})

	t.Run("资源引用被改写为cid且附件一一对应", func(t *testing.T) {
		dir := t.TempDir()
		logo := []byte{0x89, 0x50, 0x4e, 0x47}
		writeFile(t, filepath.Join(dir, "Sig1.htm"),
			[]byte(`<img src="Sig1/logo.png"><img src="http://cdn/other.png">`))
		writeFile(t, filepath.Join(dir, "Sig1", "logo.png"), logo)

		bundle, err := NewResolver(dir, zap.NewNop()).Resolve("Sig1")
		assert.NoError(t, err)
		assert.Equal(t, `<img src="cid:logo.png"><img src="http://cdn/other.png">`, bundle.HTML)
		require.Len(t, bundle.Attachments, 1)
		att := bundle.Attachments[0]
		assert.Equal(t, "logo.png", att.Filename)
		assert.Equal(t, "logo.png", att.CID)
		assert.Equal(t, base64.StdEncoding.EncodeToString(logo), att.ContentBytes)
	})

	t.Run("反斜杠路径与background属性也会改写", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "Sig2.htm"),
			[]byte(`<body background='Sig2_files\bg.jpg'>`))
		writeFile(t, filepath.Join(dir, "Sig2_files", "bg.jpg"), []byte("jpg"))

		bundle, err := NewResolver(dir, zap.NewNop()).Resolve("Sig2")
		assert.NoError(t, err)
		assert.Equal(t, `<body background='cid:bg.jpg'>`, bundle.HTML)
	})

	t.Run("资源文件夹按前缀匹配且取最长名", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "Team.htm"), []byte(`<img src="team_files_archive/a.png">`))
		writeFile(t, filepath.Join(dir, "team_files", "ignored.png"), []byte("short"))
		writeFile(t, filepath.Join(dir, "team_files_archive", "a.png"), []byte("long"))

		bundle, err := NewResolver(dir, zap.NewNop()).Resolve("Team")
		assert.NoError(t, err)
		assert.Contains(t, bundle.HTML, "cid:a.png")
		require.Len(t, bundle.Attachments, 1)
		assert.Equal(t, "a.png", bundle.Attachments[0].Filename)
	})

	t.Run("资源文件夹里的标记文件被跳过", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "Mix.htm"), []byte(`<img src="Mix_files/pic.png">`))
		writeFile(t, filepath.Join(dir, "Mix_files", "pic.png"), []byte("png"))
		writeFile(t, filepath.Join(dir, "Mix_files", "filelist.xml"), []byte("<xml/>"))
		writeFile(t, filepath.Join(dir, "Mix_files", "theme.txt"), []byte("txt"))

		bundle, err := NewResolver(dir, zap.NewNop()).Resolve("Mix")
		assert.NoError(t, err)
		require.Len(t, bundle.Attachments, 1)
		assert.Equal(t, "pic.png", bundle.Attachments[0].Filename)
	})

	t.Run("latin1编码的片段可以读取", func(t *testing.T) {
		dir := t.TempDir()
		// "Señor" 的 latin-1 字节，0xF1 不是合法的 utf-8 序列。
		writeFile(t, filepath.Join(dir, "Latin.htm"), []byte{'S', 'e', 0xF1, 'o', 'r'})

		bundle, err := NewResolver(dir, zap.NewNop()).Resolve("Latin")
		assert.NoError(t, err)
		assert.Equal(t, "Señor", bundle.HTML)
	})
}
