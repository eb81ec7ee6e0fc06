package mdx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ctxFromJSON(t *testing.T, raw string) Value {
	t.Helper()
	var decoded interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	return FromAny(decoded)
}

func TestRender(t *testing.T) {
	t.Run("顶层占位符替换", func(t *testing.T) {
		ctx := ctxFromJSON(t, `{"name":"王工","count":3}`)
		out, err := Render("你好 {name}，共 {count} 条。", ctx)
		assert.NoError(t, err)
		assert.Equal(t, "你好 王工，共 3 条。", out)
	})

	t.Run("repeat块按序列展开并换行拼接", func(t *testing.T) {
		ctx := ctxFromJSON(t, `{
			"rows": [
				{"sku": "A-1", "qty": 2},
				{"sku": "B-7", "qty": 5}
			],
			"total": 7
		}`)
		template := "<ul>\n::repeat rows\n<li>{sku} x{qty}</li>::endrepeat\n</ul>\n合计 {total}"
		out, err := Render(template, ctx)
		assert.NoError(t, err)
		assert.Equal(t, "<ul>\n<li>A-1 x2</li>\n<li>B-7 x5</li>\n</ul>\n合计 7", out)
	})

	t.Run("repeat目标支持点分路径", func(t *testing.T) {
		ctx := ctxFromJSON(t, `{"report":{"lines":[{"v":"x"},{"v":"y"}]}}`)
		out, err := Render("::repeat report.lines\n{v}::endrepeat", ctx)
		assert.NoError(t, err)
		assert.Equal(t, "x\ny", out)
	})

	t.Run("空序列展开为空串", func(t *testing.T) {
		ctx := ctxFromJSON(t, `{"rows":[]}`)
		out, err := Render("头\n::repeat rows\n{v}::endrepeat\n尾", ctx)
		assert.NoError(t, err)
		assert.Equal(t, "头\n\n尾", out)
	})

	t.Run("repeat目标不是序列时报错", func(t *testing.T) {
		ctx := ctxFromJSON(t, `{"rows":{"v":1}}`)
		_, err := Render("::repeat rows\n{v}::endrepeat", ctx)
		assert.ErrorIs(t, err, ErrRender)
	})

	t.Run("repeat路径缺失时报错", func(t *testing.T) {
		ctx := ctxFromJSON(t, `{"other":[]}`)
		_, err := Render("::repeat report.lines\n{v}::endrepeat", ctx)
		assert.ErrorIs(t, err, ErrRender)
	})

	t.Run("块内占位符缺值时报错", func(t *testing.T) {
		ctx := ctxFromJSON(t, `{"rows":[{"sku":"A"}]}`)
		_, err := Render("::repeat rows\n{sku} {missing}::endrepeat", ctx)
		assert.ErrorIs(t, err, ErrRender)
	})

	t.Run("顶层占位符缺值时报错", func(t *testing.T) {
		ctx := ctxFromJSON(t, `{}`)
		_, err := Render("你好 {name}", ctx)
		assert.ErrorIs(t, err, ErrRender)
	})

	t.Run("无占位符的模板原样返回", func(t *testing.T) {
		out, err := Render("纯文本，没有占位符。", FromAny(map[string]interface{}{}))
		assert.NoError(t, err)
		assert.Equal(t, "纯文本，没有占位符。", out)
	})
}
