package mdx

import (
	"fmt"
	"regexp"
	"strings"
)

// ErrRender 模板渲染失败（目标不是序列、路径缺失、占位符无值等）。
var ErrRender = fmt.Errorf("mdx: 渲染失败")

var (
	// ::repeat items.rows 与 ::endrepeat 之间的块，块体跨行。
	repeatPattern = regexp.MustCompile(`(?s)::repeat[ \t]+([\w.]+)[ \t]*\n(.*?)::endrepeat`)

	placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)
)

// Render 渲染 mdx 模板。
//
// 先把每个 ::repeat 块按点分路径取出序列，对序列每个成员用 {field}
// 占位符展开块体并以换行拼接；最后对整篇结果做一次顶层占位符替换，
// 所以块体外的 {field} 也会从顶层上下文取值。
//
// 任何路径缺失、重复目标不是序列、占位符在上下文中无值，都返回
// 包装了 ErrRender 的错误，输出为空串。
func Render(template string, ctx Value) (string, error) {
	var renderErr error

	expanded := repeatPattern.ReplaceAllStringFunc(template, func(block string) string {
		if renderErr != nil {
			return block
		}
		groups := repeatPattern.FindStringSubmatch(block)
		path, body := groups[1], strings.Trim(groups[2], "\n")

		target, err := resolvePath(ctx, path)
		if err != nil {
			renderErr = err
			return block
		}
		if target.Kind() != KindSequence {
			renderErr = fmt.Errorf("%w: %s 不是序列", ErrRender, path)
			return block
		}

		parts := make([]string, 0, len(target.Items()))
		for i, item := range target.Items() {
			rendered, err := substitute(body, item)
			if err != nil {
				renderErr = fmt.Errorf("%s[%d]: %w", path, i, err)
				return block
			}
			parts = append(parts, rendered)
		}
		return strings.Join(parts, "\n")
	})
	if renderErr != nil {
		return "", renderErr
	}

	return substitute(expanded, ctx)
}

// resolvePath 沿点分路径逐级查映射。
func resolvePath(ctx Value, path string) (Value, error) {
	current := ctx
	for _, segment := range strings.Split(path, ".") {
		next, ok := current.Get(segment)
		if !ok {
			return Value{}, fmt.Errorf("%w: 路径 %s 在 %s 处缺失", ErrRender, path, segment)
		}
		current = next
	}
	return current, nil
}

// substitute 把 s 中的 {field} 替换为 ctx 对应键的文本。
func substitute(s string, ctx Value) (string, error) {
	var substErr error
	out := placeholderPattern.ReplaceAllStringFunc(s, func(placeholder string) string {
		if substErr != nil {
			return placeholder
		}
		key := placeholder[1 : len(placeholder)-1]
		value, ok := ctx.Get(key)
		if !ok {
			substErr = fmt.Errorf("%w: 占位符 {%s} 无值", ErrRender, key)
			return placeholder
		}
		return value.text()
	})
	if substErr != nil {
		return "", substErr
	}
	return out, nil
}
