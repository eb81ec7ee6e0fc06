package mdx

import "fmt"

// Kind 标记 Value 的结构形态。
type Kind int

const (
	KindScalar Kind = iota
	KindMapping
	KindSequence
)

// Value 是渲染器遍历的统一结构值：映射、序列或标量三者之一。
//
// 调用方在边界处用 FromAny 把自己的数据（JSON 解码结果等）适配成这个形态，
// 渲染器只做键查找，不做任何反射式的属性访问。
type Value struct {
	kind     Kind
	mapping  map[string]Value
	sequence []Value
	scalar   interface{}
}

// FromAny 把常见的动态数据适配为 Value。
//
// map[string]interface{} 视为映射，[]interface{} 视为序列，其余一律视为标量。
func FromAny(v interface{}) Value {
	switch typed := v.(type) {
	case map[string]interface{}:
		mapping := make(map[string]Value, len(typed))
		for key, item := range typed {
			mapping[key] = FromAny(item)
		}
		return Value{kind: KindMapping, mapping: mapping}
	case []interface{}:
		sequence := make([]Value, 0, len(typed))
		for _, item := range typed {
			sequence = append(sequence, FromAny(item))
		}
		return Value{kind: KindSequence, sequence: sequence}
	case Value:
		return typed
	default:
		return Value{kind: KindScalar, scalar: v}
	}
}

// Kind 返回结构形态。
func (v Value) Kind() Kind {
	return v.kind
}

// Get 按键查找映射成员。
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	item, ok := v.mapping[key]
	return item, ok
}

// Items 返回序列成员。
func (v Value) Items() []Value {
	return v.sequence
}

// text 渲染为替换文本。整值浮点（JSON 数字的默认形态）输出不带小数点。
func (v Value) text() string {
	if v.kind == KindScalar {
		return fmt.Sprintf("%v", v.scalar)
	}
	return fmt.Sprintf("%v", v.toAny())
}

func (v Value) toAny() interface{} {
	switch v.kind {
	case KindMapping:
		out := make(map[string]interface{}, len(v.mapping))
		for key, item := range v.mapping {
			out[key] = item.toAny()
		}
		return out
	case KindSequence:
		out := make([]interface{}, 0, len(v.sequence))
		for _, item := range v.sequence {
			out = append(out, item.toAny())
		}
		return out
	default:
		return v.scalar
	}
}
