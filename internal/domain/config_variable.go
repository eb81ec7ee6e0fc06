package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ConfigVarType 配置变量的取值类型。
type ConfigVarType string

const (
	ConfigVarString  ConfigVarType = "string"
	ConfigVarInteger ConfigVarType = "integer"
	ConfigVarFloat   ConfigVarType = "float"
	ConfigVarBoolean ConfigVarType = "boolean"
	ConfigVarJSON    ConfigVarType = "json"
)

// 内置配置变量键。
const (
	// ConfigKeyMaxLogHistoryLength 投递日志表的容量上限。
	ConfigKeyMaxLogHistoryLength = "maxLogHistoryLength"
	// ConfigKeyMaxMsgAntiquity 邮件的最长保留秒数，供外部清理任务使用。
	ConfigKeyMaxMsgAntiquity = "maxMsgAntiquity"
)

// ConfigVariable 数据库中的带类型配置项。
type ConfigVariable struct {
	// 列名避开 SQL 保留字 key
	Key         string        `json:"key" gorm:"column:var_key;primaryKey;type:varchar(100)"`
	Value       string        `json:"value" gorm:"type:varchar(500);not null"`
	VarType     ConfigVarType `json:"varType" gorm:"type:varchar(20);not null;default:string"`
	Description string        `json:"description,omitempty" gorm:"type:varchar(300)"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// TypedValue 按声明类型解码 Value。
//
// 解码失败时返回 nil 与错误；boolean 接受 true/1/yes/on（不区分大小写）。
func (v *ConfigVariable) TypedValue() (interface{}, error) {
	switch v.VarType {
	case ConfigVarInteger:
		return strconv.Atoi(v.Value)
	case ConfigVarFloat:
		return strconv.ParseFloat(v.Value, 64)
	case ConfigVarBoolean:
		switch strings.ToLower(v.Value) {
		case "true", "1", "yes", "on":
			return true, nil
		default:
			return false, nil
		}
	case ConfigVarJSON:
		var decoded interface{}
		if err := json.Unmarshal([]byte(v.Value), &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	default:
		return v.Value, nil
	}
}

// IntValue 以整数读取配置值，类型不符或解析失败时返回 false。
func (v *ConfigVariable) IntValue() (int, bool) {
	if v.VarType != ConfigVarInteger {
		return 0, false
	}
	n, err := strconv.Atoi(v.Value)
	if err != nil {
		return 0, false
	}
	return n, true
}
