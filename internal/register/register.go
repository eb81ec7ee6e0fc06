package register

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ErrAlreadyRunning 状态文件显示已有活跃实例。
var ErrAlreadyRunning = errors.New("another instance is already active")

// Status 实例注册文件的内容：当前服务的地址与存活标记。
// 同机的客户端通过这个文件发现服务。
type Status struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	IsActive bool   `json:"is_active"`
}

// Register 管理单实例状态文件。
type Register struct {
	path string
}

// New 创建注册器。dir 为空时使用系统应用数据目录。
func New(dir string) *Register {
	if dir == "" {
		dir = appDataDir()
	}
	return &Register{path: filepath.Join(dir, "maildispatch", "api_status.json")}
}

// Path 返回状态文件路径。
func (r *Register) Path() string {
	return r.path
}

// EnsureSingleInstance 检查是否已有活跃实例。
//
// 状态文件缺失或损坏视为没有实例在跑；is_active 为真时
// 返回 ErrAlreadyRunning，调用方应当退出。
func (r *Register) EnsureSingleInstance() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil
	}
	var status Status
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil
	}
	if status.IsActive {
		return fmt.Errorf("%w: %s:%d", ErrAlreadyRunning, status.Host, status.Port)
	}
	return nil
}

// UpdateStatus 写入当前实例的地址与存活标记。
func (r *Register) UpdateStatus(host string, port int, isActive bool) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("创建注册目录失败: %w", err)
	}
	raw, err := json.MarshalIndent(Status{Host: host, Port: port, IsActive: isActive}, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, raw, 0o644)
}

// appDataDir 各系统的应用数据目录。
func appDataDir() string {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir
		}
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share")
	}
	return "."
}
