package register

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	t.Run("没有状态文件时允许启动", func(t *testing.T) {
		reg := New(t.TempDir())
		assert.NoError(t, reg.EnsureSingleInstance())
	})

	t.Run("活跃实例存在时拒绝启动", func(t *testing.T) {
		reg := New(t.TempDir())
		require.NoError(t, reg.UpdateStatus("127.0.0.1", 8080, true))
		assert.ErrorIs(t, reg.EnsureSingleInstance(), ErrAlreadyRunning)
	})

	t.Run("实例已退出时允许启动", func(t *testing.T) {
		reg := New(t.TempDir())
		require.NoError(t, reg.UpdateStatus("127.0.0.1", 8080, false))
		assert.NoError(t, reg.EnsureSingleInstance())
	})

	t.Run("损坏的状态文件视为没有实例", func(t *testing.T) {
		dir := t.TempDir()
		reg := New(dir)
		require.NoError(t, reg.UpdateStatus("127.0.0.1", 8080, true))
		// 手工破坏文件内容
		require.NoError(t, os.WriteFile(reg.Path(), []byte("{not json"), 0o644))
		assert.NoError(t, reg.EnsureSingleInstance())
	})
}
