package secret

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeeper(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)

	t.Run("加密后可解回原文", func(t *testing.T) {
		keeper, err := NewKeeper(key)
		require.NoError(t, err)

		sealed, err := keeper.Seal("p@ssw0rd")
		require.NoError(t, err)
		assert.NotEqual(t, "p@ssw0rd", sealed)

		opened, err := keeper.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, "p@ssw0rd", opened)
	})

	t.Run("两次加密产生不同密文", func(t *testing.T) {
		keeper, err := NewKeeper(key)
		require.NoError(t, err)

		first, err := keeper.Seal("same")
		require.NoError(t, err)
		second, err := keeper.Seal("same")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("密钥不匹配时解密失败", func(t *testing.T) {
		keeper, err := NewKeeper(key)
		require.NoError(t, err)
		other, err := NewKeeper(bytes.Repeat([]byte{0x24}, 32))
		require.NoError(t, err)

		sealed, err := keeper.Seal("secret")
		require.NoError(t, err)
		_, err = other.Open(sealed)
		assert.ErrorIs(t, err, ErrInvalidCiphertext)
	})

	t.Run("非法密文返回ErrInvalidCiphertext", func(t *testing.T) {
		keeper, err := NewKeeper(key)
		require.NoError(t, err)
		_, err = keeper.Open("not-base64!!!")
		assert.ErrorIs(t, err, ErrInvalidCiphertext)
		_, err = keeper.Open("c2hvcnQ=")
		assert.ErrorIs(t, err, ErrInvalidCiphertext)
	})

	t.Run("空密钥时明文直通", func(t *testing.T) {
		keeper, err := NewKeeper(nil)
		require.NoError(t, err)
		sealed, err := keeper.Seal("plain")
		require.NoError(t, err)
		assert.Equal(t, "plain", sealed)
	})

	t.Run("长度不对的密钥被拒绝", func(t *testing.T) {
		_, err := NewKeeper([]byte("short"))
		assert.Error(t, err)
	})
}
