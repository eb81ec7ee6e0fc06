package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// ErrInvalidCiphertext 密文格式非法或密钥不匹配。
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

const nonceSize = 24

// Keeper 对账户口令做可逆的对称加密。
//
// 口令发信时要还原成明文交给 SMTP 认证，所以不能用单向哈希。
// 密钥为空时退化为明文直通，仅限本地开发。
type Keeper struct {
	key *[32]byte
}

// NewKeeper 创建加密器。key 必须是 32 字节或 nil。
func NewKeeper(key []byte) (*Keeper, error) {
	if key == nil {
		return &Keeper{}, nil
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("密钥必须是 32 字节，当前 %d 字节", len(key))
	}
	var fixed [32]byte
	copy(fixed[:], key)
	return &Keeper{key: &fixed}, nil
}

// Seal 加密明文，返回 base64 编码的 nonce+密文。
func (k *Keeper) Seal(plaintext string) (string, error) {
	if k.key == nil {
		return plaintext, nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("生成随机 nonce 失败: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, k.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open 解密 Seal 的输出。
func (k *Keeper) Open(sealed string) (string, error) {
	if k.key == nil {
		return sealed, nil
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(raw) < nonceSize {
		return "", ErrInvalidCiphertext
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, k.key)
	if !ok {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}
