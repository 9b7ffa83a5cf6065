package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

const (
	AES_KEY_SIZE   = 32 // AES-256
	GCM_NONCE_SIZE = 12
	GCM_TAG_SIZE   = 16
)

// GetRandomSecure 获取指定长度的安全随机字节
func GetRandomSecure(l int) ([]byte, error) {
	if l <= 0 {
		return nil, errors.New("random length invalid")
	}
	b := make([]byte, l)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != AES_KEY_SIZE {
		return nil, errors.New("aes key size invalid")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// AesGCMEncrypt AES-GCM加密,每次生成新的12字节nonce,返回 nonce‖ciphertext‖tag
func AesGCMEncrypt(plainText, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce, err := GetRandomSecure(GCM_NONCE_SIZE)
	if err != nil {
		return nil, err
	}
	out := make([]byte, GCM_NONCE_SIZE, GCM_NONCE_SIZE+len(plainText)+GCM_TAG_SIZE)
	copy(out, nonce)
	return gcm.Seal(out, nonce, plainText, nil), nil
}

// AesGCMDecrypt AES-GCM解密,输入为 nonce‖ciphertext‖tag
func AesGCMDecrypt(data, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(data) < GCM_NONCE_SIZE+GCM_TAG_SIZE {
		return nil, errors.New("aes-gcm data too short")
	}
	return gcm.Open(nil, data[:GCM_NONCE_SIZE], data[GCM_NONCE_SIZE:], nil)
}
