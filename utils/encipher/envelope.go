package encipher

import (
	"github.com/redlibre/grip/codec"
	"github.com/redlibre/grip/ex"
	"github.com/redlibre/grip/utils"
)

// Encrypt 加密文本,返回 base64(nonce‖ciphertext)
func Encrypt(plaintext string, key Key) (string, error) {
	if len(key) != utils.AES_KEY_SIZE {
		return "", ex.Throw{Code: ex.BIZ, Msg: "conversation key size invalid"}
	}
	sealed, err := utils.AesGCMEncrypt([]byte(plaintext), key)
	if err != nil {
		return "", ex.Throw{Code: ex.SYSTEM, Msg: "failed to encrypt text", Err: err}
	}
	return codec.EncodeBase64(sealed), nil
}

// Decrypt 解密信封,格式错误、密钥错误或数据被篡改均返回DECRYPT异常
func Decrypt(envelope string, key Key) (string, error) {
	if len(key) != utils.AES_KEY_SIZE {
		return "", ex.Throw{Code: ex.DECRYPT, Msg: "conversation key size invalid"}
	}
	data, err := codec.DecodeBase64(envelope)
	if err != nil {
		return "", ex.Throw{Code: ex.DECRYPT, Msg: "envelope is not valid base64", Err: err}
	}
	if len(data) < utils.GCM_NONCE_SIZE+utils.GCM_TAG_SIZE {
		return "", ex.Throw{Code: ex.DECRYPT, Msg: "envelope too short"}
	}
	plain, err := utils.AesGCMDecrypt(data, key)
	if err != nil {
		return "", ex.Throw{Code: ex.DECRYPT, Msg: ex.DECRYPT_ERR, Err: err}
	}
	return string(plain), nil
}
