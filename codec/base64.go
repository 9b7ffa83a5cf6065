package codec

import (
	"encoding/base64"
	"sync"

	"github.com/redlibre/grip/ex"
	"github.com/redlibre/grip/utils"
)

// 解码缓冲池按编码长度分级,超过最大档位直接分配
var decodePools = []struct {
	limit int
	pool  *sync.Pool
}{
	{64, newBufPool(48)},
	{256, newBufPool(192)},
	{1024, newBufPool(768)},
	{4096, newBufPool(3072)},
}

func newBufPool(size int) *sync.Pool {
	return &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, size)
			return &buf
		},
	}
}

// EncodeBase64 二进制转标准base64文本
func EncodeBase64(input []byte) string {
	if len(input) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(input)
}

// DecodeBase64 标准base64文本转二进制,非法输入返回MALFORMED异常
func DecodeBase64(input string) ([]byte, error) {
	if len(input) == 0 {
		return []byte{}, nil
	}
	src := utils.Str2Bytes(input)
	for _, v := range decodePools {
		if len(src) > v.limit {
			continue
		}
		bufPtr := v.pool.Get().(*[]byte)
		n, err := base64.StdEncoding.Decode(*bufPtr, src)
		if err != nil {
			v.pool.Put(bufPtr)
			return nil, ex.Throw{Code: ex.MALFORMED, Msg: "invalid base64 input", Err: err}
		}
		result := make([]byte, n)
		copy(result, (*bufPtr)[:n])
		v.pool.Put(bufPtr)
		return result, nil
	}
	result := make([]byte, base64.StdEncoding.DecodedLen(len(src)))
	n, err := base64.StdEncoding.Decode(result, src)
	if err != nil {
		return nil, ex.Throw{Code: ex.MALFORMED, Msg: "invalid base64 input", Err: err}
	}
	return result[:n], nil
}

// Bytes 以base64文本传输的二进制字段
// 解码时同时兼容数字数组形式
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	return utils.JsonMarshal(EncodeBase64(b))
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*b = nil
		return nil
	}
	if data[0] == '[' {
		var arr []int
		if err := utils.JsonUnmarshal(data, &arr); err != nil {
			return ex.Throw{Code: ex.MALFORMED, Msg: "invalid byte array", Err: err}
		}
		out := make([]byte, len(arr))
		for i, v := range arr {
			if v < 0 || v > 255 {
				return ex.Throw{Code: ex.MALFORMED, Msg: "byte value out of range"}
			}
			out[i] = byte(v)
		}
		*b = out
		return nil
	}
	var s string
	if err := utils.JsonUnmarshal(data, &s); err != nil {
		return ex.Throw{Code: ex.MALFORMED, Msg: "invalid base64 field", Err: err}
	}
	r, err := DecodeBase64(s)
	if err != nil {
		return err
	}
	*b = r
	return nil
}
