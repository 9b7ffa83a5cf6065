package codec

import (
	"strings"

	"github.com/redlibre/grip/utils"
)

const (
	JSON_CODEC = "json"
	CBOR_CODEC = "cbor"

	CALL_TYPE = "call"
)

// CallData 远端调用目标与参数
type CallData struct {
	Cell     string      `json:"cell" cbor:"cell"`
	Zome     string      `json:"zome,omitempty" cbor:"zome,omitempty"`
	Function string      `json:"function" cbor:"function"`
	Payload  interface{} `json:"payload" cbor:"payload"`
}

// CallRequest 出站调用报文 {id, type:"call", data}
type CallRequest struct {
	ID   string   `json:"id" cbor:"id"`
	Type string   `json:"type" cbor:"type"`
	Data CallData `json:"data" cbor:"data"`
}

// CallResponse 入站响应报文 {id, data} 或 {id, error}
// Data 为尚未解码的原始结果,由同一个Codec的Unmarshal解析
type CallResponse struct {
	ID       string
	Data     []byte
	Error    string
	HasError bool
}

// Codec 报文编解码器
type Codec interface {
	// Name 编解码器名称,json或cbor
	Name() string
	// Binary 是否使用二进制帧传输
	Binary() bool
	// EncodeCall 序列化出站调用
	EncodeCall(req *CallRequest) ([]byte, error)
	// DecodeResponse 解析入站响应,无法解析或缺少id时返回MALFORMED异常
	DecodeResponse(body []byte) (*CallResponse, error)
	// Marshal 序列化任意对象
	Marshal(v interface{}) ([]byte, error)
	// Unmarshal 将原始结果解码到目标对象,空结果或null保持目标不变
	Unmarshal(raw []byte, v interface{}) error
}

// New 根据名称创建编解码器,默认json
func New(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", JSON_CODEC:
		return JSON, nil
	case CBOR_CODEC:
		return CBOR, nil
	}
	return nil, utils.Error("codec not supported: ", name)
}

// NewCallRequest 构建出站调用
func NewCallRequest(id, cell, zome, function string, payload interface{}) *CallRequest {
	return &CallRequest{
		ID:   id,
		Type: CALL_TYPE,
		Data: CallData{
			Cell:     cell,
			Zome:     zome,
			Function: function,
			Payload:  payload,
		},
	}
}
