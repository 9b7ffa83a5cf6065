package codec

import (
	"bytes"

	"github.com/redlibre/grip/ex"
	"github.com/redlibre/grip/utils"
	"github.com/valyala/fastjson"
)

var parserPool fastjson.ParserPool

var nullJson = []byte("null")

type jsonCodec struct{}

// JSON 文本帧编解码器
var JSON Codec = jsonCodec{}

func (jsonCodec) Name() string {
	return JSON_CODEC
}

func (jsonCodec) Binary() bool {
	return false
}

func (jsonCodec) EncodeCall(req *CallRequest) ([]byte, error) {
	if req == nil {
		return nil, ex.Throw{Code: ex.JSON, Msg: "call request is nil"}
	}
	b, err := utils.JsonMarshal(req)
	if err != nil {
		return nil, ex.Throw{Code: ex.JSON, Msg: ex.JSON_ERR, Err: err}
	}
	return b, nil
}

func (jsonCodec) DecodeResponse(body []byte) (*CallResponse, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, ex.Throw{Code: ex.MALFORMED, Msg: "response is not valid JSON", Err: err}
	}
	if v.Type() != fastjson.TypeObject {
		return nil, ex.Throw{Code: ex.MALFORMED, Msg: "response is not an object"}
	}
	idv := v.Get("id")
	if idv == nil || idv.Type() != fastjson.TypeString || len(idv.GetStringBytes()) == 0 {
		return nil, ex.Throw{Code: ex.MALFORMED, Msg: "response id missing"}
	}
	resp := &CallResponse{ID: string(idv.GetStringBytes())}
	if ev := v.Get("error"); ev != nil {
		switch ev.Type() {
		case fastjson.TypeNull, fastjson.TypeFalse:
		case fastjson.TypeString:
			if s := ev.GetStringBytes(); len(s) > 0 {
				resp.HasError = true
				resp.Error = string(s)
			}
		default:
			resp.HasError = true
			resp.Error = string(ev.MarshalTo(nil))
		}
	}
	if dv := v.Get("data"); dv != nil && !resp.HasError {
		resp.Data = dv.MarshalTo(nil)
	}
	return resp, nil
}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	if v == nil {
		return nullJson, nil
	}
	return utils.JsonMarshal(v)
}

func (jsonCodec) Unmarshal(raw []byte, v interface{}) error {
	if len(raw) == 0 || bytes.Equal(raw, nullJson) {
		return nil
	}
	if err := utils.JsonUnmarshal(raw, v); err != nil {
		return ex.Throw{Code: ex.JSON, Msg: ex.JSON_ERR, Err: err}
	}
	return nil
}
