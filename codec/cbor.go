package codec

import (
	"bytes"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/redlibre/grip/ex"
	"github.com/redlibre/grip/utils"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	nullCbor = []byte{0xf6}
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

type cborResponse struct {
	ID    string          `cbor:"id"`
	Data  cbor.RawMessage `cbor:"data"`
	Error interface{}     `cbor:"error"`
}

type cborCodec struct{}

// CBOR 二进制帧编解码器
var CBOR Codec = cborCodec{}

func (cborCodec) Name() string {
	return CBOR_CODEC
}

func (cborCodec) Binary() bool {
	return true
}

func (cborCodec) EncodeCall(req *CallRequest) ([]byte, error) {
	if req == nil {
		return nil, ex.Throw{Code: ex.DATA, Msg: "call request is nil"}
	}
	b, err := encMode.Marshal(req)
	if err != nil {
		return nil, ex.Throw{Code: ex.DATA, Msg: "failed to encode CBOR call", Err: err}
	}
	return b, nil
}

func (cborCodec) DecodeResponse(body []byte) (*CallResponse, error) {
	var r cborResponse
	if err := decMode.Unmarshal(body, &r); err != nil {
		return nil, ex.Throw{Code: ex.MALFORMED, Msg: "response is not valid CBOR", Err: err}
	}
	if len(r.ID) == 0 {
		return nil, ex.Throw{Code: ex.MALFORMED, Msg: "response id missing"}
	}
	resp := &CallResponse{ID: r.ID}
	switch e := r.Error.(type) {
	case nil:
	case bool:
		if e {
			resp.HasError = true
			resp.Error = "true"
		}
	case string:
		if len(e) > 0 {
			resp.HasError = true
			resp.Error = e
		}
	default:
		resp.HasError = true
		resp.Error = utils.AnyToStr(e)
	}
	if !resp.HasError && len(r.Data) > 0 {
		resp.Data = []byte(r.Data)
	}
	return resp, nil
}

func (cborCodec) Marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

func (cborCodec) Unmarshal(raw []byte, v interface{}) error {
	if len(raw) == 0 || bytes.Equal(raw, nullCbor) {
		return nil
	}
	if err := decMode.Unmarshal(raw, v); err != nil {
		return ex.Throw{Code: ex.DATA, Msg: "failed to decode CBOR result", Err: err}
	}
	return nil
}
