package utils

import (
	"bytes"
	"errors"

	jsonIterator "github.com/json-iterator/go"
	"github.com/valyala/fastjson"
)

var json = jsonIterator.ConfigCompatibleWithStandardLibrary

// JsonMarshal 对象转JSON字符串
func JsonMarshal(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, errors.New("data is nil")
	}
	return json.Marshal(v)
}

// JsonMarshalIndent 对象转JSON字符串,格式化
func JsonMarshalIndent(v interface{}, p, indent string) ([]byte, error) {
	if v == nil {
		return nil, errors.New("data is nil")
	}
	return json.MarshalIndent(v, p, indent)
}

// JsonValid 校验JSON格式是否合法
func JsonValid(b []byte) bool {
	return fastjson.ValidateBytes(b) == nil
}

// JsonUnmarshal JSON字符串转对象
func JsonUnmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if !JsonValid(data) {
		return errors.New("JSON format invalid")
	}
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	return d.Decode(v)
}

func GetJsonString(b []byte, k ...string) string {
	return fastjson.GetString(b, k...)
}

func GetJsonInt64(b []byte, k ...string) int64 {
	return int64(fastjson.GetInt(b, k...))
}

func GetJsonBool(b []byte, k ...string) bool {
	return fastjson.GetBool(b, k...)
}

// GetJsonObjectBytes 读取子节点原始JSON
func GetJsonObjectBytes(b []byte, k string) []byte {
	value, err := ParseJsonValue(b)
	if err != nil {
		return nil
	}
	v := value.Get(k)
	if v == nil {
		return nil
	}
	return v.MarshalTo(nil)
}

// ParseJsonValue 例如: v.Get("a").Get("b").MarshalTo(nil)
func ParseJsonValue(b []byte) (*fastjson.Value, error) {
	var p fastjson.Parser
	return p.ParseBytes(b)
}
