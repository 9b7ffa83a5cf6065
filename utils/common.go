package utils

import (
	"bytes"
	"errors"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	"unsafe"

	"github.com/google/uuid"
)

// AddStr 高性能拼接字符串
func AddStr(input ...interface{}) string {
	if len(input) == 0 {
		return ""
	}
	var rstr bytes.Buffer
	for _, vs := range input {
		switch v := vs.(type) {
		case string:
			rstr.WriteString(v)
		case []byte:
			rstr.Write(v)
		case error:
			rstr.WriteString(v.Error())
		default:
			rstr.WriteString(AnyToStr(vs))
		}
	}
	return rstr.String()
}

// Error 高性能拼接错误对象
func Error(input ...interface{}) error {
	return errors.New(AddStr(input...))
}

// StrToInt string to int
func StrToInt(str string) (int, error) {
	b, err := strconv.Atoi(str)
	if err != nil {
		return 0, errors.New("string to int failed")
	}
	return b, nil
}

// AnyToStr 基础类型转字符串,复杂类型转JSON
func AnyToStr(any interface{}) string {
	if any == nil {
		return ""
	}
	switch v := any.(type) {
	case string:
		return v
	case []byte:
		return Bytes2Str(v)
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Duration:
		return v.String()
	default:
		ret, err := JsonMarshal(any)
		if err != nil {
			log.Println("any to json failed: ", err)
			return ""
		}
		return Bytes2Str(ret)
	}
}

// GetUUID 获取UUID,replace=true时去掉横杠
func GetUUID(replace ...bool) string {
	uid, err := uuid.NewRandom()
	if err != nil {
		log.Println("uuid failed:", err)
	}
	if len(replace) > 0 && replace[0] {
		return strings.ReplaceAll(uid.String(), "-", "")
	}
	return uid.String()
}

// UnixSecond 当前秒级时间戳,与远端消息时间戳单位一致
func UnixSecond() int64 {
	return time.Now().Unix()
}

// SortedPair 按字典序返回两个字符串
func SortedPair(a, b string) (string, string) {
	s := []string{a, b}
	sort.Strings(s)
	return s[0], s[1]
}

// ReadFile 读取文件
func ReadFile(path string) ([]byte, error) {
	if len(path) == 0 {
		return nil, Error("path is nil")
	}
	return os.ReadFile(path)
}

// Str2Bytes 字符串转字节数组,返回值只读
func Str2Bytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// Bytes2Str 字节数组转字符串
func Bytes2Str(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}
