package ex

import (
	"errors"
	"strings"

	"github.com/redlibre/grip/utils"
)

const (
	SEP     = "∵∴"
	BIZ     = 100000 // 普通业务异常
	JSON    = 999994 // JSON转换异常
	DATA    = 999996 // 数据服务异常
	CACHE   = 999997 // 缓存服务异常
	SYSTEM  = 999998 // 系统级异常
	UNKNOWN = 999999 // 未知异常

	CONNECT   = 700001 // 无法建立连接
	CONN_LOST = 700002 // 已建立的连接中断
	TIMEOUT   = 700003 // 调用超时
	REMOTE    = 700004 // 远端返回错误
	DECRYPT   = 700005 // 解密或认证失败
	MALFORMED = 700006 // 无法解析的数据
	CLOSED    = 700007 // 客户端已关闭
)

const (
	JSON_ERR      = "failed to respond to JSON data"
	DATA_ERR      = "failed to loaded data service"
	CONNECT_ERR   = "failed to connect remote peer"
	CONN_LOST_ERR = "connection to remote peer lost"
	TIMEOUT_ERR   = "remote call timeout"
	DECRYPT_ERR   = "failed to decrypt envelope"
	CLOSED_ERR    = "client closed"
)

// Throw 统一异常对象,按Code区分类别
type Throw struct {
	Code int
	Msg  string
	Url  string
	Err  error
}

func (self Throw) Error() string {
	if self.Code == 0 {
		self.Code = BIZ
	}
	return utils.AddStr(self.Code, SEP, self.Msg, SEP, self.Url)
}

func (self Throw) Unwrap() error {
	return self.Err
}

// Is Code相同即视为同类异常,目标Msg非空时需同时匹配Msg
func (self Throw) Is(target error) bool {
	var t Throw
	switch v := target.(type) {
	case Throw:
		t = v
	case *Throw:
		if v == nil {
			return false
		}
		t = *v
	default:
		return false
	}
	if t.Code != self.Code {
		return false
	}
	return len(t.Msg) == 0 || t.Msg == self.Msg
}

// Code 读取错误链中的异常码,非Throw返回UNKNOWN
func Code(err error) int {
	if err == nil {
		return 0
	}
	var t Throw
	if errors.As(err, &t) {
		return t.Code
	}
	return UNKNOWN
}

// IsCode 判断错误链中是否存在指定异常码
func IsCode(err error, code int) bool {
	return errors.Is(err, Throw{Code: code})
}

func Catch(err error) Throw {
	var t Throw
	if errors.As(err, &t) {
		return t
	}
	spl := strings.Split(err.Error(), SEP)
	if len(spl) == 1 {
		return Throw{Code: UNKNOWN, Msg: spl[0], Err: err}
	} else if len(spl) == 2 || len(spl) == 3 {
		c, e := utils.StrToInt(spl[0])
		if e != nil {
			return Throw{Code: SYSTEM, Msg: e.Error(), Err: err}
		}
		t = Throw{Code: c, Msg: spl[1], Err: err}
		if len(spl) == 3 {
			t.Url = spl[2]
		}
		return t
	}
	return Throw{Code: UNKNOWN, Msg: "failed to catch exception", Err: err}
}
