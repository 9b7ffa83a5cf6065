package node

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	DIC "github.com/redlibre/grip/common"
	"github.com/redlibre/grip/utils"
	"github.com/redlibre/grip/zlog"
	"golang.org/x/net/proxy"
)

// Conn 单条物理连接,ReadMessage 仅由读循环调用,WriteMessage 可并发调用
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(ctx context.Context, body []byte) error
	Close() error
}

// Dialer 建立到远端的物理连接
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// WebsocketDialer 基于gorilla websocket的拨号器
type WebsocketDialer struct {
	Header           http.Header
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration // 小于等于0不设置读超时
	PingInterval     time.Duration // 小于等于0不发送ping
	Binary           bool          // 使用二进制帧
	ProxyURL         string        // http(s):// 或 socks5://
}

// NewWebsocketDialer 按客户端配置创建拨号器
func NewWebsocketDialer(config DIC.ClientConfig, binary bool) *WebsocketDialer {
	config.InitDefaults()
	header := http.Header{}
	for k, v := range config.Headers {
		header.Set(k, v)
	}
	return &WebsocketDialer{
		Header:           header,
		HandshakeTimeout: config.DialTimeout,
		WriteTimeout:     config.WriteTimeout,
		ReadTimeout:      config.ReadTimeout,
		PingInterval:     config.PingInterval,
		Binary:           binary,
		ProxyURL:         config.ProxyURL,
	}
}

func (d *WebsocketDialer) buildDialer() (*websocket.Dialer, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	if len(d.ProxyURL) == 0 {
		return dialer, nil
	}
	u, err := url.Parse(d.ProxyURL)
	if err != nil {
		return nil, utils.Error("proxy url invalid: ", err)
	}
	switch u.Scheme {
	case "http", "https":
		dialer.Proxy = http.ProxyURL(u)
	default:
		pd, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, utils.Error("proxy not supported: ", err)
		}
		dialer.Proxy = nil
		if cd, ok := pd.(proxy.ContextDialer); ok {
			dialer.NetDialContext = cd.DialContext
		} else {
			dialer.NetDial = pd.Dial
		}
	}
	return dialer, nil
}

func (d *WebsocketDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	dialer, err := d.buildDialer()
	if err != nil {
		return nil, err
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	msgType := websocket.TextMessage
	if d.Binary {
		msgType = websocket.BinaryMessage
	}
	c := &wsConn{
		conn:         conn,
		msgType:      msgType,
		writeTimeout: d.WriteTimeout,
		readTimeout:  d.ReadTimeout,
		done:         make(chan struct{}),
	}
	if c.readTimeout > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		})
	}
	if d.PingInterval > 0 {
		go c.keepalive(d.PingInterval)
	}
	return c, nil
}

type wsConn struct {
	conn         *websocket.Conn
	msgType      int
	writeMu      sync.Mutex
	writeTimeout time.Duration
	readTimeout  time.Duration
	done         chan struct{}
	closeOnce    sync.Once
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return nil, err
		}
	}
	_, body, err := c.conn.ReadMessage()
	return body, err
}

func (c *wsConn) WriteMessage(ctx context.Context, body []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	var deadline time.Time
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(c.msgType, body)
}

// keepalive 定时发送ping,失败时关闭连接交由读循环处理
func (c *wsConn) keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				if zlog.IsDebug() {
					zlog.Debug("websocket ping failed, closing connection", 0, zlog.AddError(err))
				}
				c.Close()
				return
			}
		}
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}
