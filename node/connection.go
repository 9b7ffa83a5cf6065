package node

import (
	"context"
	"sync"
	"time"

	DIC "github.com/redlibre/grip/common"
	"github.com/redlibre/grip/ex"
	"github.com/redlibre/grip/zlog"
)

// State 连接生命周期状态
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

const RECONNECT_EXHAUSTED = "reconnect attempts exhausted"

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler 入站消息与连接中断的接收方
type Handler interface {
	// Deliver 转发收到的原始消息,不做解析
	Deliver(body []byte)
	// FailAll 连接中断时令所有未完成调用失败
	FailAll(err error)
}

// connection 每次连接(含重连)新建一个实例,不在原实例上修改
type connection struct {
	conn   Conn
	ctx    context.Context
	cancel context.CancelFunc
	seq    uint64
}

// ConnManager 维护到远端的唯一一条长连接,负责断线检测、退避与重连
type ConnManager struct {
	endpoint    string
	dialer      Dialer
	handler     Handler
	maxAttempts int
	backoffUnit time.Duration
	maxBackoff  time.Duration

	rootCtx    context.Context
	rootCancel context.CancelFunc

	connectMu sync.Mutex // 串行化拨号
	mu        sync.Mutex // 保护以下字段

	current      *connection
	state        State
	failures     int
	terminal     error
	seq          uint64
	reconnecting bool
	closed       bool
	listeners    []func(State)
}

// NewConnManager 创建连接管理器,handler 接收入站消息与中断通知
func NewConnManager(config DIC.ClientConfig, dialer Dialer, handler Handler) *ConnManager {
	config.InitDefaults()
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &ConnManager{
		endpoint:    config.Endpoint,
		dialer:      dialer,
		handler:     handler,
		maxAttempts: config.MaxReconnectAttempts,
		backoffUnit: config.BackoffUnit,
		maxBackoff:  config.MaxBackoff,
		rootCtx:     rootCtx,
		rootCancel:  rootCancel,
	}
}

// Backoff 第attempt次重连前的等待时间: attempt*unit,不超过max
func Backoff(attempt int, unit, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(attempt) * unit
	if max > 0 && (d > max || d/time.Duration(attempt) != unit) {
		return max
	}
	return d
}

// OnStateChange 注册状态变化回调,回调在状态变更的协程中同步执行
func (m *ConnManager) OnStateChange(fn func(State)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *ConnManager) setStateLocked(s State) func() {
	if m.state == s {
		return func() {}
	}
	m.state = s
	ls := m.listeners
	return func() {
		for _, fn := range ls {
			fn(s)
		}
	}
}

func (m *ConnManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *ConnManager) IsConnected() bool {
	return m.State() == Connected
}

// Failures 当前连续失败次数
func (m *ConnManager) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

// Terminal 重连耗尽后的终止错误,显式Connect成功前保持
func (m *ConnManager) Terminal() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminal
}

func (m *ConnManager) Endpoint() string {
	return m.endpoint
}

// Connect 显式建立连接,成功后清除失败计数与终止错误
func (m *ConnManager) Connect(ctx context.Context) error {
	return m.connect(ctx, true)
}

// EnsureConnected 未连接时建立连接;重连耗尽后返回终止错误,直到显式Connect成功
func (m *ConnManager) EnsureConnected(ctx context.Context) error {
	m.mu.Lock()
	closed, state, terminal := m.closed, m.state, m.terminal
	m.mu.Unlock()
	if closed {
		return ex.Throw{Code: ex.CLOSED, Msg: ex.CLOSED_ERR}
	}
	if state == Connected {
		return nil
	}
	if terminal != nil {
		return terminal
	}
	return m.connect(ctx, false)
}

func (m *ConnManager) connect(ctx context.Context, explicit bool) error {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ex.Throw{Code: ex.CLOSED, Msg: ex.CLOSED_ERR}
	}
	if m.state == Connected && m.current != nil {
		m.mu.Unlock()
		return nil
	}
	if !explicit && m.terminal != nil {
		err := m.terminal
		m.mu.Unlock()
		return err
	}
	notify := m.setStateLocked(Connecting)
	m.mu.Unlock()
	notify()

	start := time.Now().UnixMilli()
	dctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.rootCtx, cancel)
	conn, err := m.dialer.Dial(dctx, m.endpoint)
	stop()
	cancel()
	if err != nil {
		m.mu.Lock()
		notify = m.setStateLocked(Disconnected)
		m.mu.Unlock()
		notify()
		zlog.Warn("websocket connect failed", start, zlog.String("endpoint", m.endpoint), zlog.AddError(err))
		return ex.Throw{Code: ex.CONNECT, Msg: ex.CONNECT_ERR, Url: m.endpoint, Err: err}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		conn.Close()
		return ex.Throw{Code: ex.CLOSED, Msg: ex.CLOSED_ERR}
	}
	m.seq++
	cctx, ccancel := context.WithCancel(m.rootCtx)
	c := &connection{conn: conn, ctx: cctx, cancel: ccancel, seq: m.seq}
	m.current = c
	m.failures = 0
	m.terminal = nil
	notify = m.setStateLocked(Connected)
	m.mu.Unlock()
	notify()

	zlog.Info("websocket connected", start, zlog.String("endpoint", m.endpoint), zlog.Uint64("seq", c.seq))
	go m.readLoop(c)
	return nil
}

func (m *ConnManager) readLoop(c *connection) {
	for {
		body, err := c.conn.ReadMessage()
		if err != nil {
			m.lost(c, err)
			return
		}
		if c.ctx.Err() != nil {
			return
		}
		m.handler.Deliver(body)
	}
}

// lost 连接中断: 置为断开,令未完成调用失败,按退避计划重连
func (m *ConnManager) lost(c *connection, cause error) {
	m.mu.Lock()
	if m.current != c {
		m.mu.Unlock()
		return
	}
	m.current = nil
	c.cancel()
	closed := m.closed
	notify := m.setStateLocked(Disconnected)
	m.mu.Unlock()
	notify()

	c.conn.Close()
	zlog.Warn("websocket connection lost", 0, zlog.String("endpoint", m.endpoint), zlog.Uint64("seq", c.seq), zlog.AddError(cause))
	m.handler.FailAll(ex.Throw{Code: ex.CONN_LOST, Msg: ex.CONN_LOST_ERR, Url: m.endpoint, Err: cause})
	if !closed {
		m.scheduleReconnect()
	}
}

func (m *ConnManager) scheduleReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reconnecting || m.closed || m.maxAttempts < 0 {
		return
	}
	m.reconnecting = true
	go m.reconnectLoop()
}

func (m *ConnManager) reconnectLoop() {
	for {
		m.mu.Lock()
		if m.closed || m.state == Connected {
			m.reconnecting = false
			m.mu.Unlock()
			return
		}
		if m.failures >= m.maxAttempts {
			m.terminal = ex.Throw{Code: ex.CONNECT, Msg: RECONNECT_EXHAUSTED, Url: m.endpoint}
			m.reconnecting = false
			failures := m.failures
			m.mu.Unlock()
			zlog.Error("websocket reconnect attempts exhausted", 0, zlog.String("endpoint", m.endpoint), zlog.Int("attempts", failures))
			return
		}
		m.failures++
		attempt := m.failures
		delay := Backoff(attempt, m.backoffUnit, m.maxBackoff)
		m.mu.Unlock()

		if zlog.IsDebug() {
			zlog.Debug("websocket reconnect scheduled", 0, zlog.Int("attempt", attempt), zlog.Duration("delay", delay))
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-m.rootCtx.Done():
			timer.Stop()
			m.mu.Lock()
			m.reconnecting = false
			m.mu.Unlock()
			return
		}
		if err := m.connect(m.rootCtx, false); err != nil {
			zlog.Warn("websocket reconnect attempt failed", 0, zlog.Int("attempt", attempt), zlog.AddError(err))
		}
	}
}

// Send 在当前连接上发送一条消息,写失败时关闭连接,由读循环走中断流程
func (m *ConnManager) Send(ctx context.Context, body []byte) error {
	m.mu.Lock()
	c := m.current
	m.mu.Unlock()
	if c == nil {
		return ex.Throw{Code: ex.CONN_LOST, Msg: "connection not established", Url: m.endpoint}
	}
	if err := c.conn.WriteMessage(ctx, body); err != nil {
		c.conn.Close()
		return ex.Throw{Code: ex.CONN_LOST, Msg: "failed to write to connection", Url: m.endpoint, Err: err}
	}
	return nil
}

// Close 关闭连接并停止重连,未完成调用以CLOSED失败
func (m *ConnManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	c := m.current
	m.current = nil
	notify := m.setStateLocked(Disconnected)
	m.mu.Unlock()
	notify()

	m.rootCancel()
	var err error
	if c != nil {
		c.cancel()
		err = c.conn.Close()
	}
	m.handler.FailAll(ex.Throw{Code: ex.CLOSED, Msg: ex.CLOSED_ERR})
	zlog.Info("websocket client closed", 0, zlog.String("endpoint", m.endpoint))
	return err
}
