package rpcx

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redlibre/grip/codec"
	"github.com/redlibre/grip/ex"
	"github.com/redlibre/grip/utils"
	"github.com/redlibre/grip/zlog"
)

const DefaultTimeout = 30 * time.Second

// Sender 连接管理器对调用关联器暴露的窄接口
type Sender interface {
	EnsureConnected(ctx context.Context) error
	Send(ctx context.Context, body []byte) error
}

// Result 远端调用的原始结果,由创建它的Codec解码
type Result struct {
	Data  []byte
	codec codec.Codec
}

// Decode 将结果解码到目标对象,null或空结果保持目标不变
func (r Result) Decode(v interface{}) error {
	if v == nil {
		return nil
	}
	return r.codec.Unmarshal(r.Data, v)
}

type outcome struct {
	result Result
	err    error
}

// pendingCall 一次未完成的调用,done只会被写入一次
type pendingCall struct {
	id       string
	function string
	payload  interface{}
	created  time.Time
	deadline time.Time
	done     chan outcome
}

// Correlator 在只支持收发原始消息的连接上实现请求/响应语义
type Correlator struct {
	sender  Sender
	codec   codec.Codec
	cell    string
	zome    string
	timeout time.Duration

	prefix string
	seq    uint64

	mu      sync.Mutex
	pending map[string]*pendingCall
}

type Option func(*Correlator)

// WithCell 调用目标cell与zome
func WithCell(cell, zome string) Option {
	return func(c *Correlator) {
		c.cell = cell
		c.zome = zome
	}
}

// WithTimeout 默认调用超时
func WithTimeout(timeout time.Duration) Option {
	return func(c *Correlator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewCorrelator 创建调用关联器,sender为空时需在调用前通过SetSender注入
func NewCorrelator(sender Sender, cdc codec.Codec, opts ...Option) *Correlator {
	if cdc == nil {
		cdc = codec.JSON
	}
	c := &Correlator{
		sender:  sender,
		codec:   cdc,
		timeout: DefaultTimeout,
		prefix:  utils.GetUUID(true)[:12],
		pending: make(map[string]*pendingCall),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSender 注入发送方,用于与连接管理器互相引用的构造顺序
func (c *Correlator) SetSender(sender Sender) {
	c.sender = sender
}

func (c *Correlator) Codec() codec.Codec {
	return c.codec
}

// nextID 会话前缀+单调递增序号,进程生命周期内不重复
func (c *Correlator) nextID() string {
	return c.prefix + "-" + strconv.FormatUint(atomic.AddUint64(&c.seq, 1), 10)
}

// Pending 当前未完成调用数量
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// remove 仅当id仍指向p时移除,返回是否由本次移除
func (c *Correlator) remove(p *pendingCall) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.pending[p.id]; ok && cur == p {
		delete(c.pending, p.id)
		return true
	}
	return false
}

// Invoke 调用远端函数并等待结果,timeout小于等于0使用默认超时
func (c *Correlator) Invoke(ctx context.Context, function string, payload interface{}, timeout time.Duration) (Result, error) {
	if c.sender == nil {
		return Result{}, ex.Throw{Code: ex.SYSTEM, Msg: "correlator sender is nil"}
	}
	if len(function) == 0 {
		return Result{}, ex.Throw{Code: ex.BIZ, Msg: "function name is nil"}
	}
	if timeout <= 0 {
		timeout = c.timeout
	}
	start := time.Now()
	// 建连同样受timeout约束,超时未连上时请求不会发出
	cctx, cancel := context.WithTimeout(ctx, timeout)
	err := c.sender.EnsureConnected(cctx)
	cancel()
	if err != nil {
		return Result{}, err
	}

	p := &pendingCall{
		id:       c.nextID(),
		function: function,
		payload:  payload,
		created:  start,
		done:     make(chan outcome, 1),
	}
	body, err := c.codec.EncodeCall(codec.NewCallRequest(p.id, c.cell, c.zome, function, payload))
	if err != nil {
		return Result{}, err
	}

	// 先登记再发送,避免响应先于登记到达
	// 等待响应的期限自登记起算,不计建连耗时
	c.mu.Lock()
	p.deadline = time.Now().Add(timeout)
	c.pending[p.id] = p
	c.mu.Unlock()

	if err := c.sender.Send(ctx, body); err != nil {
		if c.remove(p) {
			return Result{}, err
		}
		o := <-p.done
		return o.result, o.err
	}
	if zlog.IsDebug() {
		zlog.Debug("remote call sent", 0, zlog.String("id", p.id), zlog.String("function", function))
	}

	timer := time.NewTimer(time.Until(p.deadline))
	defer timer.Stop()
	select {
	case o := <-p.done:
		if o.err != nil {
			zlog.Warn("remote call failed", start.UnixMilli(), zlog.String("id", p.id), zlog.String("function", function), zlog.AddError(o.err))
		}
		return o.result, o.err
	case <-timer.C:
		if c.remove(p) {
			zlog.Warn("remote call timeout", start.UnixMilli(), zlog.String("id", p.id), zlog.String("function", function), zlog.Duration("timeout", timeout))
			return Result{}, ex.Throw{Code: ex.TIMEOUT, Msg: ex.TIMEOUT_ERR, Url: function}
		}
	case <-ctx.Done():
		if c.remove(p) {
			return Result{}, ctx.Err()
		}
	}
	// 已被并发解析,结果必然已写入
	o := <-p.done
	return o.result, o.err
}

// Call 调用远端函数并将结果解码到out,out为空时忽略结果
func (c *Correlator) Call(ctx context.Context, function string, payload, out interface{}) error {
	res, err := c.Invoke(ctx, function, payload, 0)
	if err != nil {
		return err
	}
	return res.Decode(out)
}

// Deliver 处理一条入站消息;无法解析的消息记录后丢弃,无对应调用的消息直接丢弃
func (c *Correlator) Deliver(body []byte) {
	resp, err := c.codec.DecodeResponse(body)
	if err != nil {
		zlog.Warn("malformed inbound message dropped", 0, zlog.Int("size", len(body)), zlog.AddError(err))
		return
	}
	c.mu.Lock()
	p, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()
	if !ok {
		if zlog.IsDebug() {
			zlog.Debug("inbound message without pending call discarded", 0, zlog.String("id", resp.ID))
		}
		return
	}
	if resp.HasError {
		p.done <- outcome{err: ex.Throw{Code: ex.REMOTE, Msg: resp.Error, Url: p.function}}
		return
	}
	p.done <- outcome{result: Result{Data: resp.Data, codec: c.codec}}
}

// FailAll 令全部未完成调用以err失败
func (c *Correlator) FailAll(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]*pendingCall)
	c.mu.Unlock()
	if len(pending) > 0 {
		zlog.Warn("failing pending calls", 0, zlog.Int("count", len(pending)), zlog.AddError(err))
	}
	for _, p := range pending {
		p.done <- outcome{err: err}
	}
}
