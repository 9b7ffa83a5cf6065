package sdk

import (
	"context"
	"sync"

	"github.com/redlibre/grip/cache"
	"github.com/redlibre/grip/codec"
	DIC "github.com/redlibre/grip/common"
	"github.com/redlibre/grip/ex"
	"github.com/redlibre/grip/node"
	"github.com/redlibre/grip/ormx/sqld"
	"github.com/redlibre/grip/rpcx"
	"github.com/redlibre/grip/utils/encipher"
	"github.com/redlibre/grip/zlog"
)

type options struct {
	keys   encipher.KeyProvider
	store  sqld.MessageStore
	dialer node.Dialer
	crypto *DIC.CryptoConfig
	self   string
}

type Option func(*options)

// WithKeyProvider 替换会话密钥提供者,默认PBKDF2确定性派生
func WithKeyProvider(keys encipher.KeyProvider) Option {
	return func(o *options) {
		o.keys = keys
	}
}

// WithCrypto 按配置创建默认密钥提供者,与WithKeyProvider同时使用时后者优先
func WithCrypto(config DIC.CryptoConfig) Option {
	return func(o *options) {
		o.crypto = &config
	}
}

// WithStore 会话消息本地状态,默认内存存储
func WithStore(store sqld.MessageStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithDialer 替换底层拨号器
func WithDialer(dialer node.Dialer) Option {
	return func(o *options) {
		o.dialer = dialer
	}
}

// WithSelf 当前用户的agent标识,用于计算会话标识
func WithSelf(self string) Option {
	return func(o *options) {
		o.self = self
	}
}

// Client 远端函数目录的类型化客户端
// 每个实例持有独立的连接、调用表与本地状态,实例之间互不影响
type Client struct {
	config DIC.ClientConfig
	conn   *node.ConnManager
	rpc    *rpcx.Correlator
	keys   encipher.KeyProvider
	store  sqld.MessageStore

	mu   sync.RWMutex
	self string
}

// NewClient 创建客户端,不会立即建立连接,首次调用时自动连接
//
// 使用示例:
//
//	client, err := sdk.NewClient(DIC.ClientConfig{Endpoint: "ws://localhost:4444", Cell: "uhC0k..."})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//	agent, err := client.Login(ctx, "ana@example.com", "secret")
func NewClient(config DIC.ClientConfig, opts ...Option) (*Client, error) {
	config.InitDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	cdc, err := codec.New(config.Codec)
	if err != nil {
		return nil, err
	}
	if o.keys == nil {
		crypto := DIC.CryptoConfig{}
		if o.crypto != nil {
			crypto = *o.crypto
		}
		if o.keys, err = NewKeyProvider(crypto); err != nil {
			return nil, err
		}
	}
	if o.store == nil {
		o.store = sqld.NewMemoryStore()
	}
	if o.dialer == nil {
		o.dialer = node.NewWebsocketDialer(config, cdc.Binary())
	}
	c := &Client{
		config: config,
		keys:   o.keys,
		store:  o.store,
		self:   o.self,
	}
	c.rpc = rpcx.NewCorrelator(nil, cdc, rpcx.WithCell(config.Cell, config.Zome), rpcx.WithTimeout(config.CallTimeout))
	c.conn = node.NewConnManager(config, o.dialer, c.rpc)
	c.rpc.SetSender(c.conn)
	return c, nil
}

// NewKeyProvider 按配置创建PBKDF2密钥提供者,CacheExpire大于0时启用本地缓存
func NewKeyProvider(config DIC.CryptoConfig) (encipher.KeyProvider, error) {
	var opts []encipher.Option
	if config.Iterations > 0 {
		opts = append(opts, encipher.WithIterations(config.Iterations))
	}
	if len(config.Salt) > 0 {
		salt, err := codec.DecodeBase64(config.Salt)
		if err != nil {
			return nil, ex.Throw{Code: ex.BIZ, Msg: "crypto salt is not valid base64", Err: err}
		}
		opts = append(opts, encipher.WithSalt(salt))
	}
	if len(config.SaltMode) > 0 {
		opts = append(opts, encipher.WithSaltMode(config.SaltMode))
	}
	if config.CacheExpire > 0 {
		opts = append(opts, encipher.WithCache(cache.NewLocalCache(0, 0), config.CacheExpire))
	}
	return encipher.NewPBKDF2Provider(opts...), nil
}

// Connect 显式建立连接,可在重连耗尽后恢复
func (c *Client) Connect(ctx context.Context) error {
	return c.conn.Connect(ctx)
}

// Close 关闭连接与本地状态,未完成调用以CLOSED失败
func (c *Client) Close() error {
	err := c.conn.Close()
	if serr := c.store.Close(); serr != nil && err == nil {
		err = serr
	}
	return err
}

func (c *Client) State() node.State {
	return c.conn.State()
}

// OnStateChange 连接状态变化回调
func (c *Client) OnStateChange(fn func(node.State)) {
	c.conn.OnStateChange(fn)
}

// Self 当前用户agent标识,登录或注册后写入
func (c *Client) Self() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self
}

func (c *Client) SetSelf(self string) {
	c.mu.Lock()
	c.self = self
	c.mu.Unlock()
}

// Pending 未完成调用数量
func (c *Client) Pending() int {
	return c.rpc.Pending()
}

// Invoke 调用任意远端函数,返回原始结果
func (c *Client) Invoke(ctx context.Context, function string, payload interface{}) (rpcx.Result, error) {
	return c.rpc.Invoke(ctx, function, payload, 0)
}

func (c *Client) call(ctx context.Context, function string, payload, out interface{}) error {
	if zlog.IsDebug() {
		zlog.Debug("grip call", 0, zlog.String("function", function))
	}
	return c.rpc.Call(ctx, function, payload, out)
}

// empty 无参数函数的载荷
var empty = struct{}{}

// nullable 空字符串以null发送
func nullable(s string) *string {
	if len(s) == 0 {
		return nil
	}
	return &s
}
