package DIC

import (
	"net/url"
	"os"
	"time"

	"github.com/redlibre/grip/utils"
)

const (
	ENV_ENDPOINT = "GRIP_HOLOCHAIN_URL"
	ENV_CELL     = "GRIP_DNA_HASH"
	ENV_CODEC    = "GRIP_CODEC"

	DEFAULT_ENDPOINT = "ws://localhost:4444"
	DEFAULT_ZOME     = "grip_zome"

	STORE_MEMORY = "memory"
	STORE_SQLITE = "sqlite"
)

// YamlConfig 客户端配置根节点
type YamlConfig struct {
	// 远端连接与调用配置
	Client ClientConfig `yaml:"client"`

	// 会话加密配置
	Crypto CryptoConfig `yaml:"crypto"`

	// 本地消息状态配置
	Store StoreConfig `yaml:"store"`

	// 日志配置 - 支持多日志输出器，key为日志器名称
	Logger map[string]*ZapConfig `yaml:"logger,omitempty"`

	// 应用基本信息
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		Debug   bool   `yaml:"debug"`
		Env     string `yaml:"env"`
	} `yaml:"app,omitempty"`

	ready bool
}

// ClientConfig 连接管理与调用关联配置
// MaxReconnectAttempts 为0时使用默认值5,小于0关闭自动重连
type ClientConfig struct {
	Endpoint             string            `yaml:"endpoint"`
	Cell                 string            `yaml:"cell"`
	Zome                 string            `yaml:"zome"`
	Codec                string            `yaml:"codec"`
	MaxReconnectAttempts int               `yaml:"max_reconnect_attempts"`
	BackoffUnit          time.Duration     `yaml:"backoff_unit"`
	MaxBackoff           time.Duration     `yaml:"max_backoff"`
	CallTimeout          time.Duration     `yaml:"call_timeout"`
	DialTimeout          time.Duration     `yaml:"dial_timeout"`
	WriteTimeout         time.Duration     `yaml:"write_timeout"`
	ReadTimeout          time.Duration     `yaml:"read_timeout"`
	PingInterval         time.Duration     `yaml:"ping_interval"`
	ProxyURL             string            `yaml:"proxy_url"`
	Headers              map[string]string `yaml:"headers,omitempty"`
}

// CryptoConfig 会话密钥派生配置
// Salt 为base64文本,为空使用16字节全零盐;CacheExpire 小于0关闭密钥缓存
type CryptoConfig struct {
	Iterations  int    `yaml:"iterations"`
	Salt        string `yaml:"salt"`
	SaltMode    string `yaml:"salt_mode"`
	CacheExpire int    `yaml:"cache_expire"`
}

// StoreConfig 本地消息状态配置
type StoreConfig struct {
	Driver string `yaml:"driver"`
	File   string `yaml:"file"`
}

// ZapConfig 日志配置 - 与zlog.ZapConfig字段兼容
type ZapConfig struct {
	Layout     int64       `yaml:"layout"`
	Location   string      `yaml:"location"`
	Level      string      `yaml:"level"`
	Console    bool        `yaml:"console"`
	FileConfig *FileConfig `yaml:"file_config,omitempty"`
}

// FileConfig 日志文件配置 - 与zlog.FileConfig字段兼容
type FileConfig struct {
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// InitDefaults 初始化默认值
func (c *YamlConfig) InitDefaults() {
	c.Client.InitDefaults()
	if c.Crypto.Iterations <= 0 {
		c.Crypto.Iterations = 100000
	}
	if len(c.Crypto.SaltMode) == 0 {
		c.Crypto.SaltMode = "zero"
	}
	if c.Crypto.CacheExpire == 0 {
		c.Crypto.CacheExpire = 600
	}
	if len(c.Store.Driver) == 0 {
		c.Store.Driver = STORE_MEMORY
	}
	if c.Logger == nil {
		c.Logger = make(map[string]*ZapConfig)
	}
	c.ready = true
}

// InitDefaults 填充连接参数默认值
func (c *ClientConfig) InitDefaults() {
	if len(c.Endpoint) == 0 {
		c.Endpoint = DEFAULT_ENDPOINT
	}
	if len(c.Zome) == 0 {
		c.Zome = DEFAULT_ZOME
	}
	if len(c.Codec) == 0 {
		c.Codec = "json"
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 5
	}
	if c.BackoffUnit <= 0 {
		c.BackoffUnit = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 25 * time.Second
	}
}

// ApplyEnv 环境变量覆盖配置
func (c *YamlConfig) ApplyEnv() {
	if v := os.Getenv(ENV_ENDPOINT); len(v) > 0 {
		c.Client.Endpoint = v
	}
	if v := os.Getenv(ENV_CELL); len(v) > 0 {
		c.Client.Cell = v
	}
	if v := os.Getenv(ENV_CODEC); len(v) > 0 {
		c.Client.Codec = v
	}
}

// Validate 校验连接参数
func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return utils.Error("client endpoint invalid: ", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return utils.Error("client endpoint scheme must be ws or wss: ", c.Endpoint)
	}
	if len(u.Host) == 0 {
		return utils.Error("client endpoint host is nil")
	}
	if c.PingInterval > 0 && c.ReadTimeout > 0 && c.PingInterval >= c.ReadTimeout {
		return utils.Error("client ping interval must be less than read timeout")
	}
	return nil
}

// CheckReady 配置是否已完成默认值初始化
func (c *YamlConfig) CheckReady() bool {
	return c != nil && c.ready
}

// GetLoggerConfig 获取指定名称的日志配置
func (c *YamlConfig) GetLoggerConfig(name string) *ZapConfig {
	if c.Logger == nil {
		return nil
	}
	return c.Logger[name]
}
