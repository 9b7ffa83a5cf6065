package encipher

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/redlibre/grip/cache"
	"github.com/redlibre/grip/ex"
	"github.com/redlibre/grip/utils"
	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultIterations = 100000
	SaltSize          = 16

	SALT_ZERO       = "zero"       // 全零盐,与既有客户端互通
	SALT_IDENTIFIER = "identifier" // 由会话标识派生的盐

	conversationPrefix = "chat_"
	conversationSep    = "_"
	identifierSaltTag  = "grip/salt"
)

// Key 会话对称密钥,AES-256
type Key []byte

// KeyProvider 会话密钥提供者
// 当前实现为确定性派生,双方无需交换即可得到相同密钥;替换为真正的密钥协商时保持该接口不变
// 返回的密钥归调用方所有,调用方用完后会擦除
type KeyProvider interface {
	ConversationKey(conversationID string) (Key, error)
}

// PBKDF2Provider 基于PBKDF2-SHA256的确定性密钥派生
type PBKDF2Provider struct {
	iterations int
	salt       []byte
	saltMode   string
	cache      cache.Cache
	expire     int
	prefix     string
}

type Option func(*PBKDF2Provider)

// WithIterations 派生轮数
func WithIterations(n int) Option {
	return func(p *PBKDF2Provider) {
		if n > 0 {
			p.iterations = n
		}
	}
}

// WithSalt 固定盐
func WithSalt(salt []byte) Option {
	return func(p *PBKDF2Provider) {
		if len(salt) > 0 {
			p.salt = append([]byte(nil), salt...)
		}
	}
}

// WithSaltMode 盐模式: zero 或 identifier
func WithSaltMode(mode string) Option {
	return func(p *PBKDF2Provider) {
		if mode == SALT_IDENTIFIER {
			p.saltMode = SALT_IDENTIFIER
		}
	}
}

// WithCache 派生结果缓存,expire为秒,仅作为性能优化
func WithCache(c cache.Cache, expire int) Option {
	return func(p *PBKDF2Provider) {
		p.cache = c
		p.expire = expire
	}
}

// NewPBKDF2Provider 创建密钥派生器,默认100000轮、16字节全零盐
func NewPBKDF2Provider(opts ...Option) *PBKDF2Provider {
	p := &PBKDF2Provider{
		iterations: DefaultIterations,
		salt:       make([]byte, SaltSize),
		saltMode:   SALT_ZERO,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.prefix = utils.AddStr("encipher:", p.iterations, ":", p.saltMode, ":", hex.EncodeToString(p.salt), ":")
	return p
}

func (p *PBKDF2Provider) saltFor(conversationID string) []byte {
	if p.saltMode == SALT_IDENTIFIER {
		sum := sha256.Sum256([]byte(identifierSaltTag + conversationID))
		return sum[:SaltSize]
	}
	return p.salt
}

func (p *PBKDF2Provider) derive(conversationID string) Key {
	return Key(pbkdf2.Key([]byte(conversationID), p.saltFor(conversationID), p.iterations, utils.AES_KEY_SIZE, sha256.New))
}

func (p *PBKDF2Provider) ConversationKey(conversationID string) (Key, error) {
	if len(conversationID) == 0 {
		return nil, ex.Throw{Code: ex.BIZ, Msg: "conversation id is nil"}
	}
	if p.cache != nil {
		if b, ok := p.cache.GetBytes(p.prefix + conversationID); ok {
			return append(Key(nil), b...), nil
		}
	}
	key := p.derive(conversationID)
	if p.cache != nil {
		p.cache.Put(p.prefix+conversationID, append([]byte(nil), key...), p.expire)
	}
	return key, nil
}

var defaultProvider = NewPBKDF2Provider()

// DeriveKey 按默认参数派生会话密钥,相同输入恒得相同密钥
func DeriveKey(conversationID string) Key {
	return defaultProvider.derive(conversationID)
}

// ConversationID 双方标识按字典序排序后拼接,收发双方得到相同结果
func ConversationID(a, b string) string {
	lo, hi := utils.SortedPair(a, b)
	return conversationPrefix + lo + conversationSep + hi
}
