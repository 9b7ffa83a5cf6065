package sqld

import (
	"crypto/sha256"
	"encoding/hex"

	DIC "github.com/redlibre/grip/common"
	"github.com/redlibre/grip/utils"
)

// StoredMessage 本地会话状态中的一条消息,Text为线上收到的原文(加密信封),不保存明文
type StoredMessage struct {
	Key        string `json:"key"`
	ChatID     string `json:"chat_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
	ImageHash  string `json:"image_hash"`
	VideoHash  string `json:"video_hash"`
	Timestamp  int64  `json:"timestamp"`
	Read       bool   `json:"read"`
}

// MessageKey 消息唯一键,优先使用远端返回的条目哈希
func (m *StoredMessage) MessageKey() string {
	if len(m.Key) > 0 {
		return m.Key
	}
	sum := sha256.Sum256(utils.Str2Bytes(utils.AddStr(m.ChatID, "|", m.SenderID, "|", m.Timestamp, "|", m.Text, "|", m.ImageHash, "|", m.VideoHash)))
	return hex.EncodeToString(sum[:16])
}

// MessageStore 会话消息的本地状态
type MessageStore interface {
	// Append 增量写入消息,相同键覆盖
	Append(chatID string, msgs ...StoredMessage) error
	// Replace 以远端结果整体替换会话状态
	Replace(chatID string, msgs []StoredMessage) error
	// List 按时间戳升序返回会话消息
	List(chatID string) ([]StoredMessage, error)
	// Invalidate 丢弃会话状态
	Invalidate(chatID string) error
	Close() error
}

// NewMessageStore 根据配置创建存储,默认内存存储
func NewMessageStore(config DIC.StoreConfig) (MessageStore, error) {
	switch config.Driver {
	case "", DIC.STORE_MEMORY:
		return NewMemoryStore(), nil
	case DIC.STORE_SQLITE:
		store, err := NewSqliteStore(SqliteConfig{DbFile: config.File})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, utils.Error("store driver not supported: ", config.Driver)
}
