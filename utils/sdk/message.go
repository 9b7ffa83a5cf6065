package sdk

import (
	"context"

	DIC "github.com/redlibre/grip/common"
	"github.com/redlibre/grip/ex"
	"github.com/redlibre/grip/ormx/sqld"
	"github.com/redlibre/grip/utils"
	"github.com/redlibre/grip/utils/encipher"
	"github.com/redlibre/grip/zlog"
)

// Message get_messages 返回的远端消息,text为加密信封
type Message struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	ChatID     string `json:"chat_id"`
	Text       string `json:"text"`
	ImageHash  string `json:"image_hash"`
	VideoHash  string `json:"video_hash"`
	Timestamp  int64  `json:"timestamp"` // 远端写入时间,秒
	Read       bool   `json:"read"`
}

// OutgoingMessage 待发送消息,Text为明文,发送前加密
type OutgoingMessage struct {
	Text      string
	ImageHash string
	VideoHash string
}

// ChatMessage 已解密的会话消息,单条解密失败不影响其他消息
type ChatMessage struct {
	Key        string
	ChatID     string
	SenderID   string
	ReceiverID string
	Envelope   string
	ImageHash  string
	VideoHash  string
	Timestamp  int64 // 秒级时间戳,本地发送的消息同样以秒记录
	Read       bool

	text string
	err  error
}

// Text 明文内容;解密失败时返回该消息的DECRYPT异常
func (m ChatMessage) Text() (string, error) {
	return m.text, m.err
}

type sendMessagePayload struct {
	ReceiverID      string  `json:"receiver_id"`
	Text            *string `json:"text"`
	ImageHash       *string `json:"image_hash"`
	VideoHash       *string `json:"video_hash"`
	EncryptedText   *string `json:"encrypted_text"`
	EncryptionKeyID *string `json:"encryption_key_id"`
}

func (c *Client) chatID(peer string) (string, error) {
	self := c.Self()
	if len(self) == 0 {
		return "", ex.Throw{Code: ex.BIZ, Msg: "self agent id is nil, login first"}
	}
	if len(peer) == 0 {
		return "", ex.Throw{Code: ex.BIZ, Msg: "peer agent id is nil"}
	}
	return encipher.ConversationID(self, peer), nil
}

// SendMessage 加密发送消息并写入本地会话状态,返回消息条目哈希
func (c *Client) SendMessage(ctx context.Context, receiverID string, msg OutgoingMessage) (string, error) {
	chatID, err := c.chatID(receiverID)
	if err != nil {
		return "", err
	}
	if len(msg.Text) == 0 && len(msg.ImageHash) == 0 && len(msg.VideoHash) == 0 {
		return "", ex.Throw{Code: ex.BIZ, Msg: "message is empty"}
	}
	var envelope string
	if len(msg.Text) > 0 {
		key, err := c.keys.ConversationKey(chatID)
		if err != nil {
			return "", err
		}
		envelope, err = encipher.Encrypt(msg.Text, key)
		DIC.ClearData(key)
		if err != nil {
			return "", err
		}
	}
	payload := sendMessagePayload{
		ReceiverID:    receiverID,
		Text:          nullable(envelope),
		ImageHash:     nullable(msg.ImageHash),
		VideoHash:     nullable(msg.VideoHash),
		EncryptedText: nullable(envelope),
	}
	var hash string
	if err := c.call(ctx, "send_message", payload, &hash); err != nil {
		return "", err
	}
	stored := sqld.StoredMessage{
		Key:        hash,
		SenderID:   c.Self(),
		ReceiverID: receiverID,
		Text:       envelope,
		ImageHash:  msg.ImageHash,
		VideoHash:  msg.VideoHash,
		Timestamp:  utils.UnixSecond(),
	}
	if err := c.store.Append(chatID, stored); err != nil {
		zlog.Warn("message store append failed", 0, zlog.String("chat", chatID), zlog.AddError(err))
	}
	return hash, nil
}

// GetMessages 拉取与peer的会话,替换本地状态后逐条解密
func (c *Client) GetMessages(ctx context.Context, peer string) ([]ChatMessage, error) {
	chatID, err := c.chatID(peer)
	if err != nil {
		return nil, err
	}
	var remote []Message
	if err := c.call(ctx, "get_messages", chatID, &remote); err != nil {
		return nil, err
	}
	stored := make([]sqld.StoredMessage, 0, len(remote))
	for _, v := range remote {
		stored = append(stored, sqld.StoredMessage{
			ChatID:     chatID,
			SenderID:   v.SenderID,
			ReceiverID: v.ReceiverID,
			Text:       v.Text,
			ImageHash:  v.ImageHash,
			VideoHash:  v.VideoHash,
			Timestamp:  v.Timestamp,
			Read:       v.Read,
		})
	}
	if err := c.store.Replace(chatID, stored); err != nil {
		zlog.Warn("message store replace failed", 0, zlog.String("chat", chatID), zlog.AddError(err))
	}
	list, err := c.store.List(chatID)
	if err != nil {
		return nil, err
	}
	return c.decryptAll(chatID, list)
}

// CachedMessages 读取本地会话状态,不访问网络
func (c *Client) CachedMessages(peer string) ([]ChatMessage, error) {
	chatID, err := c.chatID(peer)
	if err != nil {
		return nil, err
	}
	list, err := c.store.List(chatID)
	if err != nil {
		return nil, err
	}
	return c.decryptAll(chatID, list)
}

// InvalidateChat 丢弃与peer的本地会话状态
func (c *Client) InvalidateChat(peer string) error {
	chatID, err := c.chatID(peer)
	if err != nil {
		return err
	}
	return c.store.Invalidate(chatID)
}

func (c *Client) decryptAll(chatID string, list []sqld.StoredMessage) ([]ChatMessage, error) {
	result := make([]ChatMessage, 0, len(list))
	if len(list) == 0 {
		return result, nil
	}
	key, err := c.keys.ConversationKey(chatID)
	if err != nil {
		return nil, err
	}
	defer DIC.ClearData(key)
	for _, v := range list {
		m := ChatMessage{
			Key:        v.Key,
			ChatID:     chatID,
			SenderID:   v.SenderID,
			ReceiverID: v.ReceiverID,
			Envelope:   v.Text,
			ImageHash:  v.ImageHash,
			VideoHash:  v.VideoHash,
			Timestamp:  v.Timestamp,
			Read:       v.Read,
		}
		if len(v.Text) > 0 {
			m.text, m.err = encipher.Decrypt(v.Text, key)
			if m.err != nil {
				zlog.Warn("message decrypt failed", 0, zlog.String("chat", chatID), zlog.String("key", v.Key), zlog.AddError(m.err))
			}
		}
		result = append(result, m)
	}
	return result, nil
}

func (c *Client) GetChats(ctx context.Context) ([]string, error) {
	var peers []string
	if err := c.call(ctx, "get_chats", empty, &peers); err != nil {
		return nil, err
	}
	return peers, nil
}

func (c *Client) MarkMessageRead(ctx context.Context, messageHash string) error {
	return c.call(ctx, "mark_message_read", messageHash, nil)
}

func (c *Client) GetUnreadCount(ctx context.Context) (int64, error) {
	var n int64
	if err := c.call(ctx, "get_unread_count", empty, &n); err != nil {
		return 0, err
	}
	return n, nil
}
