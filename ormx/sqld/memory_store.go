package sqld

import (
	"sort"
	"sync"
)

type memoryEntry struct {
	msg StoredMessage
	seq uint64
}

// MemoryStore 进程内会话状态,同一时间戳的消息按写入顺序排列
type MemoryStore struct {
	mu    sync.RWMutex
	seq   uint64
	chats map[string]map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chats: make(map[string]map[string]memoryEntry)}
}

func (self *MemoryStore) put(chat map[string]memoryEntry, chatID string, v StoredMessage) {
	v.ChatID = chatID
	v.Key = v.MessageKey()
	if old, ok := chat[v.Key]; ok {
		chat[v.Key] = memoryEntry{msg: v, seq: old.seq}
		return
	}
	self.seq++
	chat[v.Key] = memoryEntry{msg: v, seq: self.seq}
}

func (self *MemoryStore) Append(chatID string, msgs ...StoredMessage) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	chat, ok := self.chats[chatID]
	if !ok {
		chat = make(map[string]memoryEntry, len(msgs))
		self.chats[chatID] = chat
	}
	for _, v := range msgs {
		self.put(chat, chatID, v)
	}
	return nil
}

func (self *MemoryStore) Replace(chatID string, msgs []StoredMessage) error {
	chat := make(map[string]memoryEntry, len(msgs))
	self.mu.Lock()
	for _, v := range msgs {
		self.put(chat, chatID, v)
	}
	self.chats[chatID] = chat
	self.mu.Unlock()
	return nil
}

func (self *MemoryStore) List(chatID string) ([]StoredMessage, error) {
	self.mu.RLock()
	chat := self.chats[chatID]
	entries := make([]memoryEntry, 0, len(chat))
	for _, v := range chat {
		entries = append(entries, v)
	}
	self.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].msg.Timestamp != entries[j].msg.Timestamp {
			return entries[i].msg.Timestamp < entries[j].msg.Timestamp
		}
		return entries[i].seq < entries[j].seq
	})
	result := make([]StoredMessage, len(entries))
	for i, v := range entries {
		result[i] = v.msg
	}
	return result, nil
}

func (self *MemoryStore) Invalidate(chatID string) error {
	self.mu.Lock()
	delete(self.chats, chatID)
	self.mu.Unlock()
	return nil
}

func (self *MemoryStore) Close() error {
	self.mu.Lock()
	self.chats = make(map[string]map[string]memoryEntry)
	self.mu.Unlock()
	return nil
}
