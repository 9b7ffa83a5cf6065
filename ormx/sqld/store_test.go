package sqld

import (
	"path/filepath"
	"testing"

	DIC "github.com/redlibre/grip/common"
)

func sampleMessages() []StoredMessage {
	return []StoredMessage{
		{Key: "h2", SenderID: "u2", ReceiverID: "u1", Text: "env-2", Timestamp: 200},
		{Key: "h1", SenderID: "u1", ReceiverID: "u2", Text: "env-1", Timestamp: 100},
		{SenderID: "u1", ReceiverID: "u2", ImageHash: "img", Timestamp: 300, Read: true},
	}
}

func testStore(t *testing.T, store MessageStore) {
	chat := "chat_u1_u2"
	if err := store.Replace(chat, sampleMessages()); err != nil {
		t.Fatal(err)
	}
	msgs, err := store.List(chat)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Key != "h1" || msgs[1].Key != "h2" || msgs[2].Timestamp != 300 {
		t.Fatalf("messages not sorted by timestamp: %+v", msgs)
	}
	if !msgs[2].Read || msgs[2].ImageHash != "img" || len(msgs[2].Key) == 0 {
		t.Fatalf("message fields lost: %+v", msgs[2])
	}

	// 相同键覆盖,新键追加
	if err := store.Append(chat, StoredMessage{Key: "h1", SenderID: "u1", Text: "env-1b", Timestamp: 100}, StoredMessage{Key: "h4", Text: "env-4", Timestamp: 50}); err != nil {
		t.Fatal(err)
	}
	msgs, _ = store.List(chat)
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].Key != "h4" || msgs[1].Text != "env-1b" {
		t.Fatalf("append not applied: %+v", msgs)
	}

	if err := store.Replace(chat, sampleMessages()[:1]); err != nil {
		t.Fatal(err)
	}
	if msgs, _ = store.List(chat); len(msgs) != 1 {
		t.Fatalf("replace should reset chat, got %d", len(msgs))
	}

	other := "chat_u1_u3"
	if err := store.Append(other, StoredMessage{Key: "x", Timestamp: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.Invalidate(chat); err != nil {
		t.Fatal(err)
	}
	if msgs, _ = store.List(chat); len(msgs) != 0 {
		t.Fatalf("invalidate left %d messages", len(msgs))
	}
	if msgs, _ = store.List(other); len(msgs) != 1 {
		t.Fatal("invalidate touched another chat")
	}

	// 秒级时间戳相同的消息按写入顺序排列
	same := "chat_u1_u4"
	for _, k := range []string{"s3", "s1", "s2"} {
		if err := store.Append(same, StoredMessage{Key: k, Text: k, Timestamp: 1792197875}); err != nil {
			t.Fatal(err)
		}
	}
	msgs, _ = store.List(same)
	if len(msgs) != 3 || msgs[0].Key != "s3" || msgs[1].Key != "s1" || msgs[2].Key != "s2" {
		t.Fatalf("same second messages out of write order: %+v", msgs)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	testStore(t, store)
}

func TestSqliteStore(t *testing.T) {
	file := filepath.Join(t.TempDir(), "grip.db")
	store, err := NewSqliteStore(SqliteConfig{DbFile: file})
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, store)
	if err := store.Append("chat_a_b", StoredMessage{Key: "k", Text: "env", Timestamp: 9}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := NewSqliteStore(SqliteConfig{DbFile: file})
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	msgs, err := reopened.List("chat_a_b")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Text != "env" {
		t.Fatalf("state not persisted: %+v", msgs)
	}
}

func TestMessageKeyStable(t *testing.T) {
	a := StoredMessage{ChatID: "c", SenderID: "u1", Text: "env", Timestamp: 5}
	b := a
	if a.MessageKey() != b.MessageKey() {
		t.Fatal("key not deterministic")
	}
	b.Timestamp = 6
	if a.MessageKey() == b.MessageKey() {
		t.Fatal("different messages share a key")
	}
}

func TestNewMessageStore(t *testing.T) {
	store, err := NewMessageStore(DIC.StoreConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatal("default store should be memory")
	}
	if _, err := NewMessageStore(DIC.StoreConfig{Driver: "redis"}); err == nil {
		t.Fatal("expected unsupported driver error")
	}
	if _, err := NewMessageStore(DIC.StoreConfig{Driver: DIC.STORE_SQLITE}); err == nil {
		t.Fatal("expected missing file error")
	}
}
