package sqld

import (
	"context"
	"database/sql"
	"time"

	"github.com/redlibre/grip/utils"
	"github.com/redlibre/grip/zlog"
	_ "modernc.org/sqlite"
)

const createMessageTable = `CREATE TABLE IF NOT EXISTS grip_message (
	chat_id     TEXT    NOT NULL,
	msg_key     TEXT    NOT NULL,
	sender_id   TEXT    NOT NULL DEFAULT '',
	receiver_id TEXT    NOT NULL DEFAULT '',
	text        TEXT    NOT NULL DEFAULT '',
	image_hash  TEXT    NOT NULL DEFAULT '',
	video_hash  TEXT    NOT NULL DEFAULT '',
	ts          INTEGER NOT NULL DEFAULT 0,
	is_read     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (chat_id, msg_key)
)`

const upsertMessage = `INSERT INTO grip_message (chat_id, msg_key, sender_id, receiver_id, text, image_hash, video_hash, ts, is_read)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (chat_id, msg_key) DO UPDATE SET
	sender_id = excluded.sender_id,
	receiver_id = excluded.receiver_id,
	text = excluded.text,
	image_hash = excluded.image_hash,
	video_hash = excluded.video_hash,
	ts = excluded.ts,
	is_read = excluded.is_read`

const selectMessages = `SELECT msg_key, sender_id, receiver_id, text, image_hash, video_hash, ts, is_read
FROM grip_message WHERE chat_id = ? ORDER BY ts ASC, rowid ASC`

// SqliteConfig 配置参数
type SqliteConfig struct {
	DbFile  string
	Timeout int64 // 毫秒
}

// SqliteStore 基于sqlite文件的会话状态,只保存加密信封
type SqliteStore struct {
	Db      *sql.DB
	DbFile  string
	Timeout int64
}

func NewSqliteStore(config SqliteConfig) (*SqliteStore, error) {
	if len(config.DbFile) == 0 {
		return nil, utils.Error("sqlite init failed: db file is nil")
	}
	db, err := sql.Open("sqlite", config.DbFile)
	if err != nil {
		return nil, utils.Error("sqlite init failed: ", err)
	}
	// sqlite单写者,避免SQLITE_BUSY
	db.SetMaxOpenConns(1)
	store := &SqliteStore{Db: db, DbFile: config.DbFile, Timeout: 10000}
	if config.Timeout > 0 {
		store.Timeout = config.Timeout
	}
	ctx, cancel := store.context()
	defer cancel()
	if _, err := db.ExecContext(ctx, createMessageTable); err != nil {
		db.Close()
		return nil, utils.Error("sqlite init failed: ", err)
	}
	zlog.Printf("sqlite message store【%s】has been started successfully", config.DbFile)
	return store, nil
}

func (self *SqliteStore) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(self.Timeout)*time.Millisecond)
}

func (self *SqliteStore) insert(ctx context.Context, tx *sql.Tx, chatID string, msgs []StoredMessage) error {
	stmt, err := tx.PrepareContext(ctx, upsertMessage)
	if err != nil {
		return utils.Error("[Sqlite.Prepare] failed: ", err)
	}
	defer stmt.Close()
	for _, v := range msgs {
		read := 0
		if v.Read {
			read = 1
		}
		v.ChatID = chatID
		if _, err := stmt.ExecContext(ctx, chatID, v.MessageKey(), v.SenderID, v.ReceiverID, v.Text, v.ImageHash, v.VideoHash, v.Timestamp, read); err != nil {
			return utils.Error("[Sqlite.Upsert] failed: ", err)
		}
	}
	return nil
}

func (self *SqliteStore) txRun(fn func(ctx context.Context, tx *sql.Tx) error) error {
	ctx, cancel := self.context()
	defer cancel()
	tx, err := self.Db.BeginTx(ctx, nil)
	if err != nil {
		return utils.Error("[Sqlite.Begin] failed: ", err)
	}
	if err := fn(ctx, tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			zlog.Error("sqlite rollback failed", 0, zlog.AddError(rerr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return utils.Error("[Sqlite.Commit] failed: ", err)
	}
	return nil
}

func (self *SqliteStore) Append(chatID string, msgs ...StoredMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	return self.txRun(func(ctx context.Context, tx *sql.Tx) error {
		return self.insert(ctx, tx, chatID, msgs)
	})
}

func (self *SqliteStore) Replace(chatID string, msgs []StoredMessage) error {
	return self.txRun(func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM grip_message WHERE chat_id = ?", chatID); err != nil {
			return utils.Error("[Sqlite.Delete] failed: ", err)
		}
		return self.insert(ctx, tx, chatID, msgs)
	})
}

func (self *SqliteStore) List(chatID string) ([]StoredMessage, error) {
	ctx, cancel := self.context()
	defer cancel()
	rows, err := self.Db.QueryContext(ctx, selectMessages, chatID)
	if err != nil {
		return nil, utils.Error("[Sqlite.Query] failed: ", err)
	}
	defer rows.Close()
	var result []StoredMessage
	for rows.Next() {
		v := StoredMessage{ChatID: chatID}
		var read int
		if err := rows.Scan(&v.Key, &v.SenderID, &v.ReceiverID, &v.Text, &v.ImageHash, &v.VideoHash, &v.Timestamp, &read); err != nil {
			return nil, utils.Error("[Sqlite.Scan] failed: ", err)
		}
		v.Read = read == 1
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.Error("[Sqlite.Rows] failed: ", err)
	}
	return result, nil
}

func (self *SqliteStore) Invalidate(chatID string) error {
	ctx, cancel := self.context()
	defer cancel()
	if _, err := self.Db.ExecContext(ctx, "DELETE FROM grip_message WHERE chat_id = ?", chatID); err != nil {
		return utils.Error("[Sqlite.Delete] failed: ", err)
	}
	return nil
}

func (self *SqliteStore) Close() error {
	return self.Db.Close()
}
