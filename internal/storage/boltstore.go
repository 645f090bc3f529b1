// internal/storage/boltstore.go
//
// bbolt 快照後端：單一 bucket 保存 JSON 編碼的整份快照。

package storage

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	snapshotBucketName = []byte("snapshot")
	currentKey         = []byte("current")
)

// BoltStore 將快照存於 bbolt 資料庫。
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt 開啟（或建立）bbolt 檔案並確保 bucket 存在。
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	s, err := NewBoltDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewBoltDB 以既有的 *bolt.DB 建立後端。
func NewBoltDB(db *bolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucketName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Load 讀取目前快照。
func (s *BoltStore) Load() (Snapshot, error) {
	var snap Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(snapshotBucketName).Get(currentKey)
		if raw == nil {
			return ErrNoSnapshot
		}
		if err := json.Unmarshal(raw, &snap); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Save 於單一寫入交易中覆寫快照。
func (s *BoltStore) Save(snap Snapshot) error {
	snap.Meta.Storage = "bolt_snapshot"
	snap.Meta.Timestamp = time.Now()
	if snap.Meta.Version == 0 {
		snap.Meta.Version = CurrentVersion
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotBucketName).Put(currentKey, raw)
	})
}

// Close 關閉資料庫。
func (s *BoltStore) Close() error {
	return s.db.Close()
}
