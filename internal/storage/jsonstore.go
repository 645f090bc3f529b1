// internal/storage/jsonstore.go
//
// JSON 快照檔案後端。
// 採原子寫入：先寫入 path+".tmp"，再以 rename() 取代正式檔案，
// 寫入中斷時原檔保持完整。
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrNoSnapshot 代表尚無快照（首次啟動）。
	ErrNoSnapshot = errors.New("snapshot not found")

	// ErrCorrupt 代表快照內容無法解析。
	ErrCorrupt = errors.New("snapshot corrupt")
)

// Store 為快照後端的共同介面。
type Store interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
	Close() error
}

// JSONStore 將快照存為單一 JSON 檔。
type JSONStore struct {
	path string
}

// NewJSONStore 建立 JSON 檔案後端；必要時建立上層目錄。
func NewJSONStore(path string) (*JSONStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	return &JSONStore{path: path}, nil
}

// Load 讀取快照。檔案不存在回傳 ErrNoSnapshot；格式錯誤回傳 ErrCorrupt。
func (s *JSONStore) Load() (Snapshot, error) {
	return LoadSnapshot(s.path)
}

// Save 以原子方式寫入快照。
func (s *JSONStore) Save(snap Snapshot) error {
	return SaveSnapshot(s.path, snap)
}

// Close 無需釋放資源。
func (s *JSONStore) Close() error { return nil }

// LoadSnapshot 讀取指定路徑的 JSON 快照。
func LoadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return snap, ErrNoSnapshot
		}
		return snap, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return snap, nil
}

// SaveSnapshot 將快照序列化後原子寫入：
//  1. 設定 Meta.Storage 與當前時間戳。
//  2. 寫入 path+".tmp"。
//  3. os.Rename() 取代正式檔案。
func SaveSnapshot(path string, snap Snapshot) error {
	snap.Meta.Storage = "json_snapshot"
	snap.Meta.Timestamp = time.Now()
	if snap.Meta.Version == 0 {
		snap.Meta.Version = CurrentVersion
	}
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
