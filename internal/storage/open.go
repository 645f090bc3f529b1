// internal/storage/open.go

package storage

import "fmt"

// 支援的後端名稱。
const (
	BackendJSON = "json"
	BackendBolt = "bolt"
)

// Open 依後端名稱開啟快照儲存。
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONStore(path)
	case BackendBolt:
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
