// internal/bank/schedule.go

package bank

import "time"

// handle 為可個別取消的延遲回呼。
type handle interface {
	Stop() bool
}

// scheduler 產生延遲回呼；正式環境使用 time.AfterFunc，測試可替換為手動觸發。
type scheduler interface {
	AfterFunc(d time.Duration, f func()) handle
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) handle {
	return time.AfterFunc(d, f)
}
