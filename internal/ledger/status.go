// internal/ledger/status.go

package ledger

import (
	"errors"
	"fmt"
)

// SystemStatus 為全域系統狀態，決定是否允許新交易進入。
type SystemStatus string

const (
	StatusOnline     SystemStatus = "online"
	StatusCrashed    SystemStatus = "crashed"
	StatusRecovering SystemStatus = "recovering"
)

// Valid 回報是否為已知狀態。
func (s SystemStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusCrashed, StatusRecovering:
		return true
	}
	return false
}

// ErrNotOnline 由 Gate.Admit 在系統非 online 時回傳。
var ErrNotOnline = errors.New("system is not online")

// ErrBadTransition 代表不合法的狀態轉換。
var ErrBadTransition = errors.New("invalid status transition")

// transitions 列出允許的狀態轉換：
// online → crashed → recovering → online，另允許 online → recovering（已上線時的復原）。
var transitions = map[SystemStatus][]SystemStatus{
	StatusOnline:     {StatusCrashed, StatusRecovering},
	StatusCrashed:    {StatusRecovering},
	StatusRecovering: {StatusOnline},
}

// Gate 為三態持有者。零值為 online。
// 本身不加鎖，呼叫端需在同一臨界區內 Admit 與變更帳本。
type Gate struct {
	status SystemStatus
}

// NewGate 以指定狀態建立 Gate；未知狀態視為 online。
func NewGate(s SystemStatus) *Gate {
	if !s.Valid() {
		s = StatusOnline
	}
	return &Gate{status: s}
}

// Status 回傳目前狀態。
func (g *Gate) Status() SystemStatus {
	if g.status == "" {
		return StatusOnline
	}
	return g.status
}

// Online 回報系統是否允許新工作。
func (g *Gate) Online() bool { return g.Status() == StatusOnline }

// Admit 在非 online 時回傳包裝 ErrNotOnline 的錯誤。
func (g *Gate) Admit() error {
	if s := g.Status(); s != StatusOnline {
		return fmt.Errorf("%w: system is %s", ErrNotOnline, s)
	}
	return nil
}

// Transition 依狀態機規則轉換；同狀態轉換視為不合法。
func (g *Gate) Transition(to SystemStatus) error {
	from := g.Status()
	for _, allowed := range transitions[from] {
		if allowed == to {
			g.status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrBadTransition, from, to)
}

// Force 無條件設定狀態，僅供重置與快照還原使用。
func (g *Gate) Force(s SystemStatus) {
	if !s.Valid() {
		s = StatusOnline
	}
	g.status = s
}
