package application

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// sessionState 某个会话最近一次搜索的状态
type sessionState struct {
	seq    uint64
	cancel context.CancelFunc
}

// SessionTracker 为每次搜索分配全局递增序号，新搜索会取消并取代同一会话中仍在进行的旧搜索
type SessionTracker struct {
	mu       sync.Mutex
	next     uint64
	sessions *lru.Cache[string, *sessionState]
}

// NewSessionTracker 创建会话跟踪器，limit 为同时跟踪的会话上限
func NewSessionTracker(limit int) (*SessionTracker, error) {
	cache, err := lru.New[string, *sessionState](limit)
	if err != nil {
		return nil, err
	}
	return &SessionTracker{sessions: cache}, nil
}

// Ticket 一次搜索在会话中的登记
type Ticket struct {
	tracker   *SessionTracker
	sessionID string
	seq       uint64
	cancel    context.CancelFunc
}

// Begin 登记新搜索并取消同一会话的旧搜索，返回的 ctx 会在被取代时取消
func (t *SessionTracker) Begin(ctx context.Context, sessionID string) (context.Context, *Ticket) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.sessions.Get(sessionID)
	if !ok {
		state = &sessionState{}
		t.sessions.Add(sessionID, state)
	}
	if state.cancel != nil {
		state.cancel()
	}
	t.next++
	state.seq = t.next
	state.cancel = cancel

	return ctx, &Ticket{tracker: t, sessionID: sessionID, seq: state.seq, cancel: cancel}
}

// Seq 返回该搜索的序号
func (tk *Ticket) Seq() uint64 {
	return tk.seq
}

// Current 该搜索是否仍是会话中最新的一次
func (tk *Ticket) Current() bool {
	tk.tracker.mu.Lock()
	defer tk.tracker.mu.Unlock()

	state, ok := tk.tracker.sessions.Peek(tk.sessionID)
	if !ok {
		// 会话已被淘汰，不存在更新的搜索
		return true
	}
	return state.seq == tk.seq
}

// Done 释放搜索占用的资源
func (tk *Ticket) Done() {
	tk.cancel()

	tk.tracker.mu.Lock()
	defer tk.tracker.mu.Unlock()

	if state, ok := tk.tracker.sessions.Peek(tk.sessionID); ok && state.seq == tk.seq {
		state.cancel = nil
	}
}

// Len 返回当前跟踪的会话数
func (t *SessionTracker) Len() int {
	return t.sessions.Len()
}
