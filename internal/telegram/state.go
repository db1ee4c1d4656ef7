package telegram

import (
	"sync"
	"time"
)

// Conversation steps that wait for free-text input
const (
	StateWaitStake  = "wait_stake"
	StateWaitProfit = "wait_profit"
)

// pendingTTL bounds how long a prompt keeps waiting for its answer.
const pendingTTL = 15 * time.Minute

// Pending is a prompt waiting for the user's next text message
type Pending struct {
	State     string
	SurebetID int64 // StateWaitStake only
	Since     time.Time
}

// StateManager tracks one pending prompt per user
type StateManager struct {
	mu      sync.Mutex
	pending map[int64]Pending
	now     func() time.Time
}

func NewStateManager() *StateManager {
	return &StateManager{
		pending: make(map[int64]Pending),
		now:     time.Now,
	}
}

// Set replaces the user's pending prompt
func (sm *StateManager) Set(userID int64, p Pending) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	p.Since = sm.now()
	sm.pending[userID] = p
}

// Take returns and clears the user's pending prompt. Expired prompts are
// dropped.
func (sm *StateManager) Take(userID int64) (Pending, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	p, ok := sm.pending[userID]
	if !ok {
		return Pending{}, false
	}
	delete(sm.pending, userID)

	if sm.now().Sub(p.Since) > pendingTTL {
		return Pending{}, false
	}
	return p, true
}

// Clear drops the user's pending prompt
func (sm *StateManager) Clear(userID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.pending, userID)
}
