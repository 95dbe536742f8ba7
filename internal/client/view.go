package client

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"moodchat/internal/app/message"
)

// Merge combines a history window, in any order, with the live buffer into
// one sequence ascending by CreatedAt (ID breaks ties). A message present in
// both keeps its history copy, which carries sender details. Neither input
// is modified.
func Merge(history, live []message.ChatMessage) []message.ChatMessage {
	all := make([]message.ChatMessage, 0, len(history)+len(live))
	all = append(all, history...)
	all = append(all, live...)

	merged := lo.UniqBy(all, func(m message.ChatMessage) int64 { return m.ID })
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Before(merged[j])
	})
	return merged
}

// View renders the fetched history together with a live source.
type View struct {
	mu      sync.RWMutex
	history []message.ChatMessage
	live    func() []message.ChatMessage
}

// NewView returns a view over live, typically Session.Live.
func NewView(live func() []message.ChatMessage) *View {
	if live == nil {
		live = func() []message.ChatMessage { return nil }
	}
	return &View{live: live}
}

// SetHistory replaces the history window.
func (v *View) SetHistory(history []message.ChatMessage) {
	v.mu.Lock()
	v.history = append([]message.ChatMessage(nil), history...)
	v.mu.Unlock()
}

// Messages returns the full merged sequence.
func (v *View) Messages() []message.ChatMessage {
	v.mu.RLock()
	history := v.history
	v.mu.RUnlock()

	return Merge(history, v.live())
}

// Tail returns the last k merged messages.
func (v *View) Tail(k int) []message.ChatMessage {
	if k <= 0 {
		return nil
	}
	all := v.Messages()
	if k >= len(all) {
		return all
	}
	return all[len(all)-k:]
}
