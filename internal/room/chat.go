package room

import "sync"

// ChatMessage is one entry in the room transcript.
type ChatMessage struct {
	From      string
	Message   string
	Timestamp string
}

// Transcript is the append-only chat log for one room session. It grows
// monotonically for the session lifetime; only a chat-history replay from
// the signaling server replaces it wholesale.
type Transcript struct {
	mu      sync.Mutex
	entries []ChatMessage
}

// Append adds one message to the end of the transcript.
func (t *Transcript) Append(msg ChatMessage) {
	t.mu.Lock()
	t.entries = append(t.entries, msg)
	t.mu.Unlock()
}

// Replace swaps the whole transcript for the replayed history.
func (t *Transcript) Replace(entries []ChatMessage) {
	t.mu.Lock()
	t.entries = append([]ChatMessage(nil), entries...)
	t.mu.Unlock()
}

// Messages returns a copy of the transcript in order.
func (t *Transcript) Messages() []ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ChatMessage(nil), t.entries...)
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
