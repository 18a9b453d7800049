package intent

// WindowSize is the number of recent utterances a session remembers.
const WindowSize = 3

// ConversationWindow keeps the most recent utterances of one session, oldest first.
// It is not safe for concurrent use; RuleScorer serializes access.
type ConversationWindow struct {
	size    int
	entries []string
}

// NewConversationWindow returns an empty window holding at most size entries.
func NewConversationWindow(size int) *ConversationWindow {
	if size <= 0 {
		size = WindowSize
	}
	return &ConversationWindow{
		size:    size,
		entries: make([]string, 0, size),
	}
}

// Push appends text, evicting the oldest entry beyond capacity.
func (w *ConversationWindow) Push(text string) {
	w.entries = append(w.entries, text)
	if len(w.entries) > w.size {
		// copy so evicted strings are not pinned by the backing array
		kept := make([]string, w.size, w.size+1)
		copy(kept, w.entries[len(w.entries)-w.size:])
		w.entries = kept
	}
}

// Len returns the number of stored utterances.
func (w *ConversationWindow) Len() int {
	return len(w.entries)
}

// Previous returns the second most recent utterance.
func (w *ConversationWindow) Previous() (string, bool) {
	if len(w.entries) < 2 {
		return "", false
	}
	return w.entries[len(w.entries)-2], true
}

// Snapshot returns a copy of the stored utterances, oldest first.
func (w *ConversationWindow) Snapshot() []string {
	return append([]string(nil), w.entries...)
}

// Reset empties the window.
func (w *ConversationWindow) Reset() {
	w.entries = w.entries[:0]
}
