package models

// DefaultHistoryCap is the number of access log entries an environment keeps.
const DefaultHistoryCap = 100

// History is a fixed-capacity FIFO of access log entries.
// Once full, each push evicts the oldest entry.
type History struct {
	buf   []AccessLog
	start int
	size  int
}

// NewHistory creates an empty history. A non-positive capacity means DefaultHistoryCap.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &History{buf: make([]AccessLog, capacity)}
}

// Push appends an entry, evicting the oldest one when the history is full
func (h *History) Push(entry AccessLog) {
	if h.size == len(h.buf) {
		h.buf[h.start] = entry
		h.start = (h.start + 1) % len(h.buf)
		return
	}
	h.buf[(h.start+h.size)%len(h.buf)] = entry
	h.size++
}

// Len returns the number of stored entries
func (h *History) Len() int { return h.size }

// Cap returns the maximum number of stored entries
func (h *History) Cap() int { return len(h.buf) }

// Entries returns a copy of the stored entries, oldest first
func (h *History) Entries() []AccessLog {
	out := make([]AccessLog, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Reset drops every entry
func (h *History) Reset() {
	h.start = 0
	h.size = 0
}
