package eventbus

// history is a fixed-capacity circular buffer of payloads.
type history struct {
	buf   []Payload
	start int
	size  int
}

func newHistory(capacity int) *history {
	return &history{buf: make([]Payload, capacity)}
}

func (h *history) push(p Payload) {
	if len(h.buf) == 0 {
		return
	}
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = p
		h.size++
		return
	}
	// full: overwrite the oldest entry
	h.buf[h.start] = p
	h.start = (h.start + 1) % len(h.buf)
}

// last returns up to n of the most recent payloads, oldest first.
// n <= 0 returns everything.
func (h *history) last(n int) []Payload {
	if n <= 0 || n > h.size {
		n = h.size
	}
	out := make([]Payload, 0, n)
	for i := h.size - n; i < h.size; i++ {
		out = append(out, h.buf[(h.start+i)%len(h.buf)].clone())
	}
	return out
}

func (h *history) reset() {
	clear(h.buf)
	h.start = 0
	h.size = 0
}

func (h *history) len() int {
	return h.size
}

func (h *history) capacity() int {
	return len(h.buf)
}
