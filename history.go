package ecard

// History is a fixed-capacity ring of signed transaction deltas. The oldest
// entry is overwritten first; a monotonic total counter tracks every write
// ever made.
type History struct {
	entries []int64
	cursor  int
	total   uint64
}

func NewHistory(capacity int) *History {

	if capacity < 1 {
		capacity = 1
	}

	return &History{entries: make([]int64, capacity)}

}

// Write stores a delta at the cursor and advances it. It never fails.
func (history *History) Write(delta int64) {
	history.entries[history.cursor] = delta
	history.cursor = (history.cursor + 1) % len(history.entries)
	history.total++
}

// Len is the number of live entries: min(capacity, total writes).
func (history *History) Len() int {

	if history.total < uint64(len(history.entries)) {
		return int(history.total)
	}

	return len(history.entries)

}

// Total is the monotonic count of every write ever made.
func (history *History) Total() uint64 {
	return history.total
}

// Entries returns the live entries most-recent-first, derived by walking
// backward from the cursor.
func (history *History) Entries() []int64 {

	count := history.Len()
	entries := make([]int64, count)

	index := history.cursor

	for i := 0; i < count; i++ {
		index--
		if index < 0 {
			index = len(history.entries) - 1
		}
		entries[i] = history.entries[index]
	}

	return entries

}
