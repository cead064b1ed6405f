package scan

// Queue collects paths in insertion order, ignoring repeats.
type Queue struct {
	items []string
	seen  map[string]bool
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{seen: make(map[string]bool)}
}

// Add appends path unless it was added before. It reports whether path
// was new.
func (q *Queue) Add(path string) bool {
	key := Key(path)
	if q.seen[key] {
		return false
	}
	q.seen[key] = true
	q.items = append(q.items, path)
	return true
}

// Len returns the number of distinct paths.
func (q *Queue) Len() int {
	return len(q.items)
}

// All returns the paths in the order they were first added.
func (q *Queue) All() []string {
	return append([]string(nil), q.items...)
}
