package cond

// Handle addresses one registration in a List.
// Handles stay valid after other registrations are dropped.
type Handle int

// List is an arena of registered conditions.
//
// Registration order is preserved. A condition may be registered more than
// once; each registration gets its own Handle. Dropped slots are left empty
// rather than compacted, which keeps every other Handle stable.
//
// The zero value is ready to use. List is not safe for concurrent use.
type List struct {
	slots []*Condition
	index map[*Condition][]Handle
	live  int
}

// Add registers c and returns its handle.
func (l *List) Add(c *Condition) Handle {
	if l.index == nil {
		l.index = make(map[*Condition][]Handle)
	}
	h := Handle(len(l.slots))
	l.slots = append(l.slots, c)
	l.index[c] = append(l.index[c], h)
	l.live++
	return h
}

// Drop removes the most recent live registration of c.
// Returns false, leaving the list untouched, if c is not registered.
func (l *List) Drop(c *Condition) bool {
	hs := l.index[c]
	if len(hs) == 0 {
		return false
	}
	h := hs[len(hs)-1]
	l.forget(c, len(hs)-1)
	l.slots[h] = nil
	l.live--
	return true
}

// DropHandle removes the registration addressed by h.
// Returns false if h is out of range or already dropped.
func (l *List) DropHandle(h Handle) bool {
	if h < 0 || int(h) >= len(l.slots) || l.slots[h] == nil {
		return false
	}
	c := l.slots[h]
	hs := l.index[c]
	for i := len(hs) - 1; i >= 0; i-- {
		if hs[i] == h {
			l.forget(c, i)
			break
		}
	}
	l.slots[h] = nil
	l.live--
	return true
}

func (l *List) forget(c *Condition, i int) {
	hs := l.index[c]
	hs = append(hs[:i], hs[i+1:]...)
	if len(hs) == 0 {
		delete(l.index, c)
		return
	}
	l.index[c] = hs
}

// Get returns the condition registered under h.
func (l *List) Get(h Handle) (*Condition, bool) {
	if h < 0 || int(h) >= len(l.slots) || l.slots[h] == nil {
		return nil, false
	}
	return l.slots[h], true
}

// All returns the live conditions in registration order.
func (l *List) All() []*Condition {
	out := make([]*Condition, 0, l.live)
	for _, c := range l.slots {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of live registrations.
func (l *List) Len() int {
	return l.live
}
