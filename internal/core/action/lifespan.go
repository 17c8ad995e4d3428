package action

import "strconv"

// Lifespan is how many more times an action can be taken. The zero value is
// dead: a spent action and a never-configured one behave the same.
type Lifespan struct {
	forever   bool
	remaining int
}

// Forever never runs out.
func Forever() Lifespan { return Lifespan{forever: true} }

// Uses allows n takes before the action dies.
func Uses(n int) Lifespan {
	if n < 0 {
		n = 0
	}
	return Lifespan{remaining: n}
}

// Take consumes one use. Taking a dead or forever lifespan is a no-op.
func (l Lifespan) Take() Lifespan {
	if l.forever || l.remaining == 0 {
		return l
	}
	l.remaining--
	return l
}

func (l Lifespan) Dead() bool { return !l.forever && l.remaining == 0 }

// Remaining reports the uses left; ok is false for a forever lifespan.
func (l Lifespan) Remaining() (n int, ok bool) {
	if l.forever {
		return 0, false
	}
	return l.remaining, true
}

func (l Lifespan) String() string {
	if l.forever {
		return "forever"
	}
	return strconv.Itoa(l.remaining)
}
