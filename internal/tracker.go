package internal

import "sync"

// Tracker records, per goroutine, which computation is running user code.
type Tracker struct {
	running sync.Map // goroutine id -> *[]string
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) Run(name string, fn func()) {
	gid := GoroutineID()

	v, _ := t.running.LoadOrStore(gid, &[]string{})
	stack := v.(*[]string)

	*stack = append(*stack, name)
	defer func() {
		*stack = (*stack)[:len(*stack)-1]
		if len(*stack) == 0 {
			t.running.Delete(gid)
		}
	}()

	fn()
}

// Current returns the innermost computation running user code on the calling goroutine.
func (t *Tracker) Current() (string, bool) {
	v, ok := t.running.Load(GoroutineID())
	if !ok {
		return "", false
	}

	stack := *v.(*[]string)
	if len(stack) == 0 {
		return "", false
	}

	return stack[len(stack)-1], true
}
