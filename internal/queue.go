package internal

// Invocation is a unit of work posted to a dispatcher.
type Invocation struct {
	Fn func()

	// stack of the goroutine that posted the invocation, if captured
	InstantiationStack []byte
	// stack at the moment the invocation started running, if captured
	ExecutionStack []byte
}

type Queue struct {
	invocations []*Invocation
}

func NewQueue() *Queue {
	return &Queue{
		invocations: make([]*Invocation, 0),
	}
}

func (q *Queue) Enqueue(inv *Invocation) {
	q.invocations = append(q.invocations, inv)
}

func (q *Queue) Len() int {
	return len(q.invocations)
}

// Drain runs invocations in FIFO order until the queue is empty,
// including the ones enqueued while draining.
func (q *Queue) Drain(run func(*Invocation)) {
	for len(q.invocations) > 0 {
		inv := q.invocations[0]
		q.invocations[0] = nil
		q.invocations = q.invocations[1:]

		run(inv)
	}

	q.invocations = q.invocations[:0]
}
