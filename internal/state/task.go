package state

// Result is the resolution of one operation.
type Result struct {
	Op      Op
	Phase   Phase
	Payload any
	// Err is the underlying failure; Message is the text the slice recorded for it.
	Err     error
	Message string
	// State is the snapshot right after the outcome was applied.
	State State
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Phase == Succeeded
}

// Task is a handle on an operation in flight. It always resolves.
type Task struct {
	op   Op
	done chan struct{}
	res  Result
}

func newTask(op Op) *Task {
	return &Task{op: op, done: make(chan struct{})}
}

func (t *Task) resolve(res Result) {
	t.res = res
	close(t.done)
}

func (t *Task) Op() Op {
	return t.op
}

// Done is closed once the outcome has been applied to the Store.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the operation resolves.
func (t *Task) Wait() Result {
	<-t.done
	return t.res
}
