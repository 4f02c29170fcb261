// Package asyncop tracks in-flight asynchronous store operations by id.
// Each Op aggregates one or more Completions and becomes ready once its
// submitter stops adding completions; Wait blocks until ready and every
// attached completion has finalized, returning the first non-zero status
// observed.
package asyncop

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Completion is a single store-side async operation's outcome.
type Completion struct {
	done chan struct{}
	err  error
}

// NewCompletion returns a Completion whose outcome is reported via Finish.
func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Finish records the completion's outcome. Finish must be called exactly
// once; later calls are ignored.
func (c *Completion) Finish(err error) {
	select {
	case <-c.done:
		return
	default:
	}
	c.err = err
	close(c.done)
}

// Wait blocks until the completion has finished and returns its error.
func (c *Completion) Wait() error {
	<-c.done
	return c.err
}

// Op is a logical asynchronous operation aggregating one or more store
// completions. Only the submitter calls SetReady; multiple waiters are
// allowed and all observe the same final status.
type Op struct {
	id string

	mu          sync.Mutex
	completions []*Completion
	ready       bool
	readyCh     chan struct{}
}

func newOp(id string) *Op {
	return &Op{id: id, readyCh: make(chan struct{})}
}

// ID returns the op's identifier.
func (o *Op) ID() string { return o.id }

// AddCompletion attaches a completion the submitter has just created. It
// must not be called after SetReady.
func (o *Op) AddCompletion(c *Completion) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completions = append(o.completions, c)
}

// SetReady marks that no further completions will be added. Idempotent.
func (o *Op) SetReady() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ready {
		return
	}
	o.ready = true
	close(o.readyCh)
}

// Wait blocks until ready and every attached completion has finalized,
// returning the first non-nil error observed.
func (o *Op) Wait() error {
	<-o.readyCh

	o.mu.Lock()
	pending := make([]*Completion, len(o.completions))
	copy(pending, o.completions)
	o.mu.Unlock()

	var eg errgroup.Group
	for _, c := range pending {
		c := c
		eg.Go(func() error {
			return c.Wait()
		})
	}
	return eg.Wait()
}
