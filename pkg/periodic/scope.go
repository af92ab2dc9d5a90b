package periodic

import (
	"context"
	"sync"
)

// Scope is a cancellable context that can be renewed, for components whose
// ticks block and must be released on shutdown.  The zero value is ready to
// use.
type Scope struct {
	lock   sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the current context, creating one if needed.
func (s *Scope) Context() context.Context {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.ctx == nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	return s.ctx
}

// Renew replaces a cancelled context with a live one.
func (s *Scope) Renew() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.ctx == nil || s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
}

// Cancel releases anything blocked on the current context.
func (s *Scope) Cancel() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
