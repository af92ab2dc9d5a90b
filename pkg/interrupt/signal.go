package interrupt

import "sync"

// Signal is the shared cooperative-cancellation flag.  The avoider sets it
// for the whole of an avoidance manoeuvre; long-running navigation loops
// poll it and give up early when it is set.
type Signal struct {
	lock sync.Mutex
	set  bool
}

func New() *Signal {
	return &Signal{}
}

func (s *Signal) Get() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.set
}

func (s *Signal) Set(v bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.set = v
}
