package llm

import (
	"context"
	"sync"
)

// Static is a scripted Completer for tests. Replies are returned in order;
// once exhausted it repeats the last reply. An empty script always returns "".
type Static struct {
	mu      sync.Mutex
	replies []string
	next    int

	// Err, when set, is returned by every Complete call.
	Err error

	// Calls records every (system, user) pair for assertions.
	Calls []StaticCall
}

// StaticCall is one recorded Complete invocation.
type StaticCall struct {
	System string
	User   string
}

// NewStatic creates a scripted completer that replays the given replies.
func NewStatic(replies ...string) *Static {
	return &Static{replies: replies}
}

func (s *Static) Kind() string { return "static" }

func (s *Static) Complete(ctx context.Context, system, user string, opts ...Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, StaticCall{System: system, User: user})
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	reply := s.replies[s.next]
	if s.next < len(s.replies)-1 {
		s.next++
	}
	return reply, nil
}
