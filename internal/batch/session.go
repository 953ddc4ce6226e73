package batch

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rcliao/reelscript/internal/model"
)

// State is where a session is in consuming its batch. A session is
// exhausted once its last script has been served; the next call regenerates.
type State int

const (
	StateNoBatch State = iota
	StateServing
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateServing:
		return "serving"
	case StateExhausted:
		return "exhausted"
	default:
		return "no-batch"
	}
}

// Session serves one topic's scripts one at a time, regenerating when the
// batch runs out. It is safe for concurrent use.
type Session struct {
	ID string

	o   *Orchestrator
	req Request

	mu     sync.Mutex
	state  State
	result Result
	index  int
}

// NewSession starts a session for req.
func (o *Orchestrator) NewSession(req Request) (*Session, error) {
	if _, err := o.Key(req); err != nil {
		return nil, err
	}
	return &Session{ID: uuid.NewString(), o: o, req: req}, nil
}

// Next returns the next script. The first call loads a batch; later calls
// advance through it and regenerate once it is used up.
func (s *Session) Next(ctx context.Context) (model.GeneratedScript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateNoBatch:
		res, err := s.o.GetOrGenerate(ctx, s.req)
		if err != nil {
			return model.GeneratedScript{}, err
		}
		s.load(res)
	case StateExhausted:
		res, err := s.o.Regenerate(ctx, s.req, s.result.BatchID)
		if err != nil {
			return model.GeneratedScript{}, err
		}
		s.load(res)
	default:
		s.index++
	}
	if s.index >= len(s.result.Scripts)-1 {
		s.state = StateExhausted
	}

	script := s.current()
	s.o.recordServed(ctx, s.result, script)
	return script, nil
}

func (s *Session) load(res Result) {
	if len(res.Scripts) == 0 {
		res.Scripts = []model.GeneratedScript{model.ErrorScript()}
		res.Source = SourceError
	}
	s.result = res
	s.index = 0
	s.state = StateServing
}

func (s *Session) current() model.GeneratedScript {
	return s.result.Scripts[s.index].WithPlaceholders()
}

// Current returns the last script served by Next.
func (s *Session) Current() (model.GeneratedScript, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateNoBatch {
		return model.GeneratedScript{}, false
	}
	return s.current(), true
}

// Remaining reports how many scripts are left before regeneration.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateNoBatch {
		return 0
	}
	return len(s.result.Scripts) - s.index - 1
}

// State reports the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Source reports where the current batch came from.
func (s *Session) Source() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.Source
}
