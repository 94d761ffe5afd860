package formguard

import (
	"fmt"
	"io"
	"sync"
)

// State is the form's UI state
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Panel renders the guard's state. At most one of the success and error
// messages is shown at a time; each call replaces the previous one.
type Panel interface {
	// Render is called on every state change. message is empty except for
	// StateSuccess and StateError.
	Render(state State, message string)
	// Annotate replaces all field annotations; an empty result clears them.
	Annotate(result ValidationResult)
}

// NopPanel discards everything
type NopPanel struct{}

func (NopPanel) Render(State, string)      {}
func (NopPanel) Annotate(ValidationResult) {}

// WriterPanel prints state changes and annotations as text lines
type WriterPanel struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterPanel(w io.Writer) *WriterPanel {
	return &WriterPanel{w: w}
}

func (p *WriterPanel) Render(state State, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if message == "" {
		fmt.Fprintf(p.w, "[%s]\n", state)
		return
	}
	fmt.Fprintf(p.w, "[%s] %s\n", state, message)
}

func (p *WriterPanel) Annotate(result ValidationResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, fe := range result {
		fmt.Fprintf(p.w, "  %s: %s\n", fe.Field, fe.Message)
	}
}
