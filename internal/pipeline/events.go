package pipeline

import (
	"strings"

	"github.com/sells-group/tariff-cli/internal/model"
)

// Emitter receives progressive-disclosure events while a run executes.
// Implementations must not block for long; the pipeline emits inline.
type Emitter interface {
	Emit(ev model.StreamEvent)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ev model.StreamEvent)

// Emit calls the wrapped function.
func (f EmitterFunc) Emit(ev model.StreamEvent) { f(ev) }

// emit is nil-safe: a nil emitter turns events into no-ops so the
// non-streaming path shares the same code.
func emit(em Emitter, t model.EventType, data any) {
	if em == nil {
		return
	}
	em.Emit(model.StreamEvent{Type: t, Data: data})
}

// emitChunks streams the final summary text as word chunks followed by the
// terminal complete event.
func emitChunks(em Emitter, text string, outcome *model.Outcome) {
	if em == nil {
		return
	}
	words := strings.Fields(text)
	const perChunk = 8
	for i := 0; i < len(words); i += perChunk {
		end := i + perChunk
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if end < len(words) {
			chunk += " "
		}
		em.Emit(model.StreamEvent{Type: model.EventChunk, Data: chunk})
	}
	em.Emit(model.StreamEvent{Type: model.EventComplete, Data: outcome})
}
