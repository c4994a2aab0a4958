package model

// EventType names one step in the streaming classify protocol. Events are
// emitted in a fixed order; "complete" is always the terminal event.
type EventType string

const (
	EventStage1           EventType = "stage1"
	EventStage1Result     EventType = "stage1_result"
	EventStage2           EventType = "stage2"
	EventStage2Result     EventType = "stage2_result"
	EventStage3           EventType = "stage3"
	EventClarification    EventType = "clarification"
	EventThinkingComplete EventType = "thinking_complete"
	EventChunk            EventType = "chunk"
	EventComplete         EventType = "complete"
)

// StreamEvent is one item in the progressive-disclosure event sequence.
type StreamEvent struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}
