package completion

import "time"

// TopicFinished is the event bus topic carrying FinishedEvent payloads.
const TopicFinished = "completion.finished"

// Outcome of a completion call.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// FinishedEvent describes a finished call. It carries sizes, never message content.
type FinishedEvent struct {
	Persona     string
	Provider    string
	Model       string
	Outcome     Outcome
	Error       string
	InputBytes  int
	OutputBytes int
	Tokens      int    // provider-reported total, 0 on failure
	StopReason  string // e.g. "stop", "length"
	Duration    time.Duration
	At          time.Time
}
