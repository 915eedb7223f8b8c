package models

// SessionState is one state of the wake-retry session machine.
type SessionState string

const (
	StateIdle                 SessionState = "Idle"
	StateProbing              SessionState = "Probing"
	StateFailed               SessionState = "Failed"
	StateAwaitingWakeDecision SessionState = "AwaitingWakeDecision"
	StateWaking               SessionState = "Waking"
	StateBootWindow           SessionState = "BootWindow"
	StateReprobing            SessionState = "Reprobing"
	StateConnected            SessionState = "Connected"
	StateExhausted            SessionState = "Exhausted"
	StateCancelled            SessionState = "Cancelled"
)

// Terminal reports whether the session machine stops in this state.
func (s SessionState) Terminal() bool {
	switch s {
	case StateConnected, StateExhausted, StateCancelled:
		return true
	}
	return false
}
