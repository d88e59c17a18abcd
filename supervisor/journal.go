package supervisor

// Journaler describes an event sink. Implementations live in package
// supervisor/journal; escalation messages are fanned out to every configured
// sink through one Journaler.
type Journaler interface {
	Write(Event) error
}
