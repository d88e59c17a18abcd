package supervisor

// eventType describes an event type.
type eventType = string

const (
	eventWarning          eventType = "warning"
	eventAcquired         eventType = "acquired lock"
	eventProcessStarted   eventType = "process started"
	eventProcessStopping  eventType = "process stopping"
	eventProcessDied      eventType = "process died"
	eventEscalation       eventType = "escalation"
	eventRebootDeferred   eventType = "reboot deferred"
	eventRebootReinstated eventType = "reboot reinstated"
	eventRebootArmed      eventType = "reboot armed"
	eventRebooting        eventType = "rebooting"
	eventDisplayed        eventType = "file displayed"
	eventPinChanged       eventType = "pin changed"
)

// Event is an interface describing known events.
type Event interface {
	Type() string
	event()
}

// EventWarning is emitted when a non-fatal error occurs.
type EventWarning struct {
	Component string `json:"component"`
	Error     string `json:"error"`
}

func (ev *EventWarning) Type() string { return eventWarning }
func (ev *EventWarning) event()       {}

// EventAcquired is emitted when the flock (i.e. write lock on the journal)
// is acquired, which is on startup.
type EventAcquired struct{}

func (ev *EventAcquired) Type() string { return eventAcquired }
func (ev *EventAcquired) event()       {}

// EventProcessStarted is emitted when a background process has been launched
// and entered into the registry.
type EventProcessStarted struct {
	PID     int    `json:"pid"`
	Command string `json:"command"`
}

func (ev *EventProcessStarted) Type() string { return eventProcessStarted }
func (ev *EventProcessStarted) event()       {}

// EventProcessStopping is emitted when a tracked process is about to be
// killed on request.
type EventProcessStopping struct {
	PID     int    `json:"pid"`
	Command string `json:"command"`
}

func (ev *EventProcessStopping) Type() string { return eventProcessStopping }
func (ev *EventProcessStopping) event()       {}

// EventProcessDied is emitted when a tracked process exits without a
// matching Terminate. It always precedes an escalation.
type EventProcessDied struct {
	PID      int    `json:"pid"`
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"` // -1 if killed by a signal
}

func (ev *EventProcessDied) Type() string { return eventProcessDied }
func (ev *EventProcessDied) event()       {}

// EventEscalation is emitted, before anything else, whenever a fatal
// condition enters the reboot escalation policy.
type EventEscalation struct {
	Message string `json:"message"`
}

func (ev *EventEscalation) Type() string { return eventEscalation }
func (ev *EventEscalation) event()       {}

// EventRebootDeferred is emitted when a pending reboot is blocked by
// logged-in users.
type EventRebootDeferred struct {
	Users int `json:"users"`
}

func (ev *EventRebootDeferred) Type() string { return eventRebootDeferred }
func (ev *EventRebootDeferred) event()       {}

// EventRebootReinstated is emitted when the last blocking user logged out
// and the pending reboot is back on.
type EventRebootReinstated struct{}

func (ev *EventRebootReinstated) Type() string { return eventRebootReinstated }
func (ev *EventRebootReinstated) event()       {}

// EventRebootArmed is emitted right before the final grace period.
type EventRebootArmed struct {
	GraceSeconds int `json:"grace_seconds"`
}

func (ev *EventRebootArmed) Type() string { return eventRebootArmed }
func (ev *EventRebootArmed) event()       {}

// EventRebooting is emitted immediately before the reboot command is issued.
// Nothing is expected to be journaled after it.
type EventRebooting struct{}

func (ev *EventRebooting) Type() string { return eventRebooting }
func (ev *EventRebooting) event()       {}

// EventDisplayed is emitted when the display server hands a dropped file to
// a viewer.
type EventDisplayed struct {
	File    string `json:"file"`
	Command string `json:"command"`
	PID     int    `json:"pid"`
}

func (ev *EventDisplayed) Type() string { return eventDisplayed }
func (ev *EventDisplayed) event()       {}

// EventPinChanged is emitted when the GPIO control panel writes a pin.
type EventPinChanged struct {
	Pin   int `json:"pin"`
	Value int `json:"value"`
}

func (ev *EventPinChanged) Type() string { return eventPinChanged }
func (ev *EventPinChanged) event()       {}
