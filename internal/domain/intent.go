package domain

// IntentType classifies what the cook wants to do.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentDone               // mark the current step complete
	IntentStop               // stop the session
	IntentStatus
	IntentHelp
	IntentQuit // leave the view; the session keeps running
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentDone:
		return "done"
	case IntentStop:
		return "stop"
	case IntentStatus:
		return "status"
	case IntentHelp:
		return "help"
	case IntentQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	Payload string // original input for unknown intents
}

// IntentParser turns typed or spoken input into an intent.
type IntentParser interface {
	Parse(input string) Intent
}
