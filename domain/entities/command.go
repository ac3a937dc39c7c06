package entities

// CommandType identifies a session command.
type CommandType string

const (
	CommandStart  CommandType = "start"
	CommandPause  CommandType = "pause"
	CommandResume CommandType = "resume"
	CommandStop   CommandType = "stop"
)

// Command is the only way to transition session state. Commands are
// delivered through an ordered queue and processed one at a time.
type Command struct {
	Type CommandType

	// RecordingID is the remote identifier issued by the recording
	// service. Set on start commands only.
	RecordingID int64
}
