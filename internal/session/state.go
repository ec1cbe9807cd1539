package session

// State is the lifecycle state of a capture session.
type State int

const (
	Idle State = iota
	AcquiringCamera
	Streaming
	Stopped
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AcquiringCamera:
		return "acquiring_camera"
	case Streaming:
		return "streaming"
	case Stopped:
		return "stopped"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Active reports whether the session holds, or is about to hold, the camera.
func (s State) Active() bool {
	return s == AcquiringCamera || s == Streaming
}
