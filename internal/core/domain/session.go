package domain

import "fmt"

type SessionState int

const (
	SessionClosed SessionState = iota
	SessionOpening
	SessionOpen
	SessionClosing
)

func (s SessionState) String() string {
	switch s {
	case SessionClosed:
		return "closed"
	case SessionOpening:
		return "opening"
	case SessionOpen:
		return "open"
	case SessionClosing:
		return "closing"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

type TrackingStatus int

const (
	TrackingNone TrackingStatus = iota
	TrackingLost
	TrackingTracking
)

// TrackingStatusFromCode maps a backend status code. Unknown codes are None.
func TrackingStatusFromCode(code int) TrackingStatus {
	switch code {
	case 1:
		return TrackingLost
	case 2:
		return TrackingTracking
	default:
		return TrackingNone
	}
}

func (s TrackingStatus) String() string {
	switch s {
	case TrackingLost:
		return "lost"
	case TrackingTracking:
		return "tracking"
	default:
		return "none"
	}
}

// SessionConfig is the client configuration handed to the sensing backend.
// Field names follow the remote /client/config document.
type SessionConfig struct {
	ServerIP         string `json:"server_ip" yaml:"server_ip"`
	UDPPort          int    `json:"udp_port" yaml:"udp_port"`
	WebsocketPort    int    `json:"websocket_port" yaml:"websocket_port"`
	Framerate        int    `json:"framerate" yaml:"framerate"`
	Protocol         int    `json:"protocol" yaml:"protocol"`
	ResWidth         int    `json:"res_width" yaml:"res_width"`
	ResHeight        int    `json:"res_height" yaml:"res_height"`
	Bitrate          int    `json:"bitrate" yaml:"bitrate"`
	KeyframeInterval int    `json:"keyframe_interval" yaml:"keyframe_interval"`
	FrameRotation    int    `json:"frame_rotation" yaml:"frame_rotation"`
	Contrast         int    `json:"contrast" yaml:"contrast"`
}

// DefaultSessionConfig returns the values the remote service expects when a
// field is not provided.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		UDPPort:       8888,
		WebsocketPort: 8889,
		Framerate:     30,
		Protocol:      4,
		ResWidth:      640,
		ResHeight:     480,
		Bitrate:       1500000,
		Contrast:      128,
	}
}

type SessionEventType string

const (
	EventOpen                  SessionEventType = "open"
	EventClose                 SessionEventType = "close"
	EventTrackingStatusChanged SessionEventType = "tracking_status_changed"
	EventError                 SessionEventType = "error"
)

// SessionEvent is what observers of the session receive on the main tick.
type SessionEvent struct {
	Type    SessionEventType
	Status  TrackingStatus
	Message string
}

// PreviewHandle identifies a live-feed preview surface owned by the backend.
type PreviewHandle uintptr
