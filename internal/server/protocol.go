package server

import (
	"time"

	"github.com/rhesis-ai/traceplay/internal/playback"
)

// Command types from the renderer to the server.
const (
	CommandPlay  = "play"
	CommandPause = "pause"
	CommandSeek  = "seek"
	CommandSpeed = "speed"
	CommandReset = "reset"
)

// Message types from the server to the renderer.
const (
	MessageHello = "hello"
	MessageFrame = "frame"
	MessageError = "error"
)

// Command is one playback control message from the renderer. Position is
// the seek target in seconds from the trace start; it is only read for
// seek commands.
type Command struct {
	Type     string  `json:"type"`
	Position float64 `json:"position,omitempty"`
}

// HelloMessage is sent once after the websocket upgrade so the renderer
// knows the session parameters before issuing commands.
type HelloMessage struct {
	Type            string  `json:"type"`
	SessionID       string  `json:"session_id"`
	TraceID         string  `json:"trace_id"`
	DurationSeconds float64 `json:"duration_seconds"`
	Speed           float64 `json:"speed"`
	State           string  `json:"state"`
}

// FrameMessage carries one projected frame plus the clock status it was
// projected under.
type FrameMessage struct {
	Type           string         `json:"type"`
	TraceID        string         `json:"trace_id"`
	State          string         `json:"state"`
	Speed          float64        `json:"speed"`
	PositionSecond float64        `json:"position_seconds"`
	Frame          playback.Frame `json:"frame"`
}

// ErrorMessage reports a rejected command. The session stays open; a bad
// command never tears down playback.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newFrameMessage(e *Entry, cursor time.Time, state playback.State, speed float64) FrameMessage {
	return FrameMessage{
		Type:           MessageFrame,
		TraceID:        e.TraceID,
		State:          state.String(),
		Speed:          speed,
		PositionSecond: cursor.Sub(e.Extraction.Range.Start).Seconds(),
		Frame:          e.Projector.Project(cursor),
	}
}
