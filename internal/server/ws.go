package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/rhesis-ai/traceplay/internal/playback"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard is served from a different origin in development.
		return true
	},
}

// session is one websocket playback session. Each session owns a private
// clock and driver over the shared, immutable trace entry; closing the
// socket tears the driver down before the next tick.
type session struct {
	id     string
	entry  *Entry
	conn   *websocket.Conn
	clock  *playback.Clock
	driver *playback.Driver
	send   chan []byte
	log    *slog.Logger

	lastCursor time.Time
	lastState  playback.State
	sentFirst  bool
}

// handlePlaybackSocket upgrades the connection and runs the session until
// the client disconnects.
func (s *Server) handlePlaybackSocket(c echo.Context) error {
	entry, ok := s.reg.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "trace not found"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}

	clock := playback.NewClock(entry.Extraction.Range, s.cfg.ClockOptions()...)
	sess := &session{
		id:    uuid.NewString(),
		entry: entry,
		conn:  conn,
		clock: clock,
		send:  make(chan []byte, 64),
	}
	sess.log = slog.With("session_id", sess.id, "trace_id", entry.TraceID)
	sess.driver = playback.NewDriver(clock, s.cfg.Playback.TickInterval.Std(), sess.onTick)

	sess.log.Info("playback session opened")
	sess.enqueue(HelloMessage{
		Type:            MessageHello,
		SessionID:       sess.id,
		TraceID:         entry.TraceID,
		DurationSeconds: entry.Extraction.Range.Duration().Seconds(),
		Speed:           clock.Speed(),
		State:           clock.State().String(),
	})

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	driverDone := make(chan struct{})
	go func() {
		sess.driver.Run(ctx)
		close(driverDone)
	}()
	go sess.writePump(s.cfg.Server.PingInterval.Std(), s.cfg.Server.WriteTimeout.Std())

	sess.readPump()

	// No ticks can enqueue after the driver loop has exited, so closing
	// the send channel here cannot race a write to it.
	sess.driver.Stop()
	<-driverDone
	close(sess.send)
	sess.log.Info("playback session closed")
	return nil
}

// onTick runs on the driver goroutine. Frames are emitted only when the
// cursor or state actually moved, so an idle session stays quiet.
func (sess *session) onTick(cursor time.Time, state playback.State) {
	if sess.sentFirst && cursor.Equal(sess.lastCursor) && state == sess.lastState {
		return
	}
	sess.sentFirst = true
	sess.lastCursor = cursor
	sess.lastState = state
	sess.enqueue(newFrameMessage(sess.entry, cursor, state, sess.clock.Speed()))
}

// enqueue marshals and queues a message, dropping it if the client cannot
// keep up. Dropping a frame is harmless: the next one supersedes it.
func (sess *session) enqueue(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		sess.log.Error("marshal message", "error", err)
		return
	}
	select {
	case sess.send <- data:
	default:
		sess.log.Debug("dropping frame: send buffer full")
	}
}

func (sess *session) readPump() {
	defer sess.conn.Close()

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.log.Warn("websocket read", "error", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			sess.enqueue(ErrorMessage{Type: MessageError, Message: "malformed command"})
			continue
		}
		if err := sess.apply(cmd); err != nil {
			sess.enqueue(ErrorMessage{Type: MessageError, Message: err.Error()})
		}
	}
}

// apply executes one playback command against the session clock. Commands
// land between driver ticks; the clock's lock guarantees the next tick
// observes them.
func (sess *session) apply(cmd Command) error {
	switch cmd.Type {
	case CommandPlay:
		sess.clock.Play()
	case CommandPause:
		sess.clock.Pause()
		sess.pushFrame()
	case CommandSeek:
		rng := sess.entry.Extraction.Range
		sess.clock.Seek(rng.Start.Add(time.Duration(cmd.Position * float64(time.Second))))
		sess.pushFrame()
	case CommandSpeed:
		sess.clock.CycleSpeed()
		sess.pushFrame()
	case CommandReset:
		sess.clock.Reset()
		sess.pushFrame()
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}

// pushFrame emits the post-command frame immediately instead of waiting
// for the next tick, so a paused or scrubbing client sees the effect of
// its command right away.
func (sess *session) pushFrame() {
	sess.enqueue(newFrameMessage(sess.entry, sess.clock.Cursor(), sess.clock.State(), sess.clock.Speed()))
}

func (sess *session) writePump(pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		sess.conn.Close()
	}()

	for {
		select {
		case data, ok := <-sess.send:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = sess.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				sess.log.Debug("websocket write", "error", err)
				return
			}

		case <-ticker.C:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
