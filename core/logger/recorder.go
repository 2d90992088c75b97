package logger

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Event types written to the log.
const (
	EventRunCommand     = "run_command"
	EventBuiltin        = "builtin"
	EventUnknownCommand = "unknown_command"
	EventSyntaxError    = "syntax_error"
	EventBackgroundJob  = "background_job"
	EventInterrupt      = "interrupt"
	EventExitStatus     = "exit_status"
	EventSession        = "session"
)

// Logger captures interaction events as newline delimited JSON.
type Logger struct {
	// Now returns the timestamp for new entries, time.Now by default.
	Now func() time.Time

	mu sync.Mutex
	w  io.Writer
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	return &Logger{Now: time.Now, w: w}
}

// NewSession creates a logger with attached session ID.
func (l *Logger) NewSession(sessionID string) *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: sessionID}
}

func (l *Logger) record(sessionID, eventType string, payload map[string]interface{}) error {
	entry, err := structpb.NewStruct(map[string]interface{}{
		"session_id": sessionID,
		"time":       l.Now().UTC().Format(time.RFC3339Nano),
		"type":       eventType,
		eventType:    normalize(payload),
	})
	if err != nil {
		return errors.Wrapf(err, "encoding %s event", eventType)
	}

	out, err := protojson.Marshal(entry)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = fmt.Fprintln(l.w, string(out))
	return err
}

// normalize converts values structpb can't hold directly.
func normalize(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = normalize(val)
		}
		return out
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = normalize(val)
		}
		return out
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}

// SessionLogger logs messages with a shared session ID.
type SessionLogger struct {
	*Logger
	sessionID string
}

// Record writes one event.
func (l *SessionLogger) Record(eventType string, payload map[string]interface{}) error {
	return l.record(l.sessionID, eventType, payload)
}

// SessionID returns the ID attached to every event.
func (l *SessionLogger) SessionID() string {
	return l.sessionID
}
