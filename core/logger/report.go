package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// LogEntry is a single decoded event.
type LogEntry struct {
	SessionID string
	Time      time.Time
	Type      string
	Payload   map[string]interface{}
}

// GetString returns a string field of the payload or "".
func (le *LogEntry) GetString(key string) string {
	s, _ := le.Payload[key].(string)
	return s
}

// GetNumber returns a numeric field of the payload or 0.
func (le *LogEntry) GetNumber(key string) float64 {
	n, _ := le.Payload[key].(float64)
	return n
}

// GetStrings returns a list field of the payload, skipping non-string
// members.
func (le *LogEntry) GetStrings(key string) []string {
	list, _ := le.Payload[key].([]interface{})
	var out []string
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Command returns the first word of the argv field.
func (le *LogEntry) Command() string {
	if argv := le.GetStrings("argv"); len(argv) > 0 {
		return argv[0]
	}
	return ""
}

func entryFromStruct(st *structpb.Struct) *LogEntry {
	raw := st.AsMap()

	le := &LogEntry{}
	le.SessionID, _ = raw["session_id"].(string)
	le.Type, _ = raw["type"].(string)
	if ts, ok := raw["time"].(string); ok {
		le.Time, _ = time.Parse(time.RFC3339Nano, ts)
	}
	le.Payload, _ = raw[le.Type].(map[string]interface{})
	return le
}

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var rawEntry json.RawMessage
		if err := decoder.Decode(&rawEntry); err != nil {
			return err
		}

		var st structpb.Struct
		if err := protojson.Unmarshal(rawEntry, &st); err != nil {
			return err
		}

		handler(entryFromStruct(&st))
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`
	Sessions       StrCounter `json:"sessions"`

	RunCommand     RunCommandReport     `json:"run_command_report"`
	UnknownCommand UnknownCommandReport `json:"unknown_command_report"`
	Builtins       StrCounter           `json:"builtins"`
	SyntaxErrors   StrCounter           `json:"syntax_errors"`
	Background     BackgroundReport     `json:"background_report"`
	Interrupts     StrCounter           `json:"interrupts"`
	ExitStatuses   StrCounter           `json:"exit_statuses"`
}

// Update folds one entry into the report.
func (r *Report) Update(le *LogEntry) {
	r.LogEntries++
	if le.SessionID != "" {
		r.Sessions.Increment(le.SessionID)
	}

	switch le.Type {
	case EventRunCommand:
		r.RunCommand.update(le)
	case EventUnknownCommand:
		r.UnknownCommand.update(le)
	case EventBuiltin:
		r.Builtins.Increment(le.Command())
	case EventSyntaxError:
		r.SyntaxErrors.Increment(le.GetString("error"))
	case EventBackgroundJob:
		r.Background.update(le)
	case EventInterrupt:
		r.Interrupts.Increment(le.GetString("action"))
	case EventExitStatus:
		r.ExitStatuses.Increment(fmt.Sprintf("%g", le.GetNumber("code")))
	case EventSession:
		// Ignore
	default:
		r.InvalidEntries.Increment(le.Type)
	}
}

type RunCommandReport struct {
	// Name of the resolved command
	ResolvedCommandPaths StrCounter `json:"resolved_command_paths"`
	// Name of the command
	CommandNames StrCounter `json:"command_names"`
}

func (r *RunCommandReport) update(le *LogEntry) {
	r.ResolvedCommandPaths.Increment(le.GetString("path"))
	if name := le.Command(); name != "" {
		r.CommandNames.Increment(name)
	}
}

type UnknownCommandReport struct {
	CommandNames StrCounter `json:"command_names"`
}

func (r *UnknownCommandReport) update(le *LogEntry) {
	if name := le.Command(); name != "" {
		r.CommandNames.Increment(name)
	}
}

type BackgroundReport struct {
	Count        int        `json:"count"`
	CommandNames StrCounter `json:"command_names"`
}

func (r *BackgroundReport) update(le *LogEntry) {
	r.Count++
	if name := le.Command(); name != "" {
		r.CommandNames.Increment(name)
	}
}

// NewFailureReport creates an empty FailureReport.
func NewFailureReport() *FailureReport {
	return &FailureReport{
		UnknownCommands: NewPathCounter("command", "error"),
		ExitStatuses:    NewPathCounter("command", "code"),
		SyntaxErrors:    NewPathCounter("line", "error"),
	}
}

// FailureReport pulls the events where something didn't go as the user
// intended.
type FailureReport struct {
	LogEntries int `json:"log_entries"`

	UnknownCommands *PathCounter `json:"unknown_commands"`
	ExitStatuses    *PathCounter `json:"nonzero_exit_statuses"`
	SyntaxErrors    *PathCounter `json:"syntax_errors"`
}

func (r *FailureReport) Update(le *LogEntry) {
	r.LogEntries++

	switch le.Type {
	case EventUnknownCommand:
		r.UnknownCommands.Increment(le.Command(), le.GetString("error"))
	case EventExitStatus:
		if code := le.GetNumber("code"); code != 0 {
			r.ExitStatuses.Increment(le.Command(), fmt.Sprintf("%g", code))
		}
	case EventSyntaxError:
		r.SyntaxErrors.Increment(le.GetString("line"), le.GetString("error"))
	}
}

// SessionReport lists what was typed in each session.
type SessionReport struct {
	// Map of sessionID -> session
	sessions map[string]*SessionSummary
}

type SessionSummary struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	LogEntries int       `json:"log_entries"`
	Commands   []string  `json:"commands"`
}

func (s *SessionSummary) Update(le *LogEntry) {
	s.LogEntries++
	if s.Start.IsZero() || le.Time.Before(s.Start) {
		s.Start = le.Time
	}
	if le.Time.After(s.End) {
		s.End = le.Time
	}

	switch le.Type {
	case EventRunCommand, EventUnknownCommand, EventBuiltin, EventBackgroundJob:
		s.Commands = append(s.Commands, strings.Join(le.GetStrings("argv"), " "))
	}
}

func (r *SessionReport) init() {
	if r.sessions == nil {
		r.sessions = make(map[string]*SessionSummary)
	}
}

// MarshalJSON implemnts custom JSON marshaler.
func (r *SessionReport) MarshalJSON() ([]byte, error) {
	r.init()

	return json.Marshal(r.sessions)
}

func (r *SessionReport) Update(le *LogEntry) {
	r.init()

	if le.SessionID == "" {
		return
	}
	summary, ok := r.sessions[le.SessionID]
	if !ok {
		summary = &SessionSummary{}
		r.sessions[le.SessionID] = summary
	}

	summary.Update(le)
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count returns how many times key was seen.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implemnts custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts distinct tuples of strings.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// MarshalJSON implemnts custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
