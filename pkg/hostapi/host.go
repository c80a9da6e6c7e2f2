package hostapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/NotesGenerator/extension/internal/session"
	"github.com/NotesGenerator/extension/pkg/core"
)

// EventPayload is the JSON argument of an :EVENT: call. The host ray casts
// at Pos before calling and ships the result in Hit.
type EventPayload struct {
	Type      core.EventType   `json:"type"`
	Pos       core.ScreenPos   `json:"pos"`
	Hit       *core.SurfaceHit `json:"hit,omitempty"`
	HasCamera bool             `json:"hasCamera"`
}

// ParseEvent decodes an EventPayload.
func ParseEvent(raw string) (EventPayload, error) {
	var p EventPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return EventPayload{}, fmt.Errorf("invalid event payload: %w", err)
	}
	if p.Type == "" {
		return EventPayload{}, fmt.Errorf("invalid event payload: missing type")
	}
	return p, nil
}

// Reply is what the host applies after an :ARM: or :EVENT: call.
type Reply struct {
	Result  session.Result     `json:"result"`
	State   session.State      `json:"state"`
	Cursor  core.Cursor        `json:"cursor,omitempty"`
	Objects []core.SceneObject `json:"objects"`
	Reports []core.Report      `json:"reports"`
}

// RecordingHost implements session.Host for a host that applies changes
// after the call returns. Created objects are collected and identified by
// name; removing one drops it from the reply.
type RecordingHost struct {
	hit    core.SurfaceHit
	camera bool

	mu      sync.Mutex
	objects []core.SceneObject
	cursor  core.Cursor
	reports []core.Report
}

var _ session.Host = (*RecordingHost)(nil)

// NewRecordingHost creates a host that answers hit tests with hit.
func NewRecordingHost(hit core.SurfaceHit, hasCamera bool) *RecordingHost {
	return &RecordingHost{hit: hit, camera: hasCamera}
}

// HitTest returns the hit shipped with the event.
func (h *RecordingHost) HitTest(_ context.Context, _ core.ScreenPos) (core.SurfaceHit, error) {
	return h.hit, nil
}

// CreateObject queues obj and uses its name as ID.
func (h *RecordingHost) CreateObject(_ context.Context, obj core.SceneObject) (core.ObjectID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, o := range h.objects {
		if o.Name == obj.Name {
			return "", fmt.Errorf("object %q already exists", obj.Name)
		}
	}
	h.objects = append(h.objects, obj)
	return core.ObjectID(obj.Name), nil
}

// RemoveObject drops a queued object.
func (h *RecordingHost) RemoveObject(_ context.Context, id core.ObjectID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, o := range h.objects {
		if core.ObjectID(o.Name) == id {
			h.objects = append(h.objects[:i], h.objects[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("object %q not found", id)
}

// HasCamera reports the camera flag shipped with the event.
func (h *RecordingHost) HasCamera(context.Context) bool {
	return h.camera
}

// SetCursor records the last cursor directive.
func (h *RecordingHost) SetCursor(c core.Cursor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cursor = c
}

// Report records a user-visible message.
func (h *RecordingHost) Report(level core.ReportLevel, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports = append(h.reports, core.Report{Level: level, Message: msg})
}

// Reply collects everything recorded so far.
func (h *RecordingHost) Reply(result session.Result, state session.State) Reply {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Reply{
		Result:  result,
		State:   state,
		Cursor:  h.cursor,
		Objects: append(make([]core.SceneObject, 0, len(h.objects)), h.objects...),
		Reports: append(make([]core.Report, 0, len(h.reports)), h.reports...),
	}
}
