// Package session runs the click-to-place interaction: the operator is armed
// from the panel, waits for one click in the viewport and then finishes.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/NotesGenerator/extension/pkg/core"
)

// ErrNotArmed is returned by Modal when no placement is waiting for a click.
var ErrNotArmed = errors.New("operator is not armed")

// Host is the host application as seen by the extension: it ray casts,
// creates and removes objects, and shows cursors and messages.
type Host interface {
	HitTest(ctx context.Context, pos core.ScreenPos) (core.SurfaceHit, error)
	CreateObject(ctx context.Context, obj core.SceneObject) (core.ObjectID, error)
	RemoveObject(ctx context.Context, id core.ObjectID) error
	HasCamera(ctx context.Context) bool
	SetCursor(c core.Cursor)
	Report(level core.ReportLevel, msg string)
}

// Placer creates an annotation at the clicked position.
type Placer interface {
	Place(ctx context.Context, h Host, pos core.ScreenPos) error
}

// State is the operator state.
type State string

const (
	StateIdle      State = "IDLE"
	StateArmed     State = "ARMED"
	StateCompleted State = "COMPLETED"
	StateCancelled State = "CANCELLED"
)

// Result tells the host whether to keep routing events to the operator.
type Result string

const (
	ResultRunning   Result = "RUNNING_MODAL"
	ResultFinished  Result = "FINISHED"
	ResultCancelled Result = "CANCELLED"
)

// Operator is the modal placement operator. One operator serves one host
// window; events are handled one at a time.
type Operator struct {
	// mu serializes events; state is read without it so that logging from
	// inside a placement can report it.
	mu     sync.Mutex
	state  atomic.Value
	placer Placer
}

// NewOperator creates an idle operator.
func NewOperator(p Placer) *Operator {
	o := &Operator{placer: p}
	o.state.Store(StateIdle)
	return o
}

// State returns the current state.
func (o *Operator) State() State {
	return o.state.Load().(State)
}

// Invoke arms the operator and switches the cursor to a crosshair. Invoking
// an armed operator keeps it armed.
func (o *Operator) Invoke(h Host) Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Store(StateArmed)
	h.SetCursor(core.CursorCrosshair)
	return ResultRunning
}

// Modal handles one input event. A left click runs the placement and ends
// the session whatever its outcome; right click and escape cancel; anything
// else keeps the operator armed. The cursor is back to default on every
// terminal transition.
func (o *Operator) Modal(ctx context.Context, h Host, ev core.InputEvent) (Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.State() != StateArmed {
		return "", ErrNotArmed
	}

	switch ev.Type {
	case core.EventLeftMouse:
		err := o.placer.Place(ctx, h, ev.Pos)
		h.SetCursor(core.CursorDefault)
		if err != nil {
			o.state.Store(StateCancelled)
			return ResultCancelled, nil
		}
		o.state.Store(StateCompleted)
		return ResultFinished, nil

	case core.EventRightMouse, core.EventEscape:
		h.SetCursor(core.CursorDefault)
		o.state.Store(StateCancelled)
		return ResultCancelled, nil
	}

	return ResultRunning, nil
}

// Abort cancels an armed operator without an input event, as on unregister.
func (o *Operator) Abort(h Host) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.State() != StateArmed {
		return
	}
	o.state.Store(StateCancelled)
	if h != nil {
		h.SetCursor(core.CursorDefault)
	}
}
