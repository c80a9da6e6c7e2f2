// Package hostapi connects the host application to the dispatcher. A call
// is a command name plus string arguments; the reply is a JSON array that
// starts with "ok" or "error".
package hostapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/NotesGenerator/extension/internal/dispatcher"
)

// TimestampCommand is answered by the bridge itself.
const TimestampCommand = ":TIMESTAMP:"

// Bridge routes host calls to a dispatcher.
type Bridge struct {
	d *dispatcher.Dispatcher
}

// NewBridge creates a bridge for d.
func NewBridge(d *dispatcher.Dispatcher) *Bridge {
	return &Bridge{d: d}
}

// Call dispatches command with args and formats the reply. A command of the
// form ":CMD:|payload" falls back to the ":CMD:" handler with the full
// string as its only argument when no args are given.
func (b *Bridge) Call(command string, args []string) string {
	if command == TimestampCommand {
		return FormatResponse(fmt.Sprintf("%d", time.Now().UTC().UnixNano()), nil)
	}
	if b == nil || b.d == nil {
		return FormatResponse(nil, fmt.Errorf("%w: %s", dispatcher.ErrUnknownCommand, command))
	}

	dispatchCommand := command
	if !b.d.HasHandler(command) {
		if head, _, found := strings.Cut(command, "|"); found && b.d.HasHandler(head) {
			dispatchCommand = head
			if len(args) == 0 {
				args = []string{command}
			}
		}
	}

	result, err := b.d.Dispatch(dispatcher.Event{
		Command:   dispatchCommand,
		Args:      args,
		Timestamp: time.Now(),
	})
	return FormatResponse(result, err)
}

// FormatResponse renders ["ok"], ["ok", result] or ["error", message].
func FormatResponse(result any, err error) string {
	if err != nil {
		msg, _ := json.Marshal(err.Error())
		return fmt.Sprintf(`["error", %s]`, msg)
	}
	if result == nil {
		return `["ok"]`
	}
	data, mErr := json.Marshal(result)
	if mErr != nil {
		msg, _ := json.Marshal("failed to encode result: " + mErr.Error())
		return fmt.Sprintf(`["error", %s]`, msg)
	}
	return fmt.Sprintf(`["ok", %s]`, data)
}
