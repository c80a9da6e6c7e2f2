package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGelfHandler returns a JSON handler shipping records to a Graylog GELF
// UDP input. The returned closer releases the socket.
func NewGelfHandler(addr, facility, level string) (slog.Handler, io.Closer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("creating gelf writer for %s: %w", addr, err)
	}
	w.Facility = facility
	return slog.NewJSONHandler(w, handlerOptions(parseLevel(level))), w, nil
}
