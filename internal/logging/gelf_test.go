package logging

import (
	"log/slog"
	"testing"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGelfHandler_ShipsRecords(t *testing.T) {
	reader, err := gelf.NewReader("127.0.0.1:0")
	require.NoError(t, err)

	h, closer, err := NewGelfHandler(reader.Addr(), "notesgen", "info")
	require.NoError(t, err)
	defer closer.Close()

	slog.New(h).Info("annotation created", "name", "Annotation")

	msg, err := reader.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, msg.Short, "annotation created")
	assert.Contains(t, msg.Short, `"name":"Annotation"`)
}

func TestNewGelfHandler_BadAddress(t *testing.T) {
	_, _, err := NewGelfHandler("not an address", "notesgen", "info")
	assert.Error(t, err)
}
