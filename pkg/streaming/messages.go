// Package streaming defines the messages exchanged with a live annotation viewer.
package streaming

import (
	"encoding/json"

	"github.com/NotesGenerator/extension/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeHello             = "hello"
	TypeBye               = "bye"
	TypeAnnotationAdded   = "annotation_added"
	TypeAnnotationDeleted = "annotation_deleted"
	TypeAck               = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// HelloPayload opens a stream. It is replayed after every reconnect.
type HelloPayload struct {
	ExtensionVersion string `json:"extensionVersion"`
}

// AnnotationAddedPayload carries a placed annotation and its axis as WKT.
type AnnotationAddedPayload struct {
	Annotation *core.Annotation `json:"annotation"`
	Axis       string           `json:"axis"`
}
