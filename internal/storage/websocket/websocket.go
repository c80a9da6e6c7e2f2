// Package websocket streams placed annotations to a live viewer. A memory
// mirror answers listing queries so the viewer is never read back.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/NotesGenerator/extension/internal/config"
	"github.com/NotesGenerator/extension/internal/geo"
	"github.com/NotesGenerator/extension/internal/storage/memory"
	"github.com/NotesGenerator/extension/pkg/core"
	"github.com/NotesGenerator/extension/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL              string
	Secret           string
	ExtensionVersion string
	AckTimeout       time.Duration
	ReconnectMax     time.Duration
}

// ConfigFrom copies the stream settings out of the storage config.
func ConfigFrom(cfg config.WebSocketConfig, version string) Config {
	return Config{
		URL:              cfg.URL,
		Secret:           cfg.Secret,
		ExtensionVersion: version,
		AckTimeout:       cfg.AckTimeout,
		ReconnectMax:     cfg.ReconnectMax,
	}
}

// Backend streams annotation changes over WebSocket.
type Backend struct {
	conn   *connection
	cfg    Config
	mirror *memory.Backend
}

// New creates a WebSocket backend. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 5 * time.Second
	}
	return &Backend{
		conn:   newConnection(logger, cfg.ReconnectMax),
		cfg:    cfg,
		mirror: memory.New(config.MemoryConfig{}, cfg.ExtensionVersion),
	}
}

// Init connects and waits for the server to acknowledge the hello message.
func (b *Backend) Init() error {
	if err := b.conn.dial(b.cfg.URL, b.cfg.Secret); err != nil {
		return err
	}

	hello, err := marshalEnvelope(streaming.TypeHello, streaming.HelloPayload{ExtensionVersion: b.cfg.ExtensionVersion})
	if err != nil {
		return err
	}

	b.conn.mu.Lock()
	b.conn.cachedHello = hello
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(hello, streaming.TypeHello, b.cfg.AckTimeout)
}

// Close says goodbye and disconnects. A missing ack for bye is not an error.
func (b *Backend) Close() error {
	if data, err := marshalEnvelope(streaming.TypeBye, nil); err == nil {
		if err := b.conn.sendAndWait(data, streaming.TypeBye, b.cfg.AckTimeout); err != nil {
			b.conn.logger.Debug("No ack for bye", "error", err)
		}
	}
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload and pushes it to the write loop.
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// RecordAnnotation assigns an ID from the mirror and streams the annotation.
func (b *Backend) RecordAnnotation(a *core.Annotation) error {
	if err := b.mirror.RecordAnnotation(a); err != nil {
		return err
	}
	sent := *a
	return b.sendEnvelope(streaming.TypeAnnotationAdded, streaming.AnnotationAddedPayload{
		Annotation: &sent,
		Axis:       geo.AxisLineString(a.Origin, a.Tip).AsText(),
	})
}

// DeleteAnnotation streams a deletion of an annotation known to the mirror.
func (b *Backend) DeleteAnnotation(d *core.DeleteAnnotation) error {
	if d.DeletedAt.IsZero() {
		d.DeletedAt = time.Now().UTC()
	}
	if err := b.mirror.DeleteAnnotation(d); err != nil {
		return err
	}
	return b.sendEnvelope(streaming.TypeAnnotationDeleted, d)
}

// Annotations lists the annotations streamed in this session.
func (b *Backend) Annotations(scene string) ([]core.Annotation, error) {
	return b.mirror.Annotations(scene)
}
