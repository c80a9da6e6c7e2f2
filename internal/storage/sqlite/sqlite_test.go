package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NotesGenerator/extension/internal/storage"
	"github.com/NotesGenerator/extension/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ storage.Backend  = (*Backend)(nil)
	_ storage.Exporter = (*Backend)(nil)
)

func annotation(name string) *core.Annotation {
	return &core.Annotation{
		Name:      name,
		SceneName: "Scene",
		Text:      "Annotation",
		Unit:      core.UnitCentimeter,
		Origin:    mgl64.Vec3{1, 1, 1},
		Normal:    mgl64.Vec3{1, 0, 0},
		Tip:       mgl64.Vec3{1.01, 1, 1},
		CreatedAt: time.Now().UTC(),
	}
}

func newBackend(t *testing.T, name string, cfg Config) *Backend {
	t.Helper()
	cfg.Name = name
	b, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	return b
}

func TestRecordAndList(t *testing.T) {
	b := newBackend(t, t.Name(), Config{})
	t.Cleanup(func() { b.Close() })

	a := annotation("Annotation")
	require.NoError(t, b.RecordAnnotation(a))
	assert.NotZero(t, a.ID)

	got, err := b.Annotations("Scene")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.UnitCentimeter, got[0].Unit)
}

func TestClose_WritesDumpAndRestores(t *testing.T) {
	dump := filepath.Join(t.TempDir(), DumpFileName)

	first := newBackend(t, t.Name()+"_first", Config{DumpPath: dump})
	require.NoError(t, first.RecordAnnotation(annotation("Annotation")))
	require.NoError(t, first.RecordAnnotation(annotation("Annotation.001")))
	require.NoError(t, first.DeleteAnnotation(&core.DeleteAnnotation{SceneName: "Scene", Name: "Annotation"}))
	require.NoError(t, first.Close())

	_, err := os.Stat(dump)
	require.NoError(t, err)

	second := newBackend(t, t.Name()+"_second", Config{DumpPath: dump})
	t.Cleanup(func() { second.Close() })

	got, err := second.Annotations("Scene")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Annotation.001", got[0].Name)

	next := annotation("Annotation.002")
	require.NoError(t, second.RecordAnnotation(next))
	assert.Greater(t, next.ID, got[0].ID, "IDs continue after restored rows")
}

func TestDumpLoop(t *testing.T) {
	dump := filepath.Join(t.TempDir(), DumpFileName)
	b := newBackend(t, t.Name(), Config{DumpPath: dump, DumpInterval: 10 * time.Millisecond})
	t.Cleanup(func() { b.Close() })

	require.NoError(t, b.RecordAnnotation(annotation("Annotation")))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dump)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestExport(t *testing.T) {
	b := newBackend(t, t.Name(), Config{})
	_, err := b.Export()
	assert.Error(t, err)
	require.NoError(t, b.Close())

	dump := filepath.Join(t.TempDir(), "out", DumpFileName)
	b = newBackend(t, t.Name()+"_dump", Config{DumpPath: dump})
	t.Cleanup(func() { b.Close() })

	path, err := b.Export()
	require.NoError(t, err)
	assert.Equal(t, dump, path)
}

func TestClose_Twice(t *testing.T) {
	b := newBackend(t, t.Name(), Config{})
	require.NoError(t, b.Close())
	assert.NotPanics(t, func() { _ = b.Close() })
}
