// Package handlers places annotations in the host scene and answers the
// host's commands.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/NotesGenerator/extension/internal/api"
	"github.com/NotesGenerator/extension/internal/cache"
	"github.com/NotesGenerator/extension/internal/influx"
	"github.com/NotesGenerator/extension/internal/logging"
	"github.com/NotesGenerator/extension/internal/marker"
	"github.com/NotesGenerator/extension/internal/properties"
	"github.com/NotesGenerator/extension/internal/scene"
	"github.com/NotesGenerator/extension/internal/session"
	"github.com/NotesGenerator/extension/internal/storage"
	"github.com/NotesGenerator/extension/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// InstrumentationName names the meter of the placement counters.
const InstrumentationName = "github.com/NotesGenerator/extension/internal/handlers"

// ErrNoSurfaceHit is returned by Place when the click is not over a surface.
var ErrNoSurfaceHit = errors.New("no surface hit")

// Names and tags given to the host objects of an annotation.
const (
	ObjectBaseName    = "Annotation"
	TextSuffix        = "_Text"
	MeshMaterialName  = "Annotation_Material"
	TextMaterialName  = "Text_Material"
	TagAnnotation     = "is_annotation"
	TagAnnotationText = "is_annotation_text"
)

// User-visible messages.
const (
	MsgNoLocation = "Could not find a suitable location on the object"
	MsgNoCamera   = "No camera found in the scene. Text will not be oriented."
	MsgCreated    = "Annotation created successfully"
)

// Dependencies holds everything the handlers need. Influx and Meter are optional.
type Dependencies struct {
	Props            *properties.Store
	Scene            *scene.Context
	Cache            *cache.AnnotationCache
	Backend          storage.Backend
	Influx           *influx.Manager
	LogManager       *logging.SlogManager
	Meter            metric.Meter
	ExtensionVersion string
	// Uploader sends exports to the viewer server; nil disables uploads.
	Uploader  Uploader
	UploadTag string
}

// Uploader sends an export file to the viewer server.
type Uploader interface {
	Upload(ctx context.Context, filePath string, meta api.UploadMetadata) error
}

// Service places annotations and keeps the registry of placed ones.
type Service struct {
	deps         Dependencies
	operator     *session.Operator
	writeLogFunc func(functionName, data, level string)
	now          func() time.Time

	placed metric.Int64Counter
	failed metric.Int64Counter
}

// NewService creates the service and its modal operator.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Props == nil || deps.Scene == nil || deps.Cache == nil || deps.Backend == nil {
		return nil, errors.New("handlers: props, scene, cache and backend are required")
	}
	if deps.Meter == nil {
		deps.Meter = noop.Meter{}
	}

	s := &Service{deps: deps, now: time.Now}
	s.writeLogFunc = func(functionName, data, level string) {
		if deps.LogManager != nil {
			deps.LogManager.WriteLog(functionName, data, level)
		}
	}

	var err error
	if s.placed, err = deps.Meter.Int64Counter(
		"annotations.placed",
		metric.WithDescription("Annotations placed in the host scene"),
	); err != nil {
		return nil, fmt.Errorf("creating placed counter: %w", err)
	}
	if s.failed, err = deps.Meter.Int64Counter(
		"annotations.failed",
		metric.WithDescription("Placements that ended without an annotation"),
	); err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	s.operator = session.NewOperator(s)
	return s, nil
}

// Operator returns the modal operator driven by :ARM: and :EVENT:.
func (s *Service) Operator() *session.Operator {
	return s.operator
}

// SceneName returns the scene annotations are placed in.
func (s *Service) SceneName() string {
	return s.deps.Scene.Name()
}

// OperatorState returns the state of the modal operator.
func (s *Service) OperatorState() session.State {
	return s.operator.State()
}

// AnnotationCount returns the number of annotations in the name cache.
func (s *Service) AnnotationCount() int {
	return s.deps.Cache.Len()
}

func (s *Service) writeLog(functionName, data, level string) {
	s.writeLogFunc(functionName, data, level)
}

// Place runs one placement at pos: hit test, build, create the cone and its
// label in the host, then record the annotation. On failure every object
// already created is removed again and the error is reported to the user.
func (s *Service) Place(ctx context.Context, h session.Host, pos core.ScreenPos) error {
	const functionName = "Place"

	hit, err := h.HitTest(ctx, pos)
	if err != nil {
		return s.fail(h, functionName, "hit_test", err)
	}
	if !hit.Hit {
		h.Report(core.ReportWarning, MsgNoLocation)
		s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "no_hit")))
		return ErrNoSurfaceHit
	}

	props := s.deps.Props.Get()
	l := hit.Normal.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return s.fail(h, functionName, "normal",
			fmt.Errorf("%w: surface normal %v has no direction", marker.ErrInvalidGeometryInput, hit.Normal))
	}
	normal := hit.Normal.Mul(1 / l)

	req := props.Request(hit.Point, normal)
	geometry, err := marker.Build(req)
	if err != nil {
		return s.fail(h, functionName, "build", err)
	}
	appearance, err := marker.BuildEmissionAppearance(props.Color, props.EmissionStrength)
	if err != nil {
		return s.fail(h, functionName, "appearance", err)
	}

	name := s.deps.Cache.Reserve(ObjectBaseName)
	var created []core.ObjectID
	rollback := func() {
		s.removeObjects(ctx, h, created)
		s.deps.Cache.Delete(name)
	}

	cone := geometry.Cone
	meshID, err := h.CreateObject(ctx, core.SceneObject{
		Kind:         core.ObjectMesh,
		Name:         name,
		MaterialName: MeshMaterialName,
		Appearance:   appearance,
		Mesh:         &cone,
		Tags:         map[string]bool{TagAnnotation: true},
	})
	if err != nil {
		rollback()
		return s.fail(h, functionName, "create_mesh", err)
	}
	created = append(created, meshID)

	oriented := h.HasCamera(ctx)
	text := core.SceneObject{
		Kind:         core.ObjectText,
		Name:         name + TextSuffix,
		MaterialName: TextMaterialName,
		Appearance:   appearance,
		Label:        &geometry.Label,
		Tags:         map[string]bool{TagAnnotationText: true},
	}
	if oriented {
		text.TrackTo = &core.TrackTo{TrackAxis: "TRACK_Z", UpAxis: "UP_Y", UseTargetZ: true}
	}
	textID, err := h.CreateObject(ctx, text)
	if err != nil {
		rollback()
		return s.fail(h, functionName, "create_text", err)
	}
	created = append(created, textID)

	a := core.Annotation{
		Name:        name,
		SceneName:   s.deps.Scene.Name(),
		Text:        props.Text,
		Unit:        props.Unit,
		Raw:         req.Dimensions,
		Scaled:      geometry.Scaled,
		Origin:      hit.Point,
		Normal:      normal,
		Tip:         geometry.Tip,
		LabelAnchor: geometry.Label.Anchor,
		Appearance:  appearance,
		Oriented:    oriented,
		ObjectIDs:   created,
		CreatedAt:   s.now().UTC(),
	}
	s.georeference(&a)

	if err := s.deps.Backend.RecordAnnotation(&a); err != nil {
		rollback()
		return s.fail(h, functionName, "record", err)
	}
	s.deps.Cache.Set(name, cache.Entry{ID: a.ID, Objects: created})

	if !oriented {
		h.Report(core.ReportWarning, MsgNoCamera)
	}
	if s.deps.Influx != nil {
		if err := s.deps.Influx.RecordPlacement(a); err != nil {
			s.writeLog(functionName, fmt.Sprintf("Error writing placement metric: %v", err), "WARN")
		}
	}
	s.placed.Add(ctx, 1, metric.WithAttributes(attribute.String("unit", string(a.Unit))))

	s.writeLog(functionName, fmt.Sprintf("Placed %s at %v in scene %s", name, a.Origin, a.SceneName), "DEBUG")
	h.Report(core.ReportInfo, MsgCreated)
	return nil
}

// georeference fills in longitude and latitude when the scene has a georeference.
func (s *Service) georeference(a *core.Annotation) {
	ref := s.deps.Scene.Get().Georef
	if ref == nil {
		return
	}
	lon, lat, _, err := ref.ToLonLat(a.Origin)
	if err != nil {
		s.writeLog("georeference", fmt.Sprintf("Error converting origin of %s: %v", a.Name, err), "WARN")
		return
	}
	a.Longitude = &lon
	a.Latitude = &lat
}

func (s *Service) removeObjects(ctx context.Context, h session.Host, ids []core.ObjectID) {
	for i := len(ids) - 1; i >= 0; i-- {
		if err := h.RemoveObject(ctx, ids[i]); err != nil {
			s.writeLog("rollback", fmt.Sprintf("Error removing %s: %v", ids[i], err), "ERROR")
		}
	}
}

func (s *Service) fail(h session.Host, functionName, stage string, err error) error {
	h.Report(core.ReportError, fmt.Sprintf("An error occurred: %v", err))
	s.failed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", stage)))
	s.writeLog(functionName, fmt.Sprintf("Placement failed at %s: %v", stage, err), "ERROR")
	return err
}

// Delete forgets an annotation the host has removed.
func (s *Service) Delete(name string) (cache.Entry, error) {
	d := core.DeleteAnnotation{Name: name, SceneName: s.deps.Scene.Name(), DeletedAt: s.now().UTC()}
	if err := s.deps.Backend.DeleteAnnotation(&d); err != nil {
		return cache.Entry{}, err
	}
	entry, _ := s.deps.Cache.Delete(name)
	return entry, nil
}

// List returns the annotations of the current scene.
func (s *Service) List() ([]core.Annotation, error) {
	return s.deps.Backend.Annotations(s.deps.Scene.Name())
}

// Reload replaces the name cache with the annotations stored for the current
// scene, so restored annotations keep their names and names from the previous
// scene are free again.
func (s *Service) Reload() error {
	s.deps.Cache.Reset()
	list, err := s.List()
	if err != nil {
		return err
	}
	for _, a := range list {
		s.deps.Cache.Set(a.Name, cache.Entry{ID: a.ID, Objects: a.ObjectIDs})
	}
	return nil
}
