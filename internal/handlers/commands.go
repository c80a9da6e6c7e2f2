package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/NotesGenerator/extension/internal/api"
	"github.com/NotesGenerator/extension/internal/dispatcher"
	"github.com/NotesGenerator/extension/internal/geo"
	"github.com/NotesGenerator/extension/internal/influx"
	"github.com/NotesGenerator/extension/internal/marker"
	"github.com/NotesGenerator/extension/internal/properties"
	"github.com/NotesGenerator/extension/internal/scene"
	"github.com/NotesGenerator/extension/internal/storage"
	"github.com/NotesGenerator/extension/internal/util"
	"github.com/NotesGenerator/extension/pkg/core"
	"github.com/NotesGenerator/extension/pkg/hostapi"
)

// Host commands.
const (
	CmdVersion       = ":VERSION:"
	CmdArm           = ":ARM:"
	CmdEvent         = ":EVENT:"
	CmdPropsGet      = ":PROPS:GET:"
	CmdPropsSet      = ":PROPS:SET:"
	CmdSceneSet      = ":SCENE:SET:"
	CmdBuild         = ":BUILD:"
	CmdMarkersList   = ":MARKERS:LIST:"
	CmdMarkerDelete  = ":MARKER:DELETE:"
	CmdMarkersExport = ":MARKERS:EXPORT:"
	CmdMarkersUpload = ":MARKERS:UPLOAD:"
	CmdMetric        = ":METRIC:"
)

const uploadTimeout = 2 * time.Minute

// ErrBadArgs is returned for calls with missing or malformed arguments.
var ErrBadArgs = errors.New("bad arguments")

// ErrUploadDisabled is returned by :MARKERS:UPLOAD: without an upload server.
var ErrUploadDisabled = errors.New("upload server not configured")

// VersionInfo answers :VERSION:.
type VersionInfo struct {
	Version string `json:"version"`
}

// SceneInfo answers :SCENE:SET:.
type SceneInfo struct {
	Name   string `json:"name"`
	EPSG   int    `json:"epsg,omitempty"`
	Origin string `json:"origin,omitempty"`
}

// UploadResult answers :MARKERS:UPLOAD:.
type UploadResult struct {
	Path        string `json:"path"`
	Annotations int    `json:"annotations"`
}

// BuildResult answers :BUILD:.
type BuildResult struct {
	Geometry   core.MarkerGeometry `json:"geometry"`
	Appearance core.AppearanceSpec `json:"appearance"`
	WKT        string              `json:"wkt"`
}

// Register adds every host command to d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(CmdVersion, s.handleVersion)
	d.Register(CmdArm, s.handleArm, dispatcher.Logged())
	d.Register(CmdEvent, s.handleEvent, dispatcher.Logged())
	d.Register(CmdPropsGet, s.handlePropsGet)
	d.Register(CmdPropsSet, s.handlePropsSet, dispatcher.Logged())
	d.Register(CmdSceneSet, s.handleSceneSet, dispatcher.Logged())
	d.Register(CmdBuild, s.handleBuild)
	d.Register(CmdMarkersList, s.handleMarkersList)
	d.Register(CmdMarkerDelete, s.handleMarkerDelete, dispatcher.Logged())
	d.Register(CmdMarkersExport, s.handleMarkersExport, dispatcher.Logged())
	d.Register(CmdMarkersUpload, s.handleMarkersUpload, dispatcher.Logged())
	d.Register(CmdMetric, s.handleMetric, dispatcher.Buffered(256))
}

func (s *Service) handleVersion(dispatcher.Event) (any, error) {
	return VersionInfo{Version: s.deps.ExtensionVersion}, nil
}

func (s *Service) handleArm(dispatcher.Event) (any, error) {
	h := hostapi.NewRecordingHost(core.SurfaceHit{}, false)
	result := s.operator.Invoke(h)
	return h.Reply(result, s.operator.State()), nil
}

func (s *Service) handleEvent(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: %s expects one event payload", ErrBadArgs, CmdEvent)
	}
	payload, err := hostapi.ParseEvent(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArgs, err)
	}

	var hit core.SurfaceHit
	if payload.Hit != nil {
		hit = *payload.Hit
	}
	h := hostapi.NewRecordingHost(hit, payload.HasCamera)

	result, err := s.operator.Modal(context.Background(), h, core.InputEvent{Type: payload.Type, Pos: payload.Pos})
	if err != nil {
		return nil, err
	}
	return h.Reply(result, s.operator.State()), nil
}

func (s *Service) handlePropsGet(dispatcher.Event) (any, error) {
	return s.deps.Props.Get(), nil
}

// handlePropsSet takes key/value pairs and applies all of them or none.
func (s *Service) handlePropsSet(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, fmt.Errorf("%w: %s expects key/value pairs", ErrBadArgs, CmdPropsSet)
	}

	p, err := s.deps.Props.Update(func(p *properties.Properties) error {
		for i := 0; i < len(args); i += 2 {
			if err := p.Set(args[i], args[i+1]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// handleSceneSet takes the scene name and optionally an EPSG code with the
// scene origin in that CRS.
func (s *Service) handleSceneSet(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) != 1 && len(args) != 3 {
		return nil, fmt.Errorf("%w: %s expects name [epsg origin]", ErrBadArgs, CmdSceneSet)
	}

	var ref *geo.Georef
	if len(args) == 3 {
		epsg, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("%w: epsg %q: %v", ErrBadArgs, args[1], err)
		}
		origin, err := geo.Vec3FromString(args[2])
		if err != nil {
			return nil, err
		}
		ref = &geo.Georef{EPSG: epsg, Origin: origin}
	}

	s.deps.Scene.Set(args[0], ref)
	if err := s.Reload(); err != nil {
		s.writeLog(CmdSceneSet, fmt.Sprintf("Error reloading annotations: %v", err), "WARN")
	}
	return sceneInfo(s.deps.Scene.Get()), nil
}

func sceneInfo(info scene.Info) SceneInfo {
	out := SceneInfo{Name: info.Name}
	if info.Georef != nil {
		out.EPSG = info.Georef.EPSG
		out.Origin = geo.Vec3String(info.Georef.Origin)
	}
	return out
}

// handleBuild computes a marker from the current properties without
// touching the scene. Args are the origin and the unit normal as "x,y,z".
func (s *Service) handleBuild(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: %s expects origin and normal", ErrBadArgs, CmdBuild)
	}
	origin, err := geo.Vec3FromString(args[0])
	if err != nil {
		return nil, err
	}
	normal, err := geo.Vec3FromString(args[1])
	if err != nil {
		return nil, err
	}

	props := s.deps.Props.Get()
	geometry, err := marker.Build(props.Request(origin, normal))
	if err != nil {
		return nil, err
	}
	appearance, err := marker.BuildEmissionAppearance(props.Color, props.EmissionStrength)
	if err != nil {
		return nil, err
	}
	return BuildResult{
		Geometry:   geometry,
		Appearance: appearance,
		WKT:        geo.MeshWKT(geometry.Cone),
	}, nil
}

func (s *Service) handleMarkersList(dispatcher.Event) (any, error) {
	return s.List()
}

func (s *Service) handleMarkerDelete(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) != 1 || args[0] == "" {
		return nil, fmt.Errorf("%w: %s expects a name", ErrBadArgs, CmdMarkerDelete)
	}
	entry, err := s.Delete(args[0])
	if err != nil {
		return nil, err
	}
	return entry.Objects, nil
}

func (s *Service) handleMarkersExport(dispatcher.Event) (any, error) {
	return s.export()
}

func (s *Service) export() (string, error) {
	exporter, ok := s.deps.Backend.(storage.Exporter)
	if !ok {
		return "", fmt.Errorf("storage backend %T cannot export", s.deps.Backend)
	}
	return exporter.Export()
}

// handleMarkersUpload exports the stored annotations and sends the file to
// the upload server. An optional argument overrides the configured tag.
func (s *Service) handleMarkersUpload(e dispatcher.Event) (any, error) {
	if s.deps.Uploader == nil {
		return nil, ErrUploadDisabled
	}
	args := util.CleanArgs(e.Args)
	if len(args) > 1 {
		return nil, fmt.Errorf("%w: %s takes at most a tag", ErrBadArgs, CmdMarkersUpload)
	}
	tag := s.deps.UploadTag
	if len(args) == 1 && args[0] != "" {
		tag = args[0]
	}

	list, err := s.List()
	if err != nil {
		return nil, err
	}
	path, err := s.export()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	err = s.deps.Uploader.Upload(ctx, path, api.UploadMetadata{
		SceneName:        s.deps.Scene.Name(),
		ExtensionVersion: s.deps.ExtensionVersion,
		Annotations:      len(list),
		Tag:              tag,
	})
	if err != nil {
		s.writeLog(CmdMarkersUpload, fmt.Sprintf("Upload of %s failed: %v", path, err), "ERROR")
		return nil, err
	}
	s.writeLog(CmdMarkersUpload, fmt.Sprintf("Uploaded %s", path), "INFO")
	return UploadResult{Path: path, Annotations: len(list)}, nil
}

func (s *Service) handleMetric(e dispatcher.Event) (any, error) {
	if s.deps.Influx == nil {
		return nil, influx.ErrDisabled
	}
	point, err := influx.ParseMetric(util.CleanArgs(e.Args))
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Influx.WritePoint(point)
}
