// Package scene tracks which host scene annotations are currently placed in.
package scene

import (
	"sync"

	"github.com/NotesGenerator/extension/internal/config"
	"github.com/NotesGenerator/extension/internal/geo"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultName is used until the host reports its scene.
const DefaultName = "Scene"

// Info describes the current scene.
type Info struct {
	Name string
	// Georef is nil for scenes without a geographic reference.
	Georef *geo.Georef
}

// Context holds the current scene state
type Context struct {
	mu   sync.RWMutex
	info Info
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{info: Info{Name: DefaultName}}
}

// NewContextFromConfig seeds the georeference from the config file.
func NewContextFromConfig(cfg config.GeorefConfig) *Context {
	c := NewContext()
	if cfg.Enabled {
		c.info.Georef = &geo.Georef{
			EPSG:   cfg.EPSG,
			Origin: mgl64.Vec3{cfg.OriginX, cfg.OriginY, cfg.OriginZ},
		}
	}
	return c
}

// Get returns the current scene
func (c *Context) Get() Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info
}

// Name returns the current scene name.
func (c *Context) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info.Name
}

// Set replaces the current scene. An empty name falls back to DefaultName;
// a nil georef keeps the configured one.
func (c *Context) Set(name string, georef *geo.Georef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		name = DefaultName
	}
	c.info.Name = name
	if georef != nil {
		g := *georef
		c.info.Georef = &g
	}
}
