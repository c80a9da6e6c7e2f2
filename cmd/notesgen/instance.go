package main

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/NotesGenerator/extension/internal/extension"
	"github.com/NotesGenerator/extension/pkg/hostapi"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

const unregisterTimeout = 10 * time.Second

var errNotRegistered = errors.New("extension is not registered")

// instance holds the extension the host registered. The host talks to one
// shared library, so there is exactly one per process.
type instance struct {
	mu  sync.Mutex
	ext *extension.Extension
}

var loaded instance

// register brings the extension up from dir. Registering twice replaces the
// running extension.
func (i *instance) register(dir string) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.ext != nil {
		ctx, cancel := context.WithTimeout(context.Background(), unregisterTimeout)
		_ = i.ext.Unregister(ctx)
		cancel()
		i.ext = nil
	}

	ext, err := extension.Register(context.Background(), extension.Options{Dir: dir, Version: Version})
	if err != nil {
		return hostapi.FormatResponse(nil, err)
	}
	i.ext = ext
	return hostapi.FormatResponse(map[string]string{"version": Version, "log": ext.LogFilePath()}, nil)
}

func (i *instance) unregister() string {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.ext == nil {
		return hostapi.FormatResponse(nil, errNotRegistered)
	}
	ctx, cancel := context.WithTimeout(context.Background(), unregisterTimeout)
	defer cancel()
	err := i.ext.Unregister(ctx)
	i.ext = nil
	return hostapi.FormatResponse(nil, err)
}

// call forwards a host call. The lock is only held to read the extension so
// that calls run concurrently.
func (i *instance) call(command string, args []string) string {
	i.mu.Lock()
	ext := i.ext
	i.mu.Unlock()

	if ext == nil {
		if command == hostapi.TimestampCommand {
			return (*hostapi.Bridge)(nil).Call(command, args)
		}
		return hostapi.FormatResponse(nil, errNotRegistered)
	}
	return ext.Call(command, args)
}

// addonDir is the directory of the loaded library, where the config file
// lives next to it.
func addonDir(modulePath string) string {
	if modulePath == "" {
		return "."
	}
	return filepath.Dir(modulePath)
}
