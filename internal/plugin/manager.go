package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// ManifestFile is the file name every plugin directory must contain.
const ManifestFile = "plugin.json"

var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")

	errNoManifest = errors.New("no manifest")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Manager keeps the set of plugins found under one directory.
type Manager struct {
	pluginDir string

	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager creates a Manager rooted at pluginDir. Nothing is loaded until
// Discover is called.
func NewManager(pluginDir string) *Manager {
	return &Manager{
		pluginDir: pluginDir,
		plugins:   map[string]*Plugin{},
	}
}

// Discover rescans the plugin directory and replaces the loaded set.
// A missing directory yields no plugins. Broken plugins are logged and
// skipped.
func (m *Manager) Discover() error {
	entries, err := os.ReadDir(m.pluginDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		entries = nil
	case err != nil:
		return fmt.Errorf("scan plugins: %w", err)
	}

	found := make(map[string]*Plugin, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		p, err := loadPlugin(filepath.Join(m.pluginDir, entry.Name()))
		if errors.Is(err, errNoManifest) {
			continue
		}
		if err != nil {
			log.Warnf("plugin %s: %s", entry.Name(), err)
			continue
		}
		if prev, dup := found[p.Manifest.Name]; dup {
			log.Warnf("plugin %s: name already used by %s", entry.Name(), prev.Path)
			continue
		}

		found[p.Manifest.Name] = p
		log.Debugf("discovered plugin %s (events: %v)", p.Manifest.Name, p.Manifest.Events)
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()
	return nil
}

func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errNoManifest
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := validate.Struct(manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if !filepath.IsLocal(manifest.Executable) {
		return nil, fmt.Errorf("executable %q is outside the plugin directory", manifest.Executable)
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

// Get returns the plugin called name, or ErrPluginNotFound.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	p, ok := m.plugins[name]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrPluginNotFound
	}
	return p, nil
}

// List returns the loaded plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	list := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		list = append(list, p)
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Manifest.Name < list[j].Manifest.Name
	})
	return list
}

// Subscribers returns the plugins handling t, ordered by name.
func (m *Manager) Subscribers(t EventType) []*Plugin {
	var subs []*Plugin
	for _, p := range m.List() {
		if p.Manifest.Handles(t) {
			subs = append(subs, p)
		}
	}
	return subs
}

func (m *Manager) PluginDir() string {
	return m.pluginDir
}
