package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"piperun/internal/logging"
)

// ManifestName is the file that marks a directory under the add-ons dir as an
// add-on.
const ManifestName = "addon.toml"

// Manifest is the parsed addon.toml.
type Manifest struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Enabled     bool   `toml:"enabled"`
}

// Module is one source file of an add-on, named `<addon>.<relative path>`
// with separators turned into dots and the extension dropped.
type Module struct {
	Name string
	Path string
	Text string
}

// Addon is a discovered add-on.
type Addon struct {
	Name        string
	Dir         string
	Description string
	Enabled     bool
	Reloads     int
	Modules     map[string]*Module
}

// DiscoverAddons scans the add-ons dir. A missing dir yields no add-ons.
func (w *Workspace) DiscoverAddons() error {
	if w.addonsDir == "" {
		return nil
	}
	entries, err := os.ReadDir(w.addonsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read add-ons dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(w.addonsDir, entry.Name())
		manifest, err := readManifest(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logging.WarnWithContext(w.logger, "skipping add-on with invalid manifest", "addon_manifest_invalid",
					logging.String("dir", dir),
					logging.Error(err),
					logging.String(logging.FieldImpact, "add-on cannot be reloaded remotely"),
				)
			}
			continue
		}
		name := manifest.Name
		if name == "" {
			name = entry.Name()
		}
		addon := &Addon{
			Name:        name,
			Dir:         dir,
			Description: manifest.Description,
			Enabled:     manifest.Enabled,
		}
		if addon.Modules, err = scanModules(name, dir); err != nil {
			return err
		}
		w.addons[name] = addon
	}
	return nil
}

// Addon returns the add-on called name.
func (w *Workspace) Addon(name string) (*Addon, bool) {
	addon, ok := w.addons[name]
	return addon, ok
}

// Addons lists add-ons sorted by name.
func (w *Workspace) Addons() []Addon {
	names := make([]string, 0, len(w.addons))
	for name := range w.addons {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Addon, 0, len(names))
	for _, name := range names {
		out = append(out, *w.addons[name])
	}
	return out
}

// ReloadAddon disables the add-on owning target, re-reads its modules whose
// names start with target in sorted order, and enables it again. target is
// an add-on name or a dotted module name inside one. Unknown add-ons match
// nothing. A failed reload leaves the add-on as it was.
func (w *Workspace) ReloadAddon(target string) (string, error) {
	target = strings.TrimSpace(target)
	addonName, _, _ := strings.Cut(target, ".")
	addon, ok := w.addons[addonName]
	if !ok {
		return "", nil
	}

	wasEnabled := addon.Enabled
	addon.Enabled = false
	w.logger.Debug("add-on disabled", logging.String("addon", addon.Name))

	manifest, err := readManifest(addon.Dir)
	if err != nil {
		addon.Enabled = wasEnabled
		return "", fmt.Errorf("reload %s: %w", addon.Name, err)
	}
	modules, err := scanModules(addon.Name, addon.Dir)
	if err != nil {
		addon.Enabled = wasEnabled
		return "", fmt.Errorf("reload %s: %w", addon.Name, err)
	}

	names := make([]string, 0, len(modules))
	for name := range modules {
		if name == target || strings.HasPrefix(name, target+".") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		addon.Modules[name] = modules[name]
		w.logger.Debug("module reloaded",
			logging.String("addon", addon.Name),
			logging.String("module", name),
		)
	}
	// Modules deleted from disk are dropped even when outside target.
	for name := range addon.Modules {
		if _, ok := modules[name]; !ok {
			delete(addon.Modules, name)
		}
	}

	addon.Description = manifest.Description
	addon.Enabled = true
	addon.Reloads++
	w.logger.Debug("add-on enabled",
		logging.String("addon", addon.Name),
		logging.Int("modules", len(names)),
	)
	return "Reloaded " + target, nil
}

func readManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return Manifest{}, err
	}
	var manifest Manifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("parse %s: %w", ManifestName, err)
	}
	return manifest, nil
}

func scanModules(addonName, dir string) (map[string]*Module, error) {
	modules := make(map[string]*Module)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || (name == ManifestName && filepath.Dir(path) == dir) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = strings.TrimSuffix(rel, filepath.Ext(rel))
		moduleName := addonName + "." + strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		modules[moduleName] = &Module{Name: moduleName, Path: path, Text: string(data)}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan add-on modules: %w", err)
	}
	return modules, nil
}
