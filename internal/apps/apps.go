// Package apps lists the installed desktop applications that can use the
// network and watches for them to come and go.
package apps

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/user/vpn-bridge/internal/icon"
	"github.com/user/vpn-bridge/internal/logger"
)

// ErrPackageNotFound is returned by Resolve for unknown application ids.
var ErrPackageNotFound = errors.New("package not found")

// App describes one installed application.
type App struct {
	AppName     string `json:"appName"`
	PackageName string `json:"packageName"`
	IsSystem    bool   `json:"isSystem"`
	Icon        []byte `json:"icon"` // PNG, base64 in JSON
}

// Options configure discovery.
type Options struct {
	// Dirs are the application directories, highest priority first. Empty
	// means the XDG defaults.
	Dirs []string
	// Home marks user-owned entries. Anything outside it is a system app.
	Home string
	// AllowAll lists apps that lack the Network category.
	AllowAll  bool
	IconTheme string
}

// Catalog enumerates installed applications.
type Catalog struct {
	opts  Options
	icons *iconResolver

	mu    sync.Mutex
	cache map[string][]byte // icon PNG by package name
}

// NewCatalog creates a catalog.
func NewCatalog(opts Options) *Catalog {
	if opts.Home == "" {
		opts.Home, _ = os.UserHomeDir()
	}
	if len(opts.Dirs) == 0 {
		opts.Dirs = DefaultDirs()
	}
	return &Catalog{
		opts:  opts,
		icons: newIconResolver(opts.IconTheme, dataDirs()),
		cache: make(map[string][]byte),
	}
}

// DefaultDirs returns the XDG application directories.
func DefaultDirs() []string {
	dirs := make([]string, 0, 4)
	for _, d := range dataDirs() {
		dirs = append(dirs, filepath.Join(d, "applications"))
	}
	return dirs
}

// dataDirs returns $XDG_DATA_HOME followed by $XDG_DATA_DIRS.
func dataDirs() []string {
	var dirs []string
	home := os.Getenv("XDG_DATA_HOME")
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(h, ".local", "share")
		}
	}
	if home != "" {
		dirs = append(dirs, home)
	}
	system := os.Getenv("XDG_DATA_DIRS")
	if system == "" {
		system = "/usr/local/share:/usr/share"
	}
	for _, d := range filepath.SplitList(system) {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Dirs returns the directories the catalog scans.
func (c *Catalog) Dirs() []string {
	return c.opts.Dirs
}

// List returns the installed applications sorted by name. A desktop id found
// in several directories is taken from the first one.
func (c *Catalog) List() ([]App, error) {
	entries := c.scan()

	apps := make([]App, 0, len(entries))
	for id, f := range entries {
		if !c.eligible(f.entry) {
			continue
		}
		apps = append(apps, App{
			AppName:     f.entry.Name,
			PackageName: id,
			IsSystem:    !c.inHome(f.path),
			Icon:        c.iconFor(id, f.entry),
		})
	}

	sort.Slice(apps, func(i, j int) bool {
		a, b := strings.ToLower(apps[i].AppName), strings.ToLower(apps[j].AppName)
		if a != b {
			return a < b
		}
		return apps[i].PackageName < apps[j].PackageName
	})
	return apps, nil
}

// Resolve checks that pkg names an installed application.
func (c *Catalog) Resolve(pkg string) error {
	f, ok := c.scan()[pkg]
	if !ok || !f.entry.launchable() {
		return fmt.Errorf("%s: %w", pkg, ErrPackageNotFound)
	}
	return nil
}

// forget drops a cached icon.
func (c *Catalog) forget(pkg string) {
	c.mu.Lock()
	delete(c.cache, pkg)
	c.mu.Unlock()
}

func (c *Catalog) eligible(e entry) bool {
	return e.launchable() && (c.opts.AllowAll || e.hasCategory("Network"))
}

func (c *Catalog) inHome(path string) bool {
	if c.opts.Home == "" {
		return false
	}
	rel, err := filepath.Rel(c.opts.Home, path)
	return err == nil && !strings.HasPrefix(rel, "..")
}

type found struct {
	path  string
	entry entry
}

func (c *Catalog) scan() map[string]found {
	out := make(map[string]found)
	for _, dir := range c.opts.Dirs {
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".desktop") {
				return nil
			}
			id := desktopID(dir, path)
			if _, seen := out[id]; seen {
				return nil
			}
			f, err := os.Open(path)
			if err != nil {
				return nil
			}
			e, err := parseEntry(f)
			f.Close()
			if err != nil {
				logger.Debug("Skipping %s: %v", path, err)
				return nil
			}
			out[id] = found{path: path, entry: e}
			return nil
		})
	}
	return out
}

// desktopID follows the XDG rule: the path below the applications directory
// with separators turned into dashes and the suffix removed.
func desktopID(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(rel, ".desktop")
	return strings.ReplaceAll(rel, string(filepath.Separator), "-")
}

func (c *Catalog) iconFor(id string, e entry) []byte {
	c.mu.Lock()
	data, ok := c.cache[id]
	c.mu.Unlock()
	if ok {
		return data
	}

	var img image.Image
	if path := c.icons.lookup(e.Icon); path != "" {
		if decoded, err := decodeFile(path); err == nil {
			img = icon.Scale(decoded, icon.AppSize)
		} else {
			logger.Debug("Icon %s for %s unreadable: %v", path, id, err)
		}
	}
	if img == nil {
		img = icon.Placeholder(e.Name)
	}

	data, err := icon.EncodePNG(img)
	if err != nil {
		logger.Warning("Encoding icon for %s: %v", id, err)
		return nil
	}
	c.mu.Lock()
	c.cache[id] = data
	c.mu.Unlock()
	return data
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
