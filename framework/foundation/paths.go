package foundation

import (
	"path/filepath"

	"github.com/km-arc/h3ravel/framework/config"
)

// PathKind names a well-known application directory.
type PathKind string

const (
	PathBase     PathKind = "base"
	PathApp      PathKind = "app"
	PathConfig   PathKind = "config"
	PathDatabase PathKind = "database"
	PathPublic   PathKind = "public"
	PathStorage  PathKind = "storage"
	PathViews    PathKind = "views"
	PathRoutes   PathKind = "routes"
	PathDist     PathKind = "dist"
)

// DefaultDistDir is used when DIST_DIR is unset.
const DefaultDistDir = ".h3ravel/serve"

var defaultPaths = map[PathKind]string{
	PathApp:      "app",
	PathConfig:   "config",
	PathDatabase: "database",
	PathPublic:   "public",
	PathStorage:  "storage",
	PathViews:    filepath.Join("resources", "views"),
	PathRoutes:   "routes",
}

// Path resolves a directory of the given kind, joined with sub.
//
//	app.Path(foundation.PathStorage, "logs", "app.log") // <base>/storage/logs/app.log
//	app.Path(foundation.PathDist)                       // <base>/.h3ravel/serve
//
// Unknown kinds resolve to a directory of that name under the base path.
func (a *Application) Path(kind PathKind, sub ...string) string {
	dir := a.dir(kind)
	return filepath.Join(append([]string{dir}, sub...)...)
}

// BasePath is Path(PathBase, sub...).
func (a *Application) BasePath(sub ...string) string { return a.Path(PathBase, sub...) }

// UsePath points kind at path. Relative paths are taken from the base path.
func (a *Application) UsePath(kind PathKind, path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paths[kind] = path
}

func (a *Application) dir(kind PathKind) string {
	if kind == PathBase {
		return a.basePath
	}

	a.mu.Lock()
	p, ok := a.paths[kind]
	a.mu.Unlock()
	if !ok {
		switch d, known := defaultPaths[kind]; {
		case known:
			p = d
		case kind == PathDist:
			p = config.Get("DIST_DIR", DefaultDistDir)
		default:
			p = string(kind)
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.basePath, p)
}
