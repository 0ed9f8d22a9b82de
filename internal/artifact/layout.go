package artifact

import (
	"os"
	"path/filepath"
)

// Layout maps packages and build methods onto an on-disk output tree:
// <buildDir>/<buildMethod>/<package> with obj/ and deps/ subdirectories.
type Layout struct {
	BuildDir string
}

// OutputDir returns (and creates) the output directory for a package built
// with the given method.
func (l Layout) OutputDir(packageName, buildMethod string) (string, error) {
	dir := filepath.Join(l.BuildDir, buildMethod, packageName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ObjectsDir returns (and creates) the object file directory for a package.
func (l Layout) ObjectsDir(packageName, buildMethod string) (string, error) {
	return l.subdir(packageName, buildMethod, "obj")
}

// DepsDir returns (and creates) the dependency metadata directory for a
// package.
func (l Layout) DepsDir(packageName, buildMethod string) (string, error) {
	return l.subdir(packageName, buildMethod, "deps")
}

func (l Layout) subdir(packageName, buildMethod, name string) (string, error) {
	dir, err := l.OutputDir(packageName, buildMethod)
	if err != nil {
		return "", err
	}
	sub := filepath.Join(dir, name)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", err
	}
	return sub, nil
}
