package artifact

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/cadenza-ai/cadenza/internal/types"
	"github.com/cadenza-ai/cadenza/internal/util"
)

const storeVersion = "1.0"

// registryFile is the on-disk representation of the registry.
type registryFile struct {
	Version     string              `json:"version"`
	LastUpdated time.Time           `json:"last_updated"`
	Artifacts   map[string]Artifact `json:"artifacts"`
}

// Registry tracks build artifacts in a single JSON store. All mutations
// persist before returning, so a crash never loses a registered artifact.
type Registry struct {
	mu        sync.Mutex
	path      string
	artifacts map[string]Artifact
	logger    *slog.Logger
}

// NewRegistry opens the registry store at path, creating an empty registry
// when the file does not exist. A corrupt store is discarded with a logged
// warning rather than failing: every artifact it named will simply be
// rebuilt.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{
		path:      path,
		artifacts: make(map[string]Artifact),
		logger:    slog.Default().With("component", "artifact_registry"),
	}

	var file registryFile
	if err := util.ReadJSONFile(path, &file); err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		r.logger.Warn("artifact registry unreadable, starting empty",
			"path", path, "error", err)
		return r, nil
	}
	if file.Artifacts != nil {
		r.artifacts = file.Artifacts
	}
	return r, nil
}

// Register records a build output and returns its artifact id. The file
// must exist so its size and content digest can be captured.
func (r *Registry) Register(name, path string, typ Type, packageName, buildMethod, configHash string, dependencies []string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", types.WrapError(types.ARTIFACT_MISSING,
			fmt.Sprintf("artifact file not found: %s", path), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	a := Artifact{
		ID:           deriveID(name, path, now, configHash),
		Name:         name,
		Path:         path,
		Type:         typ,
		Size:         info.Size(),
		Timestamp:    now,
		PackageName:  packageName,
		BuildMethod:  buildMethod,
		ConfigHash:   configHash,
		ContentHash:  FileSHA256(path),
		Dependencies: dependencies,
	}
	r.artifacts[a.ID] = a

	if err := r.save(); err != nil {
		return "", err
	}
	r.logger.Debug("artifact registered",
		"id", a.ID, "name", name, "type", string(typ), "size", a.Size)
	return a.ID, nil
}

// Get returns the artifact with the given id.
func (r *Registry) Get(id string) (*Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.artifacts[id]
	if !ok {
		return nil, types.NewErrorf(types.ARTIFACT_NOT_FOUND,
			"artifact not found: %s", id)
	}
	return &a, nil
}

// Remove deletes the registry entry with the given id. The file on disk
// is left alone.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.artifacts[id]; !ok {
		return types.NewErrorf(types.ARTIFACT_NOT_FOUND,
			"artifact not found: %s", id)
	}
	delete(r.artifacts, id)
	return r.save()
}

// FindByPath returns the most recently registered artifact at path, or
// nil when no entry matches.
func (r *Registry) FindByPath(path string) *Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByPathLocked(path)
}

func (r *Registry) findByPathLocked(path string) *Artifact {
	var newest *Artifact
	for id := range r.artifacts {
		a := r.artifacts[id]
		if a.Path != path {
			continue
		}
		if newest == nil || a.Timestamp.After(newest.Timestamp) {
			newest = &a
		}
	}
	return newest
}

// ByPackage returns all artifacts registered under packageName.
func (r *Registry) ByPackage(packageName string) []Artifact {
	return r.filter(func(a Artifact) bool { return a.PackageName == packageName })
}

// ByType returns all artifacts of the given type.
func (r *Registry) ByType(typ Type) []Artifact {
	return r.filter(func(a Artifact) bool { return a.Type == typ })
}

// ByBuildMethod returns all artifacts produced by the given build method.
func (r *Registry) ByBuildMethod(method string) []Artifact {
	return r.filter(func(a Artifact) bool { return a.BuildMethod == method })
}

// List returns every registered artifact, ordered newest first.
func (r *Registry) List() []Artifact {
	return r.filter(func(Artifact) bool { return true })
}

func (r *Registry) filter(keep func(Artifact) bool) []Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Artifact, 0, len(r.artifacts))
	for _, a := range r.artifacts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// IsFresh reports whether the artifact at path can be reused instead of
// rebuilt. Freshness requires all of: the file exists, a registry entry
// matches the path, that entry's config hash equals configHash, and the
// artifact file's mtime is not older than any source file's mtime. The
// file mtime is the reference, not the registration time: registration
// happens after the file is written, so a source touched in between
// would otherwise look older than it is. A missing or unreadable source
// counts as newer, so the answer degrades to "rebuild".
func (r *Registry) IsFresh(path string, sourceFiles []string, configHash string) bool {
	artifactInfo, err := os.Stat(path)
	if err != nil {
		return false
	}

	r.mu.Lock()
	entry := r.findByPathLocked(path)
	r.mu.Unlock()

	if entry == nil {
		return false
	}
	if entry.ConfigHash != configHash {
		return false
	}
	for _, src := range sourceFiles {
		info, err := os.Stat(src)
		if err != nil {
			return false
		}
		if info.ModTime().After(artifactInfo.ModTime()) {
			return false
		}
	}
	return true
}

// RemoveStale drops every entry whose config hash differs from
// configHash and returns how many were removed.
func (r *Registry) RemoveStale(configHash string) (int, error) {
	return r.removeWhere(func(a Artifact) bool {
		return a.IsStale(configHash)
	})
}

// RemoveMissing drops every entry whose file no longer exists on disk
// and returns how many were removed.
func (r *Registry) RemoveMissing() (int, error) {
	return r.removeWhere(func(a Artifact) bool {
		return !a.Exists()
	})
}

// CleanupOlderThan drops every entry registered more than maxAge ago and
// returns how many were removed.
func (r *Registry) CleanupOlderThan(maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	return r.removeWhere(func(a Artifact) bool {
		return a.Timestamp.Before(cutoff)
	})
}

func (r *Registry) removeWhere(drop func(Artifact) bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, a := range r.artifacts {
		if drop(a) {
			delete(r.artifacts, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := r.save(); err != nil {
		return removed, err
	}
	r.logger.Info("artifacts removed from registry", "count", removed)
	return removed, nil
}

// Stats summarizes the registry contents.
type Stats struct {
	TotalArtifacts int            `json:"total_artifacts"`
	TotalSize      int64          `json:"total_size"`
	ByType         map[string]int `json:"by_type"`
	ByPackage      map[string]int `json:"by_package"`
	ByBuildMethod  map[string]int `json:"by_build_method"`
	OldestArtifact *time.Time     `json:"oldest_artifact,omitempty"`
	NewestArtifact *time.Time     `json:"newest_artifact,omitempty"`
}

// UsageStats computes aggregate counts and sizes across the registry.
func (r *Registry) UsageStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{
		TotalArtifacts: len(r.artifacts),
		ByType:         make(map[string]int),
		ByPackage:      make(map[string]int),
		ByBuildMethod:  make(map[string]int),
	}
	for _, a := range r.artifacts {
		stats.TotalSize += a.Size
		stats.ByType[string(a.Type)]++
		if a.PackageName != "" {
			stats.ByPackage[a.PackageName]++
		}
		if a.BuildMethod != "" {
			stats.ByBuildMethod[a.BuildMethod]++
		}
		ts := a.Timestamp
		if stats.OldestArtifact == nil || ts.Before(*stats.OldestArtifact) {
			stats.OldestArtifact = &ts
		}
		if stats.NewestArtifact == nil || ts.After(*stats.NewestArtifact) {
			stats.NewestArtifact = &ts
		}
	}
	return stats
}

// save writes the registry store. Callers hold r.mu.
func (r *Registry) save() error {
	file := registryFile{
		Version:     storeVersion,
		LastUpdated: time.Now().UTC(),
		Artifacts:   r.artifacts,
	}
	if err := util.WriteJSONFile(r.path, file); err != nil {
		return types.WrapError(types.REGISTRY_SAVE_FAILED,
			"failed to write artifact registry", err)
	}
	return nil
}
