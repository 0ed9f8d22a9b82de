// Package artifact implements content-addressed tracking of build outputs
// with staleness detection against configuration and source changes. The
// registry is fail-safe-to-rebuild: any doubt about an artifact's
// freshness answers "rebuild it", never "reuse it".
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Type classifies a build artifact.
type Type string

const (
	TypeExecutable    Type = "executable"
	TypeSharedLibrary Type = "shared_library"
	TypeStaticLibrary Type = "static_library"
	TypeObjectFile    Type = "object_file"
	TypeArchive       Type = "archive"
	TypeGenerated     Type = "generated"
	TypeOther         Type = "other"
)

// Artifact is one tracked build output. The id is derived
// deterministically from name, path, timestamp, and config hash; the
// content hash is a sha256 digest of the artifact bytes.
type Artifact struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Type         Type      `json:"type"`
	Size         int64     `json:"size"`
	Timestamp    time.Time `json:"timestamp"`
	PackageName  string    `json:"package_name"`
	BuildMethod  string    `json:"build_method"`
	ConfigHash   string    `json:"config_hash"`
	ContentHash  string    `json:"content_hash"`
	Dependencies []string  `json:"dependencies,omitempty"`
}

// Exists reports whether the artifact file is still present on disk.
func (a *Artifact) Exists() bool {
	_, err := os.Stat(a.Path)
	return err == nil
}

// IsStale reports whether the artifact was built under a different
// configuration than configHash.
func (a *Artifact) IsStale(configHash string) bool {
	return a.ConfigHash != configHash
}

// deriveID computes the deterministic artifact id.
func deriveID(name, path string, timestamp time.Time, configHash string) string {
	content := fmt.Sprintf("%s_%s_%d_%s", name, path, timestamp.UnixNano(), configHash)
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// FileSHA256 computes the sha256 content digest of the file at path,
// reading in chunks so large artifacts do not load into memory. A missing
// or unreadable file yields an empty digest rather than an error: content
// hashing is advisory metadata, not a freshness gate.
func FileSHA256(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ConfigHash derives a short stable digest of a build configuration.
// Map serialization through encoding/json sorts keys, so equal
// configurations always hash equal.
func ConfigHash(config map[string]string) string {
	data, err := json.Marshal(config)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}
