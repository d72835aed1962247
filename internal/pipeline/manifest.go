package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
)

// ManifestName is the optional per-module manifest file.
const ManifestName = "stolas.json"

// Manifest describes a module: its name, its own version and the compiler
// versions it accepts.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`

	// Compiler is a semver constraint on the compiler, e.g. ">= 0.3, < 1".
	Compiler string `json:"compiler,omitempty"`
}

// LoadManifest reads dir's manifest. A missing manifest is not an error; a
// malformed one is.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if m.Version != "" {
		if _, err := semver.NewVersion(m.Version); err != nil {
			return nil, fmt.Errorf("%s: invalid version %q: %w", path, m.Version, err)
		}
	}
	return &m, nil
}

// CheckCompiler verifies the running compiler satisfies the manifest's
// constraint.
func (m *Manifest) CheckCompiler(version string) error {
	if m.Compiler == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(m.Compiler)
	if err != nil {
		return fmt.Errorf("manifest compiler constraint %q: %w", m.Compiler, err)
	}
	current, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("compiler version %q: %w", version, err)
	}

	if !constraint.Check(current) {
		return fmt.Errorf("module '%s' requires compiler %s, this is %s",
			m.Name, m.Compiler, version)
	}
	return nil
}
