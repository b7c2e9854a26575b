package deploy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hazz-dev/shipcheck/internal/config"
)

// Build is one build rule of the deployment configuration.
type Build struct {
	Src string `json:"src"`
	Use string `json:"use"`
}

// Route is one route rule of the deployment configuration.
type Route struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
}

// DeploymentConfig is the artifact the deploy tool reads (vercel.json).
type DeploymentConfig struct {
	Version int     `json:"version"`
	Builds  []Build `json:"builds"`
	Routes  []Route `json:"routes"`
}

// DefaultConfig builds every top-level script with the configured runtime
// and routes all paths to a single entry file.
func DefaultConfig(cfg config.DeployConfig) DeploymentConfig {
	return DeploymentConfig{
		Version: 2,
		Builds:  []Build{{Src: cfg.Build.Src, Use: cfg.Build.Use}},
		Routes:  []Route{{Src: cfg.Route.Src, Dest: cfg.Route.Dest}},
	}
}

// EnsureConfig writes dc to path unless a file already exists there.
// It reports whether the file was created; an existing file is never touched.
func EnsureConfig(path string, dc DeploymentConfig) (bool, error) {
	data, err := json.MarshalIndent(dc, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encoding deployment config: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", path, err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		os.Remove(path)
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return false, fmt.Errorf("closing %s: %w", path, err)
	}
	return true, nil
}
