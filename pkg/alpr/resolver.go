package alpr

import (
	"os"
	"os/exec"
	"path/filepath"
)

const (
	BinaryName        = "alpr"
	ConfigFileEnv     = "OPENALPR_CONFIG_FILE"
	DefaultBundledDir = "OpenALPR/openalpr-2.3.0-win-64bit/openalpr_64"
	bundledConfigName = "openalpr.conf"
)

type Resolution struct {
	BinaryPath       string `json:"alpr_path"`
	ConfigPath       string `json:"config_file"`
	BundledDirExists bool   `json:"bundled_dir_exists"`
}

// Resolver locates the alpr executable and its config file. Absence is reported
// through empty paths, never as an error.
type Resolver struct {
	BundledDir     string
	ConfigOverride string

	lookPath func(file string) (string, error)
	stat     func(name string) (os.FileInfo, error)
}

func NewResolver(bundledDir, configOverride string) *Resolver {
	if bundledDir == "" {
		bundledDir = DefaultBundledDir
	}
	return &Resolver{
		BundledDir:     bundledDir,
		ConfigOverride: configOverride,
		lookPath:       exec.LookPath,
		stat:           os.Stat,
	}
}

func (r *Resolver) Resolve() Resolution {
	res := Resolution{
		BinaryPath:       r.resolveBinary(),
		ConfigPath:       r.resolveConfig(),
		BundledDirExists: r.isDir(r.BundledDir),
	}
	return res
}

func (r *Resolver) resolveBinary() string {
	if p, err := r.lookPath(BinaryName); err == nil && p != "" {
		return p
	}

	for _, name := range []string{BinaryName + ".exe", BinaryName} {
		candidate := filepath.Join(r.BundledDir, name)
		if r.isFile(candidate) {
			return candidate
		}
	}

	return ""
}

func (r *Resolver) resolveConfig() string {
	if r.ConfigOverride != "" {
		return r.ConfigOverride
	}

	bundled := filepath.Join(r.BundledDir, bundledConfigName)
	if r.isFile(bundled) {
		return bundled
	}

	return ""
}

func (r *Resolver) isFile(path string) bool {
	info, err := r.stat(path)
	return err == nil && !info.IsDir()
}

func (r *Resolver) isDir(path string) bool {
	info, err := r.stat(path)
	return err == nil && info.IsDir()
}
