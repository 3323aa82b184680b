// Package mod defines the values exchanged between the director and its
// collaborators: the descriptor a loader produces, the record a worker
// reports on success, and the narrow interfaces through which
// collaborators report back.
package mod

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/Iron-Ham/moddirector/internal/errors"
)

// Descriptor declares one mod to install. It is produced by a loader and
// handed to exactly one install task.
type Descriptor struct {
	// Name identifies the mod in logs and error records.
	Name string `yaml:"name" toml:"name" json:"name"`
	// Source is an http(s) URL, a file:// URL, or a local path.
	Source string `yaml:"source" toml:"source" json:"source"`
	// FileName overrides the installed file name. Defaults to the last
	// element of Source.
	FileName string `yaml:"file,omitempty" toml:"file" json:"file,omitempty"`
	// Directory is a sub-directory of the mods directory.
	Directory string `yaml:"directory,omitempty" toml:"directory" json:"directory,omitempty"`
	// Options are passed through to the worker untouched.
	Options map[string]string `yaml:"options,omitempty" toml:"options" json:"options,omitempty"`

	// Origin is the file the descriptor was read from.
	Origin string `yaml:"-" toml:"-" json:"-"`
}

// Key identifies the installed location of the descriptor. Two descriptors
// with the same key would overwrite each other.
func (d Descriptor) Key() string {
	return path.Join(d.Directory, d.TargetName())
}

// TargetName returns the file name the mod is installed as.
func (d Descriptor) TargetName() string {
	if d.FileName != "" {
		return d.FileName
	}
	src := d.Source
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	src = strings.TrimRight(strings.ReplaceAll(src, "\\", "/"), "/")
	base := path.Base(src)
	if base == "." || base == "/" || strings.HasSuffix(src, ":") {
		return ""
	}
	return base
}

// Validate checks the fields every worker relies on.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.NewValidationError("mod name is required").
			WithField("name").
			WithCause(errors.ErrInvalidDescriptor)
	}
	if strings.TrimSpace(d.Source) == "" {
		return errors.NewValidationError(fmt.Sprintf("mod %q has no source", d.Name)).
			WithField("source").
			WithCause(errors.ErrInvalidDescriptor)
	}
	target := d.TargetName()
	if target == "" || target == "." || target == ".." || strings.ContainsAny(target, "/\\") {
		return errors.NewValidationError(fmt.Sprintf("mod %q has no usable file name", d.Name)).
			WithField("file").
			WithValue(target).
			WithCause(errors.ErrInvalidDescriptor)
	}
	if d.Directory != "" {
		clean := path.Clean(strings.ReplaceAll(d.Directory, "\\", "/"))
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return errors.NewValidationError(fmt.Sprintf("mod %q directory escapes the mods directory", d.Name)).
				WithField("directory").
				WithValue(d.Directory).
				WithCause(errors.ErrSandboxViolation)
		}
	}
	return nil
}

// Installed records a successful install.
type Installed struct {
	Name        string
	Path        string
	Source      string
	Size        int64
	InstalledAt time.Time
	// Existing is set when the file was already present and left untouched.
	Existing bool
}

// ErrorSink receives error records from collaborators.
type ErrorSink interface {
	AddError(errors.Record)
}

// Registry receives success records from install workers.
type Registry interface {
	InstallSuccess(Installed)
}

// SinkFunc adapts a function to ErrorSink.
type SinkFunc func(errors.Record)

// AddError calls f(r).
func (f SinkFunc) AddError(r errors.Record) { f(r) }
