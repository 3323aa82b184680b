// Package modconfig reads mod descriptors from a configuration directory.
//
// Every file whose name matches the include patterns (and none of the
// exclude patterns) is decoded according to its extension:
//
//	.yaml, .yml  gopkg.in/yaml.v3
//	.toml        github.com/BurntSushi/toml
//	.json        encoding/json
//
// All formats share one shape, a top-level "mods" list:
//
//	mods:
//	  - name: jei
//	    source: https://cdn.example.com/jei-1.0.jar
//	    directory: client
//	    options:
//	      side: client
//
// Problems are reported to the error sink instead of being returned.
// Malformed files, invalid descriptors and duplicate install locations are
// fatal; a missing directory is informational and yields no descriptors.
package modconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/moddirector/internal/errors"
	"github.com/Iron-Ham/moddirector/internal/logging"
	"github.com/Iron-Ham/moddirector/internal/mod"
)

// DefaultInclude matches every supported descriptor format.
var DefaultInclude = []string{"*.yaml", "*.yml", "*.toml", "*.json"}

// Options configures a Loader.
type Options struct {
	// Include patterns are matched against file names. Empty means
	// DefaultInclude.
	Include []string
	// Exclude patterns win over Include.
	Exclude []string
	// Logger receives debug output. Nil discards it.
	Logger *logging.Logger
}

// Loader reads descriptor files from a directory.
type Loader struct {
	include []glob.Glob
	exclude []glob.Glob
	logger  *logging.Logger
}

// fileSpec is the on-disk shape shared by all formats.
type fileSpec struct {
	Mods []mod.Descriptor `yaml:"mods" toml:"mods" json:"mods"`
}

// NewLoader compiles the include and exclude patterns.
func NewLoader(opts Options) (*Loader, error) {
	include := opts.Include
	if len(include) == 0 {
		include = DefaultInclude
	}

	l := &Loader{logger: opts.Logger}
	if l.logger == nil {
		l.logger = logging.NopLogger()
	}
	l.logger = l.logger.WithComponent("modconfig")

	var err error
	if l.include, err = compileAll(include); err != nil {
		return nil, err
	}
	if l.exclude, err = compileAll(opts.Exclude); err != nil {
		return nil, err
	}
	return l, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("invalid file pattern %q", p)).
				WithField("pattern").
				WithValue(p).
				WithCause(err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Matches reports whether a file name is selected by the patterns.
func (l *Loader) Matches(name string) bool {
	for _, g := range l.exclude {
		if g.Match(name) {
			return false
		}
	}
	for _, g := range l.include {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Load reads every matching file in dir, ordered by file name and then by
// position within the file.
func (l *Loader) Load(ctx context.Context, dir string, sink mod.ErrorSink) []mod.Descriptor {
	files, err := l.Files(dir)
	if err != nil {
		if os.IsNotExist(err) {
			sink.AddError(errors.NewRecord(errors.SeverityInfo,
				"mod configuration directory does not exist, nothing to install",
				errors.NewConfigError("missing directory", err).WithFile(dir).WithSeverity(errors.SeverityInfo)))
			return nil
		}
		sink.AddError(errors.RecordFromError("failed to read mod configuration directory",
			errors.NewConfigError("read directory", err).WithFile(dir)))
		return nil
	}

	var (
		out  []mod.Descriptor
		seen = make(map[string]string)
	)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			sink.AddError(errors.RecordFromError("loading mod configuration interrupted",
				errors.NewConfigError("load canceled", errors.Join(errors.ErrCanceled, err)).WithFile(path)))
			return out
		}

		descs, err := DecodeFile(path)
		if err != nil {
			sink.AddError(errors.RecordFromError("failed to load mod configuration", err))
			continue
		}
		l.logger.Debug("decoded descriptor file", "file", path, "mods", len(descs))

		for i, d := range descs {
			if err := d.Validate(); err != nil {
				sink.AddError(errors.RecordFromError("invalid mod descriptor",
					errors.NewConfigError("invalid descriptor", err).WithFile(path).WithIndex(i)).
					WithMod(d.Name))
				continue
			}
			if prev, dup := seen[d.Key()]; dup {
				sink.AddError(errors.RecordFromError("duplicate mod descriptor",
					errors.NewConfigError(fmt.Sprintf("%s already declared in %s", d.Key(), prev), errors.ErrDuplicateMod).
						WithFile(path).WithIndex(i)).
					WithMod(d.Name))
				continue
			}
			seen[d.Key()] = path
			out = append(out, d)
		}
	}
	return out
}

// Files lists the matching descriptor files in dir, sorted by name.
func (l *Loader) Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !l.Matches(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// DecodeFile reads one descriptor file. Each descriptor's Origin is set to
// path and its name and source are trimmed.
func DecodeFile(path string) ([]mod.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("read file", err).WithFile(path)
	}

	var spec fileSpec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &spec)
	case ".toml":
		err = decodeTOML(data, &spec)
	case ".json":
		err = decodeJSON(data, &spec)
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unknown extension %q", filepath.Ext(path)), errors.ErrUnsupportedFormat).
			WithFile(path)
	}
	if err != nil {
		return nil, errors.NewConfigError("decode failed", errors.Join(errors.ErrConfigMalformed, err)).WithFile(path)
	}

	for i := range spec.Mods {
		spec.Mods[i].Name = strings.TrimSpace(spec.Mods[i].Name)
		spec.Mods[i].Source = strings.TrimSpace(spec.Mods[i].Source)
		spec.Mods[i].Origin = path
	}
	return spec.Mods, nil
}

func decodeYAML(data []byte, spec *fileSpec) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(spec); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func decodeTOML(data []byte, spec *fileSpec) error {
	meta, err := toml.Decode(string(data), spec)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func decodeJSON(data []byte, spec *fileSpec) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(spec)
}
