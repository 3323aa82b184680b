// Package install fetches a single mod into the mods directory.
//
// Sources may be http(s) URLs, file:// URLs or local paths. Every
// destination is resolved inside the mods directory; descriptors that
// would escape it are rejected. Files are written to a temporary name and
// renamed into place so a failed install never leaves a partial file.
package install

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Iron-Ham/moddirector/internal/errors"
	"github.com/Iron-Ham/moddirector/internal/logging"
	"github.com/Iron-Ham/moddirector/internal/mod"
)

// DefaultUserAgent is sent with every HTTP request unless overridden.
const DefaultUserAgent = "moddirector"

// OptionOverwrite, when "true" in a descriptor's options, replaces an
// existing file instead of keeping it.
const OptionOverwrite = "overwrite"

// InstallerConfig configures an Installer.
type InstallerConfig struct {
	// ModsDir is the root every mod is installed under. Created if missing.
	ModsDir string
	// HTTPClient is used for http(s) sources. Defaults to a client with
	// HTTPTimeout.
	HTTPClient  *http.Client
	HTTPTimeout time.Duration
	UserAgent   string
	Logger      *logging.Logger
}

// Installer installs mods. It is safe for concurrent use; each call to
// Handle touches only its own destination.
type Installer struct {
	modsDir   string
	client    *http.Client
	userAgent string
	logger    *logging.Logger
}

// NewInstaller validates the mods directory and creates it if needed.
func NewInstaller(cfg InstallerConfig) (*Installer, error) {
	dir := strings.TrimSpace(cfg.ModsDir)
	if dir == "" {
		return nil, errors.NewValidationError("mods directory is required").WithField("mods_dir")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create mods directory: %w", err)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	return &Installer{
		modsDir:   filepath.Clean(abs),
		client:    client,
		userAgent: ua,
		logger:    logger.WithComponent("install"),
	}, nil
}

// ModsDir returns the absolute mods directory.
func (i *Installer) ModsDir() string {
	return i.modsDir
}

// Handle installs d and reports it to reg. An existing destination file
// is kept and still reported, unless the overwrite option is set.
func (i *Installer) Handle(ctx context.Context, d mod.Descriptor, reg mod.Registry) error {
	if err := d.Validate(); err != nil {
		return errors.NewInstallError("invalid descriptor", err).WithMod(d.Name)
	}

	dest, err := i.Destination(d)
	if err != nil {
		return err
	}
	log := i.logger.WithMod(d.Name)

	if info, err := os.Stat(dest); err == nil {
		if !info.Mode().IsRegular() {
			return errors.NewInstallError("destination exists and is not a regular file", errors.ErrInvalidInput).
				WithMod(d.Name).WithDestination(dest)
		}
		if d.Options[OptionOverwrite] != "true" {
			log.Info("mod already installed", "path", dest)
			reg.InstallSuccess(mod.Installed{
				Name:        d.Name,
				Path:        dest,
				Source:      d.Source,
				Size:        info.Size(),
				InstalledAt: time.Now(),
				Existing:    true,
			})
			return nil
		}
	}

	start := time.Now()
	size, err := i.fetch(ctx, d, dest)
	if err != nil {
		return err
	}
	log.Info("mod installed", "path", dest, "bytes", size, "duration", time.Since(start).String())

	reg.InstallSuccess(mod.Installed{
		Name:        d.Name,
		Path:        dest,
		Source:      d.Source,
		Size:        size,
		InstalledAt: time.Now(),
	})
	return nil
}

// Destination resolves where d is installed, refusing paths outside the
// mods directory.
func (i *Installer) Destination(d mod.Descriptor) (string, error) {
	rel := filepath.FromSlash(d.Key())
	if filepath.IsAbs(rel) {
		return "", errors.NewInstallError("destination must be relative", errors.ErrSandboxViolation).
			WithMod(d.Name).WithDestination(rel)
	}
	dest := filepath.Clean(filepath.Join(i.modsDir, rel))
	if !isWithin(dest, i.modsDir) || dest == i.modsDir {
		return "", errors.NewInstallError("destination outside mods directory", errors.ErrSandboxViolation).
			WithMod(d.Name).WithDestination(dest)
	}
	return dest, nil
}

// fetch streams the source into a temp file next to dest and renames it
// into place.
func (i *Installer) fetch(ctx context.Context, d mod.Descriptor, dest string) (int64, error) {
	src, err := i.open(ctx, d)
	if err != nil {
		return 0, err
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, errors.NewInstallError("create destination directory", err).WithMod(d.Name).WithDestination(dest)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, errors.NewInstallError("create temp file", err).WithMod(d.Name).WithDestination(dest)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	n, copyErr := io.Copy(tmp, &ctxReader{ctx: ctx, r: src})
	closeErr := tmp.Close()
	if copyErr != nil {
		return 0, errors.NewInstallError("copy failed", errors.Join(errors.ErrDownloadFailed, copyErr)).
			WithMod(d.Name).WithSource(d.Source).WithRetryable(ctx.Err() == nil)
	}
	if closeErr != nil {
		return 0, errors.NewInstallError("write failed", closeErr).WithMod(d.Name).WithDestination(dest)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, errors.NewInstallError("rename into place", err).WithMod(d.Name).WithDestination(dest)
	}
	committed = true
	return n, nil
}

// open returns a reader for the descriptor's source.
func (i *Installer) open(ctx context.Context, d mod.Descriptor) (io.ReadCloser, error) {
	u, err := url.Parse(d.Source)
	// A one-letter scheme is a Windows drive letter.
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return openLocal(d, d.Source)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return i.openHTTP(ctx, d)
	case "file":
		return openLocal(d, filepath.FromSlash(u.Path))
	default:
		return nil, errors.NewInstallError(fmt.Sprintf("scheme %q", u.Scheme), errors.ErrUnsupportedSource).
			WithMod(d.Name).WithSource(d.Source)
	}
}

func (i *Installer) openHTTP(ctx context.Context, d mod.Descriptor) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.Source, nil)
	if err != nil {
		return nil, errors.NewInstallError("build request", err).WithMod(d.Name).WithSource(d.Source)
	}
	req.Header.Set("User-Agent", i.userAgent)

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, errors.NewInstallError("request failed", errors.Join(errors.ErrDownloadFailed, err)).
			WithMod(d.Name).WithSource(d.Source).WithRetryable(ctx.Err() == nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, errors.NewInstallError(fmt.Sprintf("unexpected status %s", resp.Status), errors.ErrDownloadFailed).
			WithMod(d.Name).WithSource(d.Source).WithRetryable(retryable)
	}
	return resp.Body, nil
}

func openLocal(d mod.Descriptor, path string) (io.ReadCloser, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInstallError("source missing", errors.NewNotFoundError("source file", path)).
				WithMod(d.Name).WithSource(d.Source)
		}
		return nil, errors.NewInstallError("stat source", err).WithMod(d.Name).WithSource(d.Source)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.NewInstallError("source is not a regular file", errors.ErrUnsupportedSource).
			WithMod(d.Name).WithSource(d.Source)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewInstallError("open source", err).WithMod(d.Name).WithSource(d.Source)
	}
	return f, nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func isWithin(path string, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && rel != "..")
}
