package director

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/moddirector/internal/errors"
	"github.com/Iron-Ham/moddirector/internal/logging"
	"github.com/Iron-Ham/moddirector/internal/mod"
)

// Log tags used by the director.
const (
	Component = "ModDirector"
	Subsystem = "CORE"
)

// Logger is the logging surface the director and its collaborators use.
// *logging.Logger satisfies it.
type Logger interface {
	Log(severity errors.Severity, component, subsystem, msg string)
	LogThrowable(severity errors.Severity, component, subsystem string, cause error, msg string)
}

// Platform supplies host capabilities.
type Platform interface {
	// Name identifies the host in diagnostics.
	Name() string
	Logger() Logger
	// ConfigurationDirectory is the directory the loader reads.
	ConfigurationDirectory() string
	// Bootstrap runs once, synchronously, during director Bootstrap.
	Bootstrap() error
}

// Loader produces the descriptors for one activation. Problems are
// reported to sink; a fatal record stops the activation before any
// install task runs.
type Loader interface {
	Load(ctx context.Context, dir string, sink mod.ErrorSink) []mod.Descriptor
}

// Worker installs a single mod and reports success to reg. A returned
// error is recorded as fatal.
type Worker interface {
	Handle(ctx context.Context, d mod.Descriptor, reg mod.Registry) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, dir string, sink mod.ErrorSink) []mod.Descriptor

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, dir string, sink mod.ErrorSink) []mod.Descriptor {
	return f(ctx, dir, sink)
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, d mod.Descriptor, reg mod.Registry) error

// Handle calls f.
func (f WorkerFunc) Handle(ctx context.Context, d mod.Descriptor, reg mod.Registry) error {
	return f(ctx, d, reg)
}

// Option configures a Director at bootstrap.
type Option func(*Director)

// WithLoader sets the descriptor loader.
func WithLoader(l Loader) Option {
	return func(d *Director) { d.loader = l }
}

// WithWorker sets the install worker.
func WithWorker(w Worker) Option {
	return func(d *Director) { d.worker = w }
}

// WithParallelism overrides the parallelism the pool is sized from.
// The pool still gets half of it, and at least one worker.
func WithParallelism(n int) Option {
	return func(d *Director) { d.poolSize = PoolSize(n) }
}

// WithExitHook registers fn to run in ErrorExit after the fatal records
// are logged and before the process exits. Hooks run in reverse order of
// registration, like deferred calls.
func WithExitHook(fn func()) Option {
	return func(d *Director) {
		if fn != nil {
			d.exitHooks = append(d.exitHooks, fn)
		}
	}
}

// PoolSize returns the worker count for a given hardware parallelism:
// half of it, never less than one.
func PoolSize(parallelism int) int {
	return max(1, parallelism/2)
}

// exitFunc terminates the process. Tests replace it.
var exitFunc = os.Exit

var (
	instanceMu sync.Mutex
	instance   *Director
)

// Director owns the error and installed-mod collections for the process
// and drives the single activation.
type Director struct {
	platform Platform
	logger   Logger
	loader   Loader
	worker   Worker
	poolSize int

	exitHooks []func()

	mu        sync.Mutex
	errs      []errors.Record
	installed []mod.Installed

	activated atomic.Bool
}

// Bootstrap creates the process-wide director and runs the platform's
// bootstrap hook. It fails with ErrAlreadyBootstrapped if a director
// already exists.
func Bootstrap(p Platform, opts ...Option) (*Director, error) {
	if p == nil {
		return nil, errors.NewLifecycleError("bootstrap requires a platform", errors.ErrInvalidInput)
	}

	instanceMu.Lock()
	if instance != nil {
		name := instance.platform.Name()
		instanceMu.Unlock()
		return nil, errors.NewLifecycleError("bootstrap called twice", errors.ErrAlreadyBootstrapped).
			WithPlatform(name)
	}
	d := newDirector(p, opts...)
	instance = d
	instanceMu.Unlock()

	d.logger.Log(errors.SeverityInfo, Component, Subsystem, "Mod director loaded!")

	// The hook may call Instance, so it runs outside the lock.
	if err := p.Bootstrap(); err != nil {
		d.logger.LogThrowable(errors.SeverityError, Component, Subsystem, err, "Platform bootstrap failed")
		d.AddError(errors.NewRecord(errors.SeverityError, "platform bootstrap failed", err))
	}
	return d, nil
}

// MustBootstrap is like Bootstrap but panics on error.
func MustBootstrap(p Platform, opts ...Option) *Director {
	d, err := Bootstrap(p, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Instance returns the director created by Bootstrap.
func Instance() (*Director, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		return nil, errors.NewLifecycleError("instance requested", errors.ErrNotBootstrapped)
	}
	return instance, nil
}

func newDirector(p Platform, opts ...Option) *Director {
	d := &Director{
		platform: p,
		logger:   p.Logger(),
		poolSize: PoolSize(runtime.NumCPU()),
	}
	if d.logger == nil {
		d.logger = logging.NopLogger()
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Activate loads descriptors, installs them concurrently and reports
// whether no fatal error was recorded.
//
// The wait for install tasks is bounded by timeout. Tasks still running
// when it elapses are left running and a warning is logged; the result
// reflects only the errors recorded so far. If ctx is done before the
// wait ends, Activate returns ctx.Err().
//
// Activate may be called once per director.
func (d *Director) Activate(ctx context.Context, timeout time.Duration) (bool, error) {
	if !d.activated.CompareAndSwap(false, true) {
		return false, errors.NewLifecycleError("activate called twice", errors.ErrAlreadyActivated).
			WithPlatform(d.platform.Name())
	}
	if d.loader == nil || d.worker == nil {
		return false, errors.NewLifecycleError("activate requires a loader and a worker", errors.ErrInvalidInput).
			WithPlatform(d.platform.Name())
	}

	descriptors := d.loader.Load(ctx, d.platform.ConfigurationDirectory(), d)
	if d.HasFatalError() {
		d.logger.Log(errors.SeverityError, Component, Subsystem,
			"Mod configuration has fatal errors, no mods will be installed")
		return false, nil
	}

	p := newPool(d.poolSize)
	d.logger.Log(errors.SeverityInfo, Component, Subsystem,
		fmt.Sprintf("Installing %d mods with %d workers", len(descriptors), p.Size()))

	for _, desc := range descriptors {
		if err := p.Submit(func() { d.runTask(ctx, desc) }); err != nil {
			d.taskFailed(desc, err)
		}
	}
	p.Close()

	finished, err := p.AwaitTermination(ctx, timeout)
	if err != nil {
		d.logger.LogThrowable(errors.SeverityWarning, Component, Subsystem, err, "Activation interrupted")
		return false, err
	}
	if !finished {
		d.logger.LogThrowable(errors.SeverityWarning, Component, Subsystem,
			errors.NewTimeoutError("waiting for install tasks", timeout),
			fmt.Sprintf("Timed out after %s with %d install tasks still running", timeout, p.Pending()))
	}

	return !d.HasFatalError(), nil
}

// runTask turns any error or panic from the worker into a fatal record.
// A panic's cause carries the goroutine stack.
func (d *Director) runTask(ctx context.Context, desc mod.Descriptor) {
	defer func() {
		if r := recover(); r != nil {
			d.taskFailed(desc, fmt.Errorf("%w: %v\n%s", errors.ErrWorkerPanic, r, debug.Stack()))
		}
	}()

	if err := d.worker.Handle(ctx, desc, d); err != nil {
		d.taskFailed(desc, err)
	}
}

func (d *Director) taskFailed(desc mod.Descriptor, err error) {
	d.logger.LogThrowable(errors.SeverityError, Component, Subsystem, err,
		fmt.Sprintf("Unhandled exception in worker thread (mod %s)", desc.Name))
	d.AddError(errors.NewRecord(errors.SeverityError, "Unhandled exception in worker thread", err).
		WithMod(desc.Name))
}

// AddError appends a record to the error collection.
func (d *Director) AddError(r errors.Record) {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, r)
}

// HasFatalError reports whether any recorded error is fatal.
func (d *Director) HasFatalError() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.errs {
		if r.IsFatal() {
			return true
		}
	}
	return false
}

// Errors returns a copy of the recorded errors in the order they were added.
func (d *Director) Errors() []errors.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]errors.Record, len(d.errs))
	copy(out, d.errs)
	return out
}

// InstallSuccess records a completed install.
func (d *Director) InstallSuccess(m mod.Installed) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.installed = append(d.installed, m)
}

// InstalledMods returns a copy of the installed-mod records.
func (d *Director) InstalledMods() []mod.Installed {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]mod.Installed, len(d.installed))
	copy(out, d.installed)
	return out
}

// Logger returns the platform's logger.
func (d *Director) Logger() Logger { return d.logger }

// Platform returns the platform the director was bootstrapped with.
func (d *Director) Platform() Platform { return d.platform }

// PoolSize returns the number of install workers Activate uses.
func (d *Director) PoolSize() int { return d.poolSize }

// ErrorExit logs every fatal record and terminates the process with
// status 1 once the exit hooks have run. The director never calls it on
// its own.
func (d *Director) ErrorExit() {
	for _, r := range d.Errors() {
		if !r.IsFatal() {
			continue
		}
		d.logger.LogThrowable(errors.SeverityError, Component, Subsystem, r.Cause, r.String())
	}
	d.logger.Log(errors.SeverityError, Component, Subsystem, "Mod installation failed, exiting")
	for i := len(d.exitHooks) - 1; i >= 0; i-- {
		d.exitHooks[i]()
	}
	exitFunc(1)
}
