// Package director coordinates concurrent mod installation.
//
// A process has at most one [Director]. The host creates it with
// [Bootstrap], looks it up with [Instance], and runs it once with
// [Director.Activate]:
//
//	d, err := director.Bootstrap(plat,
//	    director.WithLoader(loader),
//	    director.WithWorker(installer),
//	)
//	if err != nil {
//	    return err
//	}
//	ok, err := d.Activate(ctx, 5*time.Minute)
//	if err != nil {
//	    return err
//	}
//	if !ok {
//	    d.ErrorExit()
//	}
//
// Activation loads descriptors from the platform's configuration directory,
// stops early if loading recorded a fatal error, and otherwise runs one
// install task per descriptor on a pool of max(1, NumCPU/2) workers.
//
// # Errors and verdict
//
// Collaborators report problems through [Director.AddError]. A record with
// severity ERROR is fatal; the verdict of Activate is true only when no
// fatal record exists once the wait ends. A task that returns an error or
// panics is recorded as a fatal record attributed to its mod.
//
// The wait is bounded by the timeout passed to Activate and does not cancel
// running tasks. If the bound elapses first, Activate logs a warning and
// still returns the gate's verdict, so a true result does not mean every
// install finished.
//
// # Thread Safety
//
// AddError, InstallSuccess and the snapshot accessors are safe to call from
// any goroutine, including install tasks.
package director
