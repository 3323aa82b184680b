package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/Iron-Ham/moddirector/internal/config"
	"github.com/Iron-Ham/moddirector/internal/director"
	"github.com/Iron-Ham/moddirector/internal/errors"
	"github.com/Iron-Ham/moddirector/internal/install"
	"github.com/Iron-Ham/moddirector/internal/mod"
	"github.com/Iron-Ham/moddirector/internal/platform"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install every configured mod",
	Long: `Install loads the mod descriptors from the configuration directory and
installs them in parallel into the mods directory.

Any fatal error while loading descriptors stops the run before anything is
installed. Any failed install makes the command exit with status 1 once
all other installs have been attempted.

Examples:
  # Install using the configured directories
  moddirector install

  # Install from a specific descriptor directory with a short deadline
  moddirector install --config-dir ./mods.d --mods-dir ./server/mods --timeout 2m`,
	RunE: runInstall,
}

var (
	installTimeout     time.Duration
	installConfigDir   string
	installModsDir     string
	installParallelism int
)

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().DurationVar(&installTimeout, "timeout", 0, "Maximum time to wait for installs, e.g. 90s or 1500ms (default: director.timeout_seconds)")
	installCmd.Flags().StringVar(&installConfigDir, "config-dir", "", "Directory containing mod descriptors")
	installCmd.Flags().StringVar(&installModsDir, "mods-dir", "", "Directory mods are installed into")
	installCmd.Flags().IntVar(&installParallelism, "parallelism", 0, "Parallelism hint; the pool uses half of it (default: CPU count)")
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	applyInstallFlags(cmd, cfg)

	logger, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Close()

	loader, err := newLoader(cfg.Loader, logger)
	if err != nil {
		return err
	}
	installer, err := install.NewInstaller(install.InstallerConfig{
		ModsDir:     cfg.Director.ResolveModsDir(),
		HTTPTimeout: cfg.Install.HTTPTimeout(),
		UserAgent:   cfg.Install.UserAgent,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	plat := platform.NewCLI(platform.CLIConfig{
		ConfigDir: cfg.Director.ResolveConfigDir(),
		ModsDir:   installer.ModsDir(),
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []director.Option{
		director.WithLoader(loader),
		director.WithWorker(installer),
		// ErrorExit ends the process, so deferred cleanup never runs there.
		director.WithExitHook(releaseOnExit(stop, logger)),
	}
	if cfg.Director.Parallelism > 0 {
		opts = append(opts, director.WithParallelism(cfg.Director.Parallelism))
	}
	d, err := director.Bootstrap(plat, opts...)
	if err != nil {
		return err
	}

	ok, err := d.Activate(ctx, installWait(cmd, cfg))
	renderSummary(cmd.OutOrStdout(), d.InstalledMods(), d.Errors(), ok && err == nil)
	if err != nil {
		return errors.Wrap(err, "install interrupted")
	}
	if !ok {
		d.ErrorExit()
	}
	return nil
}

// releaseOnExit returns a hook that stops signal delivery and flushes the
// log file before the process exits.
func releaseOnExit(stop func(), logs io.Closer) func() {
	return func() {
		stop()
		_ = logs.Close()
	}
}

// installWait returns how long Activate waits for install tasks. An explicit
// --timeout is used as given; otherwise the configured whole seconds apply.
func installWait(cmd *cobra.Command, cfg *config.Config) time.Duration {
	if cmd.Flags().Changed("timeout") && installTimeout > 0 {
		return installTimeout
	}
	return cfg.Director.Timeout()
}

// applyInstallFlags overrides config values with flags the user set.
// --timeout is read by installWait so sub-second values survive.
func applyInstallFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("config-dir") {
		cfg.Director.ConfigDir = installConfigDir
	}
	if flags.Changed("mods-dir") {
		cfg.Director.ModsDir = installModsDir
	}
	if flags.Changed("parallelism") && installParallelism > 0 {
		cfg.Director.Parallelism = installParallelism
	}
}

// renderSummary prints installed mods and recorded errors followed by the
// verdict.
func renderSummary(w io.Writer, installed []mod.Installed, records []errors.Record, ok bool) {
	p := newPalette(w)
	width := terminalWidth(w)

	sort.Slice(installed, func(i, j int) bool { return installed[i].Name < installed[j].Name })

	fmt.Fprintln(w, p.title.Render(fmt.Sprintf("Installed %d %s", len(installed), plural(len(installed), "mod", "mods"))))
	for _, m := range installed {
		mark, detail := p.success.Render("✓"), humanSize(m.Size)
		if m.Existing {
			mark, detail = p.muted.Render("•"), "already present"
		}
		rest := fmt.Sprintf("%s (%s)", m.Path, detail)
		if width > 0 {
			rest = truncate(rest, width-len([]rune(m.Name))-6)
		}
		fmt.Fprintf(w, "  %s %s  %s\n", mark, p.key.Render(m.Name), p.muted.Render(rest))
	}

	if len(records) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, p.title.Render(fmt.Sprintf("Diagnostics (%d)", len(records))))
		for _, r := range records {
			mark := "·"
			if r.IsFatal() {
				mark = "✗"
			}
			fmt.Fprintln(w, "  "+p.severity(r.Severity).Render(truncate(mark+" "+recordLine(r), width-2)))
		}
	}

	fmt.Fprintln(w)
	if ok {
		fmt.Fprintln(w, p.success.Render("Result: OK"))
	} else {
		fmt.Fprintln(w, p.failure.Render("Result: FAILED"))
	}
}

// recordLine formats r for the summary. Causes that are not meant for end
// users are left to the log.
func recordLine(r errors.Record) string {
	line := r.String()
	if r.Cause != nil && !errors.IsUserFacing(r.Cause) {
		line = errors.Record{Severity: r.Severity, Message: r.Message, Mod: r.Mod}.String() + " (details in log)"
	}
	if errors.IsRetryable(r.Cause) {
		line += " (retryable)"
	}
	return line
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// humanSize formats a byte count with a binary unit.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %s", float64(n)/float64(div), strings.Split("KiB MiB GiB TiB PiB", " ")[exp])
}
