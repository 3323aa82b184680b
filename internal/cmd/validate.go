package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/Iron-Ham/moddirector/internal/config"
	"github.com/Iron-Ham/moddirector/internal/errors"
	"github.com/Iron-Ham/moddirector/internal/mod"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config-dir]",
	Short: "Check mod descriptors without installing anything",
	Long: `Validate loads every descriptor file the install command would read and
reports what it found. Nothing is downloaded or written.

The command fails when any fatal error is recorded, which is exactly the
condition under which install would refuse to start.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// collector is an ErrorSink that keeps records in arrival order.
type collector struct {
	mu      sync.Mutex
	records []errors.Record
}

func (c *collector) AddError(r errors.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r)
}

func (c *collector) fatal() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.records {
		if r.IsFatal() {
			n++
		}
	}
	return n
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	dir := cfg.Director.ResolveConfigDir()
	if len(args) == 1 {
		dir = args[0]
	}

	loader, err := newLoader(cfg.Loader, nil)
	if err != nil {
		return err
	}

	var sink collector
	descs := loader.Load(cmd.Context(), dir, &sink)
	renderValidation(cmd.OutOrStdout(), dir, descs, sink.records)

	if n := sink.fatal(); n > 0 {
		return fmt.Errorf("%d fatal %s in %s", n, plural(n, "error", "errors"), dir)
	}
	return nil
}

func renderValidation(w io.Writer, dir string, descs []mod.Descriptor, records []errors.Record) {
	p := newPalette(w)
	width := terminalWidth(w)

	fmt.Fprintln(w, p.title.Render(fmt.Sprintf("%d %s in %s", len(descs), plural(len(descs), "mod", "mods"), dir)))
	for _, d := range descs {
		rest := fmt.Sprintf("%s -> %s", d.Source, d.Key())
		if width > 0 {
			rest = truncate(rest, width-len([]rune(d.Name))-4)
		}
		fmt.Fprintf(w, "  %s  %s\n", p.key.Render(d.Name), p.muted.Render(rest))
	}
	for _, r := range records {
		fmt.Fprintln(w, "  "+p.severity(r.Severity).Render(truncate(r.String(), width-2)))
	}
}
