package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pthm/fract"
	"github.com/pthm/fract/lib/htmldoc"
	"github.com/pthm/fract/lib/metrics"
)

const version = "0.1.0"

// app carries what every subcommand needs once flags and config are loaded.
type app struct {
	configPath string
	verbose    bool
	attr       string
	out        string
	report     bool

	cfg      *Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Observer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "fract",
		Short: "Apply fract envelopes to HTML documents",
		Long: `fract replays server envelopes against an HTML page and prints the result.

Use "apply" for an envelope stored in a file and "send" to request one from a
running server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "fract.yaml", "config file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output")
	flags.StringVar(&a.attr, "attr", "", "component identity attribute (default data-fract-id)")
	flags.StringVarP(&a.out, "out", "o", "", "write the resulting document to this file instead of stdout")
	flags.BoolVar(&a.report, "metrics", false, "print application metrics to stderr")

	root.AddCommand(
		newApplyCmd(a),
		newSendCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if a.attr != "" {
		cfg.Attribute = a.attr
	}
	a.cfg = cfg

	if a.verbose {
		a.logger, err = zap.NewDevelopment()
	} else {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		a.logger, err = zc.Build()
	}
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New()
	a.registry.MustRegister(a.metrics)
	return nil
}

func (a *app) loadDocument(path string) (*htmldoc.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return htmldoc.Parse(f, htmldoc.WithAttribute(a.cfg.Attribute), htmldoc.WithLocation(path))
}

func (a *app) newApplier(doc *htmldoc.Document) (*fract.Applier[*html.Node], error) {
	actions, err := a.cfg.actions(fract.BuiltinActions(a.logger))
	if err != nil {
		return nil, err
	}
	return fract.NewApplier[*html.Node](doc,
		fract.WithLogger(a.logger),
		fract.WithActions(actions),
		fract.WithObserver(a.metrics),
	), nil
}

// finish writes the document and the run summary.
func (a *app) finish(cmd *cobra.Command, doc *htmldoc.Document, out fract.Outcome, applyErr error) error {
	w := cmd.OutOrStdout()
	if a.out != "" {
		f, err := os.Create(a.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if out.Redirected {
		fmt.Fprintf(cmd.ErrOrStderr(), "redirect: %s\n", doc.Location())
	} else if err := doc.Render(w); err != nil {
		return fmt.Errorf("render document: %w", err)
	}

	if a.report {
		lines, err := metrics.Snapshot(a.registry)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), strings.Join(lines, "\n"))
	}
	return applyErr
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of fract",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fract version %s\n", version)
		},
	}
}
