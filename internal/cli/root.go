// Package cli implements the resumind command line client.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"resumind/internal/bootstrap"
	"resumind/internal/pdfimg"
	"resumind/internal/shared/config"
	"resumind/internal/shared/telemetry"
)

// Runtime carries what every command needs. Tests replace the builders.
type Runtime struct {
	Config config.Config
	Out    io.Writer
	ErrOut io.Writer

	// TokenFile persists the session between runs.
	TokenFile string
	// Build assembles the in-process host when no --host-url is given.
	Build func(ctx context.Context, cfg config.Config) (*bootstrap.App, error)
	// LoadEngine loads the PDF renderer.
	LoadEngine pdfimg.LoadFunc

	verbose bool
}

// NewRuntime returns a runtime over cfg writing to stdout and stderr.
func NewRuntime(cfg config.Config) *Runtime {
	rt := &Runtime{
		Config:    cfg,
		Out:       os.Stdout,
		ErrOut:    os.Stderr,
		TokenFile: defaultTokenFile(cfg),
		Build:     bootstrap.Build,
	}
	rt.LoadEngine = func(ctx context.Context) (pdfimg.Engine, error) {
		return pdfimg.LoadPDFium(ctx, pdfimg.PDFiumConfig{Instances: rt.Config.PDFEngineInstances})
	}
	return rt
}

func defaultTokenFile(cfg config.Config) string {
	if cfg.TokenFile != "" {
		return cfg.TokenFile
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "resumind", "token")
}

// NewRootCommand builds the command tree.
func NewRootCommand(rt *Runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "resumind",
		Short:         "Score resumes against job descriptions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			telemetry.SetOutput(rt.ErrOut)
			if rt.verbose {
				telemetry.SetLevel("debug")
			} else {
				telemetry.SetLevel("warn")
			}
		},
	}
	root.SetOut(rt.Out)
	root.SetErr(rt.ErrOut)
	root.PersistentFlags().StringVar(&rt.Config.HostURL, "host-url", rt.Config.HostURL, "host daemon URL (empty runs the development host in-process)")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(
		newPreviewCommand(rt),
		newSignInCommand(rt),
		newSignOutCommand(rt),
		newWhoAmICommand(rt),
		newAnalyzeCommand(rt),
		newListCommand(rt),
		newReviewCommand(rt),
		newWipeCommand(rt),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, rt *Runtime, args []string) int {
	root := NewRootCommand(rt)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(rt.ErrOut, "Error: %v\n", err)
		return 1
	}
	return 0
}
