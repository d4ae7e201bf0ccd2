// main.go bootstraps cdk-changeset-reporter: it builds the root cobra command
// and executes it with a signal-aware context.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/citizensadvice/cdk-changeset-reporter/pkg/assembly"
	"github.com/citizensadvice/cdk-changeset-reporter/pkg/git"
	"github.com/citizensadvice/cdk-changeset-reporter/pkg/logging"
	"github.com/citizensadvice/cdk-changeset-reporter/pkg/reporter"
)

const envPrefix = "CDK_REPORTER"

type options struct {
	appDir        string
	changeSetName string
	repoURL       string
	cleanup       bool
	render        bool
	logLevel      string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := options{
		appDir:   "cdk.out",
		cleanup:  true,
		logLevel: "info",
	}
	cmd := &cobra.Command{
		Use:   "cdk-changeset-reporter [SELECTOR...]",
		Short: "Report pending CloudFormation changesets for CDK stacks",
		Long: `cdk-changeset-reporter inspects the CloudFormation changesets pending for
the stacks in a pre-built CDK cloud assembly and prints a markdown diff
report, flagging changes that force resource recreation.

Each stack is queried in its own account/region by assuming the stack's CDK
lookup role as recorded in the cloud assembly. Selectors are stack-name
prefixes; "*" (the default) selects every stack.

Examples:
  cdk-changeset-reporter
  cdk-changeset-reporter staging training
  cdk-changeset-reporter --app build/cdk.out --change-set pr-1234 'staging'
  cdk-changeset-reporter --repo https://github.com/org/infra.git --render`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindEnv(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			selectors := args
			if len(selectors) == 0 {
				selectors = []string{reporter.SelectAll}
			}
			return run(cmd.Context(), opts, selectors)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.appDir, "app", "a", opts.appDir, "Cloud assembly directory produced by cdk synth")
	flags.StringVar(&opts.changeSetName, "change-set", "", "Change set name to search for (default: first AVAILABLE change set)")
	flags.StringVar(&opts.repoURL, "repo", "", "Git repository holding a pre-built cloud assembly")
	flags.BoolVar(&opts.cleanup, "cleanup", opts.cleanup, "Remove the cloned repository after reporting (with --repo)")
	flags.BoolVar(&opts.render, "render", false, "Pretty-print the markdown report for the terminal")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "Log level (debug, info, warn, error)")
	return cmd
}

// bindEnv lets CDK_REPORTER_* environment variables back any flag that was
// not set on the command line, e.g. CDK_REPORTER_CHANGE_SET.
func bindEnv(flags *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if err = v.BindEnv(f.Name); err != nil {
			return
		}
		if !f.Changed && v.IsSet(f.Name) {
			err = f.Value.Set(v.GetString(f.Name))
		}
	})
	return err
}

func run(ctx context.Context, opts options, selectors []string) error {
	log, err := logging.New(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	appDir := opts.appDir
	if opts.repoURL != "" {
		clonePath, err := git.CloneRepository(opts.repoURL, "", log)
		if err != nil {
			return err
		}
		if opts.cleanup {
			defer func() {
				if err := git.CleanupRepository(clonePath); err != nil {
					log.Warn("failed to clean up checkout", zap.String("path", clonePath), zap.Error(err))
				}
			}()
		} else {
			log.Info("keeping checkout", zap.String("path", clonePath))
		}
		appDir = filepath.Join(clonePath, appDir)
	}

	asm, err := assembly.Load(appDir)
	if err != nil {
		return err
	}

	rep := reporter.New(asm, reporter.Options{
		ChangeSetName: opts.changeSetName,
		Logger:        log,
	})
	for _, selector := range selectors {
		rep.Select(selector)
	}

	changes, err := rep.GatherChanges(ctx)
	if err != nil {
		return err
	}

	var report strings.Builder
	if err := rep.Report(&report, changes); err != nil {
		return err
	}
	return emit(report.String(), opts.render)
}

// emit prints the report to stdout, optionally rendered for the terminal.
func emit(report string, render bool) error {
	if !render {
		_, err := fmt.Print(report)
		return err
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(0))
	if err != nil {
		return fmt.Errorf("failed to build terminal renderer: %w", err)
	}
	pretty, err := renderer.Render(report)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	_, err = fmt.Print(pretty)
	return err
}
