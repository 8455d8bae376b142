// Package cli implements the tenantql command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tenantql/internal/compiler"
	"tenantql/internal/config"
	"tenantql/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// Exit codes.
const (
	exitOK           = 0
	exitError        = 1
	exitCompileError = 2
)

// Execute runs the CLI.
func Execute() int {
	return run(newRootCmd(), os.Stdout, os.Stderr)
}

func run(rootCmd *cobra.Command, stdout, stderr io.Writer) int {
	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}

	code := exitError
	errObj := map[string]any{"error": err.Error()}
	if ce, ok := domain.AsCompileError(err); ok {
		code = exitCompileError
		errObj["kind"] = ce.Kind.String()
	}

	output, _ := rootCmd.PersistentFlags().GetString("output")
	if output == outputJSON {
		_ = printJSON(stdout, errObj)
	} else {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return code
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	flags  configFlags
	cfg    *config.Config
	logger *slog.Logger
}

// service builds the compiler for the resolved config. The caller closes it.
func (a *app) service(ctx context.Context) (*compiler.Service, func() error, error) {
	return compiler.FromConfig(ctx, a.cfg, a.logger)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var output string

	rootCmd := &cobra.Command{
		Use:           "tenantql",
		Short:         "Tenant-scoped analytics query compiler",
		Long:          "Compile analytics queries into team-scoped, parameterized SQL for the execution engine.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutputFormat(output); err != nil {
				return err
			}
			if err := config.LoadDotEnv(a.flags.envFile); err != nil {
				return err
			}
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			if err := a.flags.apply(cmd.Root().PersistentFlags(), cfg); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			for _, w := range cfg.Warnings {
				a.logger.Warn(w)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", outputAuto, "Output format (auto, table, json, yaml)")
	a.flags.register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newCompileCmd(a))
	rootCmd.AddCommand(newTablesCmd(a))
	rootCmd.AddCommand(newMetastoreCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
