package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ggonzalez94/rise-pilot/internal/config"
	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
	"github.com/ggonzalez94/rise-pilot/internal/logger"
	"github.com/ggonzalez94/rise-pilot/internal/model"
	"github.com/ggonzalez94/rise-pilot/internal/out"
	"github.com/ggonzalez94/rise-pilot/internal/registry"
	"github.com/ggonzalez94/rise-pilot/internal/version"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner       *Runner
	flags        config.GlobalFlags
	settings     config.Settings
	chain        registry.Chain
	root         *cobra.Command
	lastCommand  string
	lastWarnings []string
	lastPartial  bool
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	err = normalizeRunError(err)
	defer func() { _ = logger.Sync() }()
	if err == nil {
		return 0
	}

	state.renderError("", err, state.lastWarnings, state.lastPartial)
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Paced wrap, unwrap and supply transactions on Rise Testnet",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			s.lastCommand = trimRootPath(cmd.CommandPath())

			if err := logger.Init(logger.Config{
				Level:       settings.LogLevel,
				Format:      settings.LogFormat,
				OutputPaths: settings.LogOutputs,
			}); err != nil {
				return clierr.Wrap(clierr.CodeUsage, "configure logging", err)
			}

			chain, err := registry.ResolveChain(settings.Chain, settings.RPCURL)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "resolve chain", err)
			}
			s.chain = chain
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	pf.BoolVar(&s.flags.JSON, "json", false, "Output JSON (default)")
	pf.BoolVar(&s.flags.Plain, "plain", false, "Output plain text")
	pf.StringVar(&s.flags.Select, "select", "", "Select fields from data (comma-separated)")
	pf.BoolVar(&s.flags.ResultsOnly, "results-only", false, "Output only data payload")
	pf.StringVar(&s.flags.Chain, "chain", "", "Chain slug or id (default rise-testnet)")
	pf.StringVar(&s.flags.RPCURL, "rpc-url", "", "Override the chain RPC endpoint")
	pf.StringVar(&s.flags.KeysPath, "keys", "", "Keys file, one private key or keystore:<path> per line")
	pf.StringVar(&s.flags.ProxiesPath, "proxies", "", "Proxies file, line N serves key N")
	pf.IntVar(&s.flags.MaxSessions, "max-sessions", 0, "Maximum concurrent RPC sessions")
	pf.StringVar(&s.flags.DelayMin, "delay-min", "", "Minimum pause before each action")
	pf.StringVar(&s.flags.DelayMax, "delay-max", "", "Maximum pause before each action")
	pf.StringVar(&s.flags.Timeout, "timeout", "", "RPC request timeout")
	pf.StringVar(&s.flags.ReceiptTimeout, "receipt-timeout", "", "How long to wait for a receipt")
	pf.BoolVar(&s.flags.Simulate, "simulate", false, "Run eth_call before broadcasting")
	pf.BoolVar(&s.flags.Shuffle, "shuffle", false, "Shuffle account order")
	pf.StringVar(&s.flags.LockPath, "lock-path", "", "Run lock file")
	pf.StringVar(&s.flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&s.flags.LogFormat, "log-format", "", "Log format (text, json)")
	pf.StringVar(&s.flags.EnableActions, "enable-actions", "", "Allowlist actions (comma-separated)")

	cmd.AddCommand(s.newRunCommand())
	cmd.AddCommand(s.newAccountsCommand())
	cmd.AddCommand(s.newChainCommand())
	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) emitSuccess(commandPath string, data any, warnings []string, partial bool) error {
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  !partial,
		Data:     data,
		Error:    nil,
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
			Chain:     s.chain.Slug,
			Partial:   partial,
		},
	}
	return out.Render(s.runner.stdout, env, s.settings)
}

func (s *runtimeState) renderError(commandPath string, err error, warnings []string, partial bool) {
	if strings.TrimSpace(commandPath) == "" {
		commandPath = s.lastCommand
		if commandPath == "" {
			commandPath = version.CLIName
		}
	}

	settings := s.settings
	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	settings.ResultsOnly = false
	settings.SelectFields = nil
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  false,
		Data:     []any{},
		Error:    errorBody(err),
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
			Chain:     s.chain.Slug,
			Partial:   partial,
		},
	}
	_ = out.Render(s.runner.stderr, env, settings)
}

func errorBody(err error) *model.ErrorBody {
	if err == nil {
		return nil
	}
	code := clierr.ExitCode(err)
	message := err.Error()
	if cErr, ok := clierr.As(err); ok {
		message = cErr.Message
		if cErr.Cause != nil {
			message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
	}
	return &model.ErrorBody{
		Code:    code,
		Type:    clierr.TypeName(clierr.Code(code)),
		Message: message,
	}
}

func newRequestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
