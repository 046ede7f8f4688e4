package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ggonzalez94/rise-pilot/internal/account"
	"github.com/ggonzalez94/rise-pilot/internal/actions"
	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
	"github.com/ggonzalez94/rise-pilot/internal/execution"
	"github.com/ggonzalez94/rise-pilot/internal/httpx"
	"github.com/ggonzalez94/rise-pilot/internal/logger"
	"github.com/ggonzalez94/rise-pilot/internal/model"
	"github.com/ggonzalez94/rise-pilot/internal/policy"
	"github.com/ggonzalez94/rise-pilot/internal/runlock"
	"github.com/ggonzalez94/rise-pilot/internal/units"
)

func (s *runtimeState) newRunCommand() *cobra.Command {
	var actionArgs []string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run actions for every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := actions.ParseNames(actionArgs)
			if err != nil {
				return err
			}
			pool, err := s.allowedPool(names)
			if err != nil {
				return err
			}

			lock, err := runlock.Acquire(s.settings.LockPath)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			accts, err := account.Load(s.settings.KeysPath, s.settings.ProxiesPath)
			if err != nil {
				return err
			}
			if s.settings.ShuffleAccounts {
				rand.Shuffle(len(accts), func(i, j int) { accts[i], accts[j] = accts[j], accts[i] })
			}

			svc, err := s.newActionService()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			started := s.runner.now()
			report := runAccounts(ctx, svc, accts, names, pool, logger.L())
			report.Chain = s.chain.Slug
			report.StartedAt = started.UTC()
			report.Duration = s.runner.now().Sub(started).Round(time.Millisecond).String()
			for _, name := range names {
				report.Actions = append(report.Actions, string(name))
			}

			warnings := failureWarnings(report)
			partial := report.Failed > 0
			s.lastWarnings = warnings
			s.lastPartial = partial
			if err := s.emitSuccess(trimRootPath(cmd.CommandPath()), report, warnings, partial); err != nil {
				return err
			}
			if partial {
				return clierr.New(clierr.CodePartial, fmt.Sprintf("%d of %d accounts failed", report.Failed, len(report.Accounts)))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&actionArgs, "actions", nil, "Actions to run per account: wrap, unwrap, supply, random")
	return cmd
}

// allowedPool checks explicit actions against the allowlist and returns the
// concrete actions random may resolve to.
func (s *runtimeState) allowedPool(names []actions.Name) ([]actions.Name, error) {
	allow := s.settings.EnableActions
	for _, name := range names {
		if name == actions.Random {
			continue
		}
		if err := policy.CheckActionAllowed(allow, string(name)); err != nil {
			return nil, err
		}
	}
	candidates := make([]string, 0, len(actions.All))
	for _, name := range actions.All {
		candidates = append(candidates, string(name))
	}
	var pool []actions.Name
	for _, name := range policy.FilterAllowed(allow, candidates) {
		pool = append(pool, actions.Name(name))
	}
	if len(pool) == 0 {
		return nil, clierr.New(clierr.CodeBlocked, "enable_actions policy leaves no action to pick from")
	}
	return pool, nil
}

func (s *runtimeState) newActionService() (*actions.Service, error) {
	log := logger.L()
	cfg := actions.DefaultConfig()
	wrapMin, err := units.ParseDecimal(s.settings.WrapMin, 18)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "parse wrap_amount.min", err)
	}
	wrapMax, err := units.ParseDecimal(s.settings.WrapMax, 18)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "parse wrap_amount.max", err)
	}
	fraction, err := actions.NewFractionRange(s.settings.FractionMin, s.settings.FractionMax)
	if err != nil {
		return nil, err
	}
	cfg.WrapMin = wrapMin
	cfg.WrapMax = wrapMax
	cfg.Fraction = fraction
	cfg.ProbePause = s.settings.ProbePause

	sessions := execution.NewSessions(s.chain, execution.NewLimiter(s.settings.MaxSessions), s.settings.Timeout, log)
	pacer := execution.NewPacer(s.settings.DelayMin, s.settings.DelayMax, nil, log)
	exec := execution.NewExecutor(s.chain, execution.ExecuteOptions{
		Simulate:       s.settings.Simulate,
		PollInterval:   s.settings.PollInterval,
		ReceiptTimeout: s.settings.ReceiptTimeout,
		GasMultiplier:  s.settings.GasMultiplier,
	}, log)
	return actions.NewService(sessions, pacer, exec, cfg, nil, log), nil
}

// runAccounts runs the action list for every account concurrently. Accounts
// never wait on each other apart from the shared session limiter.
func runAccounts(ctx context.Context, svc *actions.Service, accts []account.Account, names, pool []actions.Name, log *slog.Logger) model.RunReport {
	reports := make([]model.AccountReport, len(accts))
	var wg sync.WaitGroup
	for i, acct := range accts {
		wg.Add(1)
		go func(i int, acct account.Account) {
			defer wg.Done()
			reports[i] = runAccount(ctx, svc, acct, names, pool, log)
		}(i, acct)
	}
	wg.Wait()

	report := model.RunReport{Accounts: reports}
	for _, rep := range reports {
		if rep.Error != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
		for _, action := range rep.Actions {
			if action.NothingToDo {
				report.NothingToDo++
			}
		}
	}
	return report
}

// runAccount runs names in order and stops at the first failed action.
func runAccount(ctx context.Context, svc *actions.Service, acct account.Account, names, pool []actions.Name, log *slog.Logger) model.AccountReport {
	rep := model.AccountReport{
		Index:   acct.Index,
		Address: acct.Address().Hex(),
		Proxy:   httpx.MaskProxy(acct.Proxy),
	}
	log = logger.Tagged(log, acct.String())
	for _, name := range names {
		if name == actions.Random {
			name = svc.PickFrom(pool)
		}
		result, err := svc.Run(ctx, name, acct)
		action := model.ActionReport{
			Action:       string(name),
			NothingToDo:  result.NothingToDo,
			Token:        result.Token,
			Amount:       result.Amount,
			Transactions: result.Outcomes,
		}
		if err != nil {
			action.Error = errorBody(err)
			rep.Actions = append(rep.Actions, action)
			rep.Error = action.Error
			log.Error("Action failed", "action", string(name), "error", err)
			return rep
		}
		rep.Actions = append(rep.Actions, action)
	}
	return rep
}

func failureWarnings(report model.RunReport) []string {
	var warnings []string
	for _, rep := range report.Accounts {
		if rep.Error != nil {
			warnings = append(warnings, fmt.Sprintf("account #%d: %s", rep.Index, rep.Error.Message))
		}
	}
	return warnings
}
