package app

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ggonzalez94/rise-pilot/internal/account"
	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
	"github.com/ggonzalez94/rise-pilot/internal/execution"
	"github.com/ggonzalez94/rise-pilot/internal/httpx"
	"github.com/ggonzalez94/rise-pilot/internal/logger"
	"github.com/ggonzalez94/rise-pilot/internal/model"
	"github.com/ggonzalez94/rise-pilot/internal/schema"
)

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [command path]",
		Short: "Describe commands and flags as data",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := schema.Describe(s.root, strings.Join(args, " "))
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "describe command", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil, false)
		},
	}
}

func (s *runtimeState) newAccountsCommand() *cobra.Command {
	root := &cobra.Command{Use: "accounts", Short: "Inspect configured accounts"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts with their masked proxies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accts, err := account.Load(s.settings.KeysPath, s.settings.ProxiesPath)
			if err != nil {
				return err
			}
			listing := make([]model.AccountListing, 0, len(accts))
			for _, acct := range accts {
				listing = append(listing, model.AccountListing{
					Index:   acct.Index,
					Address: acct.Address().Hex(),
					Proxy:   httpx.MaskProxy(acct.Proxy),
				})
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), listing, nil, false)
		},
	}
	root.AddCommand(list)
	return root
}

func (s *runtimeState) newChainCommand() *cobra.Command {
	root := &cobra.Command{Use: "chain", Short: "Chain connectivity helpers"}
	var proxyArg string
	check := &cobra.Command{
		Use:   "check",
		Short: "Dial the RPC, verify the chain id and print the head block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proxy, err := httpx.ParseProxy(proxyArg)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "parse --proxy", err)
			}
			sessions := execution.NewSessions(s.chain, execution.NewLimiter(1), s.settings.Timeout, logger.L())
			status := model.ChainStatus{
				Name:    s.chain.Name,
				RPCURL:  s.chain.RPCURL,
				Proxy:   httpx.MaskProxy(proxy),
				Symbol:  s.chain.Symbol,
				ChainID: s.chain.ChainID,
			}
			err = sessions.With(cmd.Context(), proxy, "chain check", func(sess *execution.Session) error {
				status.ChainID = sess.ChainID.Int64()
				head, err := headBlock(cmd.Context(), sess)
				if err != nil {
					return err
				}
				status.BlockNumber = head
				return nil
			})
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), status, nil, false)
		},
	}
	check.Flags().StringVar(&proxyArg, "proxy", "", "Proxy to dial through (default direct)")
	root.AddCommand(check)
	return root
}

func headBlock(ctx context.Context, sess *execution.Session) (uint64, error) {
	head, err := sess.Client.BlockNumber(ctx)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeUnavailable, "read block number", err)
	}
	return head, nil
}
