package actions

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ggonzalez94/rise-pilot/internal/account"
	"github.com/ggonzalez94/rise-pilot/internal/execution"
	"github.com/ggonzalez94/rise-pilot/internal/logger"
	"github.com/ggonzalez94/rise-pilot/internal/registry"
	"github.com/ggonzalez94/rise-pilot/internal/units"
)

// Wrap deposits a random amount of the native asset into the wrapped token.
func (s *Service) Wrap(ctx context.Context, acct account.Account) (Result, error) {
	chain := s.Sessions.Chain
	tag := fmt.Sprintf("%s > Wrap %s", acct, chain.Symbol)
	weth := registry.WrappedNative()
	result := Result{Action: Wrap, Token: chain.Symbol}
	log := logger.Tagged(s.Logger, tag)

	if _, err := s.Pacer.Wait(ctx, tag); err != nil {
		return result, err
	}
	err := s.Sessions.With(ctx, acct.Proxy, tag, func(sess *execution.Session) error {
		balance, err := execution.NativeBalance(ctx, sess.Client, acct.Address())
		if err != nil {
			return err
		}
		if balance.Sign() == 0 {
			log.Warn(fmt.Sprintf("No %s balance", chain.Symbol))
			result.NothingToDo = true
			return nil
		}
		amount := s.wrapAmount(balance)
		result.Amount = units.FormatEther(amount)
		log.Info(fmt.Sprintf("Wrapping %s %s", result.Amount, chain.Symbol))

		data, err := depositData()
		if err != nil {
			return err
		}
		outcome, err := s.Executor.Execute(ctx, sess.Client, acct.Signer, execution.Intent{
			To:          weth.Address,
			Data:        data,
			Value:       amount,
			Description: fmt.Sprintf("deposit %s %s", result.Amount, chain.Symbol),
		}, tag)
		result.Outcomes = append(result.Outcomes, outcome)
		return err
	})
	return result, err
}

// Unwrap withdraws a random share of the wrapped-token balance, approving
// the unwrap spender first when its allowance is short.
func (s *Service) Unwrap(ctx context.Context, acct account.Account) (Result, error) {
	chain := s.Sessions.Chain
	tag := fmt.Sprintf("%s > Unwrap %s", acct, chain.Symbol)
	weth := registry.WrappedNative()
	result := Result{Action: Unwrap, Token: weth.Symbol}
	log := logger.Tagged(s.Logger, tag)

	if _, err := s.Pacer.Wait(ctx, tag); err != nil {
		return result, err
	}
	err := s.Sessions.With(ctx, acct.Proxy, tag, func(sess *execution.Session) error {
		balance, err := execution.BalanceOf(ctx, sess.Client, weth.Address, acct.Address())
		if err != nil {
			return err
		}
		if balance.Sign() == 0 {
			log.Warn(fmt.Sprintf("No %s balance", weth.Symbol))
			result.NothingToDo = true
			return nil
		}
		amount := s.fractionOf(balance)
		result.Amount = units.FormatUnits(amount, weth.Decimals)

		approval, err := execution.EnsureAllowance(ctx, sess.Client, s.Executor, acct.Signer, weth, weth.Spender, amount, tag)
		if approval != nil {
			result.Outcomes = append(result.Outcomes, *approval)
		}
		if err != nil {
			return err
		}

		log.Info(fmt.Sprintf("Unwrapping %s %s", result.Amount, chain.Symbol))
		data, err := withdrawData(amount)
		if err != nil {
			return err
		}
		outcome, err := s.Executor.Execute(ctx, sess.Client, acct.Signer, execution.Intent{
			To:          weth.Address,
			Data:        data,
			Value:       new(big.Int),
			Description: fmt.Sprintf("withdraw %s %s", result.Amount, weth.Symbol),
		}, tag)
		result.Outcomes = append(result.Outcomes, outcome)
		return err
	})
	return result, err
}
