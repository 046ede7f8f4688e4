package actions

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ggonzalez94/rise-pilot/internal/account"
	"github.com/ggonzalez94/rise-pilot/internal/execution"
	"github.com/ggonzalez94/rise-pilot/internal/logger"
	"github.com/ggonzalez94/rise-pilot/internal/registry"
	"github.com/ggonzalez94/rise-pilot/internal/units"
)

// Supply deposits a random share of one funded catalog token into the Inari
// pool. The token is the first with a positive balance in shuffled order.
func (s *Service) Supply(ctx context.Context, acct account.Account) (Result, error) {
	tag := fmt.Sprintf("%s > Inari > Supply", acct)
	result := Result{Action: Supply}
	log := logger.Tagged(s.Logger, tag)

	if _, err := s.Pacer.Wait(ctx, tag); err != nil {
		return result, err
	}
	err := s.Sessions.With(ctx, acct.Proxy, tag, func(sess *execution.Session) error {
		token, balance, err := s.pickFundedToken(ctx, sess.Client, acct)
		if err != nil {
			return err
		}
		if balance == nil {
			log.Warn("There are no tokens with positive balance")
			result.NothingToDo = true
			return nil
		}
		amount := s.fractionOf(balance)
		result.Token = token.Symbol
		result.Amount = units.FormatUnits(amount, token.Decimals)

		approval, err := execution.EnsureAllowance(ctx, sess.Client, s.Executor, acct.Signer, token, token.Spender, amount, tag)
		if approval != nil {
			result.Outcomes = append(result.Outcomes, *approval)
		}
		if err != nil {
			return err
		}

		log.Info(fmt.Sprintf("Supplying %s %s", result.Amount, token.Symbol))
		data, err := supplyData(token.Address, amount, acct.Address())
		if err != nil {
			return err
		}
		outcome, err := s.Executor.Execute(ctx, sess.Client, acct.Signer, execution.Intent{
			To:          token.Spender,
			Data:        data,
			Value:       new(big.Int),
			Description: fmt.Sprintf("supply %s %s", result.Amount, token.Symbol),
		}, tag)
		result.Outcomes = append(result.Outcomes, outcome)
		return err
	})
	return result, err
}

// pickFundedToken probes the shuffled catalog one token at a time. A nil
// balance means no token is funded.
func (s *Service) pickFundedToken(ctx context.Context, client *ethclient.Client, acct account.Account) (registry.Token, *big.Int, error) {
	tokens := make([]registry.Token, len(s.Config.SupplyTokens))
	copy(tokens, s.Config.SupplyTokens)
	s.shuffleTokens(tokens)

	for i, token := range tokens {
		balance, err := execution.BalanceOf(ctx, client, token.Address, acct.Address())
		if err != nil {
			return registry.Token{}, nil, err
		}
		if balance.Sign() > 0 {
			return token, balance, nil
		}
		if i < len(tokens)-1 {
			if err := sleepContext(ctx, s.Config.ProbePause); err != nil {
				return registry.Token{}, nil, err
			}
		}
	}
	return registry.Token{}, nil, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
