// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package devnet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

// Scenario deposits on one ledger, moves the deposit to another and
// finalizes it there.
type Scenario struct {
	Depositor ids.ShortID
	Deposit   *uint256.Int
	// Rebalance is the part of the deposit moved. Defaults to all of it.
	Rebalance *uint256.Int
	From, To  ids.ID
	// Hold leaves the intent in flight instead of finalizing it.
	Hold bool
}

// LedgerTotals is what one vault reports after a scenario step.
type LedgerTotals struct {
	Ledger      ids.ID       `json:"ledger"`
	TotalAssets *uint256.Int `json:"totalAssets"`
	TotalShares *uint256.Int `json:"totalShares"`
	MovedAssets *uint256.Int `json:"movedAssets"`
}

func (t LedgerTotals) MarshalJSON() ([]byte, error) {
	type totals struct {
		Ledger      ids.ID `json:"ledger"`
		TotalAssets string `json:"totalAssets"`
		TotalShares string `json:"totalShares"`
		MovedAssets string `json:"movedAssets"`
	}
	return json.Marshal(totals{
		Ledger:      t.Ledger,
		TotalAssets: t.TotalAssets.Dec(),
		TotalShares: t.TotalShares.Dec(),
		MovedAssets: t.MovedAssets.Dec(),
	})
}

type ScenarioResult struct {
	IntentID ids.ID         `json:"intentID"`
	Shares   string         `json:"shares"`
	Proof    string         `json:"proof"`
	Exported []LedgerTotals `json:"exported"`
	Imported []LedgerTotals `json:"imported"`
}

// Run plays [s] against the network as the devnet rebalancer.
func (n *Network) Run(ctx context.Context, s Scenario) (*ScenarioResult, error) {
	from, err := n.Ledger(s.From)
	if err != nil {
		return nil, err
	}
	to, err := n.Ledger(s.To)
	if err != nil {
		return nil, err
	}
	moved := s.Rebalance
	if moved == nil {
		moved = s.Deposit
	}

	if err := n.Faucet(ctx, from.ID, s.Depositor, s.Deposit, true); err != nil {
		return nil, fmt.Errorf("couldn't fund depositor: %w", err)
	}
	minted, err := from.Vault.Deposit(ctx, s.Depositor, s.Deposit, s.Depositor)
	if err != nil {
		return nil, fmt.Errorf("deposit failed: %w", err)
	}

	rebalancer := n.Identities.Rebalancer
	in, err := from.Vault.RebalanceWithdraw(ctx, rebalancer, moved, to.ID)
	if err != nil {
		return nil, fmt.Errorf("rebalance export failed: %w", err)
	}
	result := &ScenarioResult{
		IntentID: in.ID(),
		Shares:   minted.Dec(),
	}
	if result.Exported, err = n.Totals(ctx); err != nil {
		return nil, err
	}

	proof, err := n.Attest(in.ID())
	if err != nil {
		return nil, err
	}
	result.Proof = proof.String()
	if s.Hold {
		n.log.Info("scenario holding intent in flight",
			log.Stringer("intentID", in.ID()),
			log.Stringer("from", from.ID),
			log.Stringer("to", to.ID),
		)
		return result, nil
	}
	if err := to.Vault.CompleteRebalance(ctx, rebalancer, moved, s.Depositor, proof.Bytes()); err != nil {
		return nil, fmt.Errorf("rebalance import failed: %w", err)
	}
	if result.Imported, err = n.Totals(ctx); err != nil {
		return nil, err
	}

	n.log.Info("scenario completed",
		log.Stringer("intentID", in.ID()),
		log.Stringer("from", from.ID),
		log.Stringer("to", to.ID),
		log.String("moved", moved.Dec()),
	)
	return result, nil
}

// Totals reads every vault's totals.
func (n *Network) Totals(ctx context.Context) ([]LedgerTotals, error) {
	totals := make([]LedgerTotals, 0, len(n.ledgers))
	for _, l := range n.ledgers {
		assets, err := l.Vault.TotalAssets(ctx)
		if err != nil {
			return nil, err
		}
		supply, err := l.Vault.TotalSupply(ctx)
		if err != nil {
			return nil, err
		}
		moved, err := l.Vault.MovedAssets(ctx)
		if err != nil {
			return nil, err
		}
		totals = append(totals, LedgerTotals{
			Ledger:      l.ID,
			TotalAssets: assets,
			TotalShares: supply,
			MovedAssets: moved,
		})
	}
	return totals, nil
}
