// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package devnet runs several ledgers in one process, each with its own
// token ledger and vault instance, joined by a single relay.
package devnet

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/vault/utils/timer/mockable"
	"github.com/luxfi/vault/vms/vaultvm"
	"github.com/luxfi/vault/vms/vaultvm/bridge"
	"github.com/luxfi/vault/vms/vaultvm/config"
	"github.com/luxfi/vault/vms/vaultvm/intent"
	"github.com/luxfi/vault/vms/vaultvm/metrics"
	"github.com/luxfi/vault/vms/vaultvm/token"
)

var ErrUnknownLedger = errors.New("unknown devnet ledger")

// Identities are the well-known accounts a devnet is bootstrapped with.
// They are derived from fixed labels so that every devnet agrees on them.
type Identities struct {
	Vault      ids.ShortID
	Owner      ids.ShortID
	Rebalancer ids.ShortID
	Treasury   ids.ShortID
}

// DefaultIdentities returns the identities used when the vault config leaves
// them empty.
func DefaultIdentities() Identities {
	return Identities{
		Vault:      DeriveAddress("vault"),
		Owner:      DeriveAddress("owner"),
		Rebalancer: DeriveAddress("rebalancer"),
		Treasury:   DeriveAddress("treasury"),
	}
}

// DeriveAddress returns a deterministic address for [label].
func DeriveAddress(label string) ids.ShortID {
	digest := sha3.Sum256([]byte("lux-vault-devnet/address/" + label))
	var addr ids.ShortID
	copy(addr[:], digest[:])
	return addr
}

// DeriveID returns a deterministic ID for [label].
func DeriveID(label string) ids.ID {
	return ids.ID(sha3.Sum256([]byte("lux-vault-devnet/id/" + label)))
}

type Config struct {
	// Ledgers is the number of ledgers to run. At least two.
	Ledgers int
	// Vault is the template every ledger's vault is configured from. The
	// ledger ID is always assigned by the devnet; the other identities are
	// filled in from DefaultIdentities when empty.
	Vault config.Config

	Log     log.Logger
	Metrics *metrics.Set
	Clock   *mockable.Clock
}

// Ledger is one ledger of the devnet.
type Ledger struct {
	ID     ids.ID
	Escrow ids.ShortID
	Token  *token.MemoryLedger
	Vault  *vaultvm.Vault
}

type Network struct {
	Relay      *bridge.Relay
	Asset      ids.ID
	Identities Identities

	log     log.Logger
	ledgers []*Ledger
	byID    map[ids.ID]*Ledger
}

func New(cfg Config) (*Network, error) {
	if cfg.Ledgers < 2 {
		return nil, config.ErrInvalidLedgerCount
	}
	if cfg.Log == nil {
		cfg.Log = log.NoLog{}
	}
	if cfg.Clock == nil {
		cfg.Clock = &mockable.Clock{}
	}

	relay, err := bridge.NewRelay(cfg.Log)
	if err != nil {
		return nil, err
	}

	template := cfg.Vault
	identities := DefaultIdentities()
	if template.VaultAddress == ids.ShortEmpty {
		template.VaultAddress = identities.Vault
	}
	if template.Owner == ids.ShortEmpty {
		template.Owner = identities.Owner
	}
	if template.Treasury == ids.ShortEmpty {
		template.Treasury = identities.Treasury
	}
	if len(template.Rebalancers) == 0 {
		template.Rebalancers = []ids.ShortID{identities.Rebalancer}
	}
	if template.AssetID == ids.Empty {
		template.AssetID = DeriveID("asset")
	}
	identities.Vault = template.VaultAddress
	identities.Owner = template.Owner
	identities.Treasury = template.Treasury
	identities.Rebalancer = template.Rebalancers[0]

	n := &Network{
		Relay:      relay,
		Asset:      template.AssetID,
		Identities: identities,
		log:        cfg.Log,
		byID:       make(map[ids.ID]*Ledger, cfg.Ledgers),
	}
	for i := 0; i < cfg.Ledgers; i++ {
		label := fmt.Sprintf("ledger-%d", i)
		l := &Ledger{
			ID:     DeriveID(label),
			Escrow: DeriveAddress(label + "/escrow"),
		}
		l.Token = token.NewMemoryLedger(n.Asset, memdb.New(), cfg.Log)
		relay.Register(l.ID, l.Token, l.Escrow)

		vaultCfg := template
		vaultCfg.LedgerID = l.ID
		var m metrics.Metrics
		if cfg.Metrics != nil {
			m = cfg.Metrics.ForLedger(l.ID.String())
		}
		l.Vault, err = vaultvm.New(vaultvm.Params{
			Config:    vaultCfg,
			DB:        memdb.New(),
			Ledger:    l.Token,
			Transport: relay,
			Escrow:    l.Escrow,
			Log:       cfg.Log,
			Metrics:   m,
			Clock:     cfg.Clock,
		})
		if err != nil {
			return nil, fmt.Errorf("couldn't start vault on %s: %w", label, err)
		}

		n.ledgers = append(n.ledgers, l)
		n.byID[l.ID] = l
	}

	n.log.Info("devnet started",
		log.Int("ledgers", len(n.ledgers)),
		log.Stringer("asset", n.Asset),
		log.Stringer("vault", identities.Vault),
	)
	return n, nil
}

// Ledgers returns the devnet's ledgers in creation order.
func (n *Network) Ledgers() []*Ledger {
	return n.ledgers
}

func (n *Network) Ledger(id ids.ID) (*Ledger, error) {
	l, ok := n.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLedger, id)
	}
	return l, nil
}

// Vaults returns every ledger's vault instance.
func (n *Network) Vaults() []*vaultvm.Vault {
	vaults := make([]*vaultvm.Vault, len(n.ledgers))
	for i, l := range n.ledgers {
		vaults[i] = l.Vault
	}
	return vaults
}

// Faucet mints [amount] of the devnet asset to [to] on [ledgerID] and, when
// approve is set, lets the vault pull all of it.
func (n *Network) Faucet(ctx context.Context, ledgerID ids.ID, to ids.ShortID, amount *uint256.Int, approve bool) error {
	l, err := n.Ledger(ledgerID)
	if err != nil {
		return err
	}
	if err := l.Token.Mint(ctx, to, amount); err != nil {
		return err
	}
	if !approve {
		return nil
	}
	allowance, err := l.Token.Allowance(ctx, to, n.Identities.Vault)
	if err != nil {
		return err
	}
	total := new(uint256.Int)
	if _, overflow := total.AddOverflow(allowance, amount); overflow {
		total.SetAllOne()
	}
	return l.Token.Approve(ctx, to, n.Identities.Vault, total)
}

// Attest has the relay sign an intent it carried.
func (n *Network) Attest(intentID ids.ID) (*intent.Proof, error) {
	return n.Relay.Attest(intentID)
}

func (n *Network) Close() error {
	var errs []error
	for _, l := range n.ledgers {
		errs = append(errs, l.Vault.Close())
	}
	return errors.Join(errs...)
}
