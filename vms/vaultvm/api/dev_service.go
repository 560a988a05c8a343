// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"net/http"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/vault/vms/vaultvm/devnet"
)

// DevService exposes the devnet's faucet and relay. It is only served by
// development deployments.
type DevService struct {
	network *devnet.Network
	log     log.Logger
}

func NewDevService(n *devnet.Network, logger log.Logger) *DevService {
	return &DevService{
		network: n,
		log:     logger,
	}
}

type LedgerInfo struct {
	LedgerID     ids.ID `json:"ledgerID"`
	VaultAddress string `json:"vaultAddress"`
	Escrow       string `json:"escrow"`
}

type LedgersReply struct {
	AssetID ids.ID       `json:"assetID"`
	Ledgers []LedgerInfo `json:"ledgers"`
}

func (s *DevService) Ledgers(_ *http.Request, _ *struct{}, reply *LedgersReply) error {
	reply.AssetID = s.network.Asset
	for _, l := range s.network.Ledgers() {
		reply.Ledgers = append(reply.Ledgers, LedgerInfo{
			LedgerID:     l.ID,
			VaultAddress: FormatAddress(l.Vault.Address()),
			Escrow:       FormatAddress(l.Escrow),
		})
	}
	return nil
}

type FaucetArgs struct {
	LedgerID ids.ID `json:"ledgerID"`
	To       string `json:"to"`
	Amount   string `json:"amount"`
	// Approve also raises To's allowance for the ledger's vault.
	Approve bool `json:"approve"`
}

func (s *DevService) Faucet(r *http.Request, args *FaucetArgs, _ *EmptyReply) error {
	to, err := parseAddress(args.To)
	if err != nil {
		return rpcError(err)
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return rpcError(err)
	}
	s.log.Debug("faucet",
		log.Stringer("ledger", args.LedgerID),
		log.Stringer("to", to),
		log.String("amount", amount.Dec()),
	)
	return rpcError(s.network.Faucet(r.Context(), args.LedgerID, to, amount, args.Approve))
}

type TokenBalanceArgs struct {
	LedgerID ids.ID `json:"ledgerID"`
	Address  string `json:"address"`
}

func (s *DevService) TokenBalance(r *http.Request, args *TokenBalanceArgs, reply *AmountReply) error {
	addr, err := parseAddress(args.Address)
	if err != nil {
		return rpcError(err)
	}
	l, err := s.network.Ledger(args.LedgerID)
	if err != nil {
		return rpcError(invalidArgument(err))
	}
	balance, err := l.Token.BalanceOf(r.Context(), addr)
	if err != nil {
		return rpcError(err)
	}
	reply.Amount = balance.Dec()
	return nil
}

type AttestReply struct {
	// Proof is base58 encoded and is accepted as is by CompleteRebalance.
	Proof string `json:"proof"`
}

func (s *DevService) Attest(_ *http.Request, args *GetIntentArgs, reply *AttestReply) error {
	proof, err := s.network.Attest(args.IntentID)
	if err != nil {
		return rpcError(invalidArgument(err))
	}
	reply.Proof = proof.String()
	return nil
}

type PendingReply struct {
	IntentIDs []ids.ID `json:"intentIDs"`
}

// Pending lists the intents the relay has accepted.
func (s *DevService) Pending(_ *http.Request, _ *struct{}, reply *PendingReply) error {
	pending := s.network.Relay.Pending()
	reply.IntentIDs = make([]ids.ID, len(pending))
	for i, in := range pending {
		reply.IntentIDs[i] = in.ID()
	}
	return nil
}
