// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api serves the vaults of a process over JSON-RPC.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/vault/utils/formatting"
	"github.com/luxfi/vault/vms/vaultvm"
	"github.com/luxfi/vault/vms/vaultvm/auth"
	"github.com/luxfi/vault/vms/vaultvm/events"
	"github.com/luxfi/vault/vms/vaultvm/intent"

	avajson "github.com/luxfi/vault/utils/json"
)

const (
	// ChainAlias and HRP make up the human-readable address form,
	// "V-vault1...".
	ChainAlias = "V"
	HRP        = "vault"

	maxEventsPerCall = 1024
)

var (
	errMissingAmount  = errors.New("missing amount")
	errMissingAddress = errors.New("missing address")
)

// Service is the JSON-RPC surface of one vault.
type Service struct {
	vault *vaultvm.Vault
	auth  *Authenticator
	log   log.Logger
}

func NewService(v *vaultvm.Vault, a *Authenticator, logger log.Logger) *Service {
	return &Service{
		vault: v,
		auth:  a,
		log:   logger,
	}
}

// EmptyReply is the reply of calls that return nothing.
type EmptyReply struct{}

// FormatAddress renders [addr] in its human-readable form.
func FormatAddress(addr ids.ShortID) string {
	s, err := formatting.Format(ChainAlias, HRP, addr[:])
	if err != nil {
		return addr.String()
	}
	return s
}

// ParseAddress accepts either the human-readable or the cb58 form.
func ParseAddress(s string) (ids.ShortID, error) {
	if s == "" {
		return ids.ShortEmpty, errMissingAddress
	}
	chain, hrp, addr, err := formatting.Parse(s)
	if err != nil {
		return ids.ShortFromString(s)
	}
	if chain != ChainAlias || hrp != HRP {
		return ids.ShortEmpty, fmt.Errorf("%w: %q", formatting.ErrWrongHRP, s)
	}
	return ids.ToShortID(addr)
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, invalidArgument(errMissingAmount)
	}
	amount, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, invalidArgument(fmt.Errorf("amount %q: %w", s, err))
	}
	return amount, nil
}

func parseAddress(s string) (ids.ShortID, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return ids.ShortEmpty, invalidArgument(err)
	}
	return addr, nil
}

func invalidArgument(err error) error {
	return fmt.Errorf("%w: %w", vaultvm.ErrInvalidArgument, err)
}

// rpcError attaches the vault's error kind to the JSON-RPC error so clients
// can tell a replay from a failure.
func rpcError(err error) error {
	if err == nil {
		return nil
	}
	return &json2.Error{
		Code:    json2.E_SERVER,
		Message: err.Error(),
		Data:    map[string]string{"kind": string(vaultvm.KindOf(err))},
	}
}

func (s *Service) caller(r *http.Request) (ids.ShortID, error) {
	caller, err := s.auth.Caller(r)
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("%w: %w", vaultvm.ErrUnauthorized, err)
	}
	return caller, nil
}

type InfoReply struct {
	LedgerID              ids.ID `json:"ledgerID"`
	VaultAddress          string `json:"vaultAddress"`
	AssetID               ids.ID `json:"assetID"`
	Name                  string `json:"name"`
	Symbol                string `json:"symbol"`
	Version               string `json:"version"`
	Authorization         string `json:"authorization"`
	FinalizeAuthorization string `json:"finalizeAuthorization"`
}

func (s *Service) GetInfo(_ *http.Request, _ *struct{}, reply *InfoReply) error {
	cfg := s.vault.Config()
	reply.LedgerID = cfg.LedgerID
	reply.VaultAddress = FormatAddress(cfg.VaultAddress)
	reply.AssetID = cfg.AssetID
	reply.Name = cfg.Name
	reply.Symbol = cfg.Symbol
	reply.Version = vaultvm.Version.String()
	reply.Authorization = string(cfg.Authorization)
	reply.FinalizeAuthorization = string(cfg.FinalizeAuthorization)
	return nil
}

type TotalsReply struct {
	TotalAssets string `json:"totalAssets"`
	TotalSupply string `json:"totalSupply"`
	MovedAssets string `json:"movedAssets"`
	Treasury    string `json:"treasury"`
	Owner       string `json:"owner"`
}

func (s *Service) GetTotals(r *http.Request, _ *struct{}, reply *TotalsReply) error {
	ctx := r.Context()
	assets, err := s.vault.TotalAssets(ctx)
	if err != nil {
		return rpcError(err)
	}
	supply, err := s.vault.TotalSupply(ctx)
	if err != nil {
		return rpcError(err)
	}
	moved, err := s.vault.MovedAssets(ctx)
	if err != nil {
		return rpcError(err)
	}
	treasury, err := s.vault.Treasury(ctx)
	if err != nil {
		return rpcError(err)
	}
	owner, err := s.vault.Owner(ctx)
	if err != nil {
		return rpcError(err)
	}
	reply.TotalAssets = assets.Dec()
	reply.TotalSupply = supply.Dec()
	reply.MovedAssets = moved.Dec()
	reply.Treasury = FormatAddress(treasury)
	reply.Owner = FormatAddress(owner)
	return nil
}

type AddressArgs struct {
	Address string `json:"address"`
}

type AmountArgs struct {
	Amount string `json:"amount"`
}

type AmountReply struct {
	Amount string `json:"amount"`
}

func (s *Service) BalanceOf(r *http.Request, args *AddressArgs, reply *AmountReply) error {
	addr, err := parseAddress(args.Address)
	if err != nil {
		return rpcError(err)
	}
	balance, err := s.vault.BalanceOf(r.Context(), addr)
	if err != nil {
		return rpcError(err)
	}
	reply.Amount = balance.Dec()
	return nil
}

type AllowanceArgs struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

func (s *Service) Allowance(r *http.Request, args *AllowanceArgs, reply *AmountReply) error {
	owner, err := parseAddress(args.Owner)
	if err != nil {
		return rpcError(err)
	}
	spender, err := parseAddress(args.Spender)
	if err != nil {
		return rpcError(err)
	}
	allowance, err := s.vault.Allowance(r.Context(), owner, spender)
	if err != nil {
		return rpcError(err)
	}
	reply.Amount = allowance.Dec()
	return nil
}

func (s *Service) MaxWithdraw(r *http.Request, args *AddressArgs, reply *AmountReply) error {
	owner, err := parseAddress(args.Address)
	if err != nil {
		return rpcError(err)
	}
	amount, err := s.vault.MaxWithdraw(r.Context(), owner)
	if err != nil {
		return rpcError(err)
	}
	reply.Amount = amount.Dec()
	return nil
}

func (s *Service) PreviewDeposit(r *http.Request, args *AmountArgs, reply *AmountReply) error {
	return s.convert(r, args, reply, s.vault.PreviewDeposit)
}

func (s *Service) PreviewWithdraw(r *http.Request, args *AmountArgs, reply *AmountReply) error {
	return s.convert(r, args, reply, s.vault.PreviewWithdraw)
}

func (s *Service) ConvertToShares(r *http.Request, args *AmountArgs, reply *AmountReply) error {
	return s.convert(r, args, reply, s.vault.ConvertToShares)
}

func (s *Service) ConvertToAssets(r *http.Request, args *AmountArgs, reply *AmountReply) error {
	return s.convert(r, args, reply, s.vault.ConvertToAssets)
}

func (*Service) convert(
	r *http.Request,
	args *AmountArgs,
	reply *AmountReply,
	f func(context.Context, *uint256.Int) (*uint256.Int, error),
) error {
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return rpcError(err)
	}
	converted, err := f(r.Context(), amount)
	if err != nil {
		return rpcError(err)
	}
	reply.Amount = converted.Dec()
	return nil
}

type DepositArgs struct {
	Assets   string `json:"assets"`
	Receiver string `json:"receiver"`
}

type SharesReply struct {
	Shares string `json:"shares"`
}

// Deposit pulls assets from the caller, who must have approved the vault on
// the token ledger, and mints shares to receiver.
func (s *Service) Deposit(r *http.Request, args *DepositArgs, reply *SharesReply) error {
	caller, err := s.caller(r)
	if err != nil {
		return rpcError(err)
	}
	assets, err := parseAmount(args.Assets)
	if err != nil {
		return rpcError(err)
	}
	receiver, err := parseAddress(args.Receiver)
	if err != nil {
		return rpcError(err)
	}
	minted, err := s.vault.Deposit(r.Context(), caller, assets, receiver)
	if err != nil {
		return rpcError(err)
	}
	reply.Shares = minted.Dec()
	return nil
}

type WithdrawArgs struct {
	Assets   string `json:"assets"`
	Receiver string `json:"receiver"`
	// Owner defaults to the caller.
	Owner string `json:"owner,omitempty"`
}

func (s *Service) Withdraw(r *http.Request, args *WithdrawArgs, reply *SharesReply) error {
	caller, err := s.caller(r)
	if err != nil {
		return rpcError(err)
	}
	assets, err := parseAmount(args.Assets)
	if err != nil {
		return rpcError(err)
	}
	receiver, err := parseAddress(args.Receiver)
	if err != nil {
		return rpcError(err)
	}
	owner := caller
	if args.Owner != "" {
		if owner, err = parseAddress(args.Owner); err != nil {
			return rpcError(err)
		}
	}
	burned, err := s.vault.Withdraw(r.Context(), caller, assets, receiver, owner)
	if err != nil {
		return rpcError(err)
	}
	reply.Shares = burned.Dec()
	return nil
}

type ApproveArgs struct {
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

func (s *Service) Approve(r *http.Request, args *ApproveArgs, _ *EmptyReply) error {
	caller, err := s.caller(r)
	if err != nil {
		return rpcError(err)
	}
	spender, err := parseAddress(args.Spender)
	if err != nil {
		return rpcError(err)
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return rpcError(err)
	}
	return rpcError(s.vault.Approve(r.Context(), caller, spender, amount))
}

type TransferArgs struct {
	// From defaults to the caller. When set, the caller spends From's
	// share allowance.
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Service) Transfer(r *http.Request, args *TransferArgs, _ *EmptyReply) error {
	caller, err := s.caller(r)
	if err != nil {
		return rpcError(err)
	}
	to, err := parseAddress(args.To)
	if err != nil {
		return rpcError(err)
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return rpcError(err)
	}
	if args.From == "" {
		return rpcError(s.vault.Transfer(r.Context(), caller, to, amount))
	}
	from, err := parseAddress(args.From)
	if err != nil {
		return rpcError(err)
	}
	return rpcError(s.vault.TransferFrom(r.Context(), caller, from, to, amount))
}

type RebalanceArgs struct {
	Assets      string `json:"assets"`
	Destination ids.ID `json:"destination"`
}

type IntentReply struct {
	IntentID ids.ID                 `json:"intentID"`
	Intent   *intent.TransferIntent `json:"intent"`
}

func (s *Service) RebalanceWithdraw(r *http.Request, args *RebalanceArgs, reply *IntentReply) error {
	caller, err := s.caller(r)
	if err != nil {
		return rpcError(err)
	}
	assets, err := parseAmount(args.Assets)
	if err != nil {
		return rpcError(err)
	}
	in, err := s.vault.RebalanceWithdraw(r.Context(), caller, assets, args.Destination)
	if err != nil {
		return rpcError(err)
	}
	reply.IntentID = in.ID()
	reply.Intent = in
	return nil
}

type CompleteRebalanceArgs struct {
	Assets   string `json:"assets"`
	Receiver string `json:"receiver,omitempty"`
	// Proof is the base58 encoded transfer proof.
	Proof string `json:"proof"`
}

func (s *Service) CompleteRebalance(r *http.Request, args *CompleteRebalanceArgs, _ *EmptyReply) error {
	caller, err := s.caller(r)
	if err != nil {
		return rpcError(err)
	}
	assets, err := parseAmount(args.Assets)
	if err != nil {
		return rpcError(err)
	}
	receiver := ids.ShortEmpty
	if args.Receiver != "" {
		if receiver, err = parseAddress(args.Receiver); err != nil {
			return rpcError(err)
		}
	}
	proof, err := intent.ParseProofString(args.Proof)
	if err != nil {
		return rpcError(fmt.Errorf("%w: %w", vaultvm.ErrProofInvalid, err))
	}
	return rpcError(s.vault.CompleteRebalance(r.Context(), caller, assets, receiver, proof.Bytes()))
}

func (s *Service) UpdateTreasury(r *http.Request, args *AddressArgs, _ *EmptyReply) error {
	caller, err := s.caller(r)
	if err != nil {
		return rpcError(err)
	}
	treasury, err := parseAddress(args.Address)
	if err != nil {
		return rpcError(err)
	}
	return rpcError(s.vault.UpdateTreasury(r.Context(), caller, treasury))
}

func (s *Service) TransferOwnership(r *http.Request, args *AddressArgs, _ *EmptyReply) error {
	caller, err := s.caller(r)
	if err != nil {
		return rpcError(err)
	}
	owner, err := parseAddress(args.Address)
	if err != nil {
		return rpcError(err)
	}
	return rpcError(s.vault.TransferOwnership(r.Context(), caller, owner))
}

type RoleArgs struct {
	Role    string `json:"role"`
	Account string `json:"account,omitempty"`
}

func (s *Service) GrantRole(r *http.Request, args *RoleArgs, _ *EmptyReply) error {
	return s.changeRole(r, args, s.vault.GrantRole)
}

func (s *Service) RevokeRole(r *http.Request, args *RoleArgs, _ *EmptyReply) error {
	return s.changeRole(r, args, s.vault.RevokeRole)
}

func (s *Service) changeRole(
	r *http.Request,
	args *RoleArgs,
	apply func(context.Context, ids.ShortID, auth.Role, ids.ShortID) error,
) error {
	caller, err := s.caller(r)
	if err != nil {
		return rpcError(err)
	}
	role, err := auth.ParseRole(args.Role)
	if err != nil {
		return rpcError(err)
	}
	account, err := parseAddress(args.Account)
	if err != nil {
		return rpcError(err)
	}
	return rpcError(apply(r.Context(), caller, role, account))
}

type MembersReply struct {
	Members []string `json:"members"`
}

func (s *Service) Members(r *http.Request, args *RoleArgs, reply *MembersReply) error {
	role, err := auth.ParseRole(args.Role)
	if err != nil {
		return rpcError(err)
	}
	members, err := s.vault.Members(r.Context(), role)
	if err != nil {
		return rpcError(err)
	}
	reply.Members = make([]string, len(members))
	for i, m := range members {
		reply.Members[i] = FormatAddress(m)
	}
	return nil
}

type GetIntentArgs struct {
	IntentID ids.ID `json:"intentID"`
}

type IntentRecordReply struct {
	Record *intent.Record `json:"record"`
}

func (s *Service) GetIntent(r *http.Request, args *GetIntentArgs, reply *IntentRecordReply) error {
	record, err := s.vault.Intent(r.Context(), args.IntentID)
	if err != nil {
		return rpcError(err)
	}
	reply.Record = record
	return nil
}

type ListIntentsArgs struct {
	// Status filters by lifecycle state; empty lists every intent.
	Status string `json:"status,omitempty"`
}

type ListIntentsReply struct {
	Records []*intent.Record `json:"records"`
}

func (s *Service) ListIntents(r *http.Request, args *ListIntentsArgs, reply *ListIntentsReply) error {
	status := intent.StatusUnknown
	if args.Status != "" {
		var err error
		if status, err = intent.ParseStatus(args.Status); err != nil {
			return rpcError(invalidArgument(err))
		}
	}
	records, err := s.vault.Intents(r.Context(), status)
	if err != nil {
		return rpcError(err)
	}
	reply.Records = records
	return nil
}

type GetEventsArgs struct {
	From  avajson.Uint64 `json:"from"`
	Limit int            `json:"limit"`
}

type GetEventsReply struct {
	Events []*events.Event `json:"events"`
	// Next is the sequence number to resume from.
	Next avajson.Uint64 `json:"next"`
}

func (s *Service) GetEvents(r *http.Request, args *GetEventsArgs, reply *GetEventsReply) error {
	limit := args.Limit
	if limit <= 0 || limit > maxEventsPerCall {
		limit = maxEventsPerCall
	}
	evts, err := s.vault.Events(r.Context(), uint64(args.From), limit)
	if err != nil {
		return rpcError(err)
	}
	reply.Events = evts
	reply.Next = args.From
	if len(evts) > 0 {
		reply.Next = avajson.Uint64(evts[len(evts)-1].Seq + 1)
	}
	return nil
}
