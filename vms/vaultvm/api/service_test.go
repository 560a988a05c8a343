// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/vault/utils/formatting"
	"github.com/luxfi/vault/utils/timer/mockable"
	"github.com/luxfi/vault/vms/vaultvm"
	"github.com/luxfi/vault/vms/vaultvm/config"
	"github.com/luxfi/vault/vms/vaultvm/devnet"

	avajson "github.com/luxfi/vault/utils/json"
)

type fixture struct {
	network *devnet.Network
	auth    *Authenticator
	src     *Service
	dst     *Service
	dev     *DevService
	user    ids.ShortID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	require := require.New(t)

	clock := &mockable.Clock{}
	clock.Set(time.Unix(1_700_000_000, 0))
	n, err := devnet.New(devnet.Config{
		Ledgers: 2,
		Vault:   config.DefaultConfig(),
		Clock:   clock,
	})
	require.NoError(err)
	t.Cleanup(func() {
		require.NoError(n.Close())
	})

	a := NewAuthenticator("test-secret", clock)
	ledgers := n.Ledgers()
	return &fixture{
		network: n,
		auth:    a,
		src:     NewService(ledgers[0].Vault, a, log.NoLog{}),
		dst:     NewService(ledgers[1].Vault, a, log.NoLog{}),
		dev:     NewDevService(n, log.NoLog{}),
		user:    devnet.DeriveAddress("api-user"),
	}
}

func (f *fixture) as(t *testing.T, caller ids.ShortID) *http.Request {
	t.Helper()
	token, err := f.auth.Issue(caller, time.Hour)
	require.NoError(t, err)
	return newBearerRequest(token)
}

func (f *fixture) fund(t *testing.T, amount string) {
	t.Helper()
	err := f.dev.Faucet(newBearerRequest(""), &FaucetArgs{
		LedgerID: f.network.Ledgers()[0].ID,
		To:       FormatAddress(f.user),
		Amount:   amount,
		Approve:  true,
	}, &EmptyReply{})
	require.NoError(t, err)
}

func requireKind(t *testing.T, err error, kind vaultvm.Kind) {
	t.Helper()
	var rpcErr *json2.Error
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, json2.E_SERVER, rpcErr.Code)
	require.Equal(t, map[string]string{"kind": string(kind)}, rpcErr.Data)
}

func TestServiceDepositWithdraw(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)
	f.fund(t, "1000")
	user := FormatAddress(f.user)

	shares := &SharesReply{}
	require.NoError(f.src.Deposit(f.as(t, f.user), &DepositArgs{
		Assets:   "100",
		Receiver: user,
	}, shares))
	require.Equal("100", shares.Shares)

	balance := &AmountReply{}
	require.NoError(f.src.BalanceOf(newBearerRequest(""), &AddressArgs{Address: user}, balance))
	require.Equal("100", balance.Amount)

	totals := &TotalsReply{}
	require.NoError(f.src.GetTotals(newBearerRequest(""), nil, totals))
	require.Equal("100", totals.TotalAssets)
	require.Equal("100", totals.TotalSupply)
	require.Equal("0", totals.MovedAssets)
	require.Equal(FormatAddress(f.network.Identities.Treasury), totals.Treasury)

	preview := &AmountReply{}
	require.NoError(f.src.PreviewWithdraw(newBearerRequest(""), &AmountArgs{Amount: "50"}, preview))

	burned := &SharesReply{}
	require.NoError(f.src.Withdraw(f.as(t, f.user), &WithdrawArgs{
		Assets:   "50",
		Receiver: user,
	}, burned))
	require.Equal(preview.Amount, burned.Shares)

	require.NoError(f.src.BalanceOf(newBearerRequest(""), &AddressArgs{Address: user}, balance))
	require.Equal("50", balance.Amount)

	evts := &GetEventsReply{}
	require.NoError(f.src.GetEvents(newBearerRequest(""), &GetEventsArgs{}, evts))
	require.Len(evts.Events, 2)
	require.Equal(avajson.Uint64(evts.Events[1].Seq+1), evts.Next)
}

func TestServiceRequiresBearerToken(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "1000")

	err := f.src.Deposit(newBearerRequest(""), &DepositArgs{
		Assets:   "100",
		Receiver: FormatAddress(f.user),
	}, &SharesReply{})
	requireKind(t, err, vaultvm.KindAuthorization)

	err = f.src.UpdateTreasury(f.as(t, f.user), &AddressArgs{
		Address: FormatAddress(f.user),
	}, &EmptyReply{})
	requireKind(t, err, vaultvm.KindAuthorization)
}

func TestServiceRejectsMalformedInput(t *testing.T) {
	f := newFixture(t)
	req := f.as(t, f.user)

	tests := []struct {
		name string
		args *DepositArgs
	}{
		{
			name: "missing amount",
			args: &DepositArgs{Receiver: FormatAddress(f.user)},
		},
		{
			name: "non-decimal amount",
			args: &DepositArgs{Assets: "0x10", Receiver: FormatAddress(f.user)},
		},
		{
			name: "missing receiver",
			args: &DepositArgs{Assets: "1"},
		},
		{
			name: "malformed receiver",
			args: &DepositArgs{Assets: "1", Receiver: "V-vault1notbech32"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := f.src.Deposit(req, test.args, &SharesReply{})
			requireKind(t, err, vaultvm.KindInvalidArgument)
		})
	}

	err := f.src.ListIntents(req, &ListIntentsArgs{Status: "lost"}, &ListIntentsReply{})
	requireKind(t, err, vaultvm.KindInvalidArgument)
	err = f.src.Members(req, &RoleArgs{Role: "auditor"}, &MembersReply{})
	requireKind(t, err, vaultvm.KindInvalidArgument)
}

func TestServiceRebalance(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)
	f.fund(t, "1000")
	rebalancer := f.network.Identities.Rebalancer
	dstID := f.network.Ledgers()[1].ID

	require.NoError(f.src.Deposit(f.as(t, f.user), &DepositArgs{
		Assets:   "100",
		Receiver: FormatAddress(f.user),
	}, &SharesReply{}))

	// Only rebalancers may export.
	err := f.src.RebalanceWithdraw(f.as(t, f.user), &RebalanceArgs{
		Assets:      "40",
		Destination: dstID,
	}, &IntentReply{})
	requireKind(t, err, vaultvm.KindAuthorization)

	exported := &IntentReply{}
	require.NoError(f.src.RebalanceWithdraw(f.as(t, rebalancer), &RebalanceArgs{
		Assets:      "40",
		Destination: dstID,
	}, exported))
	require.Equal(exported.Intent.ID(), exported.IntentID)

	pending := &PendingReply{}
	require.NoError(f.dev.Pending(newBearerRequest(""), nil, pending))
	require.Contains(pending.IntentIDs, exported.IntentID)

	proof := &AttestReply{}
	require.NoError(f.dev.Attest(newBearerRequest(""), &GetIntentArgs{IntentID: exported.IntentID}, proof))

	complete := &CompleteRebalanceArgs{
		Assets: "40",
		Proof:  proof.Proof,
	}
	require.NoError(f.dst.CompleteRebalance(f.as(t, rebalancer), complete, &EmptyReply{}))
	err = f.dst.CompleteRebalance(f.as(t, rebalancer), complete, &EmptyReply{})
	requireKind(t, err, vaultvm.KindReplay)

	err = f.dst.CompleteRebalance(f.as(t, rebalancer), &CompleteRebalanceArgs{
		Assets: "40",
		Proof:  "not-base58!",
	}, &EmptyReply{})
	requireKind(t, err, vaultvm.KindProofInvalid)

	srcTotals := &TotalsReply{}
	require.NoError(f.src.GetTotals(newBearerRequest(""), nil, srcTotals))
	require.Equal("60", srcTotals.TotalAssets)
	require.Equal("100", srcTotals.TotalSupply)

	dstTotals := &TotalsReply{}
	require.NoError(f.dst.GetTotals(newBearerRequest(""), nil, dstTotals))
	require.Equal("40", dstTotals.TotalAssets)
	require.Equal("40", dstTotals.MovedAssets)

	record := &IntentRecordReply{}
	require.NoError(f.dst.GetIntent(newBearerRequest(""), &GetIntentArgs{IntentID: exported.IntentID}, record))
	require.Equal(f.network.Ledgers()[0].ID, record.Record.Intent.SourceLedger)

	inFlight := &ListIntentsReply{}
	require.NoError(f.src.ListIntents(newBearerRequest(""), &ListIntentsArgs{Status: "in-flight"}, inFlight))
	require.Len(inFlight.Records, 1)
}

func TestServiceRoles(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)
	owner := f.network.Identities.Owner

	require.NoError(f.src.GrantRole(f.as(t, owner), &RoleArgs{
		Role:    "rebalancer",
		Account: FormatAddress(f.user),
	}, &EmptyReply{}))

	members := &MembersReply{}
	require.NoError(f.src.Members(newBearerRequest(""), &RoleArgs{Role: "rebalancer"}, members))
	require.Contains(members.Members, FormatAddress(f.user))

	require.NoError(f.src.RevokeRole(f.as(t, owner), &RoleArgs{
		Role:    "rebalancer",
		Account: FormatAddress(f.user),
	}, &EmptyReply{}))
	require.NoError(f.src.Members(newBearerRequest(""), &RoleArgs{Role: "rebalancer"}, members))
	require.NotContains(members.Members, FormatAddress(f.user))

	require.NoError(f.src.TransferOwnership(f.as(t, owner), &AddressArgs{
		Address: FormatAddress(f.user),
	}, &EmptyReply{}))
	totals := &TotalsReply{}
	require.NoError(f.src.GetTotals(newBearerRequest(""), nil, totals))
	require.Equal(FormatAddress(f.user), totals.Owner)
}

func TestParseAddress(t *testing.T) {
	require := require.New(t)

	addr := ids.GenerateTestShortID()

	parsed, err := ParseAddress(FormatAddress(addr))
	require.NoError(err)
	require.Equal(addr, parsed)

	parsed, err = ParseAddress(addr.String())
	require.NoError(err)
	require.Equal(addr, parsed)

	_, err = ParseAddress("")
	require.ErrorIs(err, errMissingAddress)

	_, err = ParseAddress("X-" + FormatAddress(addr)[2:])
	require.ErrorIs(err, formatting.ErrWrongHRP)
}
