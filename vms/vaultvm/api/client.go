// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
	"github.com/luxfi/rpc"
	"github.com/luxfi/vault/vms/vaultvm/intent"
)

// Client for interacting with the vault of one ledger.
type Client struct {
	Requester rpc.EndpointRequester
	token     string
}

// NewClient returns a client for the vault of [ledgerID] served at [uri].
// [token] authenticates mutating calls and may be empty for reads.
func NewClient(uri string, ledgerID ids.ID, token string) *Client {
	return &Client{
		Requester: rpc.NewEndpointRequester(fmt.Sprintf("%s%s/vault/%s", uri, baseURL, ledgerID)),
		token:     token,
	}
}

func (c *Client) send(ctx context.Context, method string, args, reply any, options []rpc.Option) error {
	if c.token != "" {
		options = append(options, rpc.WithHeader(headerAuthorization, bearerPrefix+c.token))
	}
	return c.Requester.SendRequest(ctx, "vault."+method, args, reply, options...)
}

func (c *Client) GetInfo(ctx context.Context, options ...rpc.Option) (*InfoReply, error) {
	res := &InfoReply{}
	err := c.send(ctx, "getInfo", struct{}{}, res, options)
	return res, err
}

func (c *Client) GetTotals(ctx context.Context, options ...rpc.Option) (*TotalsReply, error) {
	res := &TotalsReply{}
	err := c.send(ctx, "getTotals", struct{}{}, res, options)
	return res, err
}

func (c *Client) BalanceOf(ctx context.Context, addr ids.ShortID, options ...rpc.Option) (*uint256.Int, error) {
	res := &AmountReply{}
	if err := c.send(ctx, "balanceOf", &AddressArgs{Address: FormatAddress(addr)}, res, options); err != nil {
		return nil, err
	}
	return uint256.FromDecimal(res.Amount)
}

// Deposit returns the shares minted to [receiver].
func (c *Client) Deposit(ctx context.Context, assets *uint256.Int, receiver ids.ShortID, options ...rpc.Option) (*uint256.Int, error) {
	res := &SharesReply{}
	err := c.send(ctx, "deposit", &DepositArgs{
		Assets:   assets.Dec(),
		Receiver: FormatAddress(receiver),
	}, res, options)
	if err != nil {
		return nil, err
	}
	return uint256.FromDecimal(res.Shares)
}

// Withdraw returns the shares burned from the caller.
func (c *Client) Withdraw(ctx context.Context, assets *uint256.Int, receiver ids.ShortID, options ...rpc.Option) (*uint256.Int, error) {
	res := &SharesReply{}
	err := c.send(ctx, "withdraw", &WithdrawArgs{
		Assets:   assets.Dec(),
		Receiver: FormatAddress(receiver),
	}, res, options)
	if err != nil {
		return nil, err
	}
	return uint256.FromDecimal(res.Shares)
}

func (c *Client) RebalanceWithdraw(ctx context.Context, assets *uint256.Int, destination ids.ID, options ...rpc.Option) (ids.ID, error) {
	res := &struct {
		IntentID ids.ID `json:"intentID"`
	}{}
	err := c.send(ctx, "rebalanceWithdraw", &RebalanceArgs{
		Assets:      assets.Dec(),
		Destination: destination,
	}, res, options)
	return res.IntentID, err
}

func (c *Client) CompleteRebalance(ctx context.Context, assets *uint256.Int, proof *intent.Proof, options ...rpc.Option) error {
	return c.send(ctx, "completeRebalance", &CompleteRebalanceArgs{
		Assets: assets.Dec(),
		Proof:  proof.String(),
	}, &EmptyReply{}, options)
}
