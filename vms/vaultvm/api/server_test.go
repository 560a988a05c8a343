// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	utilmetric "github.com/luxfi/vault/utils/metric"
)

var errUnhealthy = errors.New("unhealthy")

func newTestServer(t *testing.T, f *fixture, health HealthCheck) *httptest.Server {
	t.Helper()
	require := require.New(t)

	s := NewServer(
		log.NoLog{},
		ServerConfig{AllowedOrigins: []string{"*"}},
		utilmetric.NewAPIInterceptor("vault", metric.NewRegistry()),
		prometheus.NewRegistry(),
		health,
	)
	for _, l := range f.network.Ledgers() {
		require.NoError(s.RegisterVault(l.Vault, f.auth))
	}
	require.NoError(s.RegisterDev(f.dev))

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int               `json:"code"`
		Message string            `json:"message"`
		Data    map[string]string `json:"data"`
	} `json:"error"`
}

func call(t *testing.T, url, token, method string, params any) *rpcResponse {
	t.Helper()
	require := require.New(t)

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(headerAuthorization, bearerPrefix+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)

	res := &rpcResponse{}
	require.NoError(json.NewDecoder(resp.Body).Decode(res))
	return res
}

func TestServerRoutesVaultCalls(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)
	srv := newTestServer(t, f, nil)
	src := f.network.Ledgers()[0]
	url := srv.URL + "/ext/vault/" + src.ID.String()

	res := call(t, url, "", "vault.getInfo", struct{}{})
	require.Nil(res.Error)
	info := &InfoReply{}
	require.NoError(json.Unmarshal(res.Result, info))
	require.Equal(src.ID, info.LedgerID)
	require.Equal(FormatAddress(f.network.Identities.Vault), info.VaultAddress)

	res = call(t, srv.URL+"/ext/dev", "", "dev.faucet", &FaucetArgs{
		LedgerID: src.ID,
		To:       FormatAddress(f.user),
		Amount:   "500",
		Approve:  true,
	})
	require.Nil(res.Error)

	res = call(t, url, "", "vault.deposit", &DepositArgs{
		Assets:   "100",
		Receiver: FormatAddress(f.user),
	})
	require.NotNil(res.Error)
	require.Equal("authorization", res.Error.Data["kind"])

	token, err := f.auth.Issue(f.user, 0)
	require.NoError(err)
	res = call(t, url, token, "vault.deposit", &DepositArgs{
		Assets:   "100",
		Receiver: FormatAddress(f.user),
	})
	require.NotNil(res.Error)
	require.Equal("authorization", res.Error.Data["kind"])
}

func TestClient(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	f := newFixture(t)
	f.fund(t, "1000")
	srv := newTestServer(t, f, nil)
	src := f.network.Ledgers()[0]

	token, err := f.auth.Issue(f.user, time.Hour)
	require.NoError(err)
	c := NewClient(srv.URL, src.ID, token)

	info, err := c.GetInfo(ctx)
	require.NoError(err)
	require.Equal(src.ID, info.LedgerID)

	minted, err := c.Deposit(ctx, uint256.NewInt(100), f.user)
	require.NoError(err)
	require.Equal(uint256.NewInt(100), minted)

	balance, err := c.BalanceOf(ctx, f.user)
	require.NoError(err)
	require.Equal(uint256.NewInt(100), balance)

	totals, err := c.GetTotals(ctx)
	require.NoError(err)
	require.Equal("100", totals.TotalAssets)
}

func TestServerHealthAndMetrics(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)
	var unhealthy atomic.Bool
	srv := newTestServer(t, f, func(context.Context) error {
		if unhealthy.Load() {
			return errUnhealthy
		}
		return nil
	})

	get := func(path string) (int, []byte) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(err)
		return resp.StatusCode, body
	}

	status, body := get("/ext/health")
	require.Equal(http.StatusOK, status)
	require.JSONEq(`{"healthy":true}`, string(body))

	unhealthy.Store(true)
	status, body = get("/ext/health")
	require.Equal(http.StatusServiceUnavailable, status)
	require.JSONEq(`{"healthy":false,"error":"unhealthy"}`, string(body))

	status, _ = get("/ext/metrics")
	require.Equal(http.StatusOK, status)

	status, _ = get("/ext/unknown")
	require.Equal(http.StatusNotFound, status)
}
