// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package simulate

import (
	"errors"
	"fmt"
	"os"

	"github.com/holiman/uint256"
	"github.com/spf13/pflag"

	"github.com/luxfi/vault/vms/vaultvm/config"
)

const (
	LedgersKey     = "ledgers"
	DepositKey     = "deposit"
	RebalanceKey   = "rebalance"
	FromKey        = "from"
	ToKey          = "to"
	DepositorKey   = "depositor"
	VaultConfigKey = "vault-config"
	ExportKey      = "export"
	HoldKey        = "hold"
)

var errLedgerIndex = errors.New("ledger index out of range")

func AddFlags(flags *pflag.FlagSet) {
	flags.Int(LedgersKey, 2, "Number of in-process ledgers")
	flags.String(DepositKey, "1000", "Assets deposited on the source ledger")
	flags.String(RebalanceKey, "", "Assets moved to the destination ledger. Defaults to the deposit")
	flags.Int(FromKey, 0, "Index of the source ledger")
	flags.Int(ToKey, 1, "Index of the destination ledger")
	flags.String(DepositorKey, "depositor", "Label the depositor address is derived from")
	flags.String(VaultConfigKey, "", "JSON file holding the vault config template")
	flags.String(ExportKey, "", "File to write the zstd-compressed event log to")
	flags.Bool(HoldKey, false, "Leave the intent in flight instead of finalizing it")
}

type Config struct {
	Ledgers   int
	Deposit   *uint256.Int
	Rebalance *uint256.Int
	From, To  int
	Depositor string
	Vault     config.Config
	Export    string
	Hold      bool
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	ledgers, err := flags.GetInt(LedgersKey)
	if err != nil {
		return nil, err
	}
	if ledgers < 2 {
		return nil, config.ErrInvalidLedgerCount
	}

	depositStr, err := flags.GetString(DepositKey)
	if err != nil {
		return nil, err
	}
	deposit, err := uint256.FromDecimal(depositStr)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", DepositKey, err)
	}

	rebalanceStr, err := flags.GetString(RebalanceKey)
	if err != nil {
		return nil, err
	}
	var rebalance *uint256.Int
	if rebalanceStr != "" {
		rebalance, err = uint256.FromDecimal(rebalanceStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", RebalanceKey, err)
		}
	}

	from, err := flags.GetInt(FromKey)
	if err != nil {
		return nil, err
	}
	to, err := flags.GetInt(ToKey)
	if err != nil {
		return nil, err
	}
	for _, i := range []int{from, to} {
		if i < 0 || i >= ledgers {
			return nil, fmt.Errorf("%w: %d of %d", errLedgerIndex, i, ledgers)
		}
	}

	depositor, err := flags.GetString(DepositorKey)
	if err != nil {
		return nil, err
	}

	vaultPath, err := flags.GetString(VaultConfigKey)
	if err != nil {
		return nil, err
	}
	var vaultData []byte
	if vaultPath != "" {
		vaultData, err = os.ReadFile(vaultPath)
		if err != nil {
			return nil, fmt.Errorf("couldn't read vault config: %w", err)
		}
	}
	vault, err := config.ParseConfig(vaultData)
	if err != nil {
		return nil, err
	}

	export, err := flags.GetString(ExportKey)
	if err != nil {
		return nil, err
	}
	hold, err := flags.GetBool(HoldKey)
	if err != nil {
		return nil, err
	}

	return &Config{
		Ledgers:   ledgers,
		Deposit:   deposit,
		Rebalance: rebalance,
		From:      from,
		To:        to,
		Depositor: depositor,
		Vault:     vault,
		Export:    export,
		Hold:      hold,
	}, nil
}
