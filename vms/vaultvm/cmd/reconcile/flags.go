// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reconcile

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/luxfi/vault/vms/vaultvm/cmd/simulate"
)

const (
	StuckAfterKey = "stuck-after"
	AgeKey        = "age"
	OutputKey     = "output"
)

// AddFlags registers the simulate flags plus the reconciliation ones.
func AddFlags(flags *pflag.FlagSet) {
	simulate.AddFlags(flags)
	flags.Duration(StuckAfterKey, 10*time.Minute, "Age past which an in-flight intent is reported stuck")
	flags.Duration(AgeKey, 0, "How far to advance the clock between the scenario and the report")
	flags.String(OutputKey, "", "File to write the report to instead of stdout")
}

type Config struct {
	Scenario   *simulate.Config
	StuckAfter time.Duration
	Age        time.Duration
	Output     string
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	scenario, err := simulate.ParseFlags(flags, args)
	if err != nil {
		return nil, err
	}
	stuckAfter, err := flags.GetDuration(StuckAfterKey)
	if err != nil {
		return nil, err
	}
	age, err := flags.GetDuration(AgeKey)
	if err != nil {
		return nil, err
	}
	output, err := flags.GetString(OutputKey)
	if err != nil {
		return nil, err
	}
	return &Config{
		Scenario:   scenario,
		StuckAfter: stuckAfter,
		Age:        age,
		Output:     output,
	}, nil
}
