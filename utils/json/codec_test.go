// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package json

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMethodUppercasesFunction(t *testing.T) {
	tests := []struct {
		method   string
		expected string
	}{
		{"vault.deposit", "vault.Deposit"},
		{"vault.Deposit", "vault.Deposit"},
		{"vault.getIntent", "vault.GetIntent"},
		{"noservice", "noservice"},
	}
	for _, test := range tests {
		t.Run(test.method, func(t *testing.T) {
			require := require.New(t)

			body := `{"jsonrpc":"2.0","method":"` + test.method + `","params":{},"id":1}`
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			r.Header.Set("Content-Type", "application/json")

			method, err := NewCodec().NewRequest(r).Method()
			require.NoError(err)
			require.Equal(test.expected, method)
		})
	}
}

func TestUint64(t *testing.T) {
	require := require.New(t)

	b, err := Uint64(1 << 60).MarshalJSON()
	require.NoError(err)
	require.Equal(`"1152921504606846976"`, string(b))

	var u Uint64
	require.NoError(u.UnmarshalJSON(b))
	require.Equal(Uint64(1<<60), u)
	require.NoError(u.UnmarshalJSON([]byte("7")))
	require.Equal(Uint64(7), u)
}
