// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/luxfi/ids"
)

const signingPrefix = "lux-vault-intent:"

var (
	ErrInvalidTransition = errors.New("invalid intent status transition")
	ErrMalformedProof    = errors.New("malformed transfer proof")
)

// Proof is the attestation the transport hands to the destination ledger.
// It carries the intent it attests to, the attester's public key and its
// signature over SigningMessage(intent ID). The vault only reads the intent
// out of it; checking the signature is the transport's job.
type Proof struct {
	IntentBytes []byte `serialize:"true"`
	Signer      []byte `serialize:"true"`
	Signature   []byte `serialize:"true"`

	intent *TransferIntent
	bytes  []byte
}

// SigningMessage is the payload an attester signs for an intent.
func SigningMessage(id ids.ID) []byte {
	msg := make([]byte, 0, len(signingPrefix)+len(id))
	msg = append(msg, signingPrefix...)
	return append(msg, id[:]...)
}

func NewProof(t *TransferIntent, signer, signature []byte) (*Proof, error) {
	p := &Proof{
		IntentBytes: t.Bytes(),
		Signer:      signer,
		Signature:   signature,
		intent:      t,
	}
	b, err := Codec.Marshal(CodecVersion, p)
	if err != nil {
		return nil, fmt.Errorf("couldn't marshal proof: %w", err)
	}
	p.bytes = b
	return p, nil
}

func ParseProof(b []byte) (*Proof, error) {
	if len(b) == 0 {
		return nil, ErrMalformedProof
	}
	p := &Proof{}
	if _, err := Codec.Unmarshal(b, p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedProof, err)
	}
	if len(p.Signer) == 0 || len(p.Signature) == 0 {
		return nil, ErrMalformedProof
	}
	t, err := Parse(p.IntentBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedProof, err)
	}
	p.intent = t
	p.bytes = b
	return p, nil
}

// ParseProofString decodes the base58 text form produced by String.
func ParseProofString(s string) (*Proof, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedProof, err)
	}
	return ParseProof(b)
}

func (p *Proof) Intent() *TransferIntent {
	return p.intent
}

func (p *Proof) Bytes() []byte {
	return p.bytes
}

func (p *Proof) String() string {
	return base58.Encode(p.bytes)
}
