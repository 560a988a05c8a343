// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/cloudflare/circl/sign/ed25519"
	"golang.org/x/crypto/sha3"

	lru "github.com/hashicorp/golang-lru"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/vault/vms/vaultvm/intent"
	"github.com/luxfi/vault/vms/vaultvm/token"
)

const defaultVerifyCacheSize = 1024

var _ Transport = (*Relay)(nil)

// Endpoint is the relay's presence on one ledger: the token ledger it moves
// assets on and the escrow account senders approve.
type Endpoint interface {
	token.Ledger
	token.Issuer
}

type endpoint struct {
	ledger Endpoint
	escrow ids.ShortID
}

// Relay is a lock-and-mint transport shared by every ledger of a devnet.
// Send pulls the amount into the source escrow and burns it; VerifyAndRelay
// checks an ed25519 attestation and mints the amount to the recipient on the
// destination ledger.
type Relay struct {
	log log.Logger

	signer   ed25519.PrivateKey
	trusted  map[string]struct{}
	verified *lru.Cache

	lock      sync.RWMutex
	endpoints map[ids.ID]endpoint
	sent      map[ids.ID]*intent.TransferIntent
}

// NewRelay creates a relay that attests with a fresh key.
func NewRelay(logger log.Logger) (*Relay, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("couldn't generate attester key: %w", err)
	}
	verified, err := lru.New(defaultVerifyCacheSize)
	if err != nil {
		return nil, err
	}
	return &Relay{
		log:       logger,
		signer:    priv,
		trusted:   map[string]struct{}{string(pub): {}},
		verified:  verified,
		endpoints: make(map[ids.ID]endpoint),
		sent:      make(map[ids.ID]*intent.TransferIntent),
	}, nil
}

// Register attaches a ledger to the relay.
func (r *Relay) Register(ledgerID ids.ID, ledger Endpoint, escrow ids.ShortID) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.endpoints[ledgerID] = endpoint{ledger: ledger, escrow: escrow}
}

// Escrow returns the account senders on ledgerID must approve.
func (r *Relay) Escrow(ledgerID ids.ID) (ids.ShortID, error) {
	ep, err := r.endpoint(ledgerID)
	if err != nil {
		return ids.ShortEmpty, err
	}
	return ep.escrow, nil
}

// PublicKey is the key attestations are signed with.
func (r *Relay) PublicKey() ed25519.PublicKey {
	return r.signer.Public().(ed25519.PublicKey)
}

func (r *Relay) endpoint(ledgerID ids.ID) (endpoint, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	ep, ok := r.endpoints[ledgerID]
	if !ok {
		return endpoint{}, fmt.Errorf("%w: %s", ErrUnknownLedger, ledgerID)
	}
	return ep, nil
}

func (r *Relay) Send(ctx context.Context, in *intent.TransferIntent) (ids.ID, error) {
	if _, err := r.endpoint(in.DestinationLedger); err != nil {
		return ids.Empty, err
	}
	src, err := r.endpoint(in.SourceLedger)
	if err != nil {
		return ids.Empty, err
	}

	amount := in.Amount()
	if err := src.ledger.TransferFrom(ctx, src.escrow, in.Sender, src.escrow, amount); err != nil {
		return ids.Empty, fmt.Errorf("couldn't lock intent amount: %w", err)
	}
	if err := src.ledger.Burn(ctx, src.escrow, amount); err != nil {
		return ids.Empty, fmt.Errorf("couldn't burn escrowed amount: %w", err)
	}

	id := in.ID()
	r.lock.Lock()
	r.sent[id] = in
	r.lock.Unlock()

	r.log.Info("relay accepted intent",
		log.Stringer("intentID", id),
		log.Stringer("source", in.SourceLedger),
		log.Stringer("destination", in.DestinationLedger),
		log.String("amount", amount.Dec()),
	)
	return id, nil
}

// Attest signs a previously sent intent, producing the proof the destination
// vault finalizes with.
func (r *Relay) Attest(intentID ids.ID) (*intent.Proof, error) {
	r.lock.RLock()
	in, ok := r.sent[intentID]
	r.lock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIntent, intentID)
	}

	sig := ed25519.Sign(r.signer, intent.SigningMessage(intentID))
	return intent.NewProof(in, r.PublicKey(), sig)
}

// Pending lists intents the relay has accepted, in no particular order.
func (r *Relay) Pending() []*intent.TransferIntent {
	r.lock.RLock()
	defer r.lock.RUnlock()

	out := make([]*intent.TransferIntent, 0, len(r.sent))
	for _, in := range r.sent {
		out = append(out, in)
	}
	return out
}

func (r *Relay) verify(p *intent.Proof) error {
	key := ids.ID(sha3.Sum256(p.Bytes()))
	if _, ok := r.verified.Get(key); ok {
		return nil
	}
	if _, ok := r.trusted[string(p.Signer)]; !ok || len(p.Signer) != ed25519.PublicKeySize {
		return ErrUntrustedSigner
	}
	msg := intent.SigningMessage(p.Intent().ID())
	if !ed25519.Verify(ed25519.PublicKey(p.Signer), msg, p.Signature) {
		return ErrInvalidSignature
	}
	r.verified.Add(key, struct{}{})
	return nil
}

func (r *Relay) VerifyAndRelay(ctx context.Context, proofBytes []byte) (*Receipt, error) {
	p, err := intent.ParseProof(proofBytes)
	if err != nil {
		return nil, err
	}
	if err := r.verify(p); err != nil {
		return &Receipt{}, err
	}

	in := p.Intent()
	dst, err := r.endpoint(in.DestinationLedger)
	if err != nil {
		return nil, err
	}
	amount := in.Amount()
	if err := dst.ledger.Mint(ctx, in.Recipient, amount); err != nil {
		return nil, fmt.Errorf("couldn't deliver intent amount: %w", err)
	}

	r.log.Info("relay delivered intent",
		log.Stringer("intentID", in.ID()),
		log.Stringer("recipient", in.Recipient),
		log.String("amount", amount.Dec()),
	)
	return &Receipt{
		Verified: true,
		Amount:   amount,
		Sender:   in.Sender,
		IntentID: in.ID(),
	}, nil
}
