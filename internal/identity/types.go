// Package identity manages the dashboard user's account keypair. Each
// installation keeps a persistent ed25519 private key; the hex-encoded
// public key is the account address the ledger records as course owner,
// and the private key signs every submitted call descriptor.
package identity

import (
	"crypto/ed25519"
	"encoding/hex"
)

// Identity is a loaded account keypair.
type Identity struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	account    string
}

// NewIdentity creates an Identity from a private key.
func NewIdentity(privKey ed25519.PrivateKey) *Identity {
	pubKey := privKey.Public().(ed25519.PublicKey)
	return &Identity{
		privateKey: privKey,
		publicKey:  pubKey,
		account:    hex.EncodeToString(pubKey),
	}
}

// Sign signs the provided message with the account's private key.
func (i *Identity) Sign(message []byte) []byte {
	return ed25519.Sign(i.privateKey, message)
}

// Verify checks a signature against a message using the account's public key.
func (i *Identity) Verify(message, signature []byte) bool {
	return ed25519.Verify(i.publicKey, message, signature)
}

// PublicKey returns the raw public key.
func (i *Identity) PublicKey() ed25519.PublicKey {
	return i.publicKey
}

// PrivateKey returns the raw private key.
func (i *Identity) PrivateKey() ed25519.PrivateKey {
	return i.privateKey
}

// Account returns the hex-encoded public key. This is the address the
// ledger uses for course ownership and balance transfers.
func (i *Identity) Account() string {
	return i.account
}
