// Package wallet derives the multi-chain wallet used by the Bink actions from a
// BIP-39 seed phrase and describes the networks the wallet can address.
package wallet
