// Package web3 houses EVM connectivity for the Bink providers: a chain client
// abstraction, its go-ethereum implementation, and a registry keyed by wallet
// network names.
package web3
