package models

import "fmt"

const (
	MainnetChainID int64 = 1
	HoleskyChainID int64 = 17000
	SepoliaChainID int64 = 11155111
)

var chainNames = map[int64]string{
	MainnetChainID: "mainnet",
	HoleskyChainID: "holesky",
	SepoliaChainID: "sepolia",
}

var displayNames = map[int64]string{
	MainnetChainID: "Ethereum Mainnet",
	HoleskyChainID: "Holesky Testnet",
	SepoliaChainID: "Sepolia Testnet",
}

// Network is the chain the wallet currently points at.
type Network struct {
	ChainID   int64  `json:"chain_id"`
	Name      string `json:"name"`
	Supported bool   `json:"supported"`
}

func ChainName(chainID int64) string {
	if name, ok := chainNames[chainID]; ok {
		return name
	}
	return "unknown"
}

func ChainDisplayName(chainID int64) string {
	if name, ok := displayNames[chainID]; ok {
		return name
	}
	return fmt.Sprintf("chain %d", chainID)
}

func NetworkMismatchAdvisory(target int64) string {
	name := ChainDisplayName(target)
	return fmt.Sprintf("You are not connected to %s. Please switch to %s.", name, name)
}

const InsufficientBalanceAdvisory = "Insufficient balance. Please get more coins."
