package config

import (
	"fmt"

	"vault-position-lab/internal/domain"
)

// Endpoints are the network-specific service URLs and program addresses.
type Endpoints struct {
	RPC      string
	WS       string
	Subgraph string

	VaultProgram    string
	StrategyProgram string
	FaucetProgram   string

	FaucetData         string
	FaucetTokenAccount string
	TestTokenMint      string
}

const prodBaseURL = "https://solana.mainnet.splyce.finance"

var networkEndpoints = map[domain.Network]Endpoints{
	domain.NetworkMainnet: {
		RPC:                prodBaseURL + "/api/prod-rpc-helius",
		WS:                 "wss://solana.mainnet.splyce.finance/api/prod-rpc-helius",
		Subgraph:           "https://api.studio.thegraph.com/query/90915/splyce-vault-subgraph/version/latest",
		VaultProgram:       "5R6bVKZfag4X9vW4nek6UNP8XXwH7cPaVohyAo1xfVEU",
		StrategyProgram:    "FeMChq4ZCFP8UstbyHnVyme3ATa2vtteLNCwms4jLMAj",
		FaucetProgram:      "4rza9AifAapN4SKho3teAuLhc1TPpNWp9DHNPEMzVqgp",
		FaucetData:         "84aAmYBsJWBZWbsgeBS6MSuFsGUGLAqaofVMLD4DZXtP",
		FaucetTokenAccount: "3zztMz1BaGckpyNhrTTRBBgfNpFn9kj4VzkyCGCxHnWB",
		TestTokenMint:      "4N37FD6SU35ssX6yTu2AcCvzVbdS6z3YZTtk5gv7ejhE",
	},
	domain.NetworkDevnet: {
		RPC:                "https://rpc.solana.splyce.finance",
		WS:                 "wss://rpc.solana.splyce.finance",
		Subgraph:           "https://graph.solana.splyce.finance",
		VaultProgram:       "ATdWqQQrwKbwbGv2zmD2nfcXsmTVA62eXWEtundAdwfE",
		StrategyProgram:    "5rQVgdeNp4RMUXjL8B8ksajVNywLoS7rK9e5yD4pi983",
		FaucetProgram:      "84SxMfjJ3xZzZFCEsZSaPJWF7aWQBiyXq4KMaC4k892Y",
		FaucetData:         "Fx6qTeZEk8UxJuTjZ9REThtsocHiukjP9iTd87qgfCui",
		FaucetTokenAccount: "8BEaXawL7MeRYbmtnmHKFZrn52irAjxYJL3RwPfkHa7M",
		TestTokenMint:      "gMiieh8f3j6VVRaSKqxa2iiznqXCNkY6ocr65YCY7i1",
	},
}

// EndpointsFor returns the built-in endpoint set for a network.
func EndpointsFor(network domain.Network) (Endpoints, error) {
	e, ok := networkEndpoints[network]
	if !ok {
		return Endpoints{}, fmt.Errorf("unknown network %q", network)
	}
	return e, nil
}
