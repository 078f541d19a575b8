package domain

// Network identifies the Solana cluster the service talks to.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkDevnet  Network = "devnet"
)

// String returns the string representation of Network.
func (n Network) String() string {
	return string(n)
}

// IsValid checks if the network is a known value.
func (n Network) IsValid() bool {
	return n == NetworkMainnet || n == NetworkDevnet
}

// NetworkForEnv maps the APP_ENV flag to a network: "prod" selects mainnet,
// everything else devnet.
func NetworkForEnv(env string) Network {
	if env == "prod" {
		return NetworkMainnet
	}
	return NetworkDevnet
}
