package agent

import "fmt"

// Kind is the closed set of known strategy agent kinds. Routing decisions
// (regime boosts, silencing) key off the kind, never the agent name.
type Kind string

const (
	KindMomentum      Kind = "momentum"
	KindMeanReversion Kind = "mean_reversion"
	KindLiquidity     Kind = "liquidity"
	KindVolatility    Kind = "volatility"
)

var knownKinds = map[Kind]struct{}{
	KindMomentum:      {},
	KindMeanReversion: {},
	KindLiquidity:     {},
	KindVolatility:    {},
}

// Valid reports whether k is a known agent kind.
func (k Kind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// ParseKind converts a raw string into a Kind, rejecting unknown values.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown agent kind %q", s)
	}
	return k, nil
}
