package model

// ProtocolKind tags a route with the class of venue it executes on.
// It is resolved once at route generation time; downstream code switches
// on the kind, never on the protocol label.
type ProtocolKind string

const (
	KindStableSwap    ProtocolKind = "stable_swap"
	KindDexAggregator ProtocolKind = "dex_aggregator"
	KindStaking       ProtocolKind = "staking"
	KindBridge        ProtocolKind = "bridge"
)

// IsCrossChain reports whether routes of this kind settle on a different
// chain than they start on.
func (k ProtocolKind) IsCrossChain() bool {
	return k == KindBridge
}
