package models

import (
	"fmt"
	"strings"
)

// Signature identifies an actionable event emitted by a strategy pipeline,
// normally the base58 signature of the triggering transaction.
type Signature string

// TimestampedSignature pairs a signature with the sink's receipt time.
type TimestampedSignature struct {
	ReceivedMs uint64    `json:"received_ms"`
	Signature  Signature `json:"signature"`
}

// Topology selects which strategy pipelines run behind the shared
// reconstruction stage. It is fixed at startup.
type Topology int

const (
	TopologyArb Topology = iota
	TopologyPump
	TopologyGraduates
	TopologyAll
)

// Strategy names, also used as fan-out branch labels.
const (
	StrategyArb       = "arb"
	StrategyPump      = "pump"
	StrategyGraduates = "graduates"
)

func (t Topology) String() string {
	switch t {
	case TopologyArb:
		return StrategyArb
	case TopologyPump:
		return StrategyPump
	case TopologyGraduates:
		return StrategyGraduates
	case TopologyAll:
		return "all"
	default:
		return fmt.Sprintf("topology(%d)", int(t))
	}
}

// Replicated reports whether the topology fans out to every pipeline.
func (t Topology) Replicated() bool {
	return t == TopologyAll
}

// ParseTopology maps a mode name onto a Topology.
func ParseTopology(s string) (Topology, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case StrategyArb:
		return TopologyArb, nil
	case StrategyPump:
		return TopologyPump, nil
	case StrategyGraduates, "grads":
		return TopologyGraduates, nil
	case "all":
		return TopologyAll, nil
	default:
		return 0, fmt.Errorf("unknown topology %q", s)
	}
}
