package models

import "testing"

func TestParseTopology(t *testing.T) {
	cases := map[string]Topology{
		"arb":       TopologyArb,
		" Pump ":    TopologyPump,
		"graduates": TopologyGraduates,
		"grads":     TopologyGraduates,
		"ALL":       TopologyAll,
	}
	for in, want := range cases {
		got, err := ParseTopology(in)
		if err != nil || got != want {
			t.Errorf("ParseTopology(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseTopology("sandwich"); err == nil {
		t.Errorf("expected error for unknown topology")
	}
}
