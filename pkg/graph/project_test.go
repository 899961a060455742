package graph

import (
	"context"
	"testing"

	"github.com/inboxgraph/backend/pkg/common"
)

func TestNodeLabel(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{email: "alice@example.com", want: "alice"},
		{email: "no-at-sign", want: "no-at-sign"},
		{email: "@leading.at", want: "@leading.at"},
	}
	for _, tc := range tests {
		if got := nodeLabel(tc.email); got != tc.want {
			t.Fatalf("nodeLabel(%q) = %q, want %q", tc.email, got, tc.want)
		}
	}
}

func TestProjectGraph(t *testing.T) {
	relationships := []common.Relationship{
		{
			Source:           "alice@example.com",
			Target:           "bob@example.com",
			EmailCount:       2,
			Strength:         common.StrengthScore{Score: 7},
			ConnectionPoints: []string{"trip planning"},
		},
		{
			Source:     "alice@example.com",
			Target:     "carol@example.com",
			EmailCount: 1,
			Strength:   common.StrengthScore{Score: 3},
		},
	}

	view := ProjectGraph(relationships)

	if len(view.Nodes) != 3 {
		t.Fatalf("ProjectGraph() produced %d nodes, want 3", len(view.Nodes))
	}
	labels := make(map[string]string)
	for _, node := range view.Nodes {
		labels[node.ID] = node.Label
	}
	if labels["alice@example.com"] != "alice" {
		t.Fatalf("ProjectGraph() label for alice = %q", labels["alice@example.com"])
	}

	if len(view.Edges) != 2 {
		t.Fatalf("ProjectGraph() produced %d edges, want 2", len(view.Edges))
	}
	first := view.Edges[0]
	if first.Value != 2 || first.Strength != 7 {
		t.Fatalf("ProjectGraph() edge = %+v, want value 2 strength 7", first)
	}
	if len(first.ConnectionPoints) != 1 || first.ConnectionPoints[0] != "trip planning" {
		t.Fatalf("ProjectGraph() connection points = %v", first.ConnectionPoints)
	}
}

func TestProjectGraph_Empty(t *testing.T) {
	view := ProjectGraph(nil)
	if view.Nodes == nil || view.Edges == nil {
		t.Fatalf("ProjectGraph(nil) must return initialized empty slices")
	}
	if len(view.Nodes) != 0 || len(view.Edges) != 0 {
		t.Fatalf("ProjectGraph(nil) = %+v, want empty view", view)
	}
}

func TestLoadGraph(t *testing.T) {
	st := newMemStore()
	st.relationships["alice@example.com|bob@example.com"] = common.Relationship{
		Source:     "alice@example.com",
		Target:     "bob@example.com",
		EmailCount: 4,
		Strength:   common.StrengthScore{Score: 9},
	}

	view, err := LoadGraph(context.Background(), st)
	if err != nil {
		t.Fatalf("LoadGraph() error = %v", err)
	}
	if len(view.Nodes) != 2 || len(view.Edges) != 1 {
		t.Fatalf("LoadGraph() = %d nodes %d edges, want 2/1", len(view.Nodes), len(view.Edges))
	}
}
