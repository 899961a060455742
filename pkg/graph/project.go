package graph

import (
	"context"
	"strings"

	"github.com/inboxgraph/backend/pkg/common"
	"github.com/inboxgraph/backend/pkg/store"
)

// nodeLabel derives a display label from an address's local part.
func nodeLabel(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

// ProjectGraph maps persisted relationships into a renderable node/edge
// view. The node set is the union of all edge endpoints; edge value is the
// interaction count backing the analysis. Pure read, no mutation.
func ProjectGraph(relationships []common.Relationship) common.GraphView {
	view := common.GraphView{
		Nodes: []common.GraphNode{},
		Edges: []common.GraphEdge{},
	}

	seen := make(map[string]bool)
	addNode := func(email string) {
		if email == "" || seen[email] {
			return
		}
		seen[email] = true
		view.Nodes = append(view.Nodes, common.GraphNode{
			ID:    email,
			Label: nodeLabel(email),
		})
	}

	for _, rel := range relationships {
		addNode(rel.Source)
		addNode(rel.Target)
		view.Edges = append(view.Edges, common.GraphEdge{
			Source:           rel.Source,
			Target:           rel.Target,
			Value:            rel.EmailCount,
			Strength:         rel.Strength.Score,
			ConnectionPoints: rel.ConnectionPoints,
		})
	}
	return view
}

// LoadGraph reads all persisted relationships and projects them.
func LoadGraph(ctx context.Context, storage store.MailStorage) (common.GraphView, error) {
	relationships, err := storage.ListRelationships(ctx)
	if err != nil {
		return common.GraphView{}, err
	}
	return ProjectGraph(relationships), nil
}
