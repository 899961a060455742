package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inboxgraph/backend/pkg/common"
)

func TestClampScore(t *testing.T) {
	tests := []struct {
		score int
		want  int
	}{
		{score: -3, want: 1},
		{score: 0, want: 1},
		{score: 1, want: 1},
		{score: 7, want: 7},
		{score: 10, want: 10},
		{score: 42, want: 10},
	}
	for _, tc := range tests {
		if got := clampScore(tc.score); got != tc.want {
			t.Fatalf("clampScore(%d) = %d, want %d", tc.score, got, tc.want)
		}
	}
}

func TestAnalyzeRelationship_EmptyInteractions(t *testing.T) {
	client, err := NewGraphClient(NewGraphClientParams{})
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}

	_, ok := client.AnalyzeRelationship(
		context.Background(),
		testStubAI(),
		common.Profile{Email: "alice@example.com"},
		common.Profile{Email: "bob@example.com"},
		nil,
	)
	if ok {
		t.Fatalf("AnalyzeRelationship() with no interactions returned ok=true")
	}
}

func TestAnalyzeRelationship_Success(t *testing.T) {
	client, err := NewGraphClient(NewGraphClientParams{SampleSize: 2})
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	interactions := []common.NormalizedEmail{
		{Sender: common.Address{Email: "bob@example.com"}, Recipients: []common.Address{{Email: "alice@example.com"}}, Date: base},
		{Sender: common.Address{Email: "alice@example.com"}, Recipients: []common.Address{{Email: "bob@example.com"}}, Date: base.Add(48 * time.Hour)},
		{Sender: common.Address{Email: "bob@example.com"}, Recipients: []common.Address{{Email: "alice@example.com"}}, Date: base.Add(24 * time.Hour)},
	}

	// Source argument deliberately the lexicographically larger address to
	// verify canonical ordering of the stored pair.
	rel, ok := client.AnalyzeRelationship(
		context.Background(),
		testStubAI(),
		common.Profile{Email: "bob@example.com"},
		common.Profile{Email: "alice@example.com"},
		interactions,
	)
	if !ok {
		t.Fatalf("AnalyzeRelationship() returned ok=false")
	}

	if rel.Source != "alice@example.com" || rel.Target != "bob@example.com" {
		t.Fatalf("AnalyzeRelationship() pair = %s/%s, want canonical order", rel.Source, rel.Target)
	}
	if rel.Strength.Score != 7 {
		t.Fatalf("AnalyzeRelationship() score = %d, want 7", rel.Strength.Score)
	}

	// Prompt quotes only a sample, but the counts cover everything.
	if rel.EmailCount != 3 {
		t.Fatalf("AnalyzeRelationship() emailCount = %d, want 3", rel.EmailCount)
	}
	wantLast := base.Add(48 * time.Hour)
	if !rel.LastInteraction.Equal(wantLast) {
		t.Fatalf("AnalyzeRelationship() lastInteraction = %v, want %v", rel.LastInteraction, wantLast)
	}
}

func TestAnalyzeRelationship_FallbackOnModelFailure(t *testing.T) {
	client, err := NewGraphClient(NewGraphClientParams{MaxRetries: 1})
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}

	stub := testStubAI()
	stub.formatErr = errors.New("model overloaded")

	interactions := []common.NormalizedEmail{
		{Sender: common.Address{Email: "alice@example.com"}, Recipients: []common.Address{{Email: "bob@example.com"}}},
	}
	rel, ok := client.AnalyzeRelationship(
		context.Background(),
		stub,
		common.Profile{Email: "alice@example.com"},
		common.Profile{Email: "bob@example.com"},
		interactions,
	)
	if !ok {
		t.Fatalf("AnalyzeRelationship() returned ok=false on model failure")
	}

	if rel.Strength.Score != 1 {
		t.Fatalf("AnalyzeRelationship() fallback score = %d, want 1", rel.Strength.Score)
	}
	if len(rel.SharedInterests) != 1 || rel.SharedInterests[0] != FallbackSharedInterest {
		t.Fatalf("AnalyzeRelationship() fallback shared interests = %v", rel.SharedInterests)
	}
	if len(rel.ConnectionPoints) != 1 || rel.ConnectionPoints[0] != FallbackConnectionPoint {
		t.Fatalf("AnalyzeRelationship() fallback connection points = %v", rel.ConnectionPoints)
	}
	if rel.Strength.Reasoning != FallbackStrengthReasoning {
		t.Fatalf("AnalyzeRelationship() fallback reasoning = %q", rel.Strength.Reasoning)
	}
}

func TestAnalyzeRelationship_EmbeddingBestEffort(t *testing.T) {
	client, err := NewGraphClient(NewGraphClientParams{Embeddings: true, MaxRetries: 1})
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}

	interactions := []common.NormalizedEmail{
		{Sender: common.Address{Email: "alice@example.com"}, Recipients: []common.Address{{Email: "bob@example.com"}}},
	}

	stub := testStubAI()
	stub.embedding = []float32{0.1, 0.2, 0.3}
	rel, ok := client.AnalyzeRelationship(
		context.Background(), stub,
		common.Profile{Email: "alice@example.com"},
		common.Profile{Email: "bob@example.com"},
		interactions,
	)
	if !ok {
		t.Fatalf("AnalyzeRelationship() returned ok=false")
	}
	if len(rel.Embedding) != 3 {
		t.Fatalf("AnalyzeRelationship() embedding length = %d, want 3", len(rel.Embedding))
	}

	stub = testStubAI()
	stub.embedErr = errors.New("embedding backend down")
	rel, ok = client.AnalyzeRelationship(
		context.Background(), stub,
		common.Profile{Email: "alice@example.com"},
		common.Profile{Email: "bob@example.com"},
		interactions,
	)
	if !ok {
		t.Fatalf("AnalyzeRelationship() embedding failure must not drop the edge")
	}
	if rel.Embedding != nil {
		t.Fatalf("AnalyzeRelationship() embedding = %v, want nil on failure", rel.Embedding)
	}
}
