package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/inboxgraph/backend/internal/util"
	"github.com/inboxgraph/backend/pkg/ai"
	"github.com/inboxgraph/backend/pkg/common"
	"github.com/inboxgraph/backend/pkg/logger"
)

// Fallback values for relationship analysis when model output cannot be
// obtained or parsed.
const (
	FallbackSharedInterest      = "Unable to determine shared interests"
	FallbackConnectionPoint     = "Unable to determine connection points"
	FallbackStrengthReasoning   = "Unable to analyze relationship strength"
	fallbackRelationshipStength = 1
)

// modelRelationshipResponse is the structured output requested from the
// model for pairwise analysis. Source and target are echoed back so a
// response can always be attributed to its pair across concurrent calls.
type modelRelationshipResponse struct {
	Source           string               `json:"source"`
	Target           string               `json:"target"`
	SharedInterests  []string             `json:"shared_interests"`
	ConnectionPoints []string             `json:"connection_points"`
	Strength         common.StrengthScore `json:"relationship_strength"`
}

func fallbackRelationshipResponse(source, target string) modelRelationshipResponse {
	return modelRelationshipResponse{
		Source:           source,
		Target:           target,
		SharedInterests:  []string{FallbackSharedInterest},
		ConnectionPoints: []string{FallbackConnectionPoint},
		Strength: common.StrengthScore{
			Score:     fallbackRelationshipStength,
			Reasoning: FallbackStrengthReasoning,
		},
	}
}

// renderInteractionBlock formats a bounded sample of interactions for the
// pairwise prompt.
func renderInteractionBlock(interactions []common.NormalizedEmail) string {
	var b strings.Builder
	for _, email := range interactions {
		recipients := make([]string, 0, len(email.Recipients))
		for _, r := range email.Recipients {
			recipients = append(recipients, r.Email)
		}
		fmt.Fprintf(&b, "\nFrom: %s\nTo: %s\nSubject: %s\nContent: %s\n---\n",
			email.Sender.Email, strings.Join(recipients, ", "), email.Subject,
			ai.TruncateTokens(email.Body, bodyTokenBudget))
	}
	return b.String()
}

func profileJSON(p common.Profile) string {
	data, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// AnalyzeRelationship analyzes the connection between two participants from
// their direct interactions. It returns ok=false when the interaction set
// is empty: disconnected pairs produce no edge, keeping the graph
// proportional to actual communication. A bounded prefix of interactions is
// quoted in the prompt; emailCount still reflects the full interaction
// count and lastInteraction the overall maximum timestamp. Model failures
// degrade to a placeholder analysis. The optional embedding is best-effort
// and never blocks edge creation.
func (g *GraphClient) AnalyzeRelationship(
	ctx context.Context,
	aiClient ai.MailAIClient,
	profileA, profileB common.Profile,
	interactions []common.NormalizedEmail,
) (common.Relationship, bool) {
	if len(interactions) == 0 {
		return common.Relationship{}, false
	}

	source, target := common.PairKey(profileA.Email, profileB.Email)

	sample := interactions
	if len(sample) > g.sampleSize {
		sample = sample[:g.sampleSize]
	}

	prompt := ai.BuildRelationshipPrompt(
		profileJSON(profileA),
		profileJSON(profileB),
		renderInteractionBlock(sample),
	)

	var res modelRelationshipResponse
	err := util.RetryErrWithContext(ctx, g.maxRetries, func(ctx context.Context) error {
		rCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		defer cancel()
		return aiClient.GenerateCompletionWithFormat(
			rCtx,
			"relationship_analysis",
			"Analysis of the relationship between two email participants",
			prompt,
			&res,
			ai.WithSystemPrompts(ai.RelationshipSystemPrompt),
		)
	})
	if err != nil {
		logger.Warn("[Graph][Relationship] Falling back to placeholder analysis", "source", source, "target", target, "err", err)
		res = fallbackRelationshipResponse(source, target)
	}

	lastInteraction := interactions[0].Date
	for _, email := range interactions[1:] {
		if email.Date.After(lastInteraction) {
			lastInteraction = email.Date
		}
	}

	rel := common.Relationship{
		Source:           source,
		Target:           target,
		SharedInterests:  res.SharedInterests,
		ConnectionPoints: res.ConnectionPoints,
		Strength: common.StrengthScore{
			Score:     clampScore(res.Strength.Score),
			Reasoning: res.Strength.Reasoning,
		},
		EmailCount:      len(interactions),
		LastInteraction: lastInteraction,
	}

	if g.embeddings {
		rel.Embedding = g.embedRelationship(ctx, aiClient, rel)
	}
	return rel, true
}

// embedRelationship computes an embedding over the serialized textual
// analysis. Failures are logged and yield nil.
func (g *GraphClient) embedRelationship(
	ctx context.Context,
	aiClient ai.MailAIClient,
	rel common.Relationship,
) []float32 {
	text := fmt.Sprintf(
		"Shared interests: %s. Connection points: %s. %s",
		strings.Join(rel.SharedInterests, ", "),
		strings.Join(rel.ConnectionPoints, ", "),
		rel.Strength.Reasoning,
	)

	rCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	embedding, err := aiClient.GenerateEmbedding(rCtx, []byte(text))
	if err != nil {
		logger.Warn("[Graph][Relationship] Embedding failed", "source", rel.Source, "target", rel.Target, "err", err)
		return nil
	}
	return embedding
}
