package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/inboxgraph/backend/internal/util"
	"github.com/inboxgraph/backend/pkg/ai"
	"github.com/inboxgraph/backend/pkg/common"
	"github.com/inboxgraph/backend/pkg/logger"
)

// Fallback values substituted when model output cannot be obtained or parsed.
const (
	FallbackCharacteristics    = "Unable to analyze characteristics"
	FallbackDemeanor           = "Unable to analyze demeanor"
	FallbackInterest           = "Unable to determine interests"
	FallbackCommunicationStyle = "Unable to analyze communication style"
)

// modelProfileResponse is the structured output requested from the model
// for participant profiling.
type modelProfileResponse struct {
	Characteristics    string   `json:"characteristics"`
	Demeanor           string   `json:"demeanor"`
	Interests          []string `json:"interests"`
	PersonalityTraits  []string `json:"personality_traits"`
	CommunicationStyle string   `json:"communication_style"`
}

func fallbackProfileResponse() modelProfileResponse {
	return modelProfileResponse{
		Characteristics:    FallbackCharacteristics,
		Demeanor:           FallbackDemeanor,
		Interests:          []string{FallbackInterest},
		PersonalityTraits:  nil,
		CommunicationStyle: FallbackCommunicationStyle,
	}
}

// bodyTokenBudget caps the tokens one email body may occupy in a prompt.
const bodyTokenBudget = 1000

// renderEmailBlock formats emails for inclusion in a profiling prompt.
func renderEmailBlock(emails []common.NormalizedEmail) string {
	var b strings.Builder
	for _, email := range emails {
		name := email.Sender.Name
		if name == "" {
			name = "Unknown"
		}
		body := ai.TruncateTokens(email.Body, bodyTokenBudget)
		fmt.Fprintf(&b, "\nFrom: %s <%s>\nSubject: %s\nBody: %s\n---\n", name, email.Sender.Email, email.Subject, body)
	}
	return b.String()
}

// chunkEmails splits emails into groups of at most size elements.
func chunkEmails(emails []common.NormalizedEmail, size int) [][]common.NormalizedEmail {
	if size <= 0 {
		return [][]common.NormalizedEmail{emails}
	}
	var out [][]common.NormalizedEmail
	for start := 0; start < len(emails); start += size {
		end := start + size
		if end > len(emails) {
			end = len(emails)
		}
		out = append(out, emails[start:end])
	}
	return out
}

// mergeProfileResponses combines per-chunk model responses: list fields are
// set-unioned in first-seen order, scalar fields take the first chunk's
// value. This is an intentional tie-break, not a synthesis step.
func mergeProfileResponses(responses []modelProfileResponse) modelProfileResponse {
	if len(responses) == 0 {
		return fallbackProfileResponse()
	}

	merged := modelProfileResponse{
		Characteristics:    responses[0].Characteristics,
		Demeanor:           responses[0].Demeanor,
		CommunicationStyle: responses[0].CommunicationStyle,
	}

	seenInterest := make(map[string]bool)
	seenTrait := make(map[string]bool)
	for _, res := range responses {
		for _, interest := range res.Interests {
			if interest == "" || seenInterest[interest] {
				continue
			}
			seenInterest[interest] = true
			merged.Interests = append(merged.Interests, interest)
		}
		for _, trait := range res.PersonalityTraits {
			if trait == "" || seenTrait[trait] {
				continue
			}
			seenTrait[trait] = true
			merged.PersonalityTraits = append(merged.PersonalityTraits, trait)
		}
	}
	return merged
}

func (g *GraphClient) generateProfileChunk(
	ctx context.Context,
	aiClient ai.MailAIClient,
	address string,
	emails []common.NormalizedEmail,
) modelProfileResponse {
	prompt := ai.BuildProfilePrompt(address, renderEmailBlock(emails))

	var res modelProfileResponse
	err := util.RetryErrWithContext(ctx, g.maxRetries, func(ctx context.Context) error {
		rCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		defer cancel()
		return aiClient.GenerateCompletionWithFormat(
			rCtx,
			"participant_profile",
			"Behavioral profile of one email participant",
			prompt,
			&res,
			ai.WithSystemPrompts(ai.ProfileSystemPrompt),
		)
	})
	if err != nil {
		logger.Warn("[Graph][Profile] Falling back to placeholder chunk", "participant", address, "err", err)
		return fallbackProfileResponse()
	}
	return res
}

// GenerateProfile builds a behavioral profile for one participant from the
// emails they sent or received. Emails are analyzed in fixed-size chunks to
// bound prompt length; chunk results are merged. Model and transport
// failures degrade to a fixed placeholder profile rather than failing the
// run. An empty email set produces no profile and ok=false.
func (g *GraphClient) GenerateProfile(
	ctx context.Context,
	aiClient ai.MailAIClient,
	participant common.Participant,
	emails []common.NormalizedEmail,
) (common.Profile, bool) {
	if len(emails) == 0 {
		return common.Profile{}, false
	}

	chunks := chunkEmails(emails, g.chunkSize)
	responses := make([]modelProfileResponse, 0, len(chunks))
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			break
		}
		responses = append(responses, g.generateProfileChunk(ctx, aiClient, participant.Email, chunk))
	}

	merged := mergeProfileResponses(responses)
	return common.Profile{
		Email:              participant.Email,
		Name:               participant.Name,
		Characteristics:    merged.Characteristics,
		Demeanor:           merged.Demeanor,
		CommunicationStyle: merged.CommunicationStyle,
		Interests:          merged.Interests,
		PersonalityTraits:  merged.PersonalityTraits,
	}, true
}
