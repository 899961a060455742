package ai

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// ProfileSystemPrompt instructs the model for participant profiling.
	ProfileSystemPrompt = "You are an expert communication analyst. Return only valid JSON without any markdown formatting."

	// RelationshipSystemPrompt instructs the model for pairwise relationship analysis.
	RelationshipSystemPrompt = "You are an expert relationship analyst. Return only valid JSON."
)

const profilePromptTemplate = `As an expert in communication analysis and behavioral psychology, analyze these emails to create a detailed profile of %s. Focus on:

1. Personal characteristics (personality traits, writing style, professional background)
2. General demeanor and tone (formal/informal, friendly/professional, emotional range)
3. Interests (both professional and personal topics mentioned)
4. Communication style (direct/indirect, verbose/concise, use of language)

Emails:
"""%s"""

Provide a detailed analysis in JSON format. Be specific and avoid generic responses:
{
  "characteristics": "detailed description of personality traits and style",
  "demeanor": "specific observations about tone and approach",
  "interests": ["specific interest 1", "specific interest 2", "etc"],
  "personality_traits": ["trait1", "trait2", "etc"],
  "communication_style": "detailed analysis of communication patterns"
}`

const relationshipPromptTemplate = `Analyze the relationship between these two people based on their profiles and email interactions:

Person A: %s
Person B: %s

Email Interactions Sample:
%s

Return as JSON:
{
  "shared_interests": ["interest1", "interest2"],
  "connection_points": ["point1", "point2"],
  "relationship_strength": {
    "score": 5,
    "reasoning": "brief explanation"
  }
}
The score is an integer from 1 to 10.`

// BuildProfilePrompt renders the profiling prompt for the given participant
// and a pre-rendered block of their emails.
func BuildProfilePrompt(email string, emailBlock string) string {
	return fmt.Sprintf(profilePromptTemplate, email, emailBlock)
}

// BuildRelationshipPrompt renders the pairwise analysis prompt from the two
// participants' profile JSON and a sample of their exchanged emails.
func BuildRelationshipPrompt(profileA, profileB string, interactionBlock string) string {
	return fmt.Sprintf(relationshipPromptTemplate, profileA, profileB, interactionBlock)
}

// TruncateTokens shortens text to at most maxTokens tokens using the
// o200k_base encoding. Text at or under the limit is returned unchanged.
// If the encoding cannot be loaded, the input is returned as is.
func TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}

	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return text
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}

	return strings.TrimSpace(enc.Decode(tokens[:maxTokens]))
}

// CountTokens returns the number of o200k_base tokens in text, or an error
// when the encoding cannot be loaded.
func CountTokens(text string) (int, error) {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
