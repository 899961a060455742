package common

import (
	"time"
)

// Address is a parsed mail address with an optional display name.
// Email is always lowercase.
type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// NormalizedEmail is a mail message reduced to the fields the analysis
// pipeline needs. Body holds the decoded plain-text content, which may be
// empty when no text part could be extracted.
type NormalizedEmail struct {
	MessageID  string    `json:"messageId"`
	ThreadID   string    `json:"threadId"`
	Sender     Address   `json:"sender"`
	Recipients []Address `json:"recipients"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Date       time.Time `json:"date"`
	RawKey     string    `json:"rawKey,omitempty"`
}

// Involves reports whether the given email address is the sender or one of
// the recipients of the message.
func (e NormalizedEmail) Involves(email string) bool {
	if e.Sender.Email == email {
		return true
	}
	for _, r := range e.Recipients {
		if r.Email == email {
			return true
		}
	}
	return false
}

// Between reports whether the message is a direct interaction between the
// two given addresses, in either direction.
func (e NormalizedEmail) Between(a, b string) bool {
	if e.Sender.Email == a {
		for _, r := range e.Recipients {
			if r.Email == b {
				return true
			}
		}
	}
	if e.Sender.Email == b {
		for _, r := range e.Recipients {
			if r.Email == a {
				return true
			}
		}
	}
	return false
}

// Participant is a unique person appearing in the analyzed mailbox.
type Participant struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Profile describes a single participant, as inferred from the messages
// they sent or received.
type Profile struct {
	Email              string    `json:"email"`
	Name               string    `json:"name,omitempty"`
	Characteristics    string    `json:"characteristics"`
	Demeanor           string    `json:"demeanor"`
	CommunicationStyle string    `json:"communication_style"`
	Interests          []string  `json:"interests"`
	PersonalityTraits  []string  `json:"personality_traits"`
	UpdatedAt          time.Time `json:"updatedAt,omitempty"`
}

// StrengthScore is a numeric relationship rating with the model's reasoning.
type StrengthScore struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// Relationship is the analyzed connection between two participants.
// Source and Target are stored in canonical order (lexicographically sorted),
// so each pair appears exactly once.
type Relationship struct {
	Source           string        `json:"source"`
	Target           string        `json:"target"`
	SharedInterests  []string      `json:"shared_interests"`
	ConnectionPoints []string      `json:"connection_points"`
	Strength         StrengthScore `json:"relationship_strength"`
	EmailCount       int           `json:"emailCount"`
	LastInteraction  time.Time     `json:"lastInteraction"`
	Embedding        []float32     `json:"-"`
	UpdatedAt        time.Time     `json:"updatedAt,omitempty"`
}

// PairKey returns the canonical identifier of a pair of addresses, with the
// lexicographically smaller address first.
func PairKey(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// GraphNode is a participant in the rendered relationship graph.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// GraphEdge is a connection between two participants in the rendered graph.
type GraphEdge struct {
	Source           string   `json:"source"`
	Target           string   `json:"target"`
	Value            int      `json:"value"`
	Strength         int      `json:"strength"`
	ConnectionPoints []string `json:"connection_points"`
}

// GraphView is the projection of analyzed relationships into a renderable
// node/edge structure.
type GraphView struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}
