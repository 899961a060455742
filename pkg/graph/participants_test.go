package graph

import (
	"testing"

	"github.com/inboxgraph/backend/pkg/common"
)

func interaction(from string, to ...string) common.NormalizedEmail {
	recipients := make([]common.Address, 0, len(to))
	for _, r := range to {
		recipients = append(recipients, common.Address{Email: r})
	}
	return common.NormalizedEmail{
		Sender:     common.Address{Email: from},
		Recipients: recipients,
	}
}

func TestExtractParticipants(t *testing.T) {
	emails := []common.NormalizedEmail{
		interaction("alice@example.com", "bob@example.com"),
		interaction("bob@example.com", "alice@example.com", "carol@example.com"),
		interaction("carol@example.com", "alice@example.com"),
	}

	got := ExtractParticipants(emails)
	wantOrder := []string{"alice@example.com", "bob@example.com", "carol@example.com"}
	if len(got) != len(wantOrder) {
		t.Fatalf("ExtractParticipants() returned %d participants, want %d", len(got), len(wantOrder))
	}
	for i, p := range got {
		if p.Email != wantOrder[i] {
			t.Fatalf("ExtractParticipants()[%d] = %q, want %q", i, p.Email, wantOrder[i])
		}
	}
}

func TestExtractParticipants_NameLastWriteWins(t *testing.T) {
	emails := []common.NormalizedEmail{
		{
			Sender:     common.Address{Name: "A. Smith", Email: "alice@example.com"},
			Recipients: []common.Address{{Email: "bob@example.com"}},
		},
		{
			Sender:     common.Address{Email: "bob@example.com"},
			Recipients: []common.Address{{Name: "Alice Smith", Email: "alice@example.com"}},
		},
	}

	got := ExtractParticipants(emails)
	if len(got) != 2 {
		t.Fatalf("ExtractParticipants() returned %d participants, want 2", len(got))
	}
	if got[0].Name != "Alice Smith" {
		t.Fatalf("ExtractParticipants() name = %q, want Alice Smith", got[0].Name)
	}
}

func TestExtractParticipants_SkipsEmptyAddresses(t *testing.T) {
	emails := []common.NormalizedEmail{
		{
			Sender:     common.Address{Email: "alice@example.com"},
			Recipients: []common.Address{{Name: "No Address"}, {Email: "bob@example.com"}},
		},
	}

	got := ExtractParticipants(emails)
	if len(got) != 2 {
		t.Fatalf("ExtractParticipants() returned %d participants, want 2", len(got))
	}
}

func TestEmailsInvolving(t *testing.T) {
	emails := []common.NormalizedEmail{
		interaction("alice@example.com", "bob@example.com"),
		interaction("bob@example.com", "carol@example.com"),
		interaction("carol@example.com", "alice@example.com"),
	}

	got := emailsInvolving(emails, "alice@example.com")
	if len(got) != 2 {
		t.Fatalf("emailsInvolving() returned %d emails, want 2", len(got))
	}
}

func TestInteractionsBetween(t *testing.T) {
	emails := []common.NormalizedEmail{
		interaction("alice@example.com", "bob@example.com"),
		interaction("bob@example.com", "alice@example.com", "carol@example.com"),
		interaction("bob@example.com", "carol@example.com"),
		interaction("carol@example.com", "alice@example.com"),
	}

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{name: "both directions", a: "alice@example.com", b: "bob@example.com", want: 2},
		{name: "order independent", a: "bob@example.com", b: "alice@example.com", want: 2},
		{name: "via recipients only", a: "carol@example.com", b: "alice@example.com", want: 1},
		{name: "no direct interaction", a: "alice@example.com", b: "dave@example.com", want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := interactionsBetween(emails, tc.a, tc.b)
			if len(got) != tc.want {
				t.Fatalf("interactionsBetween(%s, %s) = %d emails, want %d", tc.a, tc.b, len(got), tc.want)
			}
		})
	}
}
