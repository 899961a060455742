package graph

import (
	"github.com/inboxgraph/backend/pkg/common"
)

// ExtractParticipants derives the deduplicated set of participants from a
// collection of normalized emails, registering the sender and every
// recipient. The address is the identity key; display names follow
// last-write-wins when the same address appears with different names.
// Output order is first-insertion order.
func ExtractParticipants(emails []common.NormalizedEmail) []common.Participant {
	byEmail := make(map[string]int, len(emails))
	var out []common.Participant

	register := func(addr common.Address) {
		if addr.Email == "" {
			return
		}
		if idx, ok := byEmail[addr.Email]; ok {
			if addr.Name != "" {
				out[idx].Name = addr.Name
			}
			return
		}
		byEmail[addr.Email] = len(out)
		out = append(out, common.Participant{Email: addr.Email, Name: addr.Name})
	}

	for _, email := range emails {
		register(email.Sender)
		for _, r := range email.Recipients {
			register(r)
		}
	}
	return out
}

// emailsInvolving returns the subset of emails where the given address is
// the sender or a recipient, in input order.
func emailsInvolving(emails []common.NormalizedEmail, address string) []common.NormalizedEmail {
	var out []common.NormalizedEmail
	for _, email := range emails {
		if email.Involves(address) {
			out = append(out, email)
		}
	}
	return out
}

// interactionsBetween returns the emails exchanged directly between the two
// addresses, in either direction, in input order.
func interactionsBetween(emails []common.NormalizedEmail, a, b string) []common.NormalizedEmail {
	var out []common.NormalizedEmail
	for _, email := range emails {
		if email.Between(a, b) {
			out = append(out, email)
		}
	}
	return out
}
