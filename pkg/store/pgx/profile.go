package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inboxgraph/backend/internal/util"
	"github.com/inboxgraph/backend/pkg/common"
)

// UpsertProfile stores a participant profile, replacing any previous profile
// for the same address.
func (s *MailDBStorage) UpsertProfile(ctx context.Context, profile common.Profile) error {
	interests, err := json.Marshal(profile.Interests)
	if err != nil {
		return fmt.Errorf("marshal interests for %s: %w", profile.Email, err)
	}
	traits, err := json.Marshal(profile.PersonalityTraits)
	if err != nil {
		return fmt.Errorf("marshal traits for %s: %w", profile.Email, err)
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO profiles (
			email, name, characteristics, demeanor,
			communication_style, interests, personality_traits, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			characteristics = EXCLUDED.characteristics,
			demeanor = EXCLUDED.demeanor,
			communication_style = EXCLUDED.communication_style,
			interests = EXCLUDED.interests,
			personality_traits = EXCLUDED.personality_traits,
			updated_at = now()
	`,
		profile.Email,
		util.SanitizePostgresText(profile.Name),
		util.SanitizePostgresText(profile.Characteristics),
		util.SanitizePostgresText(profile.Demeanor),
		util.SanitizePostgresText(profile.CommunicationStyle),
		interests,
		traits,
	)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", profile.Email, err)
	}
	return nil
}

// ListProfiles returns all stored participant profiles ordered by address.
func (s *MailDBStorage) ListProfiles(ctx context.Context) ([]common.Profile, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT email, name, characteristics, demeanor,
			communication_style, interests, personality_traits, updated_at
		FROM profiles
		ORDER BY email ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.Profile
	for rows.Next() {
		var (
			p         common.Profile
			interests []byte
			traits    []byte
		)
		err := rows.Scan(
			&p.Email,
			&p.Name,
			&p.Characteristics,
			&p.Demeanor,
			&p.CommunicationStyle,
			&interests,
			&traits,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(interests) > 0 {
			if err := json.Unmarshal(interests, &p.Interests); err != nil {
				return nil, fmt.Errorf("unmarshal interests for %s: %w", p.Email, err)
			}
		}
		if len(traits) > 0 {
			if err := json.Unmarshal(traits, &p.PersonalityTraits); err != nil {
				return nil, fmt.Errorf("unmarshal traits for %s: %w", p.Email, err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
