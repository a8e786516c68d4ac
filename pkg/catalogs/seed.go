package catalogs

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/legisync/pkg/errors"
)

// Seed is the reference data a catalog needs before bills can be imported:
// the sessions bills are filed under and the people who sponsor them.
type Seed struct {
	Sessions    []*Session       `yaml:"sessions"`
	Politicians []*Politician    `yaml:"politicians"`
	Members     []*ElectedMember `yaml:"members"`
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	for _, s := range seed.Sessions {
		if s.ID == "" {
			s.ID = SessionID(s.ParliamentNumber, s.SessionNumber)
		}
		if s.ParliamentNumber <= 0 || s.SessionNumber <= 0 {
			return nil, errors.NewValidationError("session", s.ID, "parliament and session numbers are required")
		}
	}
	return &seed, nil
}

// LoadSeedFile reads and decodes a YAML seed file.
func LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return ParseSeed(data)
}

// Apply writes the seed through tx. Members reference politicians by ID,
// so politicians are written before members.
func (s *Seed) Apply(ctx context.Context, tx Tx) error {
	for _, session := range s.Sessions {
		if err := tx.SaveSession(ctx, session); err != nil {
			return fmt.Errorf("seeding session %s: %w", session.ID, err)
		}
	}
	for _, politician := range s.Politicians {
		if err := tx.SavePolitician(ctx, politician); err != nil {
			return fmt.Errorf("seeding politician %s: %w", politician.Name, err)
		}
	}
	for _, member := range s.Members {
		if err := tx.SaveElectedMember(ctx, member); err != nil {
			return fmt.Errorf("seeding member of politician %d: %w", member.PoliticianID, err)
		}
	}
	return nil
}
