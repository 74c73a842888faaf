// Package envelopes is the registry of budget envelopes, stored as
// envelopes/envelopes.yaml.
package envelopes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cleared-dev/envelope/internal/model"
)

var (
	// ErrDuplicateEnvelope is returned when an envelope ID is registered twice.
	ErrDuplicateEnvelope = errors.New("duplicate envelope")
	// ErrUnknownEnvelope is returned for a category that names no envelope.
	ErrUnknownEnvelope = errors.New("unknown envelope")
)

// Service provides in-memory lookup over the envelope registry.
type Service struct {
	envelopes []model.Envelope
	byID      map[string]model.Envelope
}

// NewService creates a Service from a slice of envelopes.
func NewService(envs []model.Envelope) *Service {
	byID := make(map[string]model.Envelope, len(envs))
	for _, e := range envs {
		byID[e.ID] = e
	}
	return &Service{envelopes: envs, byID: byID}
}

// Path returns the registry file under a repo root.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, "envelopes", "envelopes.yaml")
}

// Load reads envelopes.yaml from a repo root.
func Load(repoRoot string) (*Service, error) {
	data, err := os.ReadFile(Path(repoRoot))
	if err != nil {
		return nil, fmt.Errorf("reading envelopes: %w", err)
	}
	envs, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(envs))
	for _, e := range envs {
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEnvelope, e.ID)
		}
		seen[e.ID] = true
	}
	return NewService(envs), nil
}

// Save writes the registry to envelopes/envelopes.yaml.
func (s *Service) Save(repoRoot string) error {
	path := Path(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating envelopes dir: %w", err)
	}
	data, err := Marshal(s.envelopes)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing envelopes: %w", err)
	}
	return nil
}

// All returns all envelopes.
func (s *Service) All() []model.Envelope {
	return s.envelopes
}

// Active returns the envelopes that are not archived.
func (s *Service) Active() []model.Envelope {
	var out []model.Envelope
	for _, e := range s.envelopes {
		if e.Status == model.EnvelopeActive {
			out = append(out, e)
		}
	}
	return out
}

// Get returns an envelope by ID.
func (s *Service) Get(id string) (model.Envelope, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// Exists reports whether an envelope ID exists.
func (s *Service) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// CheckCategory accepts the empty category and any registered envelope.
func (s *Service) CheckCategory(id string) error {
	if id == "" || s.Exists(id) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownEnvelope, id)
}

// Add validates and registers a new envelope.
func (s *Service) Add(e model.Envelope) error {
	if err := model.ValidateEnvelope(e); err != nil {
		return err
	}
	if s.Exists(e.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateEnvelope, e.ID)
	}
	s.envelopes = append(s.envelopes, e)
	s.byID[e.ID] = e
	return nil
}
