package accounts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cleared-dev/envelope/internal/model"
)

// ErrDuplicateAccount is returned when an account ID is registered twice.
var ErrDuplicateAccount = errors.New("duplicate account")

// Service provides in-memory lookup over the account registry.
type Service struct {
	accounts []model.Account
	byID     map[string]model.Account
}

// NewService creates a Service from a slice of accounts.
func NewService(accounts []model.Account) *Service {
	byID := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return &Service{accounts: accounts, byID: byID}
}

// Path returns the registry file under a repo root.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, "accounts", "accounts.csv")
}

// Load reads accounts.csv from a repo root and returns a Service.
func Load(repoRoot string) (*Service, error) {
	f, err := os.Open(Path(repoRoot))
	if err != nil {
		return nil, fmt.Errorf("opening accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}
	seen := make(map[string]bool, len(accts))
	for _, a := range accts {
		if seen[a.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAccount, a.ID)
		}
		seen[a.ID] = true
	}
	return NewService(accts), nil
}

// All returns all accounts.
func (s *Service) All() []model.Account {
	return s.accounts
}

// Get returns an account by ID.
func (s *Service) Get(id string) (model.Account, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Exists reports whether an account ID exists.
func (s *Service) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Add validates and registers a new account.
func (s *Service) Add(a model.Account) error {
	if err := model.ValidateAccount(a); err != nil {
		return err
	}
	if s.Exists(a.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateAccount, a.ID)
	}
	s.accounts = append(s.accounts, a)
	s.byID[a.ID] = a
	return nil
}

// ByType returns all accounts of the given type.
func (s *Service) ByType(accountType model.AccountType) []model.Account {
	var result []model.Account
	for _, a := range s.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// ByGroup returns the accounts of a group ordered by group_order. Accounts
// without an order sort last, by ID.
func (s *Service) ByGroup(groupID string) []model.Account {
	var result []model.Account
	for _, a := range s.accounts {
		if a.GroupID == groupID {
			result = append(result, a)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		oi, oj := result[i].GroupOrder, result[j].GroupOrder
		switch {
		case oi != nil && oj != nil && *oi != *oj:
			return *oi < *oj
		case (oi == nil) != (oj == nil):
			return oi != nil
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Groups returns the distinct non-empty group IDs in sorted order.
func (s *Service) Groups() []string {
	seen := make(map[string]bool)
	var groups []string
	for _, a := range s.accounts {
		if a.GroupID != "" && !seen[a.GroupID] {
			seen[a.GroupID] = true
			groups = append(groups, a.GroupID)
		}
	}
	sort.Strings(groups)
	return groups
}

// Save writes the registry to accounts/accounts.csv.
func (s *Service) Save(repoRoot string) error {
	path := Path(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, s.accounts); err != nil {
		return fmt.Errorf("writing accounts: %w", err)
	}
	return nil
}
