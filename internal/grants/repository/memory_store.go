package repository

import (
	"context"
	"sync"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/domain"
)

// MemoryStore keeps the registry in process memory. Reads return copies so
// callers never alias stored records.
type MemoryStore struct {
	mu     sync.RWMutex
	grants []memGrant
}

type memGrant struct {
	grant    domain.Grant
	projects []domain.Project
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) CreateGrant(_ context.Context, g domain.NewGrant) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uint64(len(s.grants))
	s.grants = append(s.grants, memGrant{
		grant: domain.Grant{
			ID:        id,
			Funder:    g.Funder,
			Amount:    g.Amount,
			Info:      g.Info,
			CreatedAt: g.CreatedAt,
		},
	})
	return id, nil
}

func (s *MemoryStore) GrantCount(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.grants)), nil
}

func (s *MemoryStore) GetGrant(_ context.Context, grantID uint64) (*domain.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mg, err := s.grantLocked(grantID)
	if err != nil {
		return nil, err
	}
	g := mg.snapshot()
	return &g, nil
}

func (s *MemoryStore) ListGrants(_ context.Context, page domain.Page) ([]domain.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start, end := domain.ClampPage(page).Window(uint64(len(s.grants)))
	out := make([]domain.Grant, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, s.grants[i].snapshot())
	}
	return out, nil
}

func (s *MemoryStore) RegisterApplication(_ context.Context, grantID uint64, p domain.NewProject) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mg, err := s.grantLocked(grantID)
	if err != nil {
		return 0, err
	}

	id := uint64(len(mg.projects))
	mg.projects = append(mg.projects, domain.Project{
		ID:        id,
		GrantID:   grantID,
		Applicant: p.Applicant,
		Data:      p.Data,
		CreatedAt: p.CreatedAt,
	})
	return id, nil
}

func (s *MemoryStore) ProjectCount(_ context.Context, grantID uint64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mg, err := s.grantLocked(grantID)
	if err != nil {
		return 0, err
	}
	return uint64(len(mg.projects)), nil
}

func (s *MemoryStore) GetProject(_ context.Context, grantID, projectID uint64) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.projectLocked(grantID, projectID)
	if err != nil {
		return nil, err
	}
	cp := copyProject(*p)
	return &cp, nil
}

func (s *MemoryStore) ListProjects(_ context.Context, grantID uint64, page domain.Page) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mg, err := s.grantLocked(grantID)
	if err != nil {
		return nil, err
	}

	start, end := domain.ClampPage(page).Window(uint64(len(mg.projects)))
	out := make([]domain.Project, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, copyProject(mg.projects[i]))
	}
	return out, nil
}

func (s *MemoryStore) SetAccepted(_ context.Context, grantID uint64, projectIDs []uint64, accepted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mg, err := s.grantLocked(grantID)
	if err != nil {
		return err
	}
	// validate everything before touching anything
	for _, id := range projectIDs {
		if id >= uint64(len(mg.projects)) {
			return domain.ErrProjectNotFound
		}
	}
	for _, id := range projectIDs {
		mg.projects[id].IsAccepted = accepted
	}
	return nil
}

func (s *MemoryStore) AppendVote(_ context.Context, grantID, projectID uint64, v domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectLocked(grantID, projectID)
	if err != nil {
		return err
	}
	p.Votes = append(p.Votes, v)
	return nil
}

func (s *MemoryStore) ListVotes(_ context.Context, grantID, projectID uint64) ([]domain.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.projectLocked(grantID, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Vote, len(p.Votes))
	copy(out, p.Votes)
	return out, nil
}

func (s *MemoryStore) grantLocked(grantID uint64) (*memGrant, error) {
	if grantID >= uint64(len(s.grants)) {
		return nil, domain.ErrGrantNotFound
	}
	return &s.grants[grantID], nil
}

func (s *MemoryStore) projectLocked(grantID, projectID uint64) (*domain.Project, error) {
	mg, err := s.grantLocked(grantID)
	if err != nil {
		return nil, err
	}
	if projectID >= uint64(len(mg.projects)) {
		return nil, domain.ErrProjectNotFound
	}
	return &mg.projects[projectID], nil
}

func (mg *memGrant) snapshot() domain.Grant {
	g := mg.grant
	g.ProjectCount = uint64(len(mg.projects))
	return g
}

func copyProject(p domain.Project) domain.Project {
	votes := make([]domain.Vote, len(p.Votes))
	copy(votes, p.Votes)
	p.Votes = votes
	return p
}
