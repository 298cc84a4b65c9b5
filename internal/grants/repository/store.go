package repository

import (
	"context"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/domain"
)

// Store is the persistent state of the grant registry. Every write is
// atomic: it is either fully applied or rejected with no change. Grant and
// project ids are dense indices assigned in creation order.
type Store interface {
	CreateGrant(ctx context.Context, g domain.NewGrant) (uint64, error)
	GrantCount(ctx context.Context) (uint64, error)
	GetGrant(ctx context.Context, grantID uint64) (*domain.Grant, error)
	ListGrants(ctx context.Context, page domain.Page) ([]domain.Grant, error)

	RegisterApplication(ctx context.Context, grantID uint64, p domain.NewProject) (uint64, error)
	ProjectCount(ctx context.Context, grantID uint64) (uint64, error)
	GetProject(ctx context.Context, grantID, projectID uint64) (*domain.Project, error)
	ListProjects(ctx context.Context, grantID uint64, page domain.Page) ([]domain.Project, error)

	// SetAccepted assigns accepted to every listed project, or to none of
	// them when any id is unknown.
	SetAccepted(ctx context.Context, grantID uint64, projectIDs []uint64, accepted bool) error

	AppendVote(ctx context.Context, grantID, projectID uint64, v domain.Vote) error
	ListVotes(ctx context.Context, grantID, projectID uint64) ([]domain.Vote, error)
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
