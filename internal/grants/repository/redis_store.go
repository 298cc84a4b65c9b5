package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/domain"
)

const (
	grantListKey   = "registry:grants" // list of grant records, index = grant id
	grantKeyPrefix = "registry:grant:" // registry:grant:{g}:projects, :accepted, :project:{p}:votes
	acceptedTrue   = "1"
	acceptedFalse  = "0"
)

// RedisStore keeps the registry in redis lists. Grants, projects and votes
// are only ever appended, so an existence check stays true once it passed;
// every write is then a single atomic command. Reads that span several keys
// run inside one MULTI/EXEC.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisGrant struct {
	Funder    domain.Identity `json:"funder"`
	Amount    uint64          `json:"amount"`
	Info      string          `json:"info"`
	CreatedAt time.Time       `json:"created_at"`
}

type redisProject struct {
	Applicant domain.Identity `json:"applicant"`
	Data      string          `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s *RedisStore) CreateGrant(ctx context.Context, g domain.NewGrant) (uint64, error) {
	data, err := json.Marshal(redisGrant{Funder: g.Funder, Amount: g.Amount, Info: g.Info, CreatedAt: g.CreatedAt})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal grant: %w", err)
	}

	n, err := s.client.RPush(ctx, grantListKey, data).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to create grant: %w", err)
	}
	return uint64(n - 1), nil
}

func (s *RedisStore) GrantCount(ctx context.Context) (uint64, error) {
	n, err := s.client.LLen(ctx, grantListKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count grants: %w", err)
	}
	return uint64(n), nil
}

func (s *RedisStore) GetGrant(ctx context.Context, grantID uint64) (*domain.Grant, error) {
	idx, ok := listIndex(grantID)
	if !ok {
		return nil, domain.ErrGrantNotFound
	}

	var (
		raw      *redis.StringCmd
		projects *redis.IntCmd
	)
	err := s.multi(ctx, func(pipe redis.Pipeliner) {
		raw = pipe.LIndex(ctx, grantListKey, idx)
		projects = pipe.LLen(ctx, s.projectsKey(grantID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}

	data, err := raw.Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrGrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}
	return decodeGrant(grantID, data, uint64(projects.Val()))
}

func (s *RedisStore) ListGrants(ctx context.Context, page domain.Page) ([]domain.Grant, error) {
	page = domain.ClampPage(page)
	start, ok := listIndex(page.Offset)
	if !ok {
		return []domain.Grant{}, nil
	}

	var (
		raw    *redis.StringSliceCmd
		counts = make([]*redis.IntCmd, 0, page.Limit)
	)
	err := s.multi(ctx, func(pipe redis.Pipeliner) {
		raw = pipe.LRange(ctx, grantListKey, start, start+int64(page.Limit)-1)
		for i := uint64(0); i < page.Limit; i++ {
			counts = append(counts, pipe.LLen(ctx, s.projectsKey(page.Offset+i)))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}

	items := raw.Val()
	out := make([]domain.Grant, 0, len(items))
	for i, data := range items {
		g, err := decodeGrant(page.Offset+uint64(i), data, uint64(counts[i].Val()))
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, nil
}

func (s *RedisStore) RegisterApplication(ctx context.Context, grantID uint64, p domain.NewProject) (uint64, error) {
	if err := s.requireGrant(ctx, grantID); err != nil {
		return 0, err
	}

	data, err := json.Marshal(redisProject{Applicant: p.Applicant, Data: p.Data, CreatedAt: p.CreatedAt})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal project: %w", err)
	}

	n, err := s.client.RPush(ctx, s.projectsKey(grantID), data).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to register application: %w", err)
	}
	return uint64(n - 1), nil
}

func (s *RedisStore) ProjectCount(ctx context.Context, grantID uint64) (uint64, error) {
	var grants, projects *redis.IntCmd
	err := s.multi(ctx, func(pipe redis.Pipeliner) {
		grants = pipe.LLen(ctx, grantListKey)
		projects = pipe.LLen(ctx, s.projectsKey(grantID))
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	if uint64(grants.Val()) <= grantID {
		return 0, domain.ErrGrantNotFound
	}
	return uint64(projects.Val()), nil
}

func (s *RedisStore) GetProject(ctx context.Context, grantID, projectID uint64) (*domain.Project, error) {
	idx, ok := listIndex(projectID)
	if !ok {
		return nil, s.missing(ctx, grantID)
	}

	var (
		grants   *redis.IntCmd
		raw      *redis.StringCmd
		accepted *redis.StringCmd
		votes    *redis.StringSliceCmd
	)
	err := s.multi(ctx, func(pipe redis.Pipeliner) {
		grants = pipe.LLen(ctx, grantListKey)
		raw = pipe.LIndex(ctx, s.projectsKey(grantID), idx)
		accepted = pipe.HGet(ctx, s.acceptedKey(grantID), projectField(projectID))
		votes = pipe.LRange(ctx, s.votesKey(grantID, projectID), 0, -1)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if uint64(grants.Val()) <= grantID {
		return nil, domain.ErrGrantNotFound
	}

	data, err := raw.Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return decodeProject(grantID, projectID, data, accepted.Val(), votes.Val())
}

func (s *RedisStore) ListProjects(ctx context.Context, grantID uint64, page domain.Page) ([]domain.Project, error) {
	page = domain.ClampPage(page)
	start, ok := listIndex(page.Offset)
	if !ok {
		if err := s.requireGrant(ctx, grantID); err != nil {
			return nil, err
		}
		return []domain.Project{}, nil
	}

	fields := make([]string, 0, page.Limit)
	for i := uint64(0); i < page.Limit; i++ {
		fields = append(fields, projectField(page.Offset+i))
	}

	var (
		grants   *redis.IntCmd
		raw      *redis.StringSliceCmd
		accepted *redis.SliceCmd
		votes    = make([]*redis.StringSliceCmd, 0, page.Limit)
	)
	err := s.multi(ctx, func(pipe redis.Pipeliner) {
		grants = pipe.LLen(ctx, grantListKey)
		raw = pipe.LRange(ctx, s.projectsKey(grantID), start, start+int64(page.Limit)-1)
		accepted = pipe.HMGet(ctx, s.acceptedKey(grantID), fields...)
		for i := uint64(0); i < page.Limit; i++ {
			votes = append(votes, pipe.LRange(ctx, s.votesKey(grantID, page.Offset+i), 0, -1))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if uint64(grants.Val()) <= grantID {
		return nil, domain.ErrGrantNotFound
	}

	flags := accepted.Val()
	items := raw.Val()
	out := make([]domain.Project, 0, len(items))
	for i, data := range items {
		flag, _ := flags[i].(string)
		p, err := decodeProject(grantID, page.Offset+uint64(i), data, flag, votes[i].Val())
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *RedisStore) SetAccepted(ctx context.Context, grantID uint64, projectIDs []uint64, accepted bool) error {
	n, err := s.ProjectCount(ctx, grantID)
	if err != nil {
		return err
	}

	ids := uniqueIDs(projectIDs)
	for _, id := range ids {
		if id >= n {
			return domain.ErrProjectNotFound
		}
	}
	if len(ids) == 0 {
		return nil
	}

	flag := acceptedFalse
	if accepted {
		flag = acceptedTrue
	}
	values := make([]any, 0, 2*len(ids))
	for _, id := range ids {
		values = append(values, projectField(id), flag)
	}

	if err := s.client.HSet(ctx, s.acceptedKey(grantID), values...).Err(); err != nil {
		return fmt.Errorf("failed to update applications: %w", err)
	}
	return nil
}

func (s *RedisStore) AppendVote(ctx context.Context, grantID, projectID uint64, v domain.Vote) error {
	n, err := s.ProjectCount(ctx, grantID)
	if err != nil {
		return err
	}
	if projectID >= n {
		return domain.ErrProjectNotFound
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal vote: %w", err)
	}
	if err := s.client.RPush(ctx, s.votesKey(grantID, projectID), data).Err(); err != nil {
		return fmt.Errorf("failed to append vote: %w", err)
	}
	return nil
}

func (s *RedisStore) ListVotes(ctx context.Context, grantID, projectID uint64) ([]domain.Vote, error) {
	var (
		grants, projects *redis.IntCmd
		votes            *redis.StringSliceCmd
	)
	err := s.multi(ctx, func(pipe redis.Pipeliner) {
		grants = pipe.LLen(ctx, grantListKey)
		projects = pipe.LLen(ctx, s.projectsKey(grantID))
		votes = pipe.LRange(ctx, s.votesKey(grantID, projectID), 0, -1)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	if uint64(grants.Val()) <= grantID {
		return nil, domain.ErrGrantNotFound
	}
	if uint64(projects.Val()) <= projectID {
		return nil, domain.ErrProjectNotFound
	}
	return decodeVotes(votes.Val())
}

// multi queues reads into one MULTI/EXEC. A missing list element (redis.Nil)
// is left on its command for the caller to inspect.
func (s *RedisStore) multi(ctx context.Context, fn func(pipe redis.Pipeliner)) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fn(pipe)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (s *RedisStore) requireGrant(ctx context.Context, grantID uint64) error {
	n, err := s.GrantCount(ctx)
	if err != nil {
		return err
	}
	if grantID >= n {
		return domain.ErrGrantNotFound
	}
	return nil
}

func (s *RedisStore) missing(ctx context.Context, grantID uint64) error {
	if err := s.requireGrant(ctx, grantID); err != nil {
		return err
	}
	return domain.ErrProjectNotFound
}

// Helper methods for key generation
func (s *RedisStore) projectsKey(grantID uint64) string {
	return fmt.Sprintf("%s%d:projects", grantKeyPrefix, grantID)
}

func (s *RedisStore) acceptedKey(grantID uint64) string {
	return fmt.Sprintf("%s%d:accepted", grantKeyPrefix, grantID)
}

func (s *RedisStore) votesKey(grantID, projectID uint64) string {
	return fmt.Sprintf("%s%d:project:%d:votes", grantKeyPrefix, grantID, projectID)
}

func projectField(projectID uint64) string {
	return strconv.FormatUint(projectID, 10)
}

// listIndex converts an id to a redis list index; ids beyond int64 cannot
// exist and would otherwise wrap into negative (from-the-end) indices.
func listIndex(id uint64) (int64, bool) {
	if id > math.MaxInt64 {
		return 0, false
	}
	return int64(id), true
}

func decodeGrant(id uint64, data string, projects uint64) (*domain.Grant, error) {
	var rg redisGrant
	if err := json.Unmarshal([]byte(data), &rg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal grant %d: %w", id, err)
	}
	return &domain.Grant{
		ID:           id,
		Funder:       rg.Funder,
		Amount:       rg.Amount,
		Info:         rg.Info,
		ProjectCount: projects,
		CreatedAt:    rg.CreatedAt,
	}, nil
}

func decodeProject(grantID, projectID uint64, data, accepted string, votes []string) (*domain.Project, error) {
	var rp redisProject
	if err := json.Unmarshal([]byte(data), &rp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project %d/%d: %w", grantID, projectID, err)
	}
	vs, err := decodeVotes(votes)
	if err != nil {
		return nil, err
	}
	return &domain.Project{
		ID:         projectID,
		GrantID:    grantID,
		Applicant:  rp.Applicant,
		Data:       rp.Data,
		IsAccepted: accepted == acceptedTrue,
		Votes:      vs,
		CreatedAt:  rp.CreatedAt,
	}, nil
}

func decodeVotes(items []string) ([]domain.Vote, error) {
	out := make([]domain.Vote, 0, len(items))
	for _, data := range items {
		var v domain.Vote
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vote: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
