package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/domain"
)

// grantsLockKey is the advisory lock serializing grant id allocation.
const grantsLockKey int64 = 0x6772616e7473

// PostgresStore persists the registry in the grants, grant_projects and
// project_votes tables. Dense ids are computed as MAX(id)+1 while holding a
// lock on the parent (an advisory lock for grants, the grant row for
// projects, the project row for votes), so concurrent writers queue up
// instead of colliding.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) CreateGrant(ctx context.Context, g domain.NewGrant) (uint64, error) {
	const q = `
INSERT INTO grants (id, funder, amount, info, created_at)
SELECT COALESCE(MAX(id) + 1, 0), $1, $2::numeric, $3, $4 FROM grants
RETURNING id;
`
	var id int64
	err := s.writeTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1);`, grantsLockKey); err != nil {
			return fmt.Errorf("lock grants: %w", err)
		}
		if err := tx.QueryRowContext(ctx, q, g.Funder.String(), strconv.FormatUint(g.Amount, 10), g.Info, g.CreatedAt).Scan(&id); err != nil {
			return fmt.Errorf("insert grant: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (s *PostgresStore) GrantCount(ctx context.Context) (uint64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grants;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count grants: %w", err)
	}
	return uint64(n), nil
}

const grantColumns = `
SELECT g.id, g.funder, g.amount::text, g.info, g.created_at,
       (SELECT COUNT(*) FROM grant_projects p WHERE p.grant_id = g.id)
FROM grants g
`

func (s *PostgresStore) GetGrant(ctx context.Context, grantID uint64) (*domain.Grant, error) {
	row := s.db.QueryRowContext(ctx, grantColumns+`WHERE g.id = $1;`, int64(grantID))
	g, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGrantNotFound
		}
		return nil, fmt.Errorf("get grant: %w", err)
	}
	return g, nil
}

func (s *PostgresStore) ListGrants(ctx context.Context, page domain.Page) ([]domain.Grant, error) {
	page = domain.ClampPage(page)
	rows, err := s.db.QueryContext(ctx, grantColumns+`ORDER BY g.id OFFSET $1 LIMIT $2;`, int64(page.Offset), int64(page.Limit))
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Grant, 0, page.Limit)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) RegisterApplication(ctx context.Context, grantID uint64, p domain.NewProject) (uint64, error) {
	const q = `
INSERT INTO grant_projects (grant_id, id, applicant, data, created_at)
SELECT $1::bigint, COALESCE(MAX(id) + 1, 0), $2, $3, $4
FROM grant_projects
WHERE grant_id = $1
RETURNING id;
`
	var id int64
	err := s.writeTx(ctx, func(tx *sql.Tx) error {
		var locked int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM grants WHERE id = $1 FOR NO KEY UPDATE;`, int64(grantID)).Scan(&locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrGrantNotFound
			}
			return fmt.Errorf("lock grant: %w", err)
		}
		if err := tx.QueryRowContext(ctx, q, int64(grantID), p.Applicant.String(), p.Data, p.CreatedAt).Scan(&id); err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (s *PostgresStore) ProjectCount(ctx context.Context, grantID uint64) (uint64, error) {
	const q = `
SELECT (SELECT COUNT(*) FROM grant_projects p WHERE p.grant_id = g.id)
FROM grants g
WHERE g.id = $1;
`
	var n int64
	if err := s.db.QueryRowContext(ctx, q, int64(grantID)).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrGrantNotFound
		}
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return uint64(n), nil
}

func (s *PostgresStore) GetProject(ctx context.Context, grantID, projectID uint64) (*domain.Project, error) {
	var out *domain.Project
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		const q = `
SELECT applicant, data, is_accepted, created_at
FROM grant_projects
WHERE grant_id = $1 AND id = $2;
`
		p := domain.Project{ID: projectID, GrantID: grantID}
		var applicant string
		err := tx.QueryRowContext(ctx, q, int64(grantID), int64(projectID)).
			Scan(&applicant, &p.Data, &p.IsAccepted, &p.CreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return missing(ctx, tx, grantID)
			}
			return fmt.Errorf("get project: %w", err)
		}
		p.Applicant = domain.Identity(applicant)

		p.Votes, err = queryVotes(ctx, tx, grantID, projectID)
		if err != nil {
			return err
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, grantID uint64, page domain.Page) ([]domain.Project, error) {
	page = domain.ClampPage(page)

	var out []domain.Project
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM grants WHERE id = $1);`, int64(grantID)).Scan(&exists); err != nil {
			return fmt.Errorf("check grant: %w", err)
		}
		if !exists {
			return domain.ErrGrantNotFound
		}

		const q = `
SELECT id, applicant, data, is_accepted, created_at
FROM grant_projects
WHERE grant_id = $1
ORDER BY id
OFFSET $2 LIMIT $3;
`
		rows, err := tx.QueryContext(ctx, q, int64(grantID), int64(page.Offset), int64(page.Limit))
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		defer rows.Close()

		out = make([]domain.Project, 0, page.Limit)
		index := make(map[uint64]int)
		for rows.Next() {
			var (
				id        int64
				applicant string
				p         domain.Project
			)
			if err := rows.Scan(&id, &applicant, &p.Data, &p.IsAccepted, &p.CreatedAt); err != nil {
				return fmt.Errorf("scan project: %w", err)
			}
			p.ID = uint64(id)
			p.GrantID = grantID
			p.Applicant = domain.Identity(applicant)
			p.Votes = []domain.Vote{}
			index[p.ID] = len(out)
			out = append(out, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(out) == 0 {
			return nil
		}

		const vq = `
SELECT project_id, voter, message
FROM project_votes
WHERE grant_id = $1 AND project_id >= $2 AND project_id <= $3
ORDER BY project_id, seq;
`
		vrows, err := tx.QueryContext(ctx, vq, int64(grantID), int64(out[0].ID), int64(out[len(out)-1].ID))
		if err != nil {
			return fmt.Errorf("list votes: %w", err)
		}
		defer vrows.Close()

		for vrows.Next() {
			var (
				projectID int64
				voter     string
				v         domain.Vote
			)
			if err := vrows.Scan(&projectID, &voter, &v.Message); err != nil {
				return fmt.Errorf("scan vote: %w", err)
			}
			v.Voter = domain.Identity(voter)
			if i, ok := index[uint64(projectID)]; ok {
				out[i].Votes = append(out[i].Votes, v)
			}
		}
		return vrows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) SetAccepted(ctx context.Context, grantID uint64, projectIDs []uint64, accepted bool) error {
	return s.writeTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM grants WHERE id = $1);`, int64(grantID)).Scan(&exists); err != nil {
			return fmt.Errorf("check grant: %w", err)
		}
		if !exists {
			return domain.ErrGrantNotFound
		}

		ids := uniqueIDs(projectIDs)
		if len(ids) == 0 {
			return nil
		}
		arg := make([]int64, len(ids))
		for i, id := range ids {
			arg[i] = int64(id)
		}

		const q = `
UPDATE grant_projects
SET is_accepted = $2, updated_at = now()
WHERE grant_id = $1 AND id = ANY($3);
`
		res, err := tx.ExecContext(ctx, q, int64(grantID), accepted, pq.Array(arg))
		if err != nil {
			return fmt.Errorf("update projects: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return domain.ErrProjectNotFound
		}
		return nil
	})
}

func (s *PostgresStore) AppendVote(ctx context.Context, grantID, projectID uint64, v domain.Vote) error {
	const q = `
INSERT INTO project_votes (grant_id, project_id, seq, voter, message)
SELECT $1::bigint, $2::bigint, COALESCE(MAX(seq) + 1, 0), $3, $4
FROM project_votes
WHERE grant_id = $1 AND project_id = $2;
`
	return s.writeTx(ctx, func(tx *sql.Tx) error {
		var locked int64
		const lq = `SELECT id FROM grant_projects WHERE grant_id = $1 AND id = $2 FOR NO KEY UPDATE;`
		err := tx.QueryRowContext(ctx, lq, int64(grantID), int64(projectID)).Scan(&locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return missing(ctx, tx, grantID)
			}
			return fmt.Errorf("lock project: %w", err)
		}
		if _, err := tx.ExecContext(ctx, q, int64(grantID), int64(projectID), v.Voter.String(), v.Message); err != nil {
			return fmt.Errorf("insert vote: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ListVotes(ctx context.Context, grantID, projectID uint64) ([]domain.Vote, error) {
	var out []domain.Vote
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		const q = `SELECT EXISTS(SELECT 1 FROM grant_projects WHERE grant_id = $1 AND id = $2);`
		if err := tx.QueryRowContext(ctx, q, int64(grantID), int64(projectID)).Scan(&exists); err != nil {
			return fmt.Errorf("check project: %w", err)
		}
		if !exists {
			return missing(ctx, tx, grantID)
		}

		var err error
		out, err = queryVotes(ctx, tx, grantID, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// writeTx runs fn in a read-committed transaction. Each statement after a
// lock sees rows committed by the writer that held it before.
func (s *PostgresStore) writeTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// readTx runs fn in a read-only repeatable-read transaction so multi-query
// reads see one snapshot.
func (s *PostgresStore) readTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func queryVotes(ctx context.Context, q queryer, grantID, projectID uint64) ([]domain.Vote, error) {
	const vq = `
SELECT voter, message
FROM project_votes
WHERE grant_id = $1 AND project_id = $2
ORDER BY seq;
`
	rows, err := q.QueryContext(ctx, vq, int64(grantID), int64(projectID))
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Vote, 0, 8)
	for rows.Next() {
		var (
			voter string
			v     domain.Vote
		)
		if err := rows.Scan(&voter, &v.Message); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		v.Voter = domain.Identity(voter)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// missing tells a missing grant apart from a missing project in an
// existing grant.
func missing(ctx context.Context, q queryer, grantID uint64) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM grants WHERE id = $1);`, int64(grantID)).Scan(&exists); err != nil {
		return fmt.Errorf("check grant: %w", err)
	}
	if !exists {
		return domain.ErrGrantNotFound
	}
	return domain.ErrProjectNotFound
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrant(row rowScanner) (*domain.Grant, error) {
	var (
		g              domain.Grant
		id, projects   int64
		funder, amount string
	)
	if err := row.Scan(&id, &funder, &amount, &g.Info, &g.CreatedAt, &projects); err != nil {
		return nil, err
	}
	n, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	g.ID = uint64(id)
	g.Funder = domain.Identity(funder)
	g.Amount = n
	g.ProjectCount = uint64(projects)
	return &g, nil
}
