package repository

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/domain"
)

const (
	owner = domain.Identity("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	addr1 = domain.Identity("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	addr2 = domain.Identity("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func setupTestRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"redis":  func(t *testing.T) Store { return NewRedisStore(setupTestRedis(t)) },
	}
}

func newGrant(amount uint64, info string) domain.NewGrant {
	return domain.NewGrant{Funder: addr1, Amount: amount, Info: info, CreatedAt: time.Now().UTC()}
}

func newProject(data string) domain.NewProject {
	return domain.NewProject{Applicant: addr2, Data: data, CreatedAt: time.Now().UTC()}
}

func TestStores(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			runStoreSuite(t, factory)
		})
	}
}

func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("grant ids are dense and ordered", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 5; i++ {
			id, err := s.CreateGrant(ctx, newGrant(uint64(100*i), "Info"))
			require.NoError(t, err)
			assert.Equal(t, uint64(i), id)
		}
		n, err := s.GrantCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), n)

		g, err := s.GetGrant(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), g.ID)
		assert.Equal(t, uint64(300), g.Amount)
		assert.Equal(t, addr1, g.Funder)
		assert.Equal(t, "Info", g.Info)

		_, err = s.GetGrant(ctx, 5)
		assert.ErrorIs(t, err, domain.ErrGrantNotFound)
	})

	t.Run("register only touches its grant", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateGrant(ctx, newGrant(1000, "a"))
		require.NoError(t, err)
		_, err = s.CreateGrant(ctx, newGrant(2000, "b"))
		require.NoError(t, err)

		pid, err := s.RegisterApplication(ctx, 0, newProject(`{"name":"Project 1"}`))
		require.NoError(t, err)
		assert.Equal(t, uint64(0), pid)
		pid, err = s.RegisterApplication(ctx, 0, newProject(`{"name":"Project 2"}`))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), pid)

		n, err := s.ProjectCount(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), n)
		n, err = s.ProjectCount(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), n)

		g, err := s.GetGrant(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), g.ProjectCount)

		_, err = s.RegisterApplication(ctx, 7, newProject("x"))
		assert.ErrorIs(t, err, domain.ErrGrantNotFound)
		_, err = s.ProjectCount(ctx, 7)
		assert.ErrorIs(t, err, domain.ErrGrantNotFound)
	})

	t.Run("fresh project is not accepted", func(t *testing.T) {
		s := newStore(t)
		_, _ = s.CreateGrant(ctx, newGrant(1000, "Info"))
		_, err := s.RegisterApplication(ctx, 0, newProject(`{"name":"Project 1"}`))
		require.NoError(t, err)

		p, err := s.GetProject(ctx, 0, 0)
		require.NoError(t, err)
		assert.False(t, p.IsAccepted)
		assert.Equal(t, addr2, p.Applicant)
		assert.Equal(t, `{"name":"Project 1"}`, p.Data)
		assert.Empty(t, p.Votes)
	})

	t.Run("approve and deny are last write wins", func(t *testing.T) {
		s := newStore(t)
		_, _ = s.CreateGrant(ctx, newGrant(1000, "Info"))
		_, _ = s.RegisterApplication(ctx, 0, newProject("p0"))
		_, _ = s.RegisterApplication(ctx, 0, newProject("p1"))

		require.NoError(t, s.SetAccepted(ctx, 0, []uint64{0, 1}, true))
		p, err := s.GetProject(ctx, 0, 1)
		require.NoError(t, err)
		assert.True(t, p.IsAccepted)

		require.NoError(t, s.SetAccepted(ctx, 0, []uint64{1}, false))
		p, err = s.GetProject(ctx, 0, 1)
		require.NoError(t, err)
		assert.False(t, p.IsAccepted)

		p, err = s.GetProject(ctx, 0, 0)
		require.NoError(t, err)
		assert.True(t, p.IsAccepted)
	})

	t.Run("batch approve is all or nothing", func(t *testing.T) {
		s := newStore(t)
		_, _ = s.CreateGrant(ctx, newGrant(1000, "Info"))
		_, _ = s.RegisterApplication(ctx, 0, newProject("p0"))

		err := s.SetAccepted(ctx, 0, []uint64{0, 4}, true)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)

		p, err := s.GetProject(ctx, 0, 0)
		require.NoError(t, err)
		assert.False(t, p.IsAccepted)

		assert.ErrorIs(t, s.SetAccepted(ctx, 3, []uint64{0}, true), domain.ErrGrantNotFound)
		assert.NoError(t, s.SetAccepted(ctx, 0, nil, true))
		assert.NoError(t, s.SetAccepted(ctx, 0, []uint64{0, 0}, true))
	})

	t.Run("votes keep insertion order", func(t *testing.T) {
		s := newStore(t)
		_, _ = s.CreateGrant(ctx, newGrant(1000, "Info"))
		_, _ = s.RegisterApplication(ctx, 0, newProject("p0"))

		require.NoError(t, s.AppendVote(ctx, 0, 0, domain.Vote{Voter: owner, Message: "Good project"}))
		require.NoError(t, s.AppendVote(ctx, 0, 0, domain.Vote{Voter: owner, Message: "again"}))
		require.NoError(t, s.AppendVote(ctx, 0, 0, domain.Vote{Voter: addr1, Message: "third"}))

		votes, err := s.ListVotes(ctx, 0, 0)
		require.NoError(t, err)
		require.Len(t, votes, 3)
		assert.Equal(t, domain.Vote{Voter: owner, Message: "Good project"}, votes[0])
		assert.Equal(t, "again", votes[1].Message)
		assert.Equal(t, addr1, votes[2].Voter)

		p, err := s.GetProject(ctx, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, votes, p.Votes)

		assert.ErrorIs(t, s.AppendVote(ctx, 0, 1, domain.Vote{Voter: owner}), domain.ErrProjectNotFound)
		assert.ErrorIs(t, s.AppendVote(ctx, 2, 0, domain.Vote{Voter: owner}), domain.ErrGrantNotFound)
		_, err = s.ListVotes(ctx, 0, 1)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
		_, err = s.ListVotes(ctx, 2, 0)
		assert.ErrorIs(t, err, domain.ErrGrantNotFound)
		_, err = s.GetProject(ctx, 0, 9)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
		_, err = s.GetProject(ctx, 9, 0)
		assert.ErrorIs(t, err, domain.ErrGrantNotFound)
	})

	t.Run("listings page through records", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 3; i++ {
			_, _ = s.CreateGrant(ctx, newGrant(uint64(i), "g"))
		}
		for i := 0; i < 4; i++ {
			_, _ = s.RegisterApplication(ctx, 1, newProject("p"))
		}
		require.NoError(t, s.AppendVote(ctx, 1, 2, domain.Vote{Voter: owner, Message: "m"}))
		require.NoError(t, s.SetAccepted(ctx, 1, []uint64{3}, true))

		grants, err := s.ListGrants(ctx, domain.Page{Offset: 1, Limit: 5})
		require.NoError(t, err)
		require.Len(t, grants, 2)
		assert.Equal(t, uint64(1), grants[0].ID)
		assert.Equal(t, uint64(4), grants[0].ProjectCount)
		assert.Equal(t, uint64(2), grants[1].ID)

		grants, err = s.ListGrants(ctx, domain.Page{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, grants)

		projects, err := s.ListProjects(ctx, 1, domain.Page{Offset: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, projects, 2)
		assert.Equal(t, uint64(2), projects[0].ID)
		assert.Len(t, projects[0].Votes, 1)
		assert.False(t, projects[0].IsAccepted)
		assert.Equal(t, uint64(3), projects[1].ID)
		assert.True(t, projects[1].IsAccepted)
		assert.Empty(t, projects[1].Votes)

		_, err = s.ListProjects(ctx, 5, domain.Page{})
		assert.ErrorIs(t, err, domain.ErrGrantNotFound)
	})

	t.Run("concurrent creates get distinct ids", func(t *testing.T) {
		s := newStore(t)
		const n = 20

		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			ids []uint64
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := s.CreateGrant(ctx, newGrant(1, "c"))
				assert.NoError(t, err)
				mu.Lock()
				ids = append(ids, id)
				mu.Unlock()
			}()
		}
		wg.Wait()

		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for i, id := range ids {
			assert.Equal(t, uint64(i), id)
		}
	})
}

func TestMemoryStore_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, _ = s.CreateGrant(ctx, newGrant(1, "g"))
	_, _ = s.RegisterApplication(ctx, 0, newProject("p"))
	require.NoError(t, s.AppendVote(ctx, 0, 0, domain.Vote{Voter: owner, Message: "m"}))

	p, err := s.GetProject(ctx, 0, 0)
	require.NoError(t, err)
	p.Votes[0].Message = "changed"
	p.IsAccepted = true

	again, err := s.GetProject(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "m", again.Votes[0].Message)
	assert.False(t, again.IsAccepted)
}

func TestRedisEventBus(t *testing.T) {
	client := setupTestRedis(t)
	bus := NewRedisEventBus(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	ev := domain.Event{Op: domain.OpVote, Receipt: domain.Receipt{TxID: "bafk", Op: domain.OpVote, Caller: owner, GrantID: 1}}
	require.NoError(t, bus.Publish(ctx, ev))

	select {
	case got := <-events:
		assert.Equal(t, domain.OpVote, got.Op)
		assert.Equal(t, "bafk", got.Receipt.TxID)
		assert.Equal(t, owner, got.Receipt.Caller)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	for range events {
	}
}
