package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sakif/accessai/internal/apperror"
	"github.com/sakif/accessai/internal/auth"
	"github.com/sakif/accessai/internal/cache"
	"github.com/sakif/accessai/internal/events"
	"github.com/sakif/accessai/internal/llm"
	"github.com/sakif/accessai/internal/model"
	"github.com/sakif/accessai/internal/repository"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int
	clock  time.Time

	// set to a non-nil error to simulate a database failure
	createErr error
	updateErr error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users: make(map[string]*model.User),
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeUserRepo) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func clone(u *model.User) *model.User {
	c := *u
	c.Achievements = append([]string{}, u.Achievements...)
	return &c
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = f.tick()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = clone(user)
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return clone(u), nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) UpsertGitHub(_ context.Context, user *model.User) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			*user = *clone(u)
			return false, nil
		}
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			u.GitHubID = user.GitHubID
			*user = *clone(u)
			return false, nil
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = f.tick()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = clone(user)
	return true, nil
}

func (f *fakeUserRepo) UpdateProgress(_ context.Context, id string, fn repository.ProgressFunc) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	c := clone(u)
	if err := fn(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = f.tick()
	f.users[id] = c
	return clone(c), nil
}

func (f *fakeUserRepo) ListByPoints(_ context.Context, opts repository.ListOptions) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		all = append(all, *clone(u))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Points != all[j].Points {
			return all[i].Points > all[j].Points
		}
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].ID < all[j].ID
	})
	if opts.Offset >= len(all) {
		return []model.User{}, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[opts.Offset:end], nil
}

func (f *fakeUserRepo) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

// seed stores a user with the given progress and returns its ID.
func (f *fakeUserRepo) seed(email string, points, level int, achievements ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := &model.User{
		ID:           fmt.Sprintf("user-%d", f.nextID),
		Email:        email,
		Points:       points,
		Level:        level,
		Achievements: append([]string{}, achievements...),
		CreatedAt:    f.tick(),
	}
	u.UpdatedAt = u.CreatedAt
	f.users[u.ID] = u
	return u.ID
}

// fakeCompleter returns reply (or err) and records every request.
type fakeCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []llm.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingPublisher keeps published events in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// countingCache is a map-backed cache.Leaderboard that counts invalidations.
// Like the Redis cache, pages written under an old generation are never read.
type countingCache struct {
	mu           sync.Mutex
	gen          cache.Generation
	pages        map[[2]int]*model.LeaderboardPage
	invalidated  int
	hits, misses int
}

var _ cache.Leaderboard = (*countingCache)(nil)

func newCountingCache() *countingCache {
	return &countingCache{pages: make(map[[2]int]*model.LeaderboardPage)}
}

func (c *countingCache) Get(_ context.Context, page, limit int) (*model.LeaderboardPage, cache.Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lb, ok := c.pages[[2]int{page, limit}]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return lb, c.gen, nil
}

func (c *countingCache) Set(_ context.Context, gen cache.Generation, page, limit int, lb *model.LeaderboardPage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.pages[[2]int{page, limit}] = lb
	}
	return nil
}

func (c *countingCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.gen++
	c.pages = make(map[[2]int]*model.LeaderboardPage)
	return nil
}

// brokenCache fails every call; services must fall through to storage.
type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, int, int) (*model.LeaderboardPage, cache.Generation, error) {
	return nil, 0, errCacheDown
}
func (brokenCache) Set(context.Context, cache.Generation, int, int, *model.LeaderboardPage) error {
	return errCacheDown
}
func (brokenCache) Invalidate(context.Context) error { return errCacheDown }

// racingRepo runs onList once, after the first ListByPoints has read its rows.
type racingRepo struct {
	*fakeUserRepo
	once   sync.Once
	onList func()
}

func (r *racingRepo) ListByPoints(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	users, err := r.fakeUserRepo.ListByPoints(ctx, opts)
	r.once.Do(r.onList)
	return users, err
}

type testServices struct {
	repo         *fakeUserRepo
	llm          *fakeCompleter
	pub          *recordingPublisher
	cache        *countingCache
	tokens       *auth.TokenService
	auth         *AuthService
	gamification *GamificationService
	chat         *ChatService
	lessons      *LessonService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	s := &testServices{
		repo:   newFakeUserRepo(),
		llm:    &fakeCompleter{reply: "an answer"},
		pub:    &recordingPublisher{},
		cache:  newCountingCache(),
		tokens: tokens,
	}
	s.auth = NewAuthService(s.repo, tokens, auth.NewPasswordServiceForTest(4), s.pub, testLogger)
	s.gamification = NewGamificationService(s.repo, s.cache, s.pub, testLogger)
	s.chat = NewChatService(s.llm, s.gamification, s.pub, 10, testLogger)
	s.lessons = NewLessonService(s.llm, s.repo, s.gamification, s.pub, testLogger)
	return s
}

func intPtr(v int) *int { return &v }
