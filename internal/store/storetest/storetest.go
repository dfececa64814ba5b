// Package storetest is the behaviour every persistence backend must share.
// Backend test files call Run with a constructor for a clean store.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/gighub/internal/alerts"
	"github.com/sudo-init-do/gighub/internal/marketplace"
	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
)

type Backend interface {
	marketplace.Store
	user.Store
	alerts.Store
}

// Run executes the shared suite. open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) Backend) {
	cases := []struct {
		name string
		fn   func(t *testing.T, s Backend)
	}{
		{"Users", testUsers},
		{"JobGuards", testJobGuards},
		{"JobListing", testJobListing},
		{"JobSearch", testJobSearch},
		{"TiedTimestamps", testTiedTimestamps},
		{"ConcurrentAssign", testConcurrentAssign},
		{"Bids", testBids},
		{"Ratings", testRatings},
		{"Notifications", testNotifications},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, open(t))
		})
	}
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

func ptr[T any](v T) *T { return &v }

func newUser(t *testing.T, s Backend, name string, role user.Role) *user.User {
	t.Helper()
	u := &user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     uuid.NewString()[:8] + "@example.com",
		Password:  "hash",
		Role:      role,
		Skills:    []string{},
		CreatedAt: base,
		UpdatedAt: base,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func newJob(t *testing.T, s Backend, client *user.User, minute int, budgetMax float64) *marketplace.Job {
	t.Helper()
	j := &marketplace.Job{
		ID:             uuid.NewString(),
		Title:          "Landing page build",
		Description:    "Build a responsive landing page for a product launch",
		Category:       marketplace.CategoryDevelopment,
		Budget:         marketplace.Budget{Min: ptr(100.0), Max: ptr(budgetMax)},
		Duration:       marketplace.DurationOneToTwo,
		ClientID:       client.ID,
		Status:         marketplace.JobOpen,
		Bids:           []string{},
		SkillsRequired: []string{"html", "css"},
		Attachments:    []marketplace.Attachment{},
		CreatedAt:      at(minute),
		UpdatedAt:      at(minute),
	}
	require.NoError(t, s.CreateJob(context.Background(), j))
	return j
}

func newBid(t *testing.T, s Backend, job *marketplace.Job, f *user.User, minute int) *marketplace.Bid {
	t.Helper()
	b := &marketplace.Bid{
		ID:           uuid.NewString(),
		JobID:        job.ID,
		FreelancerID: f.ID,
		Amount:       250,
		Duration:     marketplace.DurationOneToTwo,
		Status:       marketplace.BidPending,
		CreatedAt:    at(minute),
		UpdatedAt:    at(minute),
	}
	require.NoError(t, s.CreateBid(context.Background(), b))
	return b
}

func testUsers(t *testing.T, s Backend) {
	ctx := context.Background()
	u := newUser(t, s, "Sarah Chen", user.RoleFreelancer)

	dup := *u
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), store.ErrDuplicate)

	got, err := s.GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.GetUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)

	updated, err := s.UpdateProfile(ctx, u.ID, user.ProfilePatch{Bio: ptr("Go developer"), Skills: &[]string{"go"}})
	require.NoError(t, err)
	assert.Equal(t, "Sarah Chen", updated.Name)
	assert.Equal(t, "Go developer", updated.Bio)
	assert.Equal(t, []string{"go"}, updated.Skills)

	require.NoError(t, s.SetRole(ctx, u.Email, user.RoleAdmin))
	got, err = s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, got.Role)
	assert.ErrorIs(t, s.SetRole(ctx, "nobody@example.com", user.RoleAdmin), store.ErrNotFound)

	require.NoError(t, s.UpdatePassword(ctx, u.ID, "new-hash"))
	got, err = s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.Password)

	users, total, err := s.ListUsers(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, users, 1)
}

func testJobGuards(t *testing.T, s Backend) {
	ctx := context.Background()
	client := newUser(t, s, "John Smith", user.RoleClient)
	sarah := newUser(t, s, "Sarah Chen", user.RoleFreelancer)
	mike := newUser(t, s, "Mike Ross", user.RoleFreelancer)
	job := newJob(t, s, client, 0, 500)

	updated, err := s.UpdateOpenJob(ctx, job.ID, marketplace.JobPatch{Title: ptr("Landing page rebuild")})
	require.NoError(t, err)
	assert.Equal(t, "Landing page rebuild", updated.Title)
	assert.Equal(t, job.Description, updated.Description)

	assigned, err := s.AssignFreelancer(ctx, job.ID, sarah.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobInProgress, assigned.Status)
	assert.True(t, assigned.AssignedTo(sarah.ID))

	_, err = s.AssignFreelancer(ctx, job.ID, mike.ID)
	assert.ErrorIs(t, err, store.ErrConditionFailed)
	_, err = s.AssignFreelancer(ctx, uuid.NewString(), mike.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.UpdateOpenJob(ctx, job.ID, marketplace.JobPatch{Title: ptr("Too late")})
	assert.ErrorIs(t, err, store.ErrConditionFailed)
	assert.ErrorIs(t, s.DeleteOpenJob(ctx, job.ID), store.ErrConditionFailed)

	assert.ErrorIs(t, s.UnassignFreelancer(ctx, job.ID, mike.ID), store.ErrConditionFailed)
	require.NoError(t, s.UnassignFreelancer(ctx, job.ID, sarah.ID))
	reverted, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobOpen, reverted.Status)
	assert.False(t, reverted.Claimed())

	_, err = s.AssignFreelancer(ctx, job.ID, mike.ID)
	require.NoError(t, err)
	_, err = s.TransitionJob(ctx, job.ID, marketplace.JobOpen, marketplace.JobCompleted)
	assert.ErrorIs(t, err, store.ErrConditionFailed)
	done, err := s.TransitionJob(ctx, job.ID, marketplace.JobInProgress, marketplace.JobCompleted)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobCompleted, done.Status)

	bare := newJob(t, s, client, 1, 300)
	require.NoError(t, s.DeleteOpenJob(ctx, bare.ID))
	_, err = s.GetJob(ctx, bare.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteOpenJob(ctx, bare.ID), store.ErrNotFound)
}

func testJobListing(t *testing.T, s Backend) {
	ctx := context.Background()
	client := newUser(t, s, "John Smith", user.RoleClient)
	other := newUser(t, s, "Jane Doe", user.RoleClient)
	cheap := newJob(t, s, client, 0, 200)
	mid := newJob(t, s, client, 1, 800)
	pricey := newJob(t, s, other, 2, 5000)

	jobs, total, err := s.ListJobs(ctx, marketplace.JobFilter{MinBudget: ptr(500.0), MaxBudget: ptr(1000.0), Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, jobs, 1)
	assert.Equal(t, mid.ID, jobs[0].ID)

	jobs, total, err = s.ListJobs(ctx, marketplace.JobFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, jobs, 2)
	assert.Equal(t, pricey.ID, jobs[0].ID, "newest first")
	assert.Equal(t, mid.ID, jobs[1].ID)

	jobs, _, err = s.ListJobs(ctx, marketplace.JobFilter{Skip: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, cheap.ID, jobs[0].ID)

	jobs, total, err = s.ListJobs(ctx, marketplace.JobFilter{ClientID: other.ID, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, pricey.ID, jobs[0].ID)
}

func testJobSearch(t *testing.T, s Backend) {
	ctx := context.Background()
	client := newUser(t, s, "John Smith", user.RoleClient)
	infra := newJob(t, s, client, 0, 900)
	_ = newJob(t, s, client, 1, 900)

	_, err := s.UpdateOpenJob(ctx, infra.ID, marketplace.JobPatch{SkillsRequired: ptr([]string{"kubernetes"})})
	require.NoError(t, err)

	jobs, total, err := s.ListJobs(ctx, marketplace.JobFilter{Search: "kubernetes", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, jobs, 1)
	assert.Equal(t, infra.ID, jobs[0].ID)

	_, err = s.UpdateOpenJob(ctx, infra.ID, marketplace.JobPatch{
		Title:          ptr("Terraform modules for staging"),
		SkillsRequired: ptr([]string{"terraform"}),
	})
	require.NoError(t, err)

	_, total, err = s.ListJobs(ctx, marketplace.JobFilter{Search: "kubernetes", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total, "edited skills drop out of the index")

	jobs, _, err = s.ListJobs(ctx, marketplace.JobFilter{Search: "staging", Limit: 10})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, infra.ID, jobs[0].ID)

	_, total, err = s.ListJobs(ctx, marketplace.JobFilter{Search: "landing", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total, "descriptions stay searchable")
}

func testTiedTimestamps(t *testing.T, s Backend) {
	ctx := context.Background()
	client := newUser(t, s, "John Smith", user.RoleClient)
	want := map[string]bool{}
	for i := 0; i < 5; i++ {
		want[newJob(t, s, client, 0, 500).ID] = true
	}

	seen := map[string]bool{}
	var order []string
	for skip := int64(0); skip < 5; skip += 2 {
		jobs, total, err := s.ListJobs(ctx, marketplace.JobFilter{Skip: skip, Limit: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
		for _, j := range jobs {
			assert.False(t, seen[j.ID], "job %s returned on two pages", j.ID)
			seen[j.ID] = true
			order = append(order, j.ID)
		}
	}
	assert.Equal(t, want, seen)
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i-1], order[i], "ties ordered by id descending")
	}
}

func testConcurrentAssign(t *testing.T, s Backend) {
	ctx := context.Background()
	client := newUser(t, s, "John Smith", user.RoleClient)
	job := newJob(t, s, client, 0, 500)

	const contenders = 8
	freelancers := make([]*user.User, contenders)
	for i := range freelancers {
		freelancers[i] = newUser(t, s, "Freelancer", user.RoleFreelancer)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, f := range freelancers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := s.AssignFreelancer(ctx, job.ID, id); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(f.ID)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func testBids(t *testing.T, s Backend) {
	ctx := context.Background()
	client := newUser(t, s, "John Smith", user.RoleClient)
	sarah := newUser(t, s, "Sarah Chen", user.RoleFreelancer)
	mike := newUser(t, s, "Mike Ross", user.RoleFreelancer)
	job := newJob(t, s, client, 0, 500)

	first := newBid(t, s, job, sarah, 1)
	second := newBid(t, s, job, mike, 2)

	again := *first
	again.ID = uuid.NewString()
	assert.ErrorIs(t, s.CreateBid(ctx, &again), store.ErrDuplicate)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, got.Bids)
	assert.ErrorIs(t, s.DeleteOpenJob(ctx, job.ID), store.ErrConditionFailed)

	bids, err := s.ListBids(ctx, marketplace.BidFilter{JobID: job.ID})
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, second.ID, bids[0].ID, "newest first")

	mine, err := s.ListBids(ctx, marketplace.BidFilter{FreelancerID: sarah.ID, Status: marketplace.BidPending})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	accepted, err := s.SetBidStatus(ctx, first.ID, marketplace.BidPending, marketplace.BidAccepted)
	require.NoError(t, err)
	assert.Equal(t, marketplace.BidAccepted, accepted.Status)
	_, err = s.SetBidStatus(ctx, first.ID, marketplace.BidPending, marketplace.BidRejected)
	assert.ErrorIs(t, err, store.ErrConditionFailed)
	_, err = s.SetBidStatus(ctx, uuid.NewString(), marketplace.BidPending, marketplace.BidRejected)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.AssignFreelancer(ctx, job.ID, sarah.ID)
	require.NoError(t, err)
	late := newUser(t, s, "Late Comer", user.RoleFreelancer)
	err = s.CreateBid(ctx, &marketplace.Bid{
		ID: uuid.NewString(), JobID: job.ID, FreelancerID: late.ID, Amount: 100,
		Duration: marketplace.DurationOneToTwo, Status: marketplace.BidPending,
		CreatedAt: at(3), UpdatedAt: at(3),
	})
	assert.ErrorIs(t, err, store.ErrConditionFailed)

	bids, err = s.ListBids(ctx, marketplace.BidFilter{JobID: job.ID})
	require.NoError(t, err)
	assert.Len(t, bids, 2, "rejected bid must not be persisted")
}

func testRatings(t *testing.T, s Backend) {
	ctx := context.Background()
	client := newUser(t, s, "John Smith", user.RoleClient)
	sarah := newUser(t, s, "Sarah Chen", user.RoleFreelancer)

	empty, err := s.RecomputeFreelancerRating(ctx, sarah.ID)
	require.NoError(t, err)
	assert.Zero(t, empty.Average)
	assert.Zero(t, empty.Count)

	for i, stars := range []int{5, 5, 4} {
		job := newJob(t, s, client, i, 500)
		require.NoError(t, s.CreateRating(ctx, &marketplace.Rating{
			ID: uuid.NewString(), JobID: job.ID, ClientID: client.ID, FreelancerID: sarah.ID,
			Rating: stars, CreatedAt: at(i),
		}))
		if i == 0 {
			err := s.CreateRating(ctx, &marketplace.Rating{
				ID: uuid.NewString(), JobID: job.ID, ClientID: client.ID, FreelancerID: sarah.ID,
				Rating: 1, CreatedAt: at(i),
			})
			assert.ErrorIs(t, err, store.ErrDuplicate)
		}
	}

	sum, err := s.RecomputeFreelancerRating(ctx, sarah.ID)
	require.NoError(t, err)
	assert.InDelta(t, 14.0/3.0, sum.Average, 1e-9)
	assert.EqualValues(t, 3, sum.Count)

	stored, err := s.GetUser(ctx, sarah.ID)
	require.NoError(t, err)
	assert.Equal(t, sum, stored.Rating)

	breakdown, err := s.RatingBreakdown(ctx, sarah.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, breakdown[5])
	assert.EqualValues(t, 1, breakdown[4])
	assert.Zero(t, breakdown[1])

	ratings, total, err := s.ListRatings(ctx, sarah.ID, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, ratings, 2)

	ids, err := s.FreelancersWithRatings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{sarah.ID}, ids)

	_, err = s.RecomputeFreelancerRating(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Ratings)
	assert.EqualValues(t, 3, stats.JobsByStatus[string(marketplace.JobOpen)])
	assert.EqualValues(t, 1, stats.UsersByRole[string(user.RoleClient)])
}

func testNotifications(t *testing.T, s Backend) {
	ctx := context.Background()
	sarah := newUser(t, s, "Sarah Chen", user.RoleFreelancer)
	mike := newUser(t, s, "Mike Ross", user.RoleFreelancer)

	var ids []string
	for i := 0; i < 3; i++ {
		n := &alerts.Notification{
			ID:        uuid.NewString(),
			UserID:    sarah.ID,
			Type:      alerts.TypeBidAccepted,
			Title:     "Bid accepted",
			Message:   "Your bid was accepted",
			CreatedAt: at(i),
		}
		require.NoError(t, s.CreateNotification(ctx, n))
		ids = append(ids, n.ID)
	}

	unread, err := s.CountUnread(ctx, sarah.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, unread)

	assert.ErrorIs(t, s.MarkRead(ctx, ids[0], mike.ID), store.ErrNotFound)
	require.NoError(t, s.MarkRead(ctx, ids[0], sarah.ID))

	notes, total, err := s.ListNotifications(ctx, alerts.Filter{UserID: sarah.ID, UnreadOnly: true, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, notes, 2)
	assert.Equal(t, ids[2], notes[0].ID)

	n, err := s.MarkAllRead(ctx, sarah.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	unread, err = s.CountUnread(ctx, sarah.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
