package marketplace_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/gighub/internal/alerts"
	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/db/memdb"
	"github.com/sudo-init-do/gighub/internal/marketplace"
	"github.com/sudo-init-do/gighub/internal/user"
	"github.com/sudo-init-do/gighub/internal/utils"
)

type fixture struct {
	db  *memdb.Store
	svc *marketplace.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	db := memdb.New()
	return &fixture{
		db:  db,
		svc: marketplace.NewService(db, db, alerts.NewEmitter(db, log), log),
	}
}

func (f *fixture) user(t *testing.T, role user.Role) user.Identity {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	require.NoError(t, f.db.CreateUser(context.Background(), &user.User{
		ID:        id,
		Name:      string(role) + "-" + id[:6],
		Email:     id + "@example.com",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	return user.Identity{ID: id, Role: role, Name: string(role)}
}

func ptr[T any](v T) *T { return &v }

func jobRequest(maxBudget float64) marketplace.CreateJobRequest {
	return marketplace.CreateJobRequest{
		Title:          "Build a landing page",
		Description:    "Need a responsive landing page for a product launch.",
		Category:       marketplace.CategoryDevelopment,
		Budget:         marketplace.Budget{Min: ptr(0.0), Max: ptr(maxBudget)},
		Duration:       marketplace.DurationOneToTwo,
		SkillsRequired: []string{"html", "css"},
	}
}

func bidRequest(amount float64) marketplace.CreateBidRequest {
	return marketplace.CreateBidRequest{Amount: ptr(amount), Duration: marketplace.DurationOneToTwo, Message: "I can do it"}
}

func (f *fixture) job(t *testing.T, client user.Identity, maxBudget float64) *marketplace.Job {
	t.Helper()
	job, err := f.svc.CreateJob(context.Background(), client, jobRequest(maxBudget))
	require.NoError(t, err)
	return job
}

func assertKind(t *testing.T, err error, kinds ...apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Contains(t, kinds, apperr.KindOf(err), "unexpected error: %v", err)
}

func TestCreateJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)

	job := f.job(t, client, 800)
	assert.Equal(t, marketplace.JobOpen, job.Status)
	assert.Equal(t, client.ID, job.ClientID)
	assert.Nil(t, job.FreelancerID)
	assert.Empty(t, job.Bids)

	_, err := f.svc.CreateJob(ctx, f.user(t, user.RoleFreelancer), jobRequest(100))
	assertKind(t, err, apperr.KindForbidden)
}

func TestJobLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	freelancer := f.user(t, user.RoleFreelancer)
	job := f.job(t, client, 500)

	// Not yet claimed: complete and cancel are illegal.
	_, err := f.svc.CompleteJob(ctx, client, job.ID)
	assertKind(t, err, apperr.KindInvalidState)
	_, err = f.svc.CancelJob(ctx, client, job.ID)
	assertKind(t, err, apperr.KindInvalidState)

	claimed, err := f.svc.ClaimJob(ctx, freelancer, job.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobInProgress, claimed.Status)
	assert.True(t, claimed.AssignedTo(freelancer.ID))

	_, err = f.svc.CompleteJob(ctx, freelancer, job.ID)
	assertKind(t, err, apperr.KindForbidden)

	done, err := f.svc.CompleteJob(ctx, client, job.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobCompleted, done.Status)

	// Terminal.
	_, err = f.svc.CompleteJob(ctx, client, job.ID)
	assertKind(t, err, apperr.KindInvalidState)
	_, err = f.svc.CancelJob(ctx, client, job.ID)
	assertKind(t, err, apperr.KindInvalidState)
	_, err = f.svc.ClaimJob(ctx, f.user(t, user.RoleFreelancer), job.ID)
	assertKind(t, err, apperr.KindInvalidState)
	_, err = f.svc.UpdateJob(ctx, client, job.ID, marketplace.JobPatch{Title: ptr("A brand new title")})
	assertKind(t, err, apperr.KindInvalidState)

	got, err := f.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobCompleted, got.Status)
}

func TestCancelJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	freelancer := f.user(t, user.RoleFreelancer)
	job := f.job(t, client, 500)

	_, err := f.svc.ClaimJob(ctx, freelancer, job.ID)
	require.NoError(t, err)

	cancelled, err := f.svc.CancelJob(ctx, client, job.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobCancelled, cancelled.Status)

	// Cancelled is terminal.
	_, err = f.svc.CompleteJob(ctx, client, job.ID)
	assertKind(t, err, apperr.KindInvalidState)
	_, err = f.svc.CancelJob(ctx, client, job.ID)
	assertKind(t, err, apperr.KindInvalidState)
	_, err = f.svc.ClaimJob(ctx, f.user(t, user.RoleFreelancer), job.ID)
	assertKind(t, err, apperr.KindInvalidState)
	_, err = f.svc.UpdateJob(ctx, client, job.ID, marketplace.JobPatch{Title: ptr("A brand new title")})
	assertKind(t, err, apperr.KindInvalidState)
	err = f.svc.DeleteJob(ctx, client, job.ID)
	assertKind(t, err, apperr.KindInvalidState)
	_, err = f.svc.CreateBid(ctx, f.user(t, user.RoleFreelancer), job.ID, bidRequest(300))
	assertKind(t, err, apperr.KindInvalidState)

	got, err := f.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobCancelled, got.Status)

	notes, _, err := f.db.ListNotifications(ctx, alerts.Filter{UserID: freelancer.ID})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, alerts.TypeJobCancelled, notes[0].Type)
}

func TestClaimJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	job := f.job(t, client, 500)

	_, err := f.svc.ClaimJob(ctx, client, job.ID)
	assertKind(t, err, apperr.KindForbidden)

	_, err = f.svc.ClaimJob(ctx, f.user(t, user.RoleFreelancer), "missing")
	assertKind(t, err, apperr.KindNotFound)

	freelancer := f.user(t, user.RoleFreelancer)
	_, err = f.svc.ClaimJob(ctx, freelancer, job.ID)
	require.NoError(t, err)

	unread, err := f.db.CountUnread(ctx, client.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestConcurrentClaimHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.job(t, f.user(t, user.RoleClient), 500)

	const n = 16
	freelancers := make([]user.Identity, n)
	for i := range freelancers {
		freelancers[i] = f.user(t, user.RoleFreelancer)
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range freelancers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ClaimJob(ctx, freelancers[i], job.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assertKind(t, err, apperr.KindAlreadyClaimed, apperr.KindInvalidState)
	}
	assert.Equal(t, 1, wins)
}

func TestUpdateJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	job := f.job(t, client, 500)

	_, err := f.svc.UpdateJob(ctx, client, job.ID, marketplace.JobPatch{})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.svc.UpdateJob(ctx, f.user(t, user.RoleClient), job.ID, marketplace.JobPatch{Title: ptr("Someone else's title")})
	assertKind(t, err, apperr.KindForbidden)

	_, err = f.svc.UpdateJob(ctx, client, "missing", marketplace.JobPatch{Title: ptr("Whatever title")})
	assertKind(t, err, apperr.KindNotFound)

	updated, err := f.svc.UpdateJob(ctx, client, job.ID, marketplace.JobPatch{
		Title:  ptr("Build two landing pages"),
		Budget: &marketplace.Budget{Max: ptr(900.0)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Build two landing pages", updated.Title)
	assert.Equal(t, 900.0, *updated.Budget.Max)
	assert.Nil(t, updated.Budget.Min)
	assert.Equal(t, job.Description, updated.Description)
}

func TestUpdateAfterClaimFailsForOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	job := f.job(t, client, 500)

	_, err := f.svc.ClaimJob(ctx, f.user(t, user.RoleFreelancer), job.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateJob(ctx, client, job.ID, marketplace.JobPatch{Title: ptr("Too late to rename")})
	assertKind(t, err, apperr.KindInvalidState)
}

func TestDeleteJob(t *testing.T) {
	ctx := context.Background()

	t.Run("open without bids", func(t *testing.T) {
		f := newFixture(t)
		client := f.user(t, user.RoleClient)
		job := f.job(t, client, 500)

		assertKind(t, f.svc.DeleteJob(ctx, f.user(t, user.RoleClient), job.ID), apperr.KindForbidden)
		require.NoError(t, f.svc.DeleteJob(ctx, client, job.ID))
		_, err := f.svc.GetJob(ctx, job.ID)
		assertKind(t, err, apperr.KindNotFound)
	})

	t.Run("with a bid", func(t *testing.T) {
		f := newFixture(t)
		client := f.user(t, user.RoleClient)
		job := f.job(t, client, 500)
		_, err := f.svc.CreateBid(ctx, f.user(t, user.RoleFreelancer), job.ID, bidRequest(300))
		require.NoError(t, err)

		assertKind(t, f.svc.DeleteJob(ctx, client, job.ID), apperr.KindInvalidState)
	})

	t.Run("in progress", func(t *testing.T) {
		f := newFixture(t)
		client := f.user(t, user.RoleClient)
		job := f.job(t, client, 500)
		_, err := f.svc.ClaimJob(ctx, f.user(t, user.RoleFreelancer), job.ID)
		require.NoError(t, err)

		assertKind(t, f.svc.DeleteJob(ctx, client, job.ID), apperr.KindInvalidState)
	})
}

func TestListJobsBudgetFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	for _, max := range []float64{100, 499, 500, 750, 1000, 1001, 5000} {
		f.job(t, client, max)
	}

	jobs, pagination, err := f.svc.ListJobs(ctx, marketplace.JobQuery{
		MinBudget: ptr(500.0),
		MaxBudget: ptr(1000.0),
	}, utils.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.EqualValues(t, 3, pagination.Total)
	for _, j := range jobs {
		assert.GreaterOrEqual(t, *j.Budget.Max, 500.0)
		assert.LessOrEqual(t, *j.Budget.Max, 1000.0)
		require.NotNil(t, j.Client)
		assert.Equal(t, client.ID, j.Client.ID)
	}

	_, _, err = f.svc.ListJobs(ctx, marketplace.JobQuery{MinBudget: ptr(10.0), MaxBudget: ptr(1.0)}, utils.NewPage(1, 10))
	assertKind(t, err, apperr.KindValidation)
}

func TestListJobsLimitClamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	for i := 0; i < 60; i++ {
		f.job(t, client, float64(i))
	}

	jobs, pagination, err := f.svc.ListJobs(ctx, marketplace.JobQuery{}, utils.NewPage(1, 1000))
	require.NoError(t, err)
	assert.Len(t, jobs, 50)
	assert.Equal(t, 50, pagination.Limit)
	assert.Equal(t, 2, pagination.TotalPages)
	assert.True(t, pagination.HasNext)
	assert.False(t, pagination.HasPrev)
}

func TestListJobsSearchAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)

	req := jobRequest(100)
	req.Title = "Design a logo"
	req.Category = marketplace.CategoryDesign
	req.SkillsRequired = []string{"illustrator"}
	logo, err := f.svc.CreateJob(ctx, client, req)
	require.NoError(t, err)
	f.job(t, client, 200)

	jobs, _, err := f.svc.ListJobs(ctx, marketplace.JobQuery{Search: "ILLUSTRATOR"}, utils.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, logo.ID, jobs[0].ID)

	jobs, _, err = f.svc.ListJobs(ctx, marketplace.JobQuery{Category: marketplace.CategoryDesign}, utils.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	_, err = f.svc.ClaimJob(ctx, f.user(t, user.RoleFreelancer), logo.ID)
	require.NoError(t, err)
	jobs, _, err = f.svc.ListJobs(ctx, marketplace.JobQuery{Status: marketplace.JobOpen}, utils.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.NotEqual(t, logo.ID, jobs[0].ID)
}

func TestMyJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	freelancer := f.user(t, user.RoleFreelancer)
	a := f.job(t, client, 100)
	f.job(t, client, 200)
	f.job(t, f.user(t, user.RoleClient), 300)

	_, err := f.svc.ClaimJob(ctx, freelancer, a.ID)
	require.NoError(t, err)

	mine, p, err := f.svc.MyJobs(ctx, client, "", utils.NewPage(1, 10))
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.EqualValues(t, 2, p.Total)

	assigned, _, err := f.svc.MyJobs(ctx, freelancer, "", utils.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, a.ID, assigned[0].ID)
	require.NotNil(t, assigned[0].Freelancer)
	assert.Equal(t, freelancer.ID, assigned[0].Freelancer.ID)
}

func TestCreateBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	freelancer := f.user(t, user.RoleFreelancer)
	job := f.job(t, client, 500)

	_, err := f.svc.CreateBid(ctx, client, job.ID, bidRequest(100))
	assertKind(t, err, apperr.KindForbidden)

	bid, err := f.svc.CreateBid(ctx, freelancer, job.ID, bidRequest(400))
	require.NoError(t, err)
	assert.Equal(t, marketplace.BidPending, bid.Status)

	_, err = f.svc.CreateBid(ctx, freelancer, job.ID, bidRequest(350))
	assertKind(t, err, apperr.KindDuplicateBid)

	detail, err := f.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bid.ID}, detail.Job.Bids)
	assert.Equal(t, 1, detail.BidCount)
	require.Len(t, detail.Bids, 1)
	require.NotNil(t, detail.Bids[0].Freelancer)
	assert.Equal(t, freelancer.ID, detail.Bids[0].Freelancer.ID)

	notes, _, err := f.db.ListNotifications(ctx, alerts.Filter{UserID: client.ID})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, alerts.TypeBidReceived, notes[0].Type)
	assert.Equal(t, bid.ID, notes[0].RelatedBid)

	_, err = f.svc.ClaimJob(ctx, f.user(t, user.RoleFreelancer), job.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateBid(ctx, f.user(t, user.RoleFreelancer), job.ID, bidRequest(100))
	assertKind(t, err, apperr.KindInvalidState)
}

func TestConcurrentDuplicateBids(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.job(t, f.user(t, user.RoleClient), 500)
	freelancer := f.user(t, user.RoleFreelancer)

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateBid(ctx, freelancer, job.ID, bidRequest(float64(100+i)))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assertKind(t, err, apperr.KindDuplicateBid)
	}
	assert.Equal(t, 1, wins)

	got, err := f.db.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, got.Bids, 1)
}

func TestAcceptBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	alice := f.user(t, user.RoleFreelancer)
	bob := f.user(t, user.RoleFreelancer)
	job := f.job(t, client, 500)

	aliceBid, err := f.svc.CreateBid(ctx, alice, job.ID, bidRequest(300))
	require.NoError(t, err)
	bobBid, err := f.svc.CreateBid(ctx, bob, job.ID, bidRequest(250))
	require.NoError(t, err)

	_, err = f.svc.SetBidStatus(ctx, alice, aliceBid.ID, marketplace.BidAccepted)
	assertKind(t, err, apperr.KindForbidden)

	accepted, err := f.svc.SetBidStatus(ctx, client, aliceBid.ID, marketplace.BidAccepted)
	require.NoError(t, err)
	assert.Equal(t, marketplace.BidAccepted, accepted.Status)

	got, err := f.db.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobInProgress, got.Status)
	assert.True(t, got.AssignedTo(alice.ID))

	// Sibling bids stay pending but can no longer win the job.
	sibling, err := f.db.GetBid(ctx, bobBid.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.BidPending, sibling.Status)
	_, err = f.svc.SetBidStatus(ctx, client, bobBid.ID, marketplace.BidAccepted)
	assertKind(t, err, apperr.KindInvalidState)

	_, err = f.svc.SetBidStatus(ctx, client, aliceBid.ID, marketplace.BidRejected)
	assertKind(t, err, apperr.KindInvalidState)

	notes, _, err := f.db.ListNotifications(ctx, alerts.Filter{UserID: alice.ID})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, alerts.TypeBidAccepted, notes[0].Type)
}

func TestRejectBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	freelancer := f.user(t, user.RoleFreelancer)
	job := f.job(t, client, 500)

	bid, err := f.svc.CreateBid(ctx, freelancer, job.ID, bidRequest(300))
	require.NoError(t, err)

	rejected, err := f.svc.SetBidStatus(ctx, client, bid.ID, marketplace.BidRejected)
	require.NoError(t, err)
	assert.Equal(t, marketplace.BidRejected, rejected.Status)

	got, err := f.db.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobOpen, got.Status)

	_, err = f.svc.SetBidStatus(ctx, client, bid.ID, marketplace.BidAccepted)
	assertKind(t, err, apperr.KindInvalidState)
	_, err = f.svc.SetBidStatus(ctx, client, "missing", marketplace.BidRejected)
	assertKind(t, err, apperr.KindNotFound)
}

func TestBidListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	freelancer := f.user(t, user.RoleFreelancer)
	a := f.job(t, client, 500)
	b := f.job(t, client, 600)

	_, err := f.svc.CreateBid(ctx, freelancer, a.ID, bidRequest(100))
	require.NoError(t, err)
	_, err = f.svc.CreateBid(ctx, freelancer, b.ID, bidRequest(200))
	require.NoError(t, err)

	_, err = f.svc.JobBids(ctx, freelancer, a.ID)
	assertKind(t, err, apperr.KindForbidden)

	onA, err := f.svc.JobBids(ctx, client, a.ID)
	require.NoError(t, err)
	require.Len(t, onA, 1)
	assert.Equal(t, a.ID, onA[0].Job.ID)

	mine, err := f.svc.MyBids(ctx, freelancer, "")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, v := range mine {
		require.NotNil(t, v.Job)
	}

	pending, err := f.svc.MyBids(ctx, freelancer, marketplace.BidAccepted)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// completedJob walks a fresh job through claim and completion.
func (f *fixture) completedJob(t *testing.T, client, freelancer user.Identity) *marketplace.Job {
	t.Helper()
	ctx := context.Background()
	job := f.job(t, client, 500)
	_, err := f.svc.ClaimJob(ctx, freelancer, job.ID)
	require.NoError(t, err)
	done, err := f.svc.CompleteJob(ctx, client, job.ID)
	require.NoError(t, err)
	return done
}

func TestRatingAggregation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	freelancer := f.user(t, user.RoleFreelancer)

	for _, stars := range []int{5, 5, 4} {
		job := f.completedJob(t, client, freelancer)
		_, err := f.svc.CreateRating(ctx, client, job.ID, marketplace.CreateRatingRequest{Rating: stars})
		require.NoError(t, err)
	}

	u, err := f.db.GetUser(ctx, freelancer.ID)
	require.NoError(t, err)
	assert.InDelta(t, 14.0/3.0, u.Rating.Average, 1e-9)
	assert.EqualValues(t, 3, u.Rating.Count)

	summary, ratings, p, err := f.svc.FreelancerRatings(ctx, freelancer.ID, utils.NewPage(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 3, summary.Count)
	assert.Equal(t, map[int]int64{1: 0, 2: 0, 3: 0, 4: 1, 5: 2}, summary.Breakdown)
	assert.Len(t, ratings, 3)
	assert.EqualValues(t, 3, p.Total)
}

func TestRatingAggregationWithoutRatings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	freelancer := f.user(t, user.RoleFreelancer)

	sum, err := f.db.RecomputeFreelancerRating(ctx, freelancer.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RatingSummary{}, sum)

	n, err := f.svc.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateRatingRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	freelancer := f.user(t, user.RoleFreelancer)

	open := f.job(t, client, 500)
	_, err := f.svc.CreateRating(ctx, client, open.ID, marketplace.CreateRatingRequest{Rating: 5})
	assertKind(t, err, apperr.KindInvalidState)

	done := f.completedJob(t, client, freelancer)
	_, err = f.svc.CreateRating(ctx, f.user(t, user.RoleClient), done.ID, marketplace.CreateRatingRequest{Rating: 5})
	assertKind(t, err, apperr.KindForbidden)

	r, err := f.svc.CreateRating(ctx, client, done.ID, marketplace.CreateRatingRequest{Rating: 4, Quality: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, freelancer.ID, r.FreelancerID)

	_, err = f.svc.CreateRating(ctx, client, done.ID, marketplace.CreateRatingRequest{Rating: 1})
	assertKind(t, err, apperr.KindConflict)

	view, err := f.svc.JobRating(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Rating.Rating)
	require.NotNil(t, view.Client)
	assert.Equal(t, client.ID, view.Client.ID)

	_, err = f.svc.JobRating(ctx, open.ID)
	assertKind(t, err, apperr.KindNotFound)

	notes, _, err := f.db.ListNotifications(ctx, alerts.Filter{UserID: freelancer.ID})
	require.NoError(t, err)
	types := make([]alerts.Type, 0, len(notes))
	for _, n := range notes {
		types = append(types, n.Type)
	}
	assert.Contains(t, types, alerts.TypeNewRating)
}

func TestRecomputeAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, user.RoleClient)

	for i := 0; i < 3; i++ {
		freelancer := f.user(t, user.RoleFreelancer)
		job := f.completedJob(t, client, freelancer)
		_, err := f.svc.CreateRating(ctx, client, job.ID, marketplace.CreateRatingRequest{Rating: i + 3})
		require.NoError(t, err, fmt.Sprintf("rating %d", i))
	}

	n, err := f.svc.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	st, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.Ratings)
	assert.EqualValues(t, 3, st.JobsByStatus[string(marketplace.JobCompleted)])
	assert.EqualValues(t, 3, st.UsersByRole[string(user.RoleFreelancer)])
}

// failingNotes is a store whose notification writes always fail.
type failingNotes struct {
	*memdb.Store
}

func (failingNotes) CreateNotification(context.Context, *alerts.Notification) error {
	return errors.New("notifications table unavailable")
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	db := memdb.New()
	f := &fixture{
		db:  db,
		svc: marketplace.NewService(db, db, alerts.NewEmitter(failingNotes{db}, log), log),
	}
	ctx := context.Background()
	client := f.user(t, user.RoleClient)
	bidder := f.user(t, user.RoleFreelancer)
	claimer := f.user(t, user.RoleFreelancer)

	claimedJob := f.job(t, client, 400)
	claimed, err := f.svc.ClaimJob(ctx, claimer, claimedJob.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobInProgress, claimed.Status)

	job := f.job(t, client, 900)
	bid, err := f.svc.CreateBid(ctx, bidder, job.ID, bidRequest(650))
	require.NoError(t, err)

	accepted, err := f.svc.SetBidStatus(ctx, client, bid.ID, marketplace.BidAccepted)
	require.NoError(t, err)
	assert.Equal(t, marketplace.BidAccepted, accepted.Status)

	done, err := f.svc.CompleteJob(ctx, client, job.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobCompleted, done.Status)

	_, err = f.svc.CreateRating(ctx, client, job.ID, marketplace.CreateRatingRequest{Rating: 4})
	require.NoError(t, err)

	// Everything persisted even though no notification was recorded.
	stored, err := db.GetJob(ctx, claimedJob.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobInProgress, stored.Status)
	require.NotNil(t, stored.FreelancerID)
	assert.Equal(t, claimer.ID, *stored.FreelancerID)

	stored, err = db.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.JobCompleted, stored.Status)
	assert.Equal(t, []string{bid.ID}, stored.Bids)

	storedBid, err := db.GetBid(ctx, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.BidAccepted, storedBid.Status)

	rating, err := db.GetRatingByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, rating.Rating)

	u, err := db.GetUser(ctx, bidder.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, u.Rating.Count)

	for _, id := range []string{client.ID, bidder.ID, claimer.ID} {
		n, err := db.CountUnread(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
}
