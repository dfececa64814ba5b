// Package memdb is a process-local store used by tests and DB_DRIVER=memory.
// A single mutex serializes every operation, which gives each guarded write
// the same atomicity the database backends get from conditional updates.
package memdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sudo-init-do/gighub/internal/alerts"
	"github.com/sudo-init-do/gighub/internal/marketplace"
	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
)

type Store struct {
	mu            sync.Mutex
	users         map[string]*user.User
	emails        map[string]string
	jobs          map[string]*marketplace.Job
	bids          map[string]*marketplace.Bid
	bidPairs      map[[2]string]string
	ratings       map[string]*marketplace.Rating
	ratingsByJob  map[string]string
	notifications map[string]*alerts.Notification
	now           func() time.Time
}

var (
	_ marketplace.Store = (*Store)(nil)
	_ user.Store        = (*Store)(nil)
	_ alerts.Store      = (*Store)(nil)
)

func New() *Store {
	return &Store{
		users:         make(map[string]*user.User),
		emails:        make(map[string]string),
		jobs:          make(map[string]*marketplace.Job),
		bids:          make(map[string]*marketplace.Bid),
		bidPairs:      make(map[[2]string]string),
		ratings:       make(map[string]*marketplace.Rating),
		ratingsByJob:  make(map[string]string),
		notifications: make(map[string]*alerts.Notification),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() {}

// ---- users ----

func copyUser(u *user.User) *user.User {
	cp := *u
	cp.Skills = append([]string(nil), u.Skills...)
	return &cp
}

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, taken := s.emails[email]; taken {
		return store.ErrDuplicate
	}
	s.users[u.ID] = copyUser(u)
	s.emails[email] = u.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) (map[string]*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*user.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = copyUser(u)
		}
	}
	return out, nil
}

func (s *Store) ListUsers(ctx context.Context, skip, limit int64) ([]*user.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, copyUser(u))
	}
	newestFirst(all, func(u *user.User) (time.Time, string) { return u.CreatedAt, u.ID })
	return page(all, skip, limit), int64(len(all)), nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, patch user.ProfilePatch) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Bio != nil {
		u.Bio = *patch.Bio
	}
	if patch.Skills != nil {
		u.Skills = append([]string(nil), (*patch.Skills)...)
	}
	u.UpdatedAt = s.now()
	return copyUser(u), nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Password = hash
	u.UpdatedAt = s.now()
	return nil
}

func (s *Store) SetRole(ctx context.Context, email string, role user.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return store.ErrNotFound
	}
	s.users[id].Role = role
	s.users[id].UpdatedAt = s.now()
	return nil
}

// ---- jobs ----

func copyJob(j *marketplace.Job) *marketplace.Job {
	cp := *j
	if j.FreelancerID != nil {
		f := *j.FreelancerID
		cp.FreelancerID = &f
	}
	cp.Bids = append([]string{}, j.Bids...)
	cp.SkillsRequired = append([]string{}, j.SkillsRequired...)
	cp.Attachments = append([]marketplace.Attachment{}, j.Attachments...)
	return &cp
}

func (s *Store) CreateJob(ctx context.Context, job *marketplace.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return store.ErrDuplicate
	}
	s.jobs[job.ID] = copyJob(job)
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*marketplace.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyJob(j), nil
}

func matchesJob(j *marketplace.Job, f marketplace.JobFilter) bool {
	if f.Category != "" && j.Category != f.Category {
		return false
	}
	if f.Status != "" && j.Status != f.Status {
		return false
	}
	if f.ClientID != "" && j.ClientID != f.ClientID {
		return false
	}
	if f.FreelancerID != "" && !j.AssignedTo(f.FreelancerID) {
		return false
	}
	if f.MinBudget != nil || f.MaxBudget != nil {
		if j.Budget.Max == nil {
			return false
		}
		if f.MinBudget != nil && *j.Budget.Max < *f.MinBudget {
			return false
		}
		if f.MaxBudget != nil && *j.Budget.Max > *f.MaxBudget {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		hay := strings.ToLower(j.Title + " " + j.Description + " " + strings.Join(j.SkillsRequired, " "))
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	return true
}

func (s *Store) ListJobs(ctx context.Context, f marketplace.JobFilter) ([]*marketplace.Job, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*marketplace.Job
	for _, j := range s.jobs {
		if matchesJob(j, f) {
			out = append(out, copyJob(j))
		}
	}
	newestFirst(out, func(j *marketplace.Job) (time.Time, string) { return j.CreatedAt, j.ID })
	return page(out, f.Skip, f.Limit), int64(len(out)), nil
}

func (s *Store) UpdateOpenJob(ctx context.Context, id string, patch marketplace.JobPatch) (*marketplace.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if j.Status != marketplace.JobOpen {
		return nil, store.ErrConditionFailed
	}
	patch.Apply(j)
	j.UpdatedAt = s.now()
	return copyJob(j), nil
}

func (s *Store) DeleteOpenJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if j.Status != marketplace.JobOpen || len(j.Bids) > 0 {
		return store.ErrConditionFailed
	}
	delete(s.jobs, id)
	return nil
}

func (s *Store) AssignFreelancer(ctx context.Context, jobID, freelancerID string) (*marketplace.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if j.Status != marketplace.JobOpen || j.Claimed() {
		return nil, store.ErrConditionFailed
	}
	f := freelancerID
	j.FreelancerID = &f
	j.Status = marketplace.JobInProgress
	j.UpdatedAt = s.now()
	return copyJob(j), nil
}

func (s *Store) UnassignFreelancer(ctx context.Context, jobID, freelancerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	if j.Status != marketplace.JobInProgress || !j.AssignedTo(freelancerID) {
		return store.ErrConditionFailed
	}
	j.FreelancerID = nil
	j.Status = marketplace.JobOpen
	j.UpdatedAt = s.now()
	return nil
}

func (s *Store) TransitionJob(ctx context.Context, id string, from, to marketplace.JobStatus) (*marketplace.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if j.Status != from {
		return nil, store.ErrConditionFailed
	}
	j.Status = to
	j.UpdatedAt = s.now()
	return copyJob(j), nil
}

// ---- bids ----

func copyBid(b *marketplace.Bid) *marketplace.Bid {
	cp := *b
	return &cp
}

func (s *Store) CreateBid(ctx context.Context, bid *marketplace.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[bid.JobID]
	if !ok {
		return store.ErrNotFound
	}
	pair := [2]string{bid.JobID, bid.FreelancerID}
	if _, dup := s.bidPairs[pair]; dup {
		return store.ErrDuplicate
	}
	if j.Status != marketplace.JobOpen {
		return store.ErrConditionFailed
	}
	s.bids[bid.ID] = copyBid(bid)
	s.bidPairs[pair] = bid.ID
	j.Bids = append(j.Bids, bid.ID)
	j.UpdatedAt = s.now()
	return nil
}

func (s *Store) GetBid(ctx context.Context, id string) (*marketplace.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bids[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyBid(b), nil
}

func (s *Store) ListBids(ctx context.Context, f marketplace.BidFilter) ([]*marketplace.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*marketplace.Bid{}
	for _, b := range s.bids {
		if f.JobID != "" && b.JobID != f.JobID {
			continue
		}
		if f.FreelancerID != "" && b.FreelancerID != f.FreelancerID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, copyBid(b))
	}
	newestFirst(out, func(b *marketplace.Bid) (time.Time, string) { return b.CreatedAt, b.ID })
	return out, nil
}

func (s *Store) SetBidStatus(ctx context.Context, id string, from, to marketplace.BidStatus) (*marketplace.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bids[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if b.Status != from {
		return nil, store.ErrConditionFailed
	}
	b.Status = to
	b.UpdatedAt = s.now()
	return copyBid(b), nil
}

// ---- ratings ----

func copyRating(r *marketplace.Rating) *marketplace.Rating {
	cp := *r
	return &cp
}

func (s *Store) CreateRating(ctx context.Context, r *marketplace.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ratingsByJob[r.JobID]; dup {
		return store.ErrDuplicate
	}
	s.ratings[r.ID] = copyRating(r)
	s.ratingsByJob[r.JobID] = r.ID
	return nil
}

func (s *Store) GetRatingByJob(ctx context.Context, jobID string) (*marketplace.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.ratingsByJob[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyRating(s.ratings[id]), nil
}

func (s *Store) freelancerRatings(freelancerID string) []*marketplace.Rating {
	var out []*marketplace.Rating
	for _, r := range s.ratings {
		if r.FreelancerID == freelancerID {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) ListRatings(ctx context.Context, freelancerID string, skip, limit int64) ([]*marketplace.Rating, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.freelancerRatings(freelancerID)
	out := make([]*marketplace.Rating, 0, len(rs))
	for _, r := range rs {
		out = append(out, copyRating(r))
	}
	newestFirst(out, func(r *marketplace.Rating) (time.Time, string) { return r.CreatedAt, r.ID })
	return page(out, skip, limit), int64(len(out)), nil
}

func (s *Store) RatingBreakdown(ctx context.Context, freelancerID string) (map[int]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int]int64, 5)
	for _, r := range s.freelancerRatings(freelancerID) {
		out[r.Rating]++
	}
	return out, nil
}

func (s *Store) RecomputeFreelancerRating(ctx context.Context, freelancerID string) (user.RatingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[freelancerID]
	if !ok {
		return user.RatingSummary{}, store.ErrNotFound
	}
	var sum user.RatingSummary
	rs := s.freelancerRatings(freelancerID)
	if len(rs) > 0 {
		total := 0
		for _, r := range rs {
			total += r.Rating
		}
		sum = user.RatingSummary{Average: float64(total) / float64(len(rs)), Count: int64(len(rs))}
	}
	u.Rating = sum
	u.UpdatedAt = s.now()
	return sum, nil
}

func (s *Store) FreelancersWithRatings(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range s.ratings {
		if _, ok := seen[r.FreelancerID]; ok {
			continue
		}
		seen[r.FreelancerID] = struct{}{}
		out = append(out, r.FreelancerID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Stats(ctx context.Context) (*marketplace.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &marketplace.Stats{
		UsersByRole:  make(map[string]int64),
		JobsByStatus: make(map[string]int64),
		Bids:         int64(len(s.bids)),
		Ratings:      int64(len(s.ratings)),
	}
	for _, u := range s.users {
		st.UsersByRole[string(u.Role)]++
	}
	for _, j := range s.jobs {
		st.JobsByStatus[string(j.Status)]++
	}
	return st, nil
}

// ---- notifications ----

func (s *Store) CreateNotification(ctx context.Context, n *alerts.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, f alerts.Filter) ([]*alerts.Notification, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*alerts.Notification
	for _, n := range s.notifications {
		if n.UserID != f.UserID || (f.UnreadOnly && n.IsRead) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	newestFirst(out, func(n *alerts.Notification) (time.Time, string) { return n.CreatedAt, n.ID })
	return page(out, f.Skip, f.Limit), int64(len(out)), nil
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, note := range s.notifications {
		if note.UserID == userID && !note.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkRead(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return store.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func page[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}

// newestFirst orders by creation time, ties broken by ID so pages never overlap.
func newestFirst[T any](items []T, key func(T) (time.Time, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})
}
