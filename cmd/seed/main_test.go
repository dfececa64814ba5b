package main

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/gighub/internal/db/memdb"
	"github.com/sudo-init-do/gighub/internal/marketplace"
)

func TestRunReturnsErrorsInsteadOfExiting(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")

	err := run("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestRunAgainstMemoryStore(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")

	require.NoError(t, run(""))
}

func TestSeedIsIdempotent(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	ctx := context.Background()
	s := memdb.New()

	require.NoError(t, seed(ctx, s, log))
	require.NoError(t, seed(ctx, s, log))

	_, users, err := s.ListUsers(ctx, 0, 50)
	require.NoError(t, err)
	assert.EqualValues(t, len(sampleUsers), users)

	jobs, total, err := s.ListJobs(ctx, marketplace.JobFilter{Limit: 50})
	require.NoError(t, err)
	assert.EqualValues(t, len(sampleJobs), total)

	var completed int
	for _, j := range jobs {
		if j.Status == marketplace.JobCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)

	sarah, err := s.GetUserByEmail(ctx, "sarah@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, sarah.Rating.Count)
	assert.InDelta(t, 5.0, sarah.Rating.Average, 1e-9)
}
