package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itstheanurag/kodanaliz/internal/orchestrator"
)

func TestSubmitIsBounded(t *testing.T) {
	m := NewManager(2)
	req := orchestrator.Request{SourceCode: "print(1)", Language: "python"}

	require.NoError(t, m.Submit(NewJob(context.Background(), "a", req)))
	require.NoError(t, m.Submit(NewJob(context.Background(), "b", req)))
	assert.ErrorIs(t, m.Submit(NewJob(context.Background(), "c", req)), ErrQueueFull)
	assert.Equal(t, 2, m.Len())

	job := <-m.NextJob()
	assert.Equal(t, "a", job.ID)
	assert.Equal(t, 1, cap(job.Result))
	assert.Equal(t, 1, cap(job.Err))
	require.NoError(t, m.Submit(NewJob(context.Background(), "c", req)))
}
