package activity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-dash/internal/engine"
	"github.com/celerix-dev/celerix-dash/pkg/schema"
)

func TestComputeStats(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, engine.NewMemBackend(nil), nil)
	require.NoError(t, err)

	s.Record(ctx, schema.ActionPageView, "Application initialized", schema.PageApp)
	s.Record(ctx, schema.ActionLogin, "User logged in: user@example.com", schema.PageAuth)
	s.Record(ctx, schema.ActionPageView, "Viewed dashboard", schema.PageDashboard)
	s.Record(ctx, schema.ActionPageView, "Viewed users page", schema.PageUsers)
	s.Record(ctx, schema.ActionUserDelete, "Deleted user ID: 2", schema.PageUsers)
	s.Record(ctx, schema.ActionUserUpdate, "Updated user: Leanne Graham", schema.PageUsers)

	st := s.Stats()
	assert.Equal(t, 6, st.TotalLogs)
	assert.Equal(t, 3, st.UserActions)
	assert.Equal(t, 3, st.PageViews)
	assert.Equal(t, 5, st.RecentActivity)
	require.Len(t, st.Recent, 5)
	assert.Equal(t, "Updated user: Leanne Graham", st.Recent[0].Details)
}

func TestComputeStats_Empty(t *testing.T) {
	st := ComputeStats(nil)
	assert.Equal(t, 0, st.TotalLogs)
	assert.Equal(t, 0, st.RecentActivity)
	assert.Empty(t, st.Recent)
}

func TestComputeStats_FewerThanRecentLimit(t *testing.T) {
	st := ComputeStats([]schema.LogEntry{{Action: schema.ActionLogout, Page: schema.PageAuth}})
	assert.Equal(t, 1, st.RecentActivity)
	assert.Equal(t, 0, st.PageViews)
}
