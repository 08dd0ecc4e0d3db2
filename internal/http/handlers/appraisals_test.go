package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/middleware"
)

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.AppraisalJob

	createErr error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]*domain.AppraisalJob{}}
}

func (f *fakeJobs) Create(ctx context.Context, job *domain.AppraisalJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	job.Status = domain.JobStatusPending
	job.CreatedAt = time.Now()
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeJobs) MarkProcessing(ctx context.Context, jobID string) (*domain.AppraisalJob, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeJobs) Complete(ctx context.Context, jobID string, summary domain.ValuationSummary, recordID string) error {
	return nil
}

func (f *fakeJobs) Fail(ctx context.Context, jobID string, message string) error { return nil }

func (f *fakeJobs) GetByID(ctx context.Context, jobID string) (*domain.AppraisalJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobs) GetForOwner(ctx context.Context, jobID, ownerID string) (*domain.AppraisalJob, error) {
	job, err := f.GetByID(ctx, jobID)
	if err != nil || job.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (f *fakeJobs) ListRecentByOwner(ctx context.Context, ownerID string, since time.Time) ([]domain.AppraisalJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AppraisalJob
	for _, job := range f.jobs {
		if job.OwnerID == ownerID && !job.CreatedAt.Before(since) {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeJobs) FailExpired(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	return 0, nil
}

func (f *fakeJobs) put(job domain.AppraisalJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := job
	f.jobs[job.ID] = &copied
}

type fakeValuations struct {
	records map[string]domain.Valuation
}

func (f *fakeValuations) Create(ctx context.Context, v *domain.Valuation) error { return nil }

func (f *fakeValuations) GetForOwner(ctx context.Context, id, ownerID string) (*domain.Valuation, error) {
	v, ok := f.records[id]
	if !ok || v.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

type fakeUsers struct {
	streaks map[string]domain.Streak
}

func (f *fakeUsers) GetStreak(ctx context.Context, userID string) (*domain.Streak, error) {
	streak := f.streaks[userID]
	return &streak, nil
}

func (f *fakeUsers) UpdateStreak(ctx context.Context, userID string, streak domain.Streak) error {
	f.streaks[userID] = streak
	return nil
}

type recordingScheduler struct {
	mu        sync.Mutex
	submitted []string
}

func (s *recordingScheduler) Submit(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, jobID)
}

func (s *recordingScheduler) jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.submitted...)
}

const (
	testSecret = "handler-test-secret"
	testUserID = "11111111-2222-3333-4444-555555555555"
)

type testEnv struct {
	app        *App
	jobs       *fakeJobs
	valuations *fakeValuations
	users      *fakeUsers
	scheduler  *recordingScheduler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		jobs:       newFakeJobs(),
		valuations: &fakeValuations{records: map[string]domain.Valuation{}},
		users:      &fakeUsers{streaks: map[string]domain.Streak{}},
		scheduler:  &recordingScheduler{},
	}
	cfg := &infra.Config{
		JWTSecret:            testSecret,
		ImageSourceAllowlist: []string{"storage.example.com"},
		StatusLookback:       24 * time.Hour,
		NewlyCompletedWindow: 5 * time.Second,
		RateLimitPerMin:      1000,
	}
	env.app = &App{
		Config:     cfg,
		Logger:     zerolog.Nop(),
		Jobs:       env.jobs,
		Valuations: env.valuations,
		Users:      env.users,
		Scheduler:  env.scheduler,
		Validate:   NewValidator(cfg.ImageSourceAllowlist),
	}
	return env
}

func (env *testEnv) request(t *testing.T, handler http.HandlerFunc, method, target string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if authed {
		req = req.WithContext(middleware.ContextWithUserID(req.Context(), testUserID))
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAppraisalsCreateAccepted(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, env.app.AppraisalsCreate, http.MethodPost, "/v1/appraisals", map[string]any{
		"imageReferences": []string{"https://storage.example.com/uploads/a.jpg"},
		"condition":       "Good",
	}, true)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp appraisalCreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, "pending", resp.Status)
	assert.NotEmpty(t, resp.Message)

	job, err := env.jobs.GetByID(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, testUserID, job.OwnerID)
	assert.Equal(t, "Good", job.Condition)
	assert.Equal(t, []string{"https://storage.example.com/uploads/a.jpg"}, job.InputImages)
	assert.Equal(t, []string{resp.JobID}, env.scheduler.jobs())
}

func TestAppraisalsCreateDefaultsCondition(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, env.app.AppraisalsCreate, http.MethodPost, "/v1/appraisals", map[string]any{
		"imageReferences": []string{"https://storage.example.com/uploads/a.jpg"},
	}, true)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp appraisalCreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	job, err := env.jobs.GetByID(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, defaultCondition, job.Condition)
}

func TestAppraisalsCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "empty image list", body: map[string]any{"imageReferences": []string{}}},
		{name: "missing image list", body: map[string]any{"condition": "Good"}},
		{name: "untrusted host", body: map[string]any{"imageReferences": []string{"https://evil.example.net/a.jpg"}}},
		{name: "plain http", body: map[string]any{"imageReferences": []string{"http://storage.example.com/a.jpg"}}},
		{name: "no path", body: map[string]any{"imageReferences": []string{"https://storage.example.com/"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.request(t, env.app.AppraisalsCreate, http.MethodPost, "/v1/appraisals", tc.body, true)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, env.scheduler.jobs(), "rejected submissions must not reach the scheduler")
}

func TestAppraisalsCreateUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, env.app.AppraisalsCreate, http.MethodPost, "/v1/appraisals", map[string]any{
		"imageReferences": []string{"https://storage.example.com/uploads/a.jpg"},
	}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func completedJob(owner string, completedAt time.Time) domain.AppraisalJob {
	recordID := "rec-" + completedAt.Format("150405.000")
	started := completedAt.Add(-10 * time.Second)
	return domain.AppraisalJob{
		ID:          "job-" + completedAt.Format("150405.000"),
		OwnerID:     owner,
		InputImages: []string{"https://storage.example.com/uploads/a.jpg"},
		Condition:   "Good",
		Status:      domain.JobStatusCompleted,
		Result: &domain.ValuationSummary{
			ItemName:   "Brass Compass",
			PriceRange: domain.PriceRange{Low: 40, High: 60},
			Currency:   "USD",
		},
		RecordID:    &recordID,
		CreatedAt:   completedAt.Add(-time.Minute),
		StartedAt:   &started,
		CompletedAt: &completedAt,
	}
}

func TestAppraisalsStatusStatsIdentity(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	env.jobs.put(domain.AppraisalJob{ID: "p1", OwnerID: testUserID, Status: domain.JobStatusPending, CreatedAt: now})
	started := now.Add(-time.Minute)
	env.jobs.put(domain.AppraisalJob{ID: "p2", OwnerID: testUserID, Status: domain.JobStatusProcessing, CreatedAt: now, StartedAt: &started})
	env.jobs.put(completedJob(testUserID, now.Add(-time.Hour)))
	failedAt := now.Add(-2 * time.Hour)
	env.jobs.put(domain.AppraisalJob{ID: "f1", OwnerID: testUserID, Status: domain.JobStatusFailed, ErrorMessage: "fetch input images: status 404", CreatedAt: failedAt.Add(-time.Minute), StartedAt: &failedAt, CompletedAt: &failedAt})
	env.jobs.put(domain.AppraisalJob{ID: "other", OwnerID: "someone-else", Status: domain.JobStatusPending, CreatedAt: now})

	rec := env.request(t, env.app.AppraisalsStatus, http.MethodGet, "/v1/appraisals/status", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp appraisalStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Len(t, resp.Items, 4, "other users' jobs are invisible")
	assert.Equal(t, 1, resp.Stats.Pending)
	assert.Equal(t, 1, resp.Stats.Processing)
	assert.Equal(t, 1, resp.Stats.Completed)
	assert.Equal(t, 1, resp.Stats.Failed)
	assert.Equal(t, resp.Stats.Pending+resp.Stats.Processing+resp.Stats.Completed+resp.Stats.Failed, resp.Stats.Total)

	for _, item := range resp.Items {
		switch item.Status {
		case "completed":
			assert.NotNil(t, item.Result)
			assert.NotNil(t, item.RecordID)
			assert.Empty(t, item.ErrorMessage)
		case "failed":
			assert.Nil(t, item.Result)
			assert.Nil(t, item.RecordID)
			assert.NotEmpty(t, item.ErrorMessage)
		default:
			assert.Nil(t, item.Result)
			assert.Nil(t, item.RecordID)
			assert.Empty(t, item.ErrorMessage)
		}
	}
}

func TestAppraisalsStatusNewlyCompletedWindow(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	fresh := completedJob(testUserID, now.Add(-2*time.Second))
	stale := completedJob(testUserID, now.Add(-time.Hour))
	env.jobs.put(fresh)
	env.jobs.put(stale)

	rec := env.request(t, env.app.AppraisalsStatus, http.MethodGet, "/v1/appraisals/status", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp appraisalStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.NewlyCompleted, 1, "a job completed an hour ago never appears")
	got := resp.NewlyCompleted[0]
	assert.Equal(t, fresh.ID, got.JobID)
	assert.Equal(t, *fresh.RecordID, got.RecordID)
	assert.Equal(t, "Brass Compass", got.ItemName)
	assert.InDelta(t, 50.0, got.Value, 0.001)
	assert.Equal(t, "USD", got.Currency)
}

func TestAppraisalsStatusIdempotentReads(t *testing.T) {
	env := newTestEnv(t)
	env.jobs.put(completedJob(testUserID, time.Now().Add(-time.Hour)))

	first := env.request(t, env.app.AppraisalsStatus, http.MethodGet, "/v1/appraisals/status", nil, true)
	second := env.request(t, env.app.AppraisalsStatus, http.MethodGet, "/v1/appraisals/status", nil, true)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestMeStreak(t *testing.T) {
	env := newTestEnv(t)
	last := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	env.users.streaks[testUserID] = domain.Streak{Current: 4, Longest: 9, LastActivity: &last}

	rec := env.request(t, env.app.MeStreak, http.MethodGet, "/v1/me/streak", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp streakDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Current)
	assert.Equal(t, 9, resp.Longest)
	require.NotNil(t, resp.LastActivity)
	assert.True(t, resp.LastActivity.Equal(last))
}
