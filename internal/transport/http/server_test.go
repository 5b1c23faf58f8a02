package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/YusovID/git-done/internal/config"
	"github.com/YusovID/git-done/internal/domain"
	"github.com/YusovID/git-done/internal/embed"
	"github.com/YusovID/git-done/internal/github"
	"github.com/YusovID/git-done/internal/service"
	"github.com/YusovID/git-done/internal/session"
	"github.com/YusovID/git-done/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "webhook-secret"
	testBaseURL = "https://gitdone.example"
)

type testDeps struct {
	goals       *GoalServiceMock
	users       *UserServiceMock
	completions *CompletionServiceMock
	embeds      *EmbedServiceMock
	oauth       *OAuthProviderMock
	db          *PingerMock
	github      *PingerMock
	sessions    *session.Manager
}

func newTestServer(t *testing.T, opts Options) (http.Handler, *testDeps) {
	t.Helper()

	sessions, err := session.NewManager(config.Session{
		Secret:     "0123456789abcdef-test",
		CookieName: "gitdone_session",
		TTL:        time.Hour,
	}, false)
	require.NoError(t, err)

	d := &testDeps{
		goals:       new(GoalServiceMock),
		users:       new(UserServiceMock),
		completions: new(CompletionServiceMock),
		embeds:      new(EmbedServiceMock),
		oauth:       new(OAuthProviderMock),
		db:          new(PingerMock),
		github:      new(PingerMock),
		sessions:    sessions,
	}

	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = testBaseURL
	}
	if opts.WebhookSecret == "" {
		opts.WebhookSecret = testSecret
	}
	if opts.RateRPS == 0 {
		opts.RateRPS = 1000
		opts.RateBurst = 1000
	}

	server := NewServer(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Services{Goals: d.goals, Users: d.users, Completions: d.completions, Embeds: d.embeds},
		sessions,
		d.oauth,
		d.db,
		d.github,
		opts,
	)

	return server.Routes(), d
}

// signIn attaches a valid session cookie for user 1001.
func signIn(t *testing.T, d *testDeps, req *http.Request) {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, d.sessions.Issue(rec, "1001", "octo"))

	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
}

func sampleGoal() *domain.Goal {
	webhookID := "99"

	return &domain.Goal{
		ID:                  5,
		OwnerID:             "1001",
		Title:               "Ship v1",
		Details:             "tag it",
		Deadline:            time.Date(2030, 12, 12, 23, 59, 0, 0, time.UTC),
		DeadlineDisplay:     "12/12/2030 23:59",
		RepoURL:             "https://github.com/octo/hello",
		RepoOwner:           "octo",
		RepoName:            "hello",
		CompletionCondition: "#done",
		CompletionType:      domain.CompletionCommit,
		Status:              domain.GoalActive,
		CreatedAt:           time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		EmbedToken:          "tok123",
		WebhookID:           &webhookID,
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))

	return out
}

func TestServer_Goals_RequireSession(t *testing.T) {
	router, d := newTestServer(t, Options{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/goals"},
		{http.MethodPost, "/api/goals"},
		{http.MethodPut, "/api/goals/5"},
		{http.MethodDelete, "/api/goals/5"},
		{http.MethodGet, "/api/goals/5/calendar"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", tc.method, tc.path)
		assert.JSONEq(t, `{"error":"not authenticated"}`, rr.Body.String())
	}

	d.goals.AssertNotCalled(t, "ListGoals", mock.Anything, mock.Anything)
}

func TestServer_ListGoals(t *testing.T) {
	router, d := newTestServer(t, Options{})

	d.goals.On("ListGoals", mock.Anything, "1001").Return([]domain.Goal{*sampleGoal()}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
	signIn(t, d, req)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var goals []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &goals))
	require.Len(t, goals, 1)

	g := goals[0]
	assert.Equal(t, "https://gitdone.example/embed/tok123", g["embed_url"])
	assert.Equal(t, "octo", g["repo_owner"])
	assert.Equal(t, "hello", g["repo_name"])
	assert.Equal(t, "2030-12-12T23:59:00Z", g["deadline"])
	assert.Nil(t, g["completed_at"])
	assert.NotContains(t, g, "warnings")

	setCookie := rr.Header().Get("Set-Cookie")
	assert.Contains(t, setCookie, "gitdone_session=", "session should be refreshed")

	d.goals.AssertExpectations(t)
}

func TestServer_CreateGoal(t *testing.T) {
	testCases := []struct {
		name           string
		body           string
		setupMocks     func(*GoalServiceMock)
		expectedStatus int
		check          func(t *testing.T, body map[string]any)
	}{
		{
			name: "Success with warning",
			body: `{"title":"Ship v1","deadline":"2030-12-12T23:59","repo_url":"https://github.com/octo/hello","completion_condition":"#done"}`,
			setupMocks: func(m *GoalServiceMock) {
				m.On("CreateGoal", mock.Anything, "1001", mock.MatchedBy(func(in service.CreateGoalInput) bool {
					return in.Title == "Ship v1" && in.CompletionType == ""
				})).Return(&service.GoalResult{
					Goal:     sampleGoal(),
					Warnings: []service.Warning{{Code: service.WarningHookRegistration, Message: "403"}},
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			check: func(t *testing.T, body map[string]any) {
				assert.EqualValues(t, 5, body["id"])
				warnings, ok := body["warnings"].([]any)
				require.True(t, ok)
				assert.Len(t, warnings, 1)
			},
		},
		{
			name: "Description is an alias of title",
			body: `{"description":"From alias","deadline":"2030-12-12T23:59","repo_url":"octo/hello","completion_condition":"42","completion_type":"issue"}`,
			setupMocks: func(m *GoalServiceMock) {
				m.On("CreateGoal", mock.Anything, "1001", mock.MatchedBy(func(in service.CreateGoalInput) bool {
					return in.Title == "From alias" && in.CompletionType == "issue"
				})).Return(&service.GoalResult{Goal: sampleGoal()}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Invalid JSON",
			body:           `{invalid json}`,
			setupMocks:     func(m *GoalServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "invalid request body", body["error"])
			},
		},
		{
			name:           "Missing fields",
			body:           `{"deadline":"2030-12-12T23:59"}`,
			setupMocks:     func(m *GoalServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Contains(t, body["error"], "field 'title' is required")
			},
		},
		{
			name:           "Repository URL with one segment",
			body:           `{"title":"x","deadline":"2030-12-12T23:59","repo_url":"hello","completion_condition":"#done"}`,
			setupMocks:     func(m *GoalServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, apperrors.ErrInvalidRepoURL.Error(), body["error"])
			},
		},
		{
			name:           "Unknown completion type",
			body:           `{"title":"x","deadline":"2030-12-12T23:59","repo_url":"octo/hello","completion_condition":"#done","completion_type":"pr"}`,
			setupMocks:     func(m *GoalServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, apperrors.ErrCompletionType.Error(), body["error"])
			},
		},
		{
			name: "Past deadline from service",
			body: `{"title":"x","deadline":"2020-01-01T00:00","repo_url":"octo/hello","completion_condition":"#done"}`,
			setupMocks: func(m *GoalServiceMock) {
				m.On("CreateGoal", mock.Anything, "1001", mock.Anything).
					Return(nil, apperrors.Invalid(apperrors.ErrDeadlinePast)).Once()
			},
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "deadline cannot be in the past", body["error"])
			},
		},
		{
			name: "Vanished user",
			body: `{"title":"x","deadline":"2030-01-01T00:00","repo_url":"octo/hello","completion_condition":"#done"}`,
			setupMocks: func(m *GoalServiceMock) {
				m.On("CreateGoal", mock.Anything, "1001", mock.Anything).Return(nil, apperrors.ErrNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Unexpected error",
			body: `{"title":"x","deadline":"2030-01-01T00:00","repo_url":"octo/hello","completion_condition":"#done"}`,
			setupMocks: func(m *GoalServiceMock) {
				m.On("CreateGoal", mock.Anything, "1001", mock.Anything).Return(nil, errors.New("pq: connection refused")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "internal server error", body["error"])
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, d := newTestServer(t, Options{})
			tc.setupMocks(d.goals)

			req := httptest.NewRequest(http.MethodPost, "/api/goals", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			signIn(t, d, req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code, rr.Body.String())
			if tc.check != nil {
				tc.check(t, decodeJSON(t, rr))
			}

			d.goals.AssertExpectations(t)
		})
	}
}

func TestServer_UpdateGoal(t *testing.T) {
	t.Run("Partial update", func(t *testing.T) {
		router, d := newTestServer(t, Options{})

		updated := sampleGoal()
		updated.Title = "Ship v2"

		d.goals.On("UpdateGoal", mock.Anything, "1001", int64(5), mock.MatchedBy(func(in service.UpdateGoalInput) bool {
			return in.Title != nil && *in.Title == "Ship v2" && in.Deadline == nil && in.Details == nil
		})).Return(updated, nil).Once()

		req := httptest.NewRequest(http.MethodPut, "/api/goals/5", strings.NewReader(`{"title":"Ship v2"}`))
		signIn(t, d, req)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Ship v2", decodeJSON(t, rr)["title"])
	})

	t.Run("Empty condition", func(t *testing.T) {
		router, d := newTestServer(t, Options{})

		d.goals.On("UpdateGoal", mock.Anything, "1001", int64(5), mock.Anything).
			Return(nil, &apperrors.FieldError{Field: "completion_condition", Reason: "cannot be empty"}).Once()

		req := httptest.NewRequest(http.MethodPut, "/api/goals/5", strings.NewReader(`{"completion_condition":"  "}`))
		signIn(t, d, req)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"completion_condition: cannot be empty"}`, rr.Body.String())
	})

	t.Run("Not owner or unknown", func(t *testing.T) {
		router, d := newTestServer(t, Options{})

		d.goals.On("UpdateGoal", mock.Anything, "1001", int64(6), mock.Anything).Return(nil, apperrors.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodPut, "/api/goals/6", strings.NewReader(`{}`))
		signIn(t, d, req)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error":"goal not found"}`, rr.Body.String())
	})

	t.Run("Non numeric id", func(t *testing.T) {
		router, d := newTestServer(t, Options{})

		req := httptest.NewRequest(http.MethodPut, "/api/goals/abc", strings.NewReader(`{}`))
		signIn(t, d, req)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		d.goals.AssertNotCalled(t, "UpdateGoal", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestServer_DeleteGoal(t *testing.T) {
	router, d := newTestServer(t, Options{})

	d.goals.On("DeleteGoal", mock.Anything, "1001", int64(5)).Return(&service.DeleteResult{}, nil).Once()
	d.goals.On("DeleteGoal", mock.Anything, "1001", int64(7)).Return(&service.DeleteResult{
		Warnings: []service.Warning{{Code: service.WarningHookRemoval, Message: "boom"}},
	}, nil).Once()
	d.goals.On("DeleteGoal", mock.Anything, "1001", int64(8)).Return(nil, apperrors.ErrNotFound).Once()

	do := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/api/goals/"+id, nil)
		signIn(t, d, req)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		return rr
	}

	rr := do("5")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"deleted"}`, rr.Body.String())

	rr = do("7")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"deleted","warnings":[{"code":"webhook_removal_failed","message":"boom"}]}`, rr.Body.String())

	rr = do("8")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	d.goals.AssertExpectations(t)
}

func TestServer_GoalCalendar(t *testing.T) {
	router, d := newTestServer(t, Options{})

	d.goals.On("GoalCalendar", mock.Anything, "1001", int64(5)).Return([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/goals/5/calendar", nil)
	signIn(t, d, req)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=goal_5.ics", rr.Header().Get("Content-Disposition"))
	assert.Contains(t, rr.Body.String(), "BEGIN:VCALENDAR")
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(body))

	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestServer_GithubWebhook(t *testing.T) {
	const pushBody = `{"repository":{"full_name":"octo/hello"},"commits":[{"id":"abc1234567","message":"wip"},{"id":"def7654321","message":"fix #done here"}]}`

	testCases := []struct {
		name           string
		event          string
		body           string
		signature      func(body string) string
		setupMocks     func(*CompletionServiceMock)
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Missing signature",
			event:          "push",
			body:           pushBody,
			signature:      func(string) string { return "" },
			setupMocks:     func(*CompletionServiceMock) {},
			expectedStatus: http.StatusForbidden,
			expectedError:  apperrors.ErrMissingSignature.Error(),
		},
		{
			name:           "Wrong signature",
			event:          "push",
			body:           pushBody,
			signature:      func(body string) string { return sign(body + " ") },
			setupMocks:     func(*CompletionServiceMock) {},
			expectedStatus: http.StatusForbidden,
			expectedError:  apperrors.ErrInvalidSignature.Error(),
		},
		{
			name:           "Missing event header",
			event:          "",
			body:           pushBody,
			signature:      sign,
			setupMocks:     func(*CompletionServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  apperrors.ErrMissingEvent.Error(),
		},
		{
			name:           "Malformed push",
			event:          "push",
			body:           `{"repository":{"full_name":"nohash"},"commits":[]}`,
			signature:      sign,
			setupMocks:     func(*CompletionServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "malformed webhook payload: payload missing repository name",
		},
		{
			name:      "Push completes goal",
			event:     "push",
			body:      pushBody,
			signature: sign,
			setupMocks: func(m *CompletionServiceMock) {
				m.On("Apply", mock.Anything, mock.MatchedBy(func(ev webhook.Event) bool {
					push, ok := ev.(webhook.PushEvent)
					return ok && push.Repo.FullName() == "octo/hello" && len(push.Commits) == 2
				})).Return(&service.CompletionResult{Outcome: service.OutcomeCompleted, GoalID: 5, Message: "commit def7654 matched"}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "Ping is a no-op",
			event:     "ping",
			body:      `{"zen":"Keep it logically awesome."}`,
			signature: sign,
			setupMocks: func(m *CompletionServiceMock) {
				m.On("Apply", mock.Anything, webhook.UnsupportedEvent{Name: "ping"}).
					Return(&service.CompletionResult{Outcome: service.OutcomeIgnored, Message: `event "ping" ignored`}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "Store failure",
			event:     "issues",
			body:      `{"action":"closed","repository":{"full_name":"octo/hello"},"issue":{"number":42}}`,
			signature: sign,
			setupMocks: func(m *CompletionServiceMock) {
				m.On("Apply", mock.Anything, webhook.IssuesEvent{Action: "closed", Repo: domain.Repo{Owner: "octo", Name: "hello"}, IssueNumber: 42}).
					Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, d := newTestServer(t, Options{})
			tc.setupMocks(d.completions)

			req := httptest.NewRequest(http.MethodPost, "/api/github-webhook", strings.NewReader(tc.body))
			if tc.event != "" {
				req.Header.Set(webhook.EventHeader, tc.event)
			}
			if sig := tc.signature(tc.body); sig != "" {
				req.Header.Set(webhook.SignatureHeader, sig)
			}

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code, rr.Body.String())
			if tc.expectedError != "" {
				assert.Equal(t, tc.expectedError, decodeJSON(t, rr)["error"])
			}

			d.completions.AssertExpectations(t)
		})
	}
}

func TestServer_EmbedData(t *testing.T) {
	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

	completedAt := now.Add(-time.Hour)
	done := sampleGoal()
	done.Status = domain.GoalCompleted
	done.CompletedAt = &completedAt
	doneProjection := embed.Project(done, now)

	active := embed.Project(sampleGoal(), now)

	router, d := newTestServer(t, Options{})
	d.embeds.On("Projection", mock.Anything, "done").Return(&doneProjection, nil)
	d.embeds.On("Projection", mock.Anything, "active").Return(&active, nil)
	d.embeds.On("Projection", mock.Anything, "missing").Return(nil, apperrors.ErrNotFound)

	t.Run("Completed goal is cacheable", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/embed/done/data", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, embed.CacheCompleted, rr.Header().Get("Cache-Control"))
		assert.Equal(t, doneProjection.ETag(), rr.Header().Get("ETag"))

		body := decodeJSON(t, rr)
		assert.EqualValues(t, 0, body["time_remaining"])
		assert.Equal(t, false, body["is_overdue"])
	})

	t.Run("Active goal is not cached", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/embed/active/data", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, embed.CacheActive, rr.Header().Get("Cache-Control"))
		assert.Equal(t, "no-cache", rr.Header().Get("Pragma"))
		assert.Equal(t, "0", rr.Header().Get("Expires"))
	})

	t.Run("Matching ETag", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/embed/done/data", nil)
		req.Header.Set("If-None-Match", doneProjection.ETag())

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotModified, rr.Code)
		assert.Empty(t, rr.Body.String())
	})

	t.Run("Unknown token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/embed/missing/data", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Preflight", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/embed/anything/data", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "GET, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, Cache-Control, Pragma", rr.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "3600", rr.Header().Get("Access-Control-Max-Age"))
	})
}

func TestServer_EmbedWidget(t *testing.T) {
	router, d := newTestServer(t, Options{})
	d.embeds.On("Goal", mock.Anything, "tok123").Return(sampleGoal(), nil)
	d.embeds.On("Goal", mock.Anything, "missing").Return(nil, apperrors.ErrNotFound)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/embed/tok123?theme=light", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "frame-ancestors *", rr.Header().Get("Content-Security-Policy"))
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "Ship v1")
	assert.Contains(t, rr.Body.String(), "/api/embed/tok123/data")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/embed/missing", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_EmbedRateLimited(t *testing.T) {
	router, d := newTestServer(t, Options{RateRPS: 0.001, RateBurst: 2})
	d.embeds.On("Goal", mock.Anything, "tok123").Return(sampleGoal(), nil)

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/embed/tok123", nil)
		req.RemoteAddr = "203.0.113.7:5555"

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/embed/tok123", nil)
	req.RemoteAddr = "198.51.100.1:5555"

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestServer_AuthLogin(t *testing.T) {
	router, d := newTestServer(t, Options{})
	d.oauth.On("AuthURL", mock.AnythingOfType("string")).Return("https://github.com/login/oauth/authorize?state=x").Once()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/github", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "https://github.com/login/oauth/authorize?state=x", rr.Header().Get("Location"))

	var state *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == stateCookie {
			state = c
		}
	}
	require.NotNil(t, state)
	assert.Len(t, state.Value, 20)
	assert.True(t, state.HttpOnly)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/gitlab", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_AuthCallback(t *testing.T) {
	callback := func(state, cookieState, extra string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?state="+state+extra, nil)
		if cookieState != "" {
			req.AddCookie(&http.Cookie{Name: stateCookie, Value: cookieState})
		}

		return req
	}

	t.Run("Success", func(t *testing.T) {
		router, d := newTestServer(t, Options{})

		d.oauth.On("Exchange", mock.Anything, "the-code").
			Return(&github.Identity{ID: "1001", Login: "octo", AccessToken: "gho_x"}, nil).Once()
		d.users.On("Login", mock.Anything, "1001", "octo", "gho_x").
			Return(&domain.User{GitHubID: "1001", Username: "octo"}, nil).Once()

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, callback("s1", "s1", "&code=the-code"))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))

		var sessionCookie *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == "gitdone_session" {
				sessionCookie = c
			}
		}
		require.NotNil(t, sessionCookie)

		// The issued cookie must open the API.
		d.goals.On("ListGoals", mock.Anything, "1001").Return([]domain.Goal{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
		req.AddCookie(sessionCookie)

		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("State mismatch", func(t *testing.T) {
		router, d := newTestServer(t, Options{})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, callback("s1", "other", "&code=c"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, callback("s1", "", "&code=c"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		d.oauth.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)
	})

	t.Run("Provider error", func(t *testing.T) {
		router, _ := newTestServer(t, Options{})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, callback("s1", "s1", "&error=access_denied"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "access_denied")
	})

	t.Run("Missing code", func(t *testing.T) {
		router, _ := newTestServer(t, Options{})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, callback("s1", "s1", ""))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Upstream failure", func(t *testing.T) {
		router, d := newTestServer(t, Options{})

		d.oauth.On("Exchange", mock.Anything, "c").Return(nil, apperrors.ErrUpstream).Once()

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, callback("s1", "s1", "&code=c"))
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}

func TestServer_Logout(t *testing.T) {
	router, d := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	signIn(t, d, req)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "gitdone_session", cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestServer_Health(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		router, d := newTestServer(t, Options{HealthTimeout: time.Second})
		d.db.On("Ping", mock.Anything).Return(nil).Once()
		d.github.On("Ping", mock.Anything).Return(nil).Once()

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		require.Equal(t, http.StatusOK, rr.Code)

		body := decodeJSON(t, rr)
		assert.Equal(t, "git-done-api", body["service"])
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, map[string]any{"database": "healthy", "github_api": "healthy"}, body["checks"])
		assert.NotEmpty(t, body["timestamp"])
	})

	t.Run("Degraded", func(t *testing.T) {
		router, d := newTestServer(t, Options{})
		d.db.On("Ping", mock.Anything).Return(nil).Once()
		d.github.On("Ping", mock.Anything).Return(errors.New("dial tcp: i/o timeout")).Once()

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)

		body := decodeJSON(t, rr)
		assert.Equal(t, "degraded", body["status"])
		checks := body["checks"].(map[string]any)
		assert.Equal(t, "healthy", checks["database"])
		assert.Contains(t, checks["github_api"], "unhealthy")
	})
}

func TestServer_Metrics(t *testing.T) {
	router, _ := newTestServer(t, Options{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}
