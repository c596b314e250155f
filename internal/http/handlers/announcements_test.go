package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/http/handlers"
	"service-dispatch/internal/service/matching"
	testlog "service-dispatch/internal/testutil"
)

type fixture struct {
	dispatcher *MockDispatcher
	spawner    *MockSpawner
	logs       *testlog.Recorder
	router     http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		dispatcher: NewMockDispatcher(ctrl),
		spawner:    NewMockSpawner(ctrl),
		logs:       testlog.New(),
	}
	ah := handlers.NewAnnouncementHandler(f.logs.Logger(), f.dispatcher, f.spawner, handlers.WithMaxWindow(maxWindow))
	nh := handlers.NewNotificationHandler(f.logs.Logger(), f.dispatcher)

	r := chi.NewRouter()
	r.Post("/announcements", ah.Publish)
	r.Post("/announcements/batch", ah.PublishBatch)
	r.Get("/announcements", ah.List)
	r.Get("/announcements/{id}", ah.Get)
	r.Post("/announcements/{id}/assign", ah.Assign)
	r.Get("/couriers/{id}/notifications", nh.List)
	f.router = r
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

const maxWindow = 10 * time.Second

var created = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAnnouncementHandler_Publish_OK(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	winner := domain.Candidature{ID: "cand-1", AnnouncementID: "a-1", CourierID: "c-2", CourierName: "Bob", ETA: 5, CreatedAt: created}
	f.dispatcher.EXPECT().
		RunCycle(gomock.Any(), matching.Job{Pickup: "Restaurant A", Dropoff: "Client Z", Reward: 6.5, Window: 1500 * time.Millisecond}).
		Return(matching.Outcome{
			Announcement: domain.Announcement{ID: "a-1", Pickup: "Restaurant A", Dropoff: "Client Z", Reward: 6.5, Status: domain.AnnouncementAssigned, CreatedAt: created, ChosenCourierID: "c-2"},
			Result:       matching.ResultAssigned,
			Winner:       &winner,
			Candidates:   3,
			Duration:     1600 * time.Millisecond,
		}, nil)

	rr := f.do(http.MethodPost, "/announcements", `{"pickup":"Restaurant A","dropoff":"Client Z","reward":6.5,"wait_seconds":1.5}`)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode[map[string]any](t, rr)
	require.Equal(t, "assigned", body["result"])
	require.EqualValues(t, 3, body["candidates"])
	require.EqualValues(t, 1600, body["duration_ms"])
	require.Equal(t, "c-2", body["winner"].(map[string]any)["courier_id"])
	require.Equal(t, "c-2", body["announcement"].(map[string]any)["chosen_courier_id"])
}

func TestAnnouncementHandler_Publish_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		body   string
		err    error
		expect bool
		code   int
	}{
		{name: "invalid json", body: `{"pickup":`, code: http.StatusBadRequest},
		{name: "unknown field", body: `{"pickup":"a","dropoff":"b","reward":1,"tip":2}`, code: http.StatusBadRequest},
		{name: "missing reward", body: `{"pickup":"a","dropoff":"b"}`, code: http.StatusBadRequest},
		{name: "negative wait", body: `{"pickup":"a","dropoff":"b","reward":1,"wait_seconds":-1}`, code: http.StatusBadRequest},
		{name: "wait above max window", body: `{"pickup":"a","dropoff":"b","reward":1,"wait_seconds":16}`, code: http.StatusBadRequest},
		{name: "blank pickup", body: `{"pickup":" ","dropoff":"b","reward":1}`, code: http.StatusBadRequest},
		{name: "negative reward", body: `{"pickup":"a","dropoff":"b","reward":-2}`, code: http.StatusBadRequest},
		{name: "domain validation", body: `{"pickup":"a","dropoff":"b","reward":1}`, err: fmt.Errorf("%w: reward is too large", apperr.ErrInvalid), expect: true, code: http.StatusBadRequest},
		{name: "store down", body: `{"pickup":"a","dropoff":"b","reward":1}`, err: apperr.ErrUnavailable, expect: true, code: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.expect {
				f.dispatcher.EXPECT().RunCycle(gomock.Any(), gomock.Any()).Return(matching.Outcome{}, tc.err)
			}
			rr := f.do(http.MethodPost, "/announcements", tc.body)
			require.Equal(t, tc.code, rr.Code)
			require.NotEmpty(t, decode[handlers.ErrorResponse](t, rr).Error)
		})
	}
}

func TestAnnouncementHandler_Publish_WaitAtMaxWindow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.dispatcher.EXPECT().
		RunCycle(gomock.Any(), matching.Job{Pickup: "a", Dropoff: "b", Reward: 1, Window: maxWindow}).
		Return(matching.Outcome{Result: matching.ResultNoCandidates}, nil)

	rr := f.do(http.MethodPost, "/announcements", `{"pickup":"a","dropoff":"b","reward":1,"wait_seconds":10}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(http.MethodPost, "/announcements", `{"pickup":"a","dropoff":"b","reward":1,"wait_seconds":10.5}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, decode[handlers.ErrorResponse](t, rr).Error, "wait_seconds must not exceed 10")
}

func TestAnnouncementHandler_PublishBatch_Accepted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	done := make(chan struct{})
	f.spawner.EXPECT().Go(gomock.Any()).Do(func(fn func(context.Context)) {
		fn(context.Background())
		close(done)
	})
	f.dispatcher.EXPECT().
		RunBatch(gomock.Any(), []matching.Job{
			{Pickup: "A", Dropoff: "B", Reward: 1},
			{Pickup: "C", Dropoff: "D", Reward: 2, Window: 3 * time.Second},
		}, 2*time.Second).
		Return([]matching.Outcome{{Result: matching.ResultAssigned}, {Result: matching.ResultNoCandidates}}, nil)

	rr := f.do(http.MethodPost, "/announcements/batch", `{"items":[
		{"pickup":"A","dropoff":"B","reward":1},
		{"pickup":"C","dropoff":"D","reward":2,"wait_seconds":3}
	],"interval_seconds":2}`)

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.EqualValues(t, 2, decode[map[string]any](t, rr)["accepted"])
	<-done
	require.True(t, f.logs.HasMsg("batch finished"))
}

func TestAnnouncementHandler_PublishBatch_DefaultIntervalAndErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.spawner.EXPECT().Go(gomock.Any()).Do(func(fn func(context.Context)) { fn(context.Background()) })
	f.dispatcher.EXPECT().
		RunBatch(gomock.Any(), gomock.Len(1), time.Duration(-1)).
		Return(nil, errors.New("job 0: boom"))

	rr := f.do(http.MethodPost, "/announcements/batch", `{"items":[{"pickup":"A","dropoff":"B","reward":1}]}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.True(t, f.logs.HasMsg("batch finished with errors"))
}

func TestAnnouncementHandler_PublishBatch_Rejects(t *testing.T) {
	t.Parallel()

	for name, body := range map[string]string{
		"empty":             `{"items":[]}`,
		"invalid item":      `{"items":[{"pickup":"A","dropoff":"B","reward":-3}]}`,
		"blank pickup":      `{"items":[{"pickup":" ","dropoff":"B","reward":3}]}`,
		"wait above max":    `{"items":[{"pickup":"A","dropoff":"B","reward":3,"wait_seconds":11}]}`,
		"negative interval": `{"items":[{"pickup":"A","dropoff":"B","reward":3}],"interval_seconds":-1}`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			rr := f.do(http.MethodPost, "/announcements/batch", body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestAnnouncementHandler_List(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.dispatcher.EXPECT().
		Announcements(gomock.Any(), domain.AnnouncementOpen, 5).
		Return([]domain.Announcement{{ID: "a-2", Status: domain.AnnouncementOpen}, {ID: "a-1", Status: domain.AnnouncementOpen}}, nil)

	rr := f.do(http.MethodGet, "/announcements?status=open&limit=5", "")
	require.Equal(t, http.StatusOK, rr.Code)

	list := decode[[]map[string]any](t, rr)
	require.Len(t, list, 2)
	require.Equal(t, "a-2", list[0]["id"])
}

func TestAnnouncementHandler_List_BadParams(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/announcements?limit=-2", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	f.dispatcher.EXPECT().
		Announcements(gomock.Any(), domain.AnnouncementStatus("closed"), 0).
		Return(nil, fmt.Errorf("%w: unknown status", apperr.ErrInvalid))
	rr = f.do(http.MethodGet, "/announcements?status=closed", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAnnouncementHandler_Get(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.dispatcher.EXPECT().Announcement(gomock.Any(), "a-1").Return(matching.AnnouncementView{
		Announcement: domain.Announcement{ID: "a-1", Status: domain.AnnouncementAssigned, ChosenCourierID: "c-1"},
		Selection:    &domain.Selection{ID: "s-1", AnnouncementID: "a-1", CourierID: "c-1", Status: domain.SelectionAssigned},
		Candidatures: []domain.Candidature{{ID: "x", CourierID: "c-1", ETA: 4}, {ID: "y", CourierID: "c-2", ETA: 9}},
	}, nil)
	f.dispatcher.EXPECT().Announcement(gomock.Any(), "missing").Return(matching.AnnouncementView{}, apperr.ErrNotFound)

	rr := f.do(http.MethodGet, "/announcements/a-1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[map[string]any](t, rr)
	require.Equal(t, "a-1", body["id"])
	require.Equal(t, "s-1", body["selection"].(map[string]any)["id"])
	require.Len(t, body["candidatures"], 2)

	rr = f.do(http.MethodGet, "/announcements/missing", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAnnouncementHandler_Assign(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	gomock.InOrder(
		f.dispatcher.EXPECT().Assign(gomock.Any(), "a-1", "c-1").Return(matching.ResultAssigned, nil),
		f.dispatcher.EXPECT().Assign(gomock.Any(), "a-1", "c-2").Return(matching.ResultAlreadyAssigned, nil),
	)

	rr := f.do(http.MethodPost, "/announcements/a-1/assign", `{"courier_id":"c-1"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "assigned", decode[map[string]any](t, rr)["result"])

	rr = f.do(http.MethodPost, "/announcements/a-1/assign", `{"courier_id":"c-2"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "already_assigned", decode[map[string]any](t, rr)["result"])
}

func TestAnnouncementHandler_Assign_Errors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/announcements/a-1/assign", `{"courier_id":"  "}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	f.dispatcher.EXPECT().Assign(gomock.Any(), "nope", "c-1").Return(matching.Result(""), fmt.Errorf("announcement %q: %w", "nope", apperr.ErrNotFound))
	rr = f.do(http.MethodPost, "/announcements/nope/assign", `{"courier_id":"c-1"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)

	f.dispatcher.EXPECT().Assign(gomock.Any(), "a-9", "c-1").Return(matching.Result(""), apperr.ErrUnavailable)
	rr = f.do(http.MethodPost, "/announcements/a-9/assign", `{"courier_id":"c-1"}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "internal error", decode[handlers.ErrorResponse](t, rr).Error)
}

func TestNotificationHandler_List(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.dispatcher.EXPECT().Notifications(gomock.Any(), "c-1").Return([]domain.Notification{
		{ID: "n-1", CourierID: "c-1", Type: domain.NotificationAssignment, AnnouncementID: "a-1", CreatedAt: created},
	}, nil)
	f.dispatcher.EXPECT().Notifications(gomock.Any(), "c-2").Return(nil, nil)

	rr := f.do(http.MethodGet, "/couriers/c-1/notifications", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]map[string]any](t, rr)
	require.Len(t, list, 1)
	require.Equal(t, "assignment", list[0]["type"])

	rr = f.do(http.MethodGet, "/couriers/c-2/notifications", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[]`, rr.Body.String())
}
