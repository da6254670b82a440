package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/songzhibin97/adminconsole/internal/gateway"
	"github.com/songzhibin97/adminconsole/internal/normalize"
	"github.com/songzhibin97/adminconsole/pkg/console"
)

// memorySource is an in-memory Source of missions.
type memorySource struct {
	mu       sync.Mutex
	items    []console.Mission
	nextID   int
	failWith error
	calls    int
	// gate, when set, blocks mutations until it is closed.
	gate chan struct{}
}

func (s *memorySource) List(_ context.Context, page, limit int) (console.ListResult[console.Mission], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	start := (page - 1) * limit
	end := start + limit
	if start > len(s.items) {
		start = len(s.items)
	}
	if end > len(s.items) {
		end = len(s.items)
	}
	items := append([]console.Mission{}, s.items[start:end]...)
	return console.ListResult[console.Mission]{
		Items: items,
		Pagination: console.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      len(s.items),
			TotalPages: normalize.TotalPages(len(s.items), limit),
		},
	}, nil
}

func (s *memorySource) Get(_ context.Context, id string) (console.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.items {
		if m.ID == id {
			return m, nil
		}
	}
	return console.Mission{}, &gateway.ResponseError{StatusCode: http.StatusNotFound, Message: "Mission not found"}
}

func (s *memorySource) mutation() error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	s.calls++
	return s.failWith
}

func (s *memorySource) Create(_ context.Context, payload console.Mission) error {
	err := s.mutation()
	defer s.mu.Unlock()
	if err != nil {
		return err
	}
	s.nextID++
	payload.ID = fmt.Sprintf("m%d", s.nextID)
	s.items = append(s.items, payload)
	return nil
}

func (s *memorySource) Update(_ context.Context, id string, payload console.Mission) error {
	err := s.mutation()
	defer s.mu.Unlock()
	if err != nil {
		return err
	}
	for i := range s.items {
		if s.items[i].ID == id {
			payload.ID = id
			s.items[i] = payload
			return nil
		}
	}
	return &gateway.ResponseError{StatusCode: http.StatusNotFound, Message: "Mission not found"}
}

func (s *memorySource) Delete(_ context.Context, id string) error {
	err := s.mutation()
	defer s.mu.Unlock()
	if err != nil {
		return err
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return &gateway.ResponseError{StatusCode: http.StatusNotFound, Message: "Mission not found"}
}

func (s *memorySource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func seeded(n int) *memorySource {
	s := &memorySource{}
	for i := 0; i < n; i++ {
		s.nextID++
		s.items = append(s.items, console.Mission{ID: fmt.Sprintf("m%d", s.nextID), Title: fmt.Sprintf("Mission %d", s.nextID)})
	}
	return s
}

func ids(items []console.Mission) []string {
	out := make([]string, 0, len(items))
	for _, m := range items {
		out = append(out, m.ID)
	}
	return out
}

func TestController_List(t *testing.T) {
	ctrl := NewController[console.Mission](seeded(12), Options{Name: "missions", PageSize: 5})

	got, err := ctrl.List(context.Background(), 3, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := console.Pagination{Page: 3, Limit: 5, Total: 12, TotalPages: 3}
	if got.Pagination != want {
		t.Errorf("Pagination = %+v, want %+v", got.Pagination, want)
	}
	if len(got.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(got.Items))
	}
	if cur := ctrl.Current(); cur.Pagination != want {
		t.Errorf("Current() = %+v", cur.Pagination)
	}
}

func TestController_InitialCurrentIsEmpty(t *testing.T) {
	ctrl := NewController[console.Mission](seeded(0), Options{})
	if cur := ctrl.Current(); cur.Items == nil || len(cur.Items) != 0 {
		t.Errorf("Current().Items = %#v", cur.Items)
	}
}

func TestController_CreateRefreshes(t *testing.T) {
	src := seeded(2)
	ctrl := NewController[console.Mission](src, Options{Name: "missions"})
	if _, err := ctrl.List(context.Background(), 1, 10); err != nil {
		t.Fatal(err)
	}

	got, err := ctrl.Create(context.Background(), console.Mission{Title: "Ship it"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.Pagination.Total != 3 || got.Items[2].Title != "Ship it" {
		t.Errorf("Create() = %+v", got)
	}
	if cur := ctrl.Current(); len(cur.Items) != 3 {
		t.Errorf("Current() holds %d items, want 3", len(cur.Items))
	}
}

func TestController_UpdateRefreshes(t *testing.T) {
	src := seeded(2)
	ctrl := NewController[console.Mission](src, Options{Name: "missions"})

	got, err := ctrl.Update(context.Background(), "m2", console.Mission{Title: "Renamed"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Items[1].Title != "Renamed" {
		t.Errorf("Items[1] = %+v", got.Items[1])
	}
}

func TestController_DeleteRefreshes(t *testing.T) {
	src := seeded(3)
	ctrl := NewController[console.Mission](src, Options{Name: "missions"})
	if _, err := ctrl.List(context.Background(), 1, 10); err != nil {
		t.Fatal(err)
	}

	got, err := ctrl.Delete(context.Background(), "m2")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if strings.Join(ids(got.Items), ",") != "m1,m3" {
		t.Errorf("Items = %v", ids(got.Items))
	}
	if got.Pagination.Total != 2 {
		t.Errorf("Total = %d, want 2", got.Pagination.Total)
	}
}

func TestController_DeleteLastItemOfLastPage(t *testing.T) {
	src := seeded(3)
	ctrl := NewController[console.Mission](src, Options{Name: "missions"})
	if _, err := ctrl.List(context.Background(), 2, 2); err != nil {
		t.Fatal(err)
	}

	got, err := ctrl.Delete(context.Background(), "m3")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	want := console.Pagination{Page: 1, Limit: 2, Total: 2, TotalPages: 1}
	if got.Pagination != want {
		t.Errorf("Pagination = %+v, want %+v", got.Pagination, want)
	}
	if len(got.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(got.Items))
	}

	// Refresh stays on the clamped page.
	again, err := ctrl.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if again.Pagination.Page != 1 {
		t.Errorf("Refresh() page = %d, want 1", again.Pagination.Page)
	}
}

func TestController_FailedMutationLeavesListUntouched(t *testing.T) {
	src := seeded(2)
	ctrl := NewController[console.Mission](src, Options{Name: "missions"})
	before, err := ctrl.List(context.Background(), 1, 10)
	if err != nil {
		t.Fatal(err)
	}

	src.failWith = &gateway.ResponseError{StatusCode: http.StatusConflict, Message: "Title already exists"}
	listCalls := src.callCount()

	got, err := ctrl.Create(context.Background(), console.Mission{Title: "Dup"})
	if err == nil {
		t.Fatal("Create() expected error")
	}
	if !console.IsTransportError(err) || err.Error() != "Title already exists" {
		t.Errorf("error = %v", err)
	}
	if len(got.Items) != len(before.Items) {
		t.Errorf("returned list changed: %v", ids(got.Items))
	}
	if len(ctrl.Current().Items) != 2 {
		t.Errorf("Current() changed: %v", ids(ctrl.Current().Items))
	}
	// one mutation call, no refresh
	if calls := src.callCount() - listCalls; calls != 1 {
		t.Errorf("source calls = %d, want 1", calls)
	}
}

func TestController_ValidationBeforeNetwork(t *testing.T) {
	src := seeded(1)
	ctrl := NewController[console.Mission](src, Options{Name: "missions"})

	_, err := ctrl.Create(context.Background(), console.Mission{})
	if !console.IsValidationError(err) {
		t.Errorf("Create() error = %v, want validation error", err)
	}
	_, err = ctrl.Update(context.Background(), "", console.Mission{Title: "x"})
	if !console.IsValidationError(err) {
		t.Errorf("Update() error = %v, want validation error", err)
	}
	_, err = ctrl.Delete(context.Background(), "")
	if !console.IsValidationError(err) {
		t.Errorf("Delete() error = %v, want validation error", err)
	}
	if calls := src.callCount(); calls != 0 {
		t.Errorf("source calls = %d, want 0", calls)
	}
}

func TestController_DuplicateSubmissionRejected(t *testing.T) {
	src := seeded(0)
	src.gate = make(chan struct{})
	ctrl := NewController[console.Mission](src, Options{Name: "missions"})

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Create(context.Background(), console.Mission{Title: "First"})
		done <- err
	}()

	// wait until the first submission holds the flag
	deadline := time.Now().Add(2 * time.Second)
	for {
		ctrl.mu.Lock()
		busy := ctrl.inflight[ActionCreate]
		ctrl.mu.Unlock()
		if busy {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first submission never started")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := ctrl.Create(context.Background(), console.Mission{Title: "Second"})
	if !errors.Is(err, console.ErrActionInFlight) {
		t.Errorf("second Create() error = %v, want ErrActionInFlight", err)
	}

	close(src.gate)
	if err := <-done; err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	if n := len(ctrl.Current().Items); n != 1 {
		t.Errorf("Current() holds %d items, want 1", n)
	}

	// the flag is released afterwards
	if _, err := ctrl.Create(context.Background(), console.Mission{Title: "Third"}); err != nil {
		t.Errorf("third Create() error = %v", err)
	}
}

func TestController_CloseDiscardsResults(t *testing.T) {
	src := seeded(1)
	src.gate = make(chan struct{})
	ctrl := NewController[console.Mission](src, Options{Name: "missions"})
	if _, err := ctrl.List(context.Background(), 1, 10); err != nil {
		t.Fatal(err)
	}
	before := ctrl.Current()

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Create(context.Background(), console.Mission{Title: "Late"})
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	ctrl.Close()
	close(src.gate)

	if err := <-done; !errors.Is(err, console.ErrViewClosed) {
		t.Errorf("Create() error = %v, want ErrViewClosed", err)
	}
	if got := ctrl.Current(); len(got.Items) != len(before.Items) {
		t.Errorf("Current() mutated after Close: %v", ids(got.Items))
	}
	if _, err := ctrl.List(context.Background(), 1, 10); !errors.Is(err, console.ErrViewClosed) {
		t.Errorf("List() after Close error = %v", err)
	}
}

func TestController_ApplyAfterFetch(t *testing.T) {
	ctrl := NewController[console.Mission](seeded(4), Options{Name: "missions"})

	result, err := ctrl.Fetch(context.Background(), 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ctrl.Current().Items) != 0 {
		t.Error("Fetch() committed its result")
	}
	if err := ctrl.Apply(result, 2, 2); err != nil {
		t.Fatal(err)
	}
	if strings.Join(ids(ctrl.Current().Items), ",") != "m3,m4" {
		t.Errorf("Current() = %v", ids(ctrl.Current().Items))
	}
}

func TestController_Get(t *testing.T) {
	ctrl := NewController[console.Mission](seeded(2), Options{Name: "missions"})

	m, err := ctrl.Get(context.Background(), "m2")
	if err != nil || m.Title != "Mission 2" {
		t.Errorf("Get() = %+v, %v", m, err)
	}
	if _, err := ctrl.Get(context.Background(), "nope"); !console.IsTransportError(err) {
		t.Errorf("Get(missing) error = %v", err)
	}
}

func TestController_OverGateway(t *testing.T) {
	var mu sync.Mutex
	created := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/missions/templates":
			if created {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"success":false,"error":{"message":"Mission already exists"}}`))
				return
			}
			created = true
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"success":true}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/missions/templates":
			if created {
				_, _ = w.Write([]byte(`{"success":true,"missions":[{"_id":"a","title":"A"},{"_id":"b","title":"B"}],"pagination":{"page":1,"limit":10,"total":2}}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"missions":[{"_id":"a","title":"A"}],"pagination":{"page":1,"limit":10}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := gateway.New(gateway.Options{BaseURL: srv.URL, Prefix: "/api/v1", Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	missions := gateway.NewResource[console.Mission](client, normalize.Missions, gateway.ResourceEndpoint{Path: "/missions/templates", Paginated: true})
	ctrl := NewController[console.Mission](missions, Options{Name: "missions", PageSize: 10})

	first, err := ctrl.List(context.Background(), 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if want := (console.Pagination{Page: 1, Limit: 10, Total: 1, TotalPages: 1}); first.Pagination != want {
		t.Errorf("Pagination = %+v, want %+v", first.Pagination, want)
	}

	after, err := ctrl.Create(context.Background(), console.Mission{Title: "B"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if strings.Join(ids(after.Items), ",") != "a,b" {
		t.Errorf("Items = %v", ids(after.Items))
	}

	_, err = ctrl.Create(context.Background(), console.Mission{Title: "B"})
	if err == nil || err.Error() != "Mission already exists" {
		t.Errorf("duplicate Create() error = %v", err)
	}
	if n := len(ctrl.Current().Items); n != 2 {
		t.Errorf("Current() holds %d items, want 2", n)
	}
}
