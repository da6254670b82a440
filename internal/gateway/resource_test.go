package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/songzhibin97/adminconsole/internal/normalize"
	"github.com/songzhibin97/adminconsole/pkg/console"
)

func TestAuthClient_Login(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"success":true,"data":{"token":"tok","user":{"_id":"u1","email":"a@b","role":"admin"}}}`)
	c := newTestClient(t, srv.URL, nil, nil)
	auth := NewAuthClient(c, AuthEndpoints{Login: "/auth/login", Logout: "/auth/logout", Profile: "/users/profile"})

	got, err := auth.Login(context.Background(), "a@b", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got.Token != "tok" || got.User.Role != console.RoleAdmin {
		t.Errorf("Login() = %+v", got)
	}

	req := seen()[0]
	if req.method != http.MethodPost || req.path != "/api/v1/auth/login" {
		t.Errorf("request = %s %s", req.method, req.path)
	}
	var body map[string]string
	_ = json.Unmarshal(req.body, &body)
	if body["email"] != "a@b" || body["password"] != "secret" {
		t.Errorf("login body = %s", req.body)
	}
}

func TestAuthClient_ProfileIsAuthCall(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnauthorized, `{}`)
	c := newTestClient(t, srv.URL, &staticTokens{token: "old"}, nil)
	auth := NewAuthClient(c, AuthEndpoints{Profile: "/users/profile", Logout: "/auth/logout"})

	events := 0
	c.OnSessionExpired(func(ExpiryEvent) { events++ })

	if _, err := auth.Profile(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if err := auth.Logout(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if events != 0 {
		t.Errorf("auth calls raised %d expiry events", events)
	}
}

func TestAuthClient_LogoutWithoutEndpoint(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", nil, nil)
	if err := NewAuthClient(c, AuthEndpoints{}).Logout(context.Background()); err != nil {
		t.Errorf("Logout() error = %v", err)
	}
}

func TestResource_ListQuery(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"users":[{"_id":"u1","email":"a@b"}],"count":11}`)
	c := newTestClient(t, srv.URL, nil, nil)

	users := NewResource[console.User](c, normalize.Users, ResourceEndpoint{Path: "/users", Paginated: true})
	got, err := users.List(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := console.Pagination{Page: 2, Limit: 10, Total: 11, TotalPages: 2}
	if got.Pagination != want {
		t.Errorf("Pagination = %+v, want %+v", got.Pagination, want)
	}
	if q := seen()[0].query; q != "limit=10&page=2" {
		t.Errorf("query = %q", q)
	}
}

func TestResource_UnpaginatedSendsNoQuery(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `[{"_id":"cf1","name":"Design"}]`)
	c := newTestClient(t, srv.URL, nil, nil)

	fields := NewResource[console.CareerField](c, normalize.CareerFields, ResourceEndpoint{Path: "/career-fields"})
	got, err := fields.List(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Name != "Design" {
		t.Errorf("Items = %+v", got.Items)
	}
	if q := seen()[0].query; q != "" {
		t.Errorf("query = %q, want none", q)
	}
}

func TestResource_Mutations(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"success":true}`)
	c := newTestClient(t, srv.URL, nil, nil)
	ctx := context.Background()

	users := NewResource[console.User](c, normalize.Users, ResourceEndpoint{Path: "/users", CreatePath: "/auth/register", Paginated: true})
	if err := users.Create(ctx, console.User{Email: "n@x", FirstName: "N", Password: "pw"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := users.Update(ctx, "u 1", console.User{ID: "u 1", Email: "n@x", FirstName: "N"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := users.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got := seen()
	want := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/auth/register"},
		{http.MethodPut, "/api/v1/users/u 1"},
		{http.MethodDelete, "/api/v1/users/u1"},
	}
	for i, w := range want {
		if got[i].method != w.method || got[i].path != w.path {
			t.Errorf("request %d = %s %s, want %s %s", i, got[i].method, got[i].path, w.method, w.path)
		}
	}
}

func TestResource_GetAndMissingID(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"data":{"_id":"m1","title":"Intro"}}`)
	c := newTestClient(t, srv.URL, nil, nil)
	missions := NewResource[console.Mission](c, normalize.Missions, ResourceEndpoint{Path: "/missions/templates"})

	got, err := missions.Get(context.Background(), "m1")
	if err != nil || got.Title != "Intro" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	if _, err := missions.Get(context.Background(), ""); !console.IsValidationError(err) {
		t.Errorf("Get(\"\") error = %v", err)
	}
	if err := missions.Delete(context.Background(), ""); !console.IsValidationError(err) {
		t.Errorf("Delete(\"\") error = %v", err)
	}
}

func TestResource_SubmitsBareRelations(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"success":true}`)
	c := newTestClient(t, srv.URL, nil, nil)
	ctx := context.Background()

	var mentor console.Mentor
	raw := `{"_id":"m1","name":"Ada","bio":"b","geminiMentorId":"g1","careerFields":[{"_id":"cf1","name":"Eng","description":"x"}]}`
	if err := json.Unmarshal([]byte(raw), &mentor); err != nil {
		t.Fatal(err)
	}

	mentors := NewResource[console.Mentor](c, normalize.Mentors, ResourceEndpoint{Path: "/mentors"})
	if err := mentors.Update(ctx, "m1", mentor); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := mentors.Create(ctx, mentor); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for i, req := range seen() {
		var body map[string]json.RawMessage
		if err := json.Unmarshal(req.body, &body); err != nil {
			t.Fatalf("request %d body %s: %v", i, req.body, err)
		}
		if got := string(body["careerFields"]); got != `["cf1"]` {
			t.Errorf("request %d careerFields = %s, want [\"cf1\"]", i, got)
		}
	}
	if !mentor.CareerFields[0].Embedded() {
		t.Error("submitting must not modify the caller's entity")
	}
}
