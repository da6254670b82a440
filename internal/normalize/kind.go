// Package normalize maps the backend's heterogeneous response envelopes into
// the canonical console shapes. Every backend quirk is absorbed here: list
// consumers only ever see console.ListResult.
package normalize

// Kind describes where a resource's payload may live inside an envelope.
type Kind struct {
	// Name is used in error messages and metrics labels.
	Name string
	// ListKeys are the resource specific array keys, tried after "data".
	ListKeys []string
	// EntityKeys are the resource specific object keys, tried after "data".
	EntityKeys []string
}

var (
	Users        = Kind{Name: "users", ListKeys: []string{"users"}, EntityKeys: []string{"user"}}
	Missions     = Kind{Name: "missions", ListKeys: []string{"missions"}, EntityKeys: []string{"mission"}}
	Protocols    = Kind{Name: "protocols", ListKeys: []string{"protocols"}, EntityKeys: []string{"protocol"}}
	Mentors      = Kind{Name: "mentors", ListKeys: []string{"mentorData", "mentors"}, EntityKeys: []string{"mentor", "mentorData"}}
	CareerFields = Kind{Name: "career-fields", ListKeys: []string{"careerFields"}, EntityKeys: []string{"careerField"}}
	profileKind  = Kind{Name: "profile", EntityKeys: []string{"user", "profile"}}
)

// Request carries the page the caller asked for. It fills pagination
// metadata the server left out.
type Request struct {
	Page  int
	Limit int
}
