package console

import (
	"strings"
	"time"
)

// Role represents the role of a backend account
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleMentor Role = "mentor"
)

// Profile is the signed-in account as returned by the login and profile endpoints.
type Profile struct {
	ID        string `json:"_id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      Role   `json:"role"`
	IsActive  bool   `json:"isActive"`
}

// DisplayName returns "First Last", falling back to the email.
func (p Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}
	return name
}

// Pagination is the canonical pagination block of a list result.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListResult is the canonical shape of every list endpoint. A new value is
// produced on every fetch; holders replace it instead of mutating it.
type ListResult[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Operation identifies the mutation a payload is validated for.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
)

// Entity is implemented by every resource managed through a controller.
type Entity interface {
	// EntityID returns the stable identifier, empty for unsaved entities.
	EntityID() string
	// Validate checks the required fields for the given operation.
	Validate(op Operation) error
}

// Submitter is implemented by entities whose request body differs from the
// decoded form. Relations are always submitted as bare identifiers.
type Submitter interface {
	Submission() any
}

// User is a platform account managed from the users page.
type User struct {
	ID        string     `json:"_id,omitempty"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	Role      Role       `json:"role,omitempty"`
	IsActive  bool       `json:"isActive"`
	Password  string     `json:"password,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (u User) EntityID() string { return u.ID }

func (u User) Validate(op Operation) error {
	missing := missingFields(
		required{"email", u.Email},
		required{"firstName", u.FirstName},
	)
	if op == OperationCreate && strings.TrimSpace(u.Password) == "" {
		missing = append(missing, "password")
	}
	return validationResult("user", missing)
}

// Mentor is an AI mentor persona. The backend identifies the underlying
// model persona through GeminiMentorID.
type Mentor struct {
	ID                 string     `json:"_id,omitempty"`
	Name               string     `json:"name"`
	Title              string     `json:"title,omitempty"`
	Specialization     string     `json:"specialization,omitempty"`
	Bio                string     `json:"bio"`
	ProfileImage       string     `json:"profileImage,omitempty"`
	CareerFields       []Relation `json:"careerFields"`
	ExperienceLevel    string     `json:"experienceLevel,omitempty"`
	Skills             []string   `json:"skills,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	Languages          []string   `json:"languages,omitempty"`
	TeachingStyle      string     `json:"teachingStyle,omitempty"`
	CommunicationStyle string     `json:"communicationStyle,omitempty"`
	GeminiMentorID     string     `json:"geminiMentorId"`
	Rating             float64    `json:"rating,omitempty"`
	IsActive           bool       `json:"isActive"`
}

func (m Mentor) EntityID() string { return m.ID }

func (m Mentor) Submission() any {
	m.CareerFields = BareAll(m.CareerFields)
	return m
}

func (m Mentor) Validate(Operation) error {
	missing := missingFields(
		required{"name", m.Name},
		required{"geminiMentorId", m.GeminiMentorID},
		required{"bio", m.Bio},
		required{"careerFields", PrimaryID(m.CareerFields)},
	)
	return validationResult("mentor", missing)
}

// MissionStep is one ordered step of a mission.
type MissionStep struct {
	Order              int    `json:"order"`
	Title              string `json:"title"`
	Description        string `json:"description,omitempty"`
	CompletionCriteria string `json:"completionCriteria,omitempty"`
}

// Duration is an amount of time expressed in a free-form unit ("days", "weeks").
type Duration struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// Rewards granted on mission completion.
type Rewards struct {
	Experience  int `json:"experience"`
	SkillPoints int `json:"skillPoints"`
}

// Mission is a mission template.
type Mission struct {
	ID                string        `json:"_id,omitempty"`
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	Type              string        `json:"type,omitempty"`
	Difficulty        string        `json:"difficulty,omitempty"`
	CareerFields      []Relation    `json:"careerFields,omitempty"`
	Skills            []string      `json:"skills,omitempty"`
	Steps             []MissionStep `json:"steps,omitempty"`
	EstimatedDuration *Duration     `json:"estimatedDuration,omitempty"`
	Rewards           *Rewards      `json:"rewards,omitempty"`
	IsActive          bool          `json:"isActive"`
}

func (m Mission) EntityID() string { return m.ID }

func (m Mission) Submission() any {
	m.CareerFields = BareAll(m.CareerFields)
	return m
}

func (m Mission) Validate(Operation) error {
	return validationResult("mission", missingFields(required{"title", m.Title}))
}

// Milestone groups missions inside a protocol phase.
type Milestone struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Order       int        `json:"order"`
	Missions    []Relation `json:"missions,omitempty"`
}

// Phase is an ordered stage of a protocol.
type Phase struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Order       int         `json:"order"`
	Milestones  []Milestone `json:"milestones,omitempty"`
}

// Prerequisites of a protocol.
type Prerequisites struct {
	Skills []string `json:"skills"`
}

// Protocol is a protocol template.
type Protocol struct {
	ID                string         `json:"_id,omitempty"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	TargetLevel       string         `json:"targetLevel,omitempty"`
	CareerFields      []Relation     `json:"careerFields,omitempty"`
	EstimatedDuration *Duration      `json:"estimatedDuration,omitempty"`
	Phases            []Phase        `json:"phases,omitempty"`
	Prerequisites     *Prerequisites `json:"prerequisites,omitempty"`
	IsActive          bool           `json:"isActive"`
}

func (p Protocol) EntityID() string { return p.ID }

func (p Protocol) Submission() any {
	p.CareerFields = BareAll(p.CareerFields)
	if p.Phases != nil {
		phases := make([]Phase, len(p.Phases))
		for i, phase := range p.Phases {
			if phase.Milestones != nil {
				milestones := make([]Milestone, len(phase.Milestones))
				for j, ms := range phase.Milestones {
					ms.Missions = BareAll(ms.Missions)
					milestones[j] = ms
				}
				phase.Milestones = milestones
			}
			phases[i] = phase
		}
		p.Phases = phases
	}
	return p
}

func (p Protocol) Validate(Operation) error {
	return validationResult("protocol", missingFields(required{"title", p.Title}))
}

// CareerField is a career field lookup entry.
type CareerField struct {
	ID          string `json:"_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (c CareerField) EntityID() string { return c.ID }

func (c CareerField) Validate(Operation) error {
	return validationResult("career field", missingFields(required{"name", c.Name}))
}

type required struct {
	name  string
	value string
}

func missingFields(fields ...required) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func validationResult(entity string, missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return NewValidationError("REQUIRED_FIELDS", entity+": required fields missing: "+strings.Join(missing, ", "))
}
