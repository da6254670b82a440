package devserver

import (
	"encoding/json"
	"fmt"

	"github.com/songzhibin97/adminconsole/pkg/console"
)

// SeedAdmin registers an administrator account.
func (s *Server) SeedAdmin(email, password string) (console.User, error) {
	return s.repo.CreateUser(console.User{
		FirstName: "Console",
		LastName:  "Admin",
		Email:     email,
		Password:  password,
		Role:      console.RoleAdmin,
		IsActive:  true,
	})
}

// SeedSample fills the repository with a small catalogue spanning every
// resource kind.
func (s *Server) SeedSample() {
	fields := make([]console.CareerField, 0, 3)
	for _, name := range []string{"Software Engineering", "Data Science", "Product Design"} {
		fields = append(fields, s.repo.CareerFields.insert(console.CareerField{
			Name:        name,
			Description: name + " career track",
		}))
	}

	missions := make([]console.Mission, 0, 12)
	for i := 1; i <= 12; i++ {
		field := fields[i%len(fields)]
		missions = append(missions, s.repo.Missions.insert(console.Mission{
			Title:        fmt.Sprintf("Mission %02d", i),
			Description:  "Practice mission for " + field.Name,
			Type:         "project",
			Difficulty:   []string{"beginner", "intermediate", "advanced"}[i%3],
			CareerFields: console.Refs(field.ID),
			Steps: []console.MissionStep{
				{Order: 1, Title: "Plan"},
				{Order: 2, Title: "Build"},
			},
			EstimatedDuration: &console.Duration{Value: i, Unit: "days"},
			Rewards:           &console.Rewards{Experience: 100 * i, SkillPoints: i},
			IsActive:          true,
		}))
	}

	for _, field := range fields {
		s.repo.Protocols.insert(console.Protocol{
			Title:        field.Name + " Foundations",
			TargetLevel:  "beginner",
			CareerFields: []console.Relation{{ID: field.ID}},
			Phases: []console.Phase{{
				Title: "Getting started",
				Order: 1,
				Milestones: []console.Milestone{{
					Title:    "First steps",
					Order:    1,
					Missions: []console.Relation{{ID: missions[0].ID}},
				}},
			}},
			IsActive: true,
		})

		s.repo.Mentors.insert(console.Mentor{
			Name:           field.Name + " Mentor",
			Title:          "Senior Practitioner",
			Bio:            "Guides learners through " + field.Name + ".",
			CareerFields:   []console.Relation{embed(field.ID, field.Name, field)},
			GeminiMentorID: fmt.Sprintf("mentor-%s", field.ID[:8]),
			Languages:      []string{"en"},
			Rating:         4.5,
			IsActive:       true,
		})
	}
}

// embed builds a relation the backend serves as a populated object.
func embed(id, name string, v any) console.Relation {
	raw, err := json.Marshal(v)
	if err != nil {
		return console.Ref(id)
	}
	return console.Relation{ID: id, Name: name, Raw: raw}
}
