package console

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Relation references another entity either by bare identifier or as an
// embedded (populated) object. Both forms decode into the same value.
type Relation struct {
	// ID is the referenced identifier, whatever form the relation arrived in.
	ID string
	// Name is the embedded object's name or title, empty for bare identifiers.
	Name string
	// Raw holds the embedded object as received, nil for bare identifiers.
	Raw json.RawMessage
}

// Ref builds a bare identifier relation.
func Ref(id string) Relation {
	return Relation{ID: id}
}

// Refs builds bare identifier relations.
func Refs(ids ...string) []Relation {
	out := make([]Relation, 0, len(ids))
	for _, id := range ids {
		out = append(out, Ref(id))
	}
	return out
}

// Embedded reports whether the relation arrived as an object.
func (r Relation) Embedded() bool {
	return len(r.Raw) > 0
}

// Bare returns the relation reduced to its identifier, the form the backend
// accepts in create and update payloads.
func (r Relation) Bare() Relation {
	return Relation{ID: r.ID}
}

// PrimaryID returns the identifier of the first relation that carries one.
func PrimaryID(relations []Relation) string {
	for _, r := range relations {
		if r.ID != "" {
			return r.ID
		}
	}
	return ""
}

// BareAll reduces every relation to its identifier.
func BareAll(relations []Relation) []Relation {
	if relations == nil {
		return nil
	}
	out := make([]Relation, len(relations))
	for i, r := range relations {
		out[i] = r.Bare()
	}
	return out
}

// MarshalJSON writes embedded relations back as received and bare ones as a string.
func (r Relation) MarshalJSON() ([]byte, error) {
	if r.Embedded() {
		return r.Raw, nil
	}
	return json.Marshal(r.ID)
}

// UnmarshalJSON accepts a string, a number or an object carrying "_id" or "id".
func (r *Relation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = Relation{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		return json.Unmarshal(data, &r.ID)
	case '{':
		var obj struct {
			UnderscoreID json.RawMessage `json:"_id"`
			ID           json.RawMessage `json:"id"`
			Name         string          `json:"name"`
			Title        string          `json:"title"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("decode embedded relation: %w", err)
		}
		id, err := scalarID(obj.UnderscoreID)
		if err != nil {
			return err
		}
		if id == "" {
			if id, err = scalarID(obj.ID); err != nil {
				return err
			}
		}
		if id == "" {
			return fmt.Errorf("embedded relation has no identifier")
		}
		r.ID = id
		r.Name = obj.Name
		if r.Name == "" {
			r.Name = obj.Title
		}
		r.Raw = append(json.RawMessage(nil), data...)
		return nil
	default:
		id, err := scalarID(data)
		if err != nil {
			return err
		}
		r.ID = id
		return nil
	}
}

// scalarID decodes a string or numeric identifier.
func scalarID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode relation identifier: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("relation identifier must be a string or number: %w", err)
	}
	return n.String(), nil
}
