package normalizer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RawReport is the upstream per-date report, keyed by post id
type RawReport map[string]RawPost

// RawPost is one post entry of the upstream report. Decoding never fails on
// a bad shape: unknown or mistyped fields are left empty.
type RawPost struct {
	Name   string
	UnitID string
	Day    *RawShift
	Night  *RawShift
	ShiftB *RawShift
}

// RawShift is a shift sub-object of a post
type RawShift struct {
	Collaborator Collaborator
}

// CollaboratorKind tags how a shift's collaborator was reported
type CollaboratorKind int

const (
	Unassigned CollaboratorKind = iota
	AssignedByID
	AssignedWithProfile
)

// Collaborator is the resolved form of the upstream "colaborador" field,
// which may be an object, a bare identifier string, or absent.
type Collaborator struct {
	Kind     CollaboratorKind
	ID       string
	Name     string
	PhotoURL string
}

// Assigned reports whether someone covers the shift
func (c Collaborator) Assigned() bool {
	return c.Kind != Unassigned
}

// DisplayName returns the name to show for the collaborator
func (c Collaborator) DisplayName() string {
	switch c.Kind {
	case AssignedWithProfile:
		return c.Name
	case AssignedByID:
		return c.ID
	default:
		return ""
	}
}

func (p *RawPost) UnmarshalJSON(data []byte) error {
	fields, ok := objectFields(data)
	if !ok {
		*p = RawPost{}
		return nil
	}
	*p = RawPost{
		Name:   flexString(fields["nombre_puesto"]),
		UnitID: flexString(fields["unidad_negocio_id"]),
		Day:    rawShift(fields["day"]),
		Night:  rawShift(fields["night"]),
		ShiftB: rawShift(fields["shiftB"]),
	}
	return nil
}

func (s *RawShift) UnmarshalJSON(data []byte) error {
	fields, _ := objectFields(data)
	s.Collaborator = parseCollaborator(fields["colaborador"])
	return nil
}

func (c *Collaborator) UnmarshalJSON(data []byte) error {
	*c = parseCollaborator(data)
	return nil
}

func rawShift(data json.RawMessage) *RawShift {
	if isNull(data) {
		return nil
	}
	s := &RawShift{}
	_ = s.UnmarshalJSON(data)
	return s
}

func parseCollaborator(data json.RawMessage) Collaborator {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		return Collaborator{}
	}

	switch data[0] {
	case '"':
		id := strings.TrimSpace(flexString(data))
		if id == "" {
			return Collaborator{}
		}
		return Collaborator{Kind: AssignedByID, ID: id}
	case '{':
		fields, _ := objectFields(data)
		id := strings.TrimSpace(flexString(fields["placa"]))
		name := strings.TrimSpace(flexString(fields["nombre"]))
		photo := strings.TrimSpace(flexString(fields["foto_url"]))
		switch {
		case id == "" && name == "":
			return Collaborator{}
		case name == "":
			return Collaborator{Kind: AssignedByID, ID: id, PhotoURL: photo}
		case id == "":
			// profile without a badge number still counts as covered
			return Collaborator{Kind: AssignedWithProfile, ID: name, Name: name, PhotoURL: photo}
		default:
			return Collaborator{Kind: AssignedWithProfile, ID: id, Name: name, PhotoURL: photo}
		}
	default:
		return Collaborator{}
	}
}

func objectFields(data []byte) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return map[string]json.RawMessage{}, false
	}
	return fields, true
}

// flexString accepts JSON strings and numbers
func flexString(data json.RawMessage) string {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

func isNull(data []byte) bool {
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
