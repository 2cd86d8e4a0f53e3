// Package intent builds structured, unexecuted action descriptions that a
// separate consumer applies. Nothing here performs the action.
package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Type tags the variant carried by an Intent.
type Type string

const (
	TypeCreateProject Type = "create_project_intent"
)

const (
	DefaultColorHex = "#4F46E5"
	DefaultIcon     = "Folder"
)

var (
	// ErrNameRequired is returned when a project has no name.
	ErrNameRequired = errors.New("project name is required")

	// ErrInvalidColor is returned for colors that are not #RRGGBB.
	ErrInvalidColor = errors.New("color_hex must look like #RRGGBB")

	hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// CreateProject describes a project a client should create.
type CreateProject struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ColorHex    string    `json:"color_hex"`
	Icon        string    `json:"icon"`
	Timestamp   time.Time `json:"-"`
}

// Intent is a tagged variant. Exactly one payload field matches Type.
type Intent struct {
	Type          Type
	CreateProject *CreateProject
}

// NewCreateProject builds a create-project intent stamped with now. Empty
// color and icon fall back to the defaults. An invalid color keeps the
// default and is reported alongside the intent. The name is kept as given;
// a name of only whitespace counts as empty.
func NewCreateProject(name, description, colorHex, icon string, now time.Time) (Intent, error) {
	if strings.TrimSpace(name) == "" {
		return Intent{}, ErrNameRequired
	}

	var err error
	switch {
	case colorHex == "":
		colorHex = DefaultColorHex
	case !hexColor.MatchString(colorHex):
		err = fmt.Errorf("%w, got %q", ErrInvalidColor, colorHex)
		colorHex = DefaultColorHex
	}
	if icon == "" {
		icon = DefaultIcon
	}

	return Intent{
		Type: TypeCreateProject,
		CreateProject: &CreateProject{
			Name:        name,
			Description: description,
			ColorHex:    colorHex,
			Icon:        icon,
			Timestamp:   now,
		},
	}, err
}

type createProjectJSON struct {
	Type Type `json:"type"`
	*CreateProject
	Timestamp string `json:"timestamp"`
}

// MarshalJSON flattens the active variant next to its "type" tag.
func (i Intent) MarshalJSON() ([]byte, error) {
	switch i.Type {
	case TypeCreateProject:
		if i.CreateProject == nil {
			return nil, fmt.Errorf("intent %s has no payload", i.Type)
		}
		return json.Marshal(createProjectJSON{
			Type:          i.Type,
			CreateProject: i.CreateProject,
			Timestamp:     i.CreateProject.Timestamp.Format(time.RFC3339),
		})
	default:
		return nil, fmt.Errorf("unknown intent type %q", i.Type)
	}
}

// UnmarshalJSON reads the form produced by MarshalJSON.
func (i *Intent) UnmarshalJSON(data []byte) error {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	switch head.Type {
	case TypeCreateProject:
		raw := createProjectJSON{CreateProject: &CreateProject{}}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		ts, err := time.Parse(time.RFC3339, raw.Timestamp)
		if err != nil {
			return fmt.Errorf("intent timestamp: %w", err)
		}
		raw.CreateProject.Timestamp = ts
		*i = Intent{Type: head.Type, CreateProject: raw.CreateProject}
		return nil
	default:
		return fmt.Errorf("unknown intent type %q", head.Type)
	}
}
