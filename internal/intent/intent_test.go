package intent

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreateProject_RoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	in, err := NewCreateProject("X", "Y", "", "", now)
	require.NoError(t, err)

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var flat map[string]string
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, map[string]string{
		"type":        "create_project_intent",
		"name":        "X",
		"description": "Y",
		"color_hex":   DefaultColorHex,
		"icon":        DefaultIcon,
		"timestamp":   "2025-03-14T09:26:53Z",
	}, flat)

	ts, err := time.Parse(time.RFC3339, flat["timestamp"])
	require.NoError(t, err)
	assert.True(t, ts.Equal(now))

	var back Intent
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, TypeCreateProject, back.Type)
	assert.Equal(t, "X", back.CreateProject.Name)
	assert.True(t, back.CreateProject.Timestamp.Equal(now))
}

func TestNewCreateProject_Validation(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		project   string
		color     string
		icon      string
		wantErr   error
		wantColor string
		wantIcon  string
	}{
		{name: "custom values", project: "Launch", color: "#10b981", icon: "Rocket", wantColor: "#10b981", wantIcon: "Rocket"},
		{name: "bad color keeps default", project: "Launch", color: "green", wantErr: ErrInvalidColor, wantColor: DefaultColorHex, wantIcon: DefaultIcon},
		{name: "short hex", project: "Launch", color: "#fff", wantErr: ErrInvalidColor, wantColor: DefaultColorHex, wantIcon: DefaultIcon},
		{name: "blank name", project: "   ", wantErr: ErrNameRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewCreateProject(tt.project, "", tt.color, tt.icon, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantColor == "" {
				assert.Nil(t, got.CreateProject)
				return
			}
			assert.Equal(t, tt.wantColor, got.CreateProject.ColorHex)
			assert.Equal(t, tt.wantIcon, got.CreateProject.Icon)
		})
	}
}

func TestIntent_UnknownType(t *testing.T) {
	_, err := json.Marshal(Intent{Type: "delete_everything"})
	assert.Error(t, err)

	var i Intent
	assert.Error(t, json.Unmarshal([]byte(`{"type":"nope"}`), &i))
}
