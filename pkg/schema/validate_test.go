package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reminderSchema() *Schema {
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"title":   {Type: TypeString},
			"notes":   {Type: TypeString},
			"dueDate": {Type: TypeString, Format: "date-time"},
		},
		Required: []string{"title"},
	}
}

func TestValidateAccepts(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"all fields", `{"title":"Buy milk","notes":"2l","dueDate":"2026-01-01T10:00:00Z"}`},
		{"required only", `{"title":"Buy milk"}`},
		{"null optional", `{"title":"x","notes":null}`},
		{"unknown field ignored", `{"title":"x","color":"red"}`},
	}

	s := reminderSchema()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, s.Validate(json.RawMessage(tt.data)))
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing required", `{"notes":"x"}`},
		{"wrong type", `{"title":42}`},
		{"not an object", `["title"]`},
	}

	s := reminderSchema()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, s.Validate(json.RawMessage(tt.data)))
		})
	}
}

func TestValidateEmptyDataIsEmptyObject(t *testing.T) {
	optional := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"listName": {Type: TypeString},
		},
	}

	assert.NoError(t, optional.Validate(nil))
	assert.NoError(t, optional.Validate(json.RawMessage(``)))
	assert.NoError(t, optional.Validate(json.RawMessage(`null`)))

	// Required fields still fail against the implied empty object
	assert.Error(t, reminderSchema().Validate(nil))
}

func TestValidateInteger(t *testing.T) {
	min, max := 0.0, 10.0
	s := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"count": {Type: TypeInteger, Minimum: &min, Maximum: &max},
		},
	}

	assert.NoError(t, s.Validate(json.RawMessage(`{"count":5}`)))
	assert.Error(t, s.Validate(json.RawMessage(`{"count":5.5}`)))
	assert.Error(t, s.Validate(json.RawMessage(`{"count":11}`)))
	assert.Error(t, s.Validate(json.RawMessage(`{"count":-1}`)))
}

func TestValidateEnum(t *testing.T) {
	s := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"format": {Type: TypeString, Enum: []any{"text", "json"}},
		},
	}

	assert.NoError(t, s.Validate(json.RawMessage(`{"format":"json"}`)))
	assert.Error(t, s.Validate(json.RawMessage(`{"format":"xml"}`)))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	err := reminderSchema().Validate(json.RawMessage(`{"notes":1,"dueDate":2}`))
	require.Error(t, err)

	errs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, errs, 3) // missing title, bad notes, bad dueDate
}

func TestGenerate(t *testing.T) {
	type args struct {
		Title   string `json:"title" jsonschema:"required,description=Reminder title"`
		Notes   string `json:"notes,omitempty"`
		DueDate string `json:"dueDate,omitempty" jsonschema:"format=date-time"`
		Count   int    `json:"count,omitempty"`
		Done    bool   `json:"done,omitempty"`
	}

	s, err := Generate(args{})
	require.NoError(t, err)

	assert.Equal(t, TypeObject, s.Type)
	assert.Equal(t, []string{"title"}, s.Required)
	assert.Equal(t, "Reminder title", s.Properties["title"].Description)
	assert.Equal(t, "date-time", s.Properties["dueDate"].Format)
	assert.Equal(t, TypeInteger, s.Properties["count"].Type)
	assert.Equal(t, TypeBoolean, s.Properties["done"].Type)
}

func TestMarshalRaw(t *testing.T) {
	raw, err := reminderSchema().MarshalRaw()
	require.NoError(t, err)

	var decoded Schema
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, TypeObject, decoded.Type)
	assert.Equal(t, []string{"title"}, decoded.Required)
}
