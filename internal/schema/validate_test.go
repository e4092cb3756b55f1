package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pointSchema = json.RawMessage(`{"type":"object","properties":{"x":{"type":"integer"}},"required":["x"]}`)

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(pointSchema, json.RawMessage(`{"x":1}`)))
	assert.Error(t, Validate(pointSchema, json.RawMessage(`{"x":"one"}`)))
	assert.Error(t, Validate(pointSchema, json.RawMessage(`{}`)))
	assert.Error(t, Validate(pointSchema, nil))
	assert.NoError(t, Validate(nil, json.RawMessage(`"anything"`)))
}

func TestCompile_Cached(t *testing.T) {
	a, err := Compile(pointSchema)
	require.NoError(t, err)
	b, err := Compile(append(json.RawMessage(nil), pointSchema...))
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = Compile(json.RawMessage(`{"type":`))
	assert.Error(t, err)
}
