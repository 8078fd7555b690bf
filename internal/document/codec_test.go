package document

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSceneJSONPreservesKindsAndOrder(t *testing.T) {
	s := NewSampleScene()

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var back Scene
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, s.Equal(&back))
}

func TestDecodeSceneYAMLAppliesDefaults(t *testing.T) {
	src := `
canvas: {width: 400, height: 300}
background: "#fff"
elements:
  - kind: shape
    x: 10
    y: 20
    width: 50
    height: 60
    rotation: -45
    shape:
      shapeVariant: circle
      fillColor: "#ff0000"
  - kind: text
    width: 100
    height: 30
`
	s, err := DecodeScene("card.yaml", []byte(src))
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	els := s.Elements()
	assert.Equal(t, KindShape, els[0].Kind())
	assert.Equal(t, 315.0, els[0].Rotation)
	assert.Equal(t, 1.0, els[0].Opacity)
	assert.Equal(t, ShapeCircle, els[0].Body().(Shape).Variant)
	assert.NotEmpty(t, els[0].ID())

	assert.Equal(t, DefaultText(), els[1].Body().(Text))
}

func TestDecodeSceneRejectsInvalidElements(t *testing.T) {
	tests := map[string]string{
		"zero width":   `{"canvas":{"width":10,"height":10},"elements":[{"kind":"shape","width":0,"height":5}]}`,
		"unknown kind": `{"canvas":{"width":10,"height":10},"elements":[{"kind":"video","width":5,"height":5}]}`,
		"bad canvas":   `{"canvas":{"width":0,"height":10},"elements":[]}`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeScene("scene.json", []byte(src))
			assert.True(t, IsValidation(err), "err=%v", err)
		})
	}
}

func TestDecodeSceneRejectsDuplicateIDs(t *testing.T) {
	src := `{"canvas":{"width":10,"height":10},"elements":[
		{"id":"el_a","kind":"shape","width":5,"height":5},
		{"id":"el_a","kind":"shape","width":5,"height":5}]}`

	_, err := DecodeScene("scene.json", []byte(src))
	assert.True(t, errors.Is(err, ErrDuplicateID))
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#f00")
	require.NoError(t, err)
	assert.Equal(t, uint8(255), c.R)
	assert.Equal(t, uint8(255), c.A)

	c, err = ParseColor("#11223380")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x80), c.A)

	c, err = ParseColor("transparent")
	require.NoError(t, err)
	assert.Equal(t, uint8(0), c.A)

	_, err = ParseColor("#12")
	assert.Error(t, err)
}

func TestLookupPreset(t *testing.T) {
	p, err := LookupPreset("Business Card")
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 1050, Height: 600}, p.Size())

	p, err = LookupPreset("hd")
	require.NoError(t, err)
	assert.Equal(t, "HD", p.Name)

	_, err = LookupPreset("billboard")
	assert.True(t, errors.Is(err, ErrUnknownPreset))
	assert.True(t, IsValidation(err))
}
