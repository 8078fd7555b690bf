package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewElementIDIsUniqueAndPrefixed(t *testing.T) {
	a := NewElementID()
	b := NewElementID()

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, PrefixElement+"_"))
	require.NoError(t, Validate(a, PrefixElement))
}

func TestValidateRejectsWrongPrefix(t *testing.T) {
	err := Validate(NewTemplateID(), PrefixElement)
	assert.Error(t, err)

	err = Validate("not-a-typeid", PrefixElement)
	assert.Error(t, err)
}
