package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupResolvesKeywords(t *testing.T) {
	k, ok := Lookup("walker")
	assert.True(t, ok)
	assert.Equal(t, KW_WALKER, k)
}

func TestLookupRejectsNonKeyword(t *testing.T) {
	_, ok := Lookup("frobnicate")
	assert.False(t, ok)
}

func TestKindStringRendersKeywordSurfaceForm(t *testing.T) {
	assert.Equal(t, "walker", KW_WALKER.String())
	assert.Equal(t, "is not", KW_ISN.String())
}

func TestKindStringFallsBackForUnnamed(t *testing.T) {
	assert.Equal(t, "UNKNOWN", Kind(9999).String())
}
