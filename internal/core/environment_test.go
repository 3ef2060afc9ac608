package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	cases := map[string]Environment{
		"production":  Production,
		" PROD ":      Production,
		"staging":     Staging,
		"test":        Testing,
		"":            Development,
		"laptop":      Development,
		"Development": Development,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseEnvironment(in), "input %q", in)
	}
	assert.True(t, Production.IsProduction())
	assert.False(t, Staging.IsProduction())
}
