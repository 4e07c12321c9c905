package main

import (
	"testing"

	"relfetch/fetch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSpecs(t *testing.T) {
	specs := buildSpecs([]string{"teams", "teams.players"}, false)
	require.Len(t, specs, 2)
	assert.Equal(t, "teams", specs[0])
	assert.Equal(t, "teams.players", specs[1])

	specs = buildSpecs([]string{"teams"}, true)
	require.Len(t, specs, 1)
	assert.Equal(t, fetch.WithBackrefs("teams"), specs[0])

	assert.Empty(t, buildSpecs(nil, true))
}
