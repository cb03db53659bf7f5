package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPartitionsTool(t *testing.T) {
	s := newTestServer()
	RegisterListPartitionsTool(s, newTestStore(t, false))

	t.Run("all views", func(t *testing.T) {
		text, isErr := callTool(t, s, "list_partitions", nil)
		require.False(t, isErr)

		var result listPartitionsResult
		require.NoError(t, json.Unmarshal([]byte(text), &result))
		require.Len(t, result.Partitions, 3)
		assert.Equal(t, "cells:HighDensity/max", result.Partitions[0].Key)
		assert.Equal(t, "cells:HighDensity/nom", result.Partitions[1].Key)
		assert.Equal(t, "netlist:place", result.Partitions[2].Key)
		assert.Equal(t, "sql", string(result.Partitions[0].Dialect))
		assert.Equal(t, "cypher", string(result.Partitions[2].Dialect))
	})

	t.Run("one view", func(t *testing.T) {
		text, isErr := callTool(t, s, "list_partitions", map[string]any{"view": "netlist"})
		require.False(t, isErr)

		var result listPartitionsResult
		require.NoError(t, json.Unmarshal([]byte(text), &result))
		require.Len(t, result.Partitions, 1)
		assert.Equal(t, "netlist:place", result.Partitions[0].Key)
	})

	t.Run("unknown view", func(t *testing.T) {
		text, isErr := callTool(t, s, "list_partitions", map[string]any{"view": "layout"})
		assert.True(t, isErr)
		assert.Contains(t, text, "invalid_parameters")
	})
}

func TestHealthTool(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		s := newTestServer()
		RegisterHealthTool(s, newTestStore(t, false), "1.2.3")

		text, _ := callTool(t, s, "health", nil)
		var result healthResult
		require.NoError(t, json.Unmarshal([]byte(text), &result))
		assert.Equal(t, "ok", result.Status)
		assert.Equal(t, "1.2.3", result.Version)
		assert.Empty(t, result.Partitions)
	})

	t.Run("degraded", func(t *testing.T) {
		s := newTestServer()
		RegisterHealthTool(s, newTestStore(t, true), "1.2.3")

		text, _ := callTool(t, s, "health", nil)
		var result healthResult
		require.NoError(t, json.Unmarshal([]byte(text), &result))
		assert.Equal(t, "degraded", result.Status)
		assert.Contains(t, result.Partitions["netlist:place"], "connection refused")
	})
}
