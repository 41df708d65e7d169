// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()
	all := r.All()
	require.Len(t, all, 9)

	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Name, all[i].Name, "All must be sorted")
	}
	for _, tool := range all {
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotEmpty(t, tool.ShortDescription(), tool.Name)
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()

	tool := r.Get("ncl_search")
	require.NotNil(t, tool)
	require.Len(t, tool.Schema.Parameters, 1)
	assert.Equal(t, "query", tool.Schema.Parameters[0].Name)
	assert.True(t, tool.Schema.Parameters[0].Required)

	assert.NotNil(t, r.Get("  Wikipedia "))
	assert.Nil(t, r.Get("calculator"))
	assert.Empty(t, r.Get("date_time").Schema.Parameters)
}

func TestRegistry_Label(t *testing.T) {
	r := NewRegistry()
	assert.Contains(t, r.Label("open_weather_map"), "open_weather_map (")
	assert.Equal(t, "calculator", r.Label("calculator"))
}

func TestShortDescription_FallsBackToFirstSentence(t *testing.T) {
	tool := &Tool{Description: "Does one thing. Then another."}
	assert.Equal(t, "Does one thing.", tool.ShortDescription())
}
