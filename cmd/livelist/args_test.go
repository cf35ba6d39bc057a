package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livelist"
)

func TestParseValue(t *testing.T) {
	assert.Equal(t, 3, parseValue("3"))
	assert.Equal(t, 2.5, parseValue("2.5"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, "open", parseValue("open"))
	assert.Equal(t, "", parseValue(""))
	assert.Equal(t, "[unclosed", parseValue("[unclosed"))
}

func TestParseAssignments(t *testing.T) {
	fields, err := parseAssignments([]string{"title=Write docs", "rank=2", "done=false"})
	require.NoError(t, err)
	assert.Equal(t, livelist.Fields{"title": "Write docs", "rank": 2, "done": false}, fields)

	_, err = parseAssignments([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseAssignments([]string{"=x"})
	assert.Error(t, err)
}

func TestIncrement(t *testing.T) {
	cases := []struct {
		name    string
		current any
		by      float64
		want    any
	}{
		{"missing", nil, 1, 1},
		{"int", 41, 1, 42},
		{"int by fraction", 1, 0.5, 1.5},
		{"int64", int64(9), 1, int64(10)},
		{"uint64", uint64(9), 1, uint64(10)},
		{"float", 1.5, 1, 2.5},
		{"number", json.Number("7"), 3, json.Number("10")},
		{"decimal number", json.Number("0.5"), 1, json.Number("1.5")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := increment(tc.current, tc.by)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := increment("ten", 1)
	assert.Error(t, err)
}
