package backend

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		current    []string
		desired    []string
		wantAdd    []string
		wantRemove []string
	}{
		{name: "empty", current: nil, desired: nil},
		{name: "add only", current: []string{"a"}, desired: []string{"a", "b", "c"}, wantAdd: []string{"b", "c"}},
		{name: "remove only", current: []string{"a", "b"}, desired: []string{"b"}, wantRemove: []string{"a"}},
		{name: "swap", current: []string{"a", "b"}, desired: []string{"b", "c"}, wantAdd: []string{"c"}, wantRemove: []string{"a"}},
		{name: "duplicates", current: []string{"a", "a"}, desired: []string{"b", "b"}, wantAdd: []string{"b"}, wantRemove: []string{"a"}},
		{name: "unchanged", current: []string{"a", "b"}, desired: []string{"b", "a"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			add, remove := Diff(tc.current, tc.desired)
			assert.Equal(t, tc.wantAdd, add)
			assert.Equal(t, tc.wantRemove, remove)
		})
	}
}

func TestNotFoundErrorIs(t *testing.T) {
	err := fmt.Errorf("update: %w", NotFoundError{Table: TableItems, ID: "p-1"})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "update: parrillas not found: p-1", err.Error())
}
