// Package statusutil resolves user input to board statuses and walks the column order.
package statusutil

import (
	"fmt"
	"sort"
	"strings"

	"parrillas/internal/model"
)

// Ordered returns a copy of statuses sorted by order_index.
func Ordered(statuses []model.Status) []model.Status {
	out := append([]model.Status(nil), statuses...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}

// Resolve finds a status by id, by name (case-insensitive) or by icon tag.
func Resolve(statuses []model.Status, s string) (model.Status, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Status{}, fmt.Errorf("invalid status: empty")
	}
	for _, st := range statuses {
		if st.ID == s {
			return st, nil
		}
	}
	for _, st := range statuses {
		if strings.EqualFold(st.Name, s) {
			return st, nil
		}
	}
	for _, st := range statuses {
		if st.Icon != nil && strings.EqualFold(*st.Icon, s) {
			return st, nil
		}
	}
	names := make([]string, 0, len(statuses))
	for _, st := range Ordered(statuses) {
		names = append(names, st.Name)
	}
	return model.Status{}, fmt.Errorf("unknown status %q (expected one of: %s)", s, strings.Join(names, ", "))
}

func Validate(statuses []model.Status, statusID string) bool {
	for _, st := range statuses {
		if st.ID == statusID {
			return true
		}
	}
	return false
}

// Neighbor returns the status delta columns away from statusID in board order.
// It reports false at either edge or when statusID is unknown.
func Neighbor(statuses []model.Status, statusID string, delta int) (model.Status, bool) {
	ordered := Ordered(statuses)
	for i, st := range ordered {
		if st.ID != statusID {
			continue
		}
		j := i + delta
		if j < 0 || j >= len(ordered) {
			return model.Status{}, false
		}
		return ordered[j], true
	}
	return model.Status{}, false
}
