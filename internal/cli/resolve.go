package cli

import (
	"fmt"
	"strings"

	"parrillas/internal/backend"
	"parrillas/internal/model"
	"parrillas/internal/statusutil"
	"parrillas/internal/store"
)

// minPrefix is the shortest id prefix accepted in place of a full id.
const minPrefix = 4

type ambiguousError struct {
	kind    string
	ref     string
	matches []string
}

func (e ambiguousError) Error() string {
	return fmt.Sprintf("%s %q is ambiguous: %s", e.kind, e.ref, strings.Join(e.matches, ", "))
}

// resolve finds the single entry whose id equals ref, then whose id starts with ref,
// then whose name equals ref ignoring case.
func resolve[T any](kind, ref string, all []T, id, name func(T) string) (T, error) {
	var zero T
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return zero, fmt.Errorf("%s is required", kind)
	}
	for _, v := range all {
		if id(v) == ref {
			return v, nil
		}
	}
	pick := func(match func(T) bool) (T, bool, error) {
		var hits []T
		for _, v := range all {
			if match(v) {
				hits = append(hits, v)
			}
		}
		switch len(hits) {
		case 0:
			return zero, false, nil
		case 1:
			return hits[0], true, nil
		}
		ids := make([]string, 0, len(hits))
		for _, h := range hits {
			ids = append(ids, id(h))
		}
		return zero, false, ambiguousError{kind: kind, ref: ref, matches: ids}
	}
	if len(ref) >= minPrefix {
		if v, ok, err := pick(func(v T) bool { return strings.HasPrefix(id(v), ref) }); ok || err != nil {
			return v, err
		}
	}
	if name != nil {
		if v, ok, err := pick(func(v T) bool { return strings.EqualFold(strings.TrimSpace(name(v)), ref) }); ok || err != nil {
			return v, err
		}
	}
	return zero, backend.NotFoundError{Table: kind, ID: ref}
}

func resolveItem(st store.State, ref string) (model.ContentItemWithRelations, error) {
	return resolve(backend.TableItems, ref, st.Items,
		func(it model.ContentItemWithRelations) string { return it.ID },
		func(it model.ContentItemWithRelations) string { return it.Title })
}

func resolveStatus(st store.State, ref string) (model.Status, error) {
	return statusutil.Resolve(st.Statuses, ref)
}

func resolveClient(st store.State, ref string) (model.Client, error) {
	return resolve(backend.TableClients, ref, st.Clients,
		func(c model.Client) string { return c.ID },
		func(c model.Client) string { return c.Name })
}

func resolveUser(st store.State, ref string) (model.UserProfile, error) {
	return resolve(backend.TableUserProfiles, ref, st.Users,
		func(u model.UserProfile) string { return u.ID },
		func(u model.UserProfile) string { return u.FullName })
}

func resolveLabel(st store.State, ref string) (model.Label, error) {
	return resolve(backend.TableLabels, ref, st.Labels,
		func(l model.Label) string { return l.ID },
		func(l model.Label) string { return l.Name })
}

// resolveAll maps every ref through fn and returns the ids, keeping order.
func resolveAll[T any](refs []string, fn func(string) (T, error), id func(T) string) ([]string, error) {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if strings.TrimSpace(r) == "" {
			continue
		}
		v, err := fn(r)
		if err != nil {
			return nil, err
		}
		out = append(out, id(v))
	}
	return out, nil
}

func userIDs(st store.State, refs []string) ([]string, error) {
	return resolveAll(refs, func(r string) (model.UserProfile, error) { return resolveUser(st, r) },
		func(u model.UserProfile) string { return u.ID })
}

func labelIDs(st store.State, refs []string) ([]string, error) {
	return resolveAll(refs, func(r string) (model.Label, error) { return resolveLabel(st, r) },
		func(l model.Label) string { return l.ID })
}
