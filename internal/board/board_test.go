package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parrillas/internal/model"
)

func strp(s string) *string { return &s }

var (
	cafe   = model.Client{ID: "c-cafe", Name: "Café Aroma"}
	fit    = model.Client{ID: "c-fit", Name: "FitLife Gym"}
	sCont  = model.Status{ID: "s-cont", Name: "Contenido", OrderIndex: 1}
	sDis   = model.Status{ID: "s-dis", Name: "Diseño", OrderIndex: 2}
	sRev   = model.Status{ID: "s-rev", Name: "En Revisión", OrderIndex: 3}
	sDone  = model.Status{ID: "s-done", Name: "Publicado", OrderIndex: 4}
	ana    = model.UserProfile{ID: "u-ana", FullName: "Ana", Role: model.RoleDesigner}
	bruno  = model.UserProfile{ID: "u-bruno", FullName: "Bruno", Role: model.RoleContentManager}
	statuz = []model.Status{sDone, sCont, sRev, sDis}
)

func item(id string, c model.Client, st model.Status, due string, assignees ...model.UserProfile) model.ContentItemWithRelations {
	it := model.ContentItemWithRelations{
		ContentItem: model.ContentItem{ID: id, Title: "Post " + id, ClientID: c.ID, StatusID: st.ID, Priority: model.PriorityMedium},
		Client:      c,
		Status:      st,
		Assignees:   assignees,
	}
	if due != "" {
		it.DueDate = strp(due)
	}
	return it
}

func fixture() []model.ContentItemWithRelations {
	a := item("p-1", cafe, sCont, "2026-01-20", ana)
	b := item("p-2", fit, sDis, "2026-01-21", bruno)
	b.Description = strp("Reel de lanzamiento")
	c := item("p-3", cafe, sRev, "", ana, bruno)
	d := item("p-4", fit, sDone, "2026-01-10")
	return []model.ContentItemWithRelations{a, b, c, d}
}

func ids(items []model.ContentItemWithRelations) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestFilterItems(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		f    Filters
		want []string
	}{
		{"no filters", Filters{}, []string{"p-1", "p-2", "p-3", "p-4"}},
		{"client", Filters{ClientID: cafe.ID}, []string{"p-1", "p-3"}},
		{"date match", Filters{Date: "2026-01-20"}, []string{"p-1"}},
		{"date miss", Filters{Date: "2026-01-21", ClientID: cafe.ID}, []string{}},
		{"role", Filters{Role: string(model.RoleContentManager)}, []string{"p-2", "p-3"}},
		{"user", Filters{UserID: ana.ID}, []string{"p-1", "p-3"}},
		{"search client name", Filters{Search: "café"}, []string{"p-1", "p-3"}},
		{"search description", Filters{Search: "LANZAMIENTO"}, []string{"p-2"}},
		{"search title", Filters{Search: "post p-4"}, []string{"p-4"}},
		{"conjunction", Filters{ClientID: cafe.ID, UserID: bruno.ID, Role: string(model.RoleDesigner)}, []string{"p-3"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ids(FilterItems(fixture(), tc.f)))
		})
	}
}

func TestFilterItems_SearchKeepsSurroundingSpaces(t *testing.T) {
	t.Parallel()
	reel := item("p-5", fit, sCont, "")
	reel.Title = "Reel verano"
	mid := item("p-6", fit, sCont, "")
	mid.Title = "Nuevo reel"
	items := []model.ContentItemWithRelations{reel, mid}

	assert.Equal(t, []string{"p-5", "p-6"}, ids(FilterItems(items, Filters{Search: "reel"})))
	assert.Equal(t, []string{"p-6"}, ids(FilterItems(items, Filters{Search: " REEL"})))
	assert.Empty(t, FilterItems(items, Filters{Search: "reel "}))
}

func TestFilterItems_DueDateScenario(t *testing.T) {
	t.Parallel()
	items := []model.ContentItemWithRelations{item("p-1", cafe, sCont, "2026-01-20")}
	assert.Len(t, FilterItems(items, Filters{Date: "2026-01-20"}), 1)
	assert.Empty(t, FilterItems(items, Filters{Date: "2026-01-21"}))
}

func TestFilterItems_EveryResultSatisfiesEveryPredicate(t *testing.T) {
	t.Parallel()
	clients := []string{"", cafe.ID, fit.ID}
	dates := []string{"", "2026-01-20", "2026-01-21"}
	users := []string{"", ana.ID, bruno.ID}
	searches := []string{"", "café", "reel"}
	all := fixture()
	for _, c := range clients {
		for _, d := range dates {
			for _, u := range users {
				for _, q := range searches {
					f := Filters{ClientID: c, Date: d, UserID: u, Search: q}
					got := FilterItems(all, f)
					want := 0
					for _, it := range all {
						if len(FilterItems([]model.ContentItemWithRelations{it}, f)) == 1 {
							want++
						}
					}
					require.Len(t, got, want, "%+v", f)
					for _, it := range got {
						if c != "" {
							assert.Equal(t, c, it.ClientID)
						}
						if d != "" {
							assert.Equal(t, d, *it.DueDate)
						}
						if u != "" {
							assert.True(t, it.HasAssignee(u))
						}
					}
				}
			}
		}
	}
}

func TestGroupByStatus_EveryStatusKeyed(t *testing.T) {
	t.Parallel()
	grouped := GroupByStatus(FilterItems(fixture(), Filters{ClientID: cafe.ID}), statuz)
	require.Len(t, grouped, 4)
	for _, st := range statuz {
		v, ok := grouped[st.ID]
		assert.True(t, ok, st.ID)
		assert.NotNil(t, v, st.ID)
	}
	assert.Empty(t, grouped[sDis.ID])
	assert.Equal(t, []string{"p-1"}, ids(grouped[sCont.ID]))
}

func TestColumns_OrderedByIndex(t *testing.T) {
	t.Parallel()
	cols := Columns(fixture(), statuz)
	require.Len(t, cols, 4)
	var names []string
	for _, c := range cols {
		names = append(names, c.Status.Name)
	}
	assert.Equal(t, []string{"Contenido", "Diseño", "En Revisión", "Publicado"}, names)
}

func TestCalendarMonth(t *testing.T) {
	t.Parallel()
	m := CalendarMonth(fixture(), 2026, time.January)
	assert.Equal(t, 4, m.Lead) // 2026-01-01 is a Thursday
	require.Len(t, m.Days, 31)
	assert.Equal(t, "2026-01-20", m.Days[19].Date)
	assert.Equal(t, []string{"p-1"}, ids(m.Days[19].Items))
	assert.Empty(t, m.Days[0].Items)

	stamped := item("p-9", cafe, sCont, "2026-01-20T10:00:00Z")
	assert.Len(t, ItemsOnDate([]model.ContentItemWithRelations{stamped}, "2026-01-20"), 1)
}

func TestDashboard(t *testing.T) {
	t.Parallel()
	all := fixture()
	all[0].Priority = model.PriorityUrgent
	today := time.Date(2026, 1, 20, 15, 0, 0, 0, time.UTC)

	boss := Dashboard(all, model.UserProfile{ID: "u-ceo", Role: model.RoleCEO}, today)
	assert.True(t, boss.Management)
	assert.Equal(t, 4, boss.Relevant)
	assert.Equal(t, 3, boss.Active)
	assert.Equal(t, 1, boss.Urgent)
	assert.Equal(t, 1, boss.OverdueOrToday)
	assert.Equal(t, 1, boss.ReviewsPending)
	assert.Equal(t, []string{"p-1", "p-2"}, ids(boss.Upcoming))
	require.Len(t, boss.Distribution, 4)
	assert.Equal(t, BucketReview, boss.Distribution[2].Name)
	assert.Equal(t, 1, boss.Distribution[2].Count)
	assert.InDelta(t, 25.0, boss.Distribution[3].Percent, 0.001)

	mine := Dashboard(all, ana, today)
	assert.False(t, mine.Management)
	assert.Equal(t, 2, mine.Relevant)
}

func TestStatusIcon(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "✔", StatusIcon(strp(IconEntregaFinal)))
	assert.Equal(t, "◔", StatusIcon(strp(IconDiseno)))
	assert.Equal(t, StatusIcon(strp(IconContenido)), StatusIcon(nil))
	assert.Equal(t, StatusIcon(strp(IconContenido)), StatusIcon(strp("unknown")))
}
