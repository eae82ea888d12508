package board

import (
	"sort"
	"strings"
	"time"

	"parrillas/internal/model"
	"parrillas/internal/perm"
)

const upcomingLimit = 5

// Distribution buckets, matched by substring against lower-cased status names.
const (
	BucketTodo       = "To Do"
	BucketInProgress = "In Progress"
	BucketReview     = "En Revisión"
	BucketDone       = "Completado"
)

var bucketOrder = []string{BucketTodo, BucketInProgress, BucketReview, BucketDone}

var bucketNeedles = map[string][]string{
	BucketTodo:       {"to do", "pendiente", "backlog"},
	BucketInProgress: {"in progress", "en proceso", "working"},
	BucketReview:     {"review", "revisión", "aprobación"},
	BucketDone:       {"done", "completado", "publicado"},
}

type Bucket struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type Summary struct {
	Management     bool                             `json:"management"`
	Relevant       int                              `json:"relevant"`
	Active         int                              `json:"active"`
	Urgent         int                              `json:"urgent"`
	OverdueOrToday int                              `json:"overdue_or_today"`
	ReviewsPending int                              `json:"reviews_pending"`
	Upcoming       []model.ContentItemWithRelations `json:"upcoming"`
	Distribution   []Bucket                         `json:"distribution"`
}

func isClosed(st model.Status) bool {
	n := strings.ToLower(st.Name)
	return n == "completado" || n == "publicado"
}

func isReview(st model.Status) bool {
	n := strings.ToLower(st.Name)
	return strings.Contains(n, "revisión") || strings.Contains(n, "review")
}

// Dashboard summarises the items relevant to user as of today. Management roles
// see every item; others only what they are assigned to.
func Dashboard(items []model.ContentItemWithRelations, user model.UserProfile, today time.Time) Summary {
	relevant := perm.RelevantItems(items, user)
	day := today.Format(DateLayout)

	s := Summary{Management: perm.IsManagement(user.Role), Relevant: len(relevant)}
	var active []model.ContentItemWithRelations
	for _, it := range relevant {
		if isClosed(it.Status) {
			continue
		}
		active = append(active, it)
		if it.Priority == model.PriorityUrgent {
			s.Urgent++
		}
		if it.DueDate != nil && dueDay(*it.DueDate) <= day {
			s.OverdueOrToday++
		}
		if isReview(it.Status) {
			s.ReviewsPending++
		}
	}
	s.Active = len(active)

	var dated []model.ContentItemWithRelations
	for _, it := range active {
		if it.DueDate != nil && *it.DueDate != "" {
			dated = append(dated, it)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool { return dueDay(*dated[i].DueDate) < dueDay(*dated[j].DueDate) })
	if len(dated) > upcomingLimit {
		dated = dated[:upcomingLimit]
	}
	s.Upcoming = dated

	for _, name := range bucketOrder {
		b := Bucket{Name: name}
		for _, it := range relevant {
			n := strings.ToLower(it.Status.Name)
			for _, needle := range bucketNeedles[name] {
				if strings.Contains(n, needle) {
					b.Count++
					break
				}
			}
		}
		if len(relevant) > 0 {
			b.Percent = float64(b.Count) / float64(len(relevant)) * 100
		}
		s.Distribution = append(s.Distribution, b)
	}
	return s
}

// dueDay trims a due date to its YYYY-MM-DD prefix so plain string comparison orders it.
func dueDay(s string) string {
	if len(s) > len(DateLayout) {
		return s[:len(DateLayout)]
	}
	return s
}
