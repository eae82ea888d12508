package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parrillas/internal/board"
	"parrillas/internal/model"
	"parrillas/internal/notify"
)

func sampleItem() model.ContentItemWithRelations {
	due := "2026-01-20"
	desc := "Lanzamiento del menú de invierno"
	icon := "diseno"
	return model.ContentItemWithRelations{
		ContentItem: model.ContentItem{
			ID: "0f8fad5b-d9cb-469f-a165-70867728950e", Title: "Post café", DueDate: &due,
			Description: &desc, Priority: model.PriorityUrgent,
		},
		Client:    model.Client{Name: "Café Aroma", Color: "#8B4513"},
		Status:    model.Status{ID: "s-2", Name: "Diseño", Icon: &icon},
		Assignees: []model.UserProfile{{FullName: "Ana García"}, {FullName: "Luis Pérez"}},
		Comments: []model.CommentWithAuthor{{
			Comment: model.Comment{Content: "Listo para revisión"},
			User:    model.UserProfile{FullName: "Marta Ruiz"},
		}},
	}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, map[string]int{"n": 1}, "", false))
	assert.Equal(t, "{\"n\":1}\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, map[string]int{"n": 1}, JSON, true))
	assert.Equal(t, "{\n  \"n\": 1\n}\n", buf.String())

	assert.Error(t, Write(&buf, nil, "edn", false))
}

func TestWriteText_Board(t *testing.T) {
	var buf bytes.Buffer
	cols := []board.Column{
		{Status: model.Status{Name: "Contenido"}, Items: []model.ContentItemWithRelations{}},
		{Status: model.Status{Name: "Diseño"}, Items: []model.ContentItemWithRelations{sampleItem()}},
	}
	require.NoError(t, Write(&buf, cols, Text, false))
	out := buf.String()
	assert.Contains(t, out, "○ Contenido (0)")
	assert.Contains(t, out, "Diseño (1)")
	assert.Contains(t, out, "sin contenido")
	assert.Contains(t, out, "0f8fad5b")
	assert.Contains(t, out, "!!")
	assert.NotContains(t, out, "\x1b[", "no color when not a terminal")
}

func TestWriteText_Detail(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleItem()))
	out := buf.String()
	for _, want := range []string{"Post café", "◔ Diseño", "Café Aroma", "2026-01-20", "Ana García, Luis Pérez", "menú de invierno", "Marta Ruiz", "Listo para revisión"} {
		assert.Contains(t, out, want)
	}
}

func TestWriteText_Calendar(t *testing.T) {
	var buf bytes.Buffer
	m := board.CalendarMonth([]model.ContentItemWithRelations{sampleItem()}, 2026, time.January)
	require.NoError(t, WriteText(&buf, m))
	out := buf.String()
	assert.Contains(t, out, "January 2026")
	assert.Contains(t, out, " 20*")
	assert.Contains(t, out, "2026-01-20  0f8fad5b  Post café")
	lines := strings.Split(out, "\n")
	require.Greater(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[2], strings.Repeat(" ", 16)+"  1"), "Jan 1 2026 is a Thursday")
}

func TestWriteText_Notifications(t *testing.T) {
	var buf bytes.Buffer
	snap := notify.Snapshot{Unread: 1, Items: []model.Notification{
		{ID: "n-1", Title: "Nuevo comentario", Message: "en Post café"},
		{ID: "n-2", Title: "Asignado", IsRead: true},
	}}
	require.NoError(t, WriteText(&buf, snap))
	out := buf.String()
	assert.Contains(t, out, "1 sin leer")
	assert.Contains(t, out, "• n-1  Nuevo comentario · en Post café")
	assert.Contains(t, out, "  n-2  Asignado")
}

func TestWriteText_FallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, map[string]string{"url": "https://drive.example"}))
	var got map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "https://drive.example", got["url"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc…", truncate("abcdef", 4))
	assert.Equal(t, "abc", truncate("abc", 4))
}
