package board

// Icon tags stored on statuses.icon.
const (
	IconContenido    = "contenido"
	IconDiseno       = "diseno"
	IconCambios      = "cambios"
	IconEntregaFinal = "entrega-final"
)

var statusGlyphs = map[string]string{
	IconContenido:    "○",
	IconDiseno:       "◔",
	IconCambios:      "◑",
	IconEntregaFinal: "✔",
}

// StatusIcon maps an icon tag to its glyph. Unknown or missing tags render as "contenido".
func StatusIcon(tag *string) string {
	if tag != nil {
		if g, ok := statusGlyphs[*tag]; ok {
			return g
		}
	}
	return statusGlyphs[IconContenido]
}
