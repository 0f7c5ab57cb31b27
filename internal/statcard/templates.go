package statcard

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/abelzeko/reservoir-dashboard/internal/entities"
)

const placeholder = "-"

var fragments = template.Must(template.New("statcard").Parse(`
{{- define "title" -}}
<p class='lead mt-2 mb-0'><strong>{{.Name}} водохранилище</strong></p>
<p class='text-muted mt-1'>{{.Subtitle}}</p>
{{- end -}}

{{- define "offsets" -}}
<td align='end' class='align-middle'><small class='text-muted mx-3'>Изменения за сутки</small></td>
<td><small class='text-muted'>{{.Level}} м</small></td>
<td><small class='text-muted'>{{.Inflow}} м<sup>3</sup>/с</small></td>
<td><small class='text-muted'>{{.Outflow}} м<sup>3</sup>/с</small></td>
<td><small class='text-muted'>{{.Spillway}} м<sup>3</sup>/с</small></td>
{{- end -}}

{{- define "actual" -}}
<td align='end' class='align-middle'><small class='text-muted mx-3'>Актуальные значения</small></td>
<td><h5><span style='color:#ffc58c'>{{.Level}} м</span></h5></td>
<td><h5><span style='color:#ffa1b5'>{{.Inflow}} м<sup>3</sup>/с</span></h5></td>
<td><h5><span style='color:#86c7f3'>{{.Outflow}} м<sup>3</sup>/с</span></h5></td>
<td><h5><span style='color:#b894ff'>{{.Spillway}} м<sup>3</sup>/с</span></h5></td>
{{- end -}}

{{- define "volumes" -}}
<td align='end' colspan='2' class='align-middle'><small class='text-muted mx-3'>Суммарные объемы за период</small></td>
<td><small class='text-muted'>{{.Inflow}} км<sup>3</sup></small></td>
<td><small class='text-muted'>{{.Outflow}} км<sup>3</sup></small></td>
<td><small class='text-muted'>{{.Spillway}} км<sup>3</sup></small></td>
{{- end -}}
`))

type title struct {
	Name     string
	Subtitle string
}

// row is one line of the card: level first, then the three flows
type row struct {
	Level    string
	Inflow   string
	Outflow  string
	Spillway string
}

var placeholderRow = row{Level: placeholder, Inflow: placeholder, Outflow: placeholder, Spillway: placeholder}

func execute(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s fragment: %w", name, err)
	}
	return buf.String(), nil
}

func offsetsRow(s entities.Situation) row {
	return row{
		Level:    s.LevelOffset,
		Inflow:   s.InflowOffset,
		Outflow:  s.OutflowOffset,
		Spillway: s.SpillwayOffset,
	}
}

func actualRow(s entities.Situation) row {
	return row{
		Level:    formatNumber(s.Level),
		Inflow:   formatNumber(s.Inflow),
		Outflow:  formatNumber(s.Outflow),
		Spillway: formatNumber(s.Spillway),
	}
}

// formatNumber prints the shortest representation of v, or the placeholder when absent
func formatNumber(v *float64) string {
	if v == nil {
		return placeholder
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

var genitiveMonths = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatDate renders a date the way Russian locales print a long date: "5 марта 2024 г."
func FormatDate(d entities.Date) string {
	if d.IsZero() {
		return placeholder
	}
	return fmt.Sprintf("%d %s %d г.", d.Day(), genitiveMonths[d.Month()-1], d.Year())
}
