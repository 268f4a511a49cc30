package rendering

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/jonathan/exam-compiler/internal/stimulus"
	"github.com/jonathan/exam-compiler/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcMap = template.FuncMap{
	"join": strings.Join,
	"isCorrect": func(q types.AcceptedQuestion, i int) bool {
		return q.CorrectChoiceIndex != nil && *q.CorrectChoiceIndex == i
	},
	"stimulusHTML": stimulusHTML,
}

var pageTemplates = template.Must(
	template.New("unit.html").Funcs(funcMap).ParseFS(templateFS, "templates/*.html"),
)

// UnitPage is the data for one rendered unit of questions.
type UnitPage struct {
	CourseName string
	UnitName   string
	Questions  []types.AcceptedQuestion
}

// RenderUnit renders a unit's accepted questions to a standalone HTML page.
func RenderUnit(page UnitPage) (string, error) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "unit.html", page); err != nil {
		return "", &TemplateError{Message: "failed to render unit page", Cause: err}
	}
	return buf.String(), nil
}

// RenderQuestion renders a single accepted question fragment.
func RenderQuestion(q types.AcceptedQuestion) (string, error) {
	name := "mcq.html"
	if q.Type == types.QuestionTypeFRQ {
		name = "frq.html"
	}

	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, q); err != nil {
		return "", &TemplateError{Message: fmt.Sprintf("failed to render question %s", q.ID), Cause: err}
	}
	return buf.String(), nil
}

// stimulusHTML renders a stimulus for embedding. SVG markup was verified
// at acceptance time and is embedded as-is; tables are re-rendered from
// their pipe form; passages and images are escaped through the template
// engine's normal paths.
func stimulusHTML(s *types.Stimulus) (template.HTML, error) {
	switch s.Kind {
	case stimulus.KindSVG:
		if err := stimulus.VerifySVG(s.Content); err != nil {
			return "", err
		}
		return template.HTML(s.Content), nil
	case stimulus.KindTable:
		rendered, err := stimulus.RenderTableHTML(s.Content)
		if err != nil {
			return "", err
		}
		return template.HTML(rendered), nil
	case stimulus.KindPassage:
		return template.HTML("<blockquote>" + template.HTMLEscapeString(s.Content) + "</blockquote>"), nil
	case stimulus.KindImage:
		if !strings.HasPrefix(s.Content, "data:image/") {
			return "", fmt.Errorf("image stimulus is not a data URI")
		}
		return template.HTML(fmt.Sprintf(
			`<img src="%s" alt="%s">`,
			template.HTMLEscapeString(s.Content),
			template.HTMLEscapeString(s.AltText),
		)), nil
	default:
		return "", fmt.Errorf("unknown stimulus kind %q", s.Kind)
	}
}
