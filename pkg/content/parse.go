package content

import (
	"strings"
)

// Field describes one labelled line in a generated reply. The first label
// that matches wins; labels compare case-insensitively.
type Field struct {
	Name   string
	Labels []string
}

var emphasis = strings.NewReplacer("**", "", "__", "", "*", "", "`", "")

// ParseFields extracts "Label: value" lines from text. Markdown emphasis,
// bullets and heading marks are ignored. Fields without a matching line are
// returned as "".
func ParseFields(text string, fields []Field) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Name] = ""
	}

	for _, raw := range strings.Split(text, "\n") {
		line := cleanLine(raw)
		if line == "" {
			continue
		}
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		label = strings.Trim(label, " _")
		value = strings.TrimSpace(strings.TrimLeft(value, "_ "))
		for _, f := range fields {
			if out[f.Name] != "" || !matchesLabel(label, f.Labels) {
				continue
			}
			out[f.Name] = value
			break
		}
	}
	return out
}

func cleanLine(line string) string {
	line = emphasis.Replace(line)
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#-•>")
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "_") {
		line = strings.Trim(line, "_")
	}
	return line
}

func matchesLabel(label string, labels []string) bool {
	for _, candidate := range labels {
		if strings.EqualFold(label, candidate) {
			return true
		}
	}
	return false
}

func wordFields(language string) []Field {
	translation := []string{"Translation", "Chinese"}
	if language != "" {
		translation = append(translation, language)
	}
	return []Field{
		{Name: "word", Labels: []string{"Word"}},
		{Name: "definition", Labels: []string{"Definition", "Meaning"}},
		{Name: "translation", Labels: translation},
		{Name: "example", Labels: []string{"Example", "Example sentence"}},
	}
}

var missionFields = []Field{
	{Name: "title", Labels: []string{"Title", "Mission"}},
	{Name: "task", Labels: []string{"Task"}},
	{Name: "tip", Labels: []string{"Tip"}},
}

var shadowingFields = []Field{
	{Name: "context", Labels: []string{"Context", "Source"}},
	{Name: "sentence", Labels: []string{"Sentence"}},
}
