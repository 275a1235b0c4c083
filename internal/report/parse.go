package report

import (
	"github.com/intellibus/insights/internal/llm"
)

// defaultVisualType is used when a visual element has no type.
const defaultVisualType = "chart"

// Parse maps a JSON candidate onto the model-provided fields of a Response.
// Identity fields (ID, type, title, timestamps) are left for the caller.
func Parse(candidate string) (Response, error) {
	f, err := llm.ParseObject(candidate)
	if err != nil {
		return Response{}, err
	}

	resp := Response{
		ExecutiveSummary: f.String(fieldExecutiveSummary),
		KeyFindings:      f.Strings(fieldKeyFindings),
		Sections:         parseSections(f.Objects(fieldSections)),
		Recommendations:  f.Strings(fieldRecommendations),
		MetricsData:      f.Map(fieldMetricsData),
		VisualElements:   []VisualElement{},
	}
	if resp.Sections == nil {
		resp.Sections = []Section{}
	}
	if resp.MetricsData == nil {
		resp.MetricsData = map[string]any{}
	}

	for _, v := range f.Objects(fieldVisualElements) {
		ve := VisualElement{
			Type:        v.String(fieldType),
			Title:       v.String(fieldTitle),
			Description: v.String(fieldDescription),
			Data:        v.Map(fieldData),
		}
		if ve.Type == "" {
			ve.Type = defaultVisualType
		}
		resp.VisualElements = append(resp.VisualElements, ve)
	}
	return resp, nil
}

func parseSections(objs []llm.Fields) []Section {
	if len(objs) == 0 {
		return nil
	}
	sections := make([]Section, 0, len(objs))
	for _, o := range objs {
		sections = append(sections, Section{
			Title:       o.String(fieldTitle),
			Content:     o.String(fieldContent),
			Subsections: parseSections(o.Objects(fieldSubsections)),
		})
	}
	return sections
}
