package derive

import (
	"regexp"
	"strings"

	"persona-ingest/internal/domain"
)

var topicsRe = regexp.MustCompile(`(?i)key topics discussed include\s+([^.\n]+)`)

// ExtractConcepts localiza la enumeracion de temas en la salida del modelo y
// la convierte en menciones de concepto normalizadas. Si un concepto aparece
// en mas de un feature set, se acumula su frecuencia.
func ExtractConcepts(featureSets []domain.RawAnalysisFeatureSet) []domain.ConceptMention {
	byName := make(map[string]*domain.ConceptMention)
	var order []string

	for _, fs := range featureSets {
		m := topicsRe.FindStringSubmatch(fs.ModelOutputText())
		if m == nil {
			continue
		}
		for _, raw := range splitTopicList(m[1]) {
			name := domain.NormalizeConceptName(raw)
			if name == "" {
				continue
			}
			if existing, ok := byName[name]; ok {
				existing.Frequency++
				continue
			}
			byName[name] = &domain.ConceptMention{Name: name, Frequency: 1}
			order = append(order, name)
		}
	}

	out := make([]domain.ConceptMention, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}

func splitTopicList(list string) []string {
	list = strings.ReplaceAll(list, ", and ", ",")
	list = strings.ReplaceAll(list, " and ", ",")
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
