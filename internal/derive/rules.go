package derive

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// excerptRadius limita el contexto alrededor de la palabra clave que se
// guarda como evidencia.
const excerptRadius = 80

// PatternRule infiere un rasgo cuando alguna de sus palabras clave aparece
// en la salida textual del modelo. Las reglas son el unico punto de
// extension para nueva inferencia de rasgos; su orden importa para el
// orden de la evidencia, no para la confianza final.
type PatternRule struct {
	TraitName   string
	Description string
	Category    string
	Confidence  float64
	Keywords    []string
}

// Match devuelve el extracto de evidencia y true si el texto dispara la
// regla. Como maximo un candidato provisional por regla y feature set.
func (r PatternRule) Match(outputText string) (string, bool) {
	if outputText == "" {
		return "", false
	}
	for _, kw := range r.Keywords {
		idx, matchLen := indexFold(outputText, kw)
		if idx == -1 {
			continue
		}
		return excerptAround(outputText, idx, matchLen), true
	}
	return "", false
}

// indexFold localiza kw en text sin distinguir mayusculas. Devuelve el
// offset y la longitud de la coincidencia en bytes del texto original;
// recorrer el original evita los desfases que introduce ToLower con runas
// cuyo plegado cambia de longitud.
func indexFold(text, kw string) (int, int) {
	if kw == "" {
		return -1, 0
	}
	for i := 0; i < len(text); {
		if n, ok := foldPrefixLen(text[i:], kw); ok {
			return i, n
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return -1, 0
}

// foldPrefixLen comprueba si s empieza con kw comparando runa a runa en
// minusculas y devuelve cuantos bytes de s cubre la coincidencia.
func foldPrefixLen(s, kw string) (int, bool) {
	n := 0
	for _, kr := range kw {
		sr, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 {
			return 0, false
		}
		if sr != kr && unicode.ToLower(sr) != unicode.ToLower(kr) {
			return 0, false
		}
		n += size
	}
	return n, true
}

// excerptAround recorta una ventana alrededor de la coincidencia sin
// partir el texto en medio de la palabra clave ni de una runa.
func excerptAround(text string, idx, matchLen int) string {
	start := idx - excerptRadius
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	end := idx + matchLen + excerptRadius
	if end > len(text) {
		end = len(text)
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	excerpt := strings.TrimSpace(text[start:end])
	if start > 0 {
		excerpt = "…" + excerpt
	}
	if end < len(text) {
		excerpt = excerpt + "…"
	}
	return excerpt
}

// DefaultRules es el conjunto de reglas activo. El dedup posterior usa
// igualdad exacta de TraitName; sinonimos entre reglas no se fusionan.
func DefaultRules() []PatternRule {
	return []PatternRule{
		{
			TraitName:   "Interest in AI Ethics",
			Description: "Muestra interes recurrente en etica de la inteligencia artificial.",
			Category:    "Interest",
			Confidence:  0.65,
			Keywords:    []string{"ai ethics"},
		},
		{
			TraitName:   "Stoic Disposition",
			Description: "Tendencia a marcos estoicos al razonar sobre adversidad.",
			Category:    "Personality",
			Confidence:  0.60,
			Keywords:    []string{"stoicism", "stoic"},
		},
		{
			TraitName:   "Growth Mindset",
			Description: "Encuadra habilidades como desarrollables con esfuerzo.",
			Category:    "Personality",
			Confidence:  0.60,
			Keywords:    []string{"growth mindset"},
		},
		{
			TraitName:   "Interest in Quantum Computing",
			Description: "Muestra interes en computacion cuantica.",
			Category:    "Interest",
			Confidence:  0.65,
			Keywords:    []string{"quantum computing"},
		},
		{
			TraitName:   "Mindfulness Practice",
			Description: "Valora practicas de atencion plena o meditacion.",
			Category:    "Value",
			Confidence:  0.55,
			Keywords:    []string{"mindfulness", "meditation"},
		},
	}
}
