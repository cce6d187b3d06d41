package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"

	kiln "github.com/spetersoncode/kiln"
)

// checkLanguageStep drops records whose text is not confidently in the
// expected language.
type checkLanguageStep struct {
	name      string
	column    string
	language  lingua.Language
	precision float64

	detector lingua.LanguageDetector
}

// CheckLanguage fails the record unless the detector's confidence that the
// column's text is in the given language reaches precision (0..1).
func CheckLanguage(name, column string, language lingua.Language, precision float64) Step {
	return &checkLanguageStep{name: name, column: column, language: language, precision: precision}
}

func (s *checkLanguageStep) Name() string { return s.name }

func (s *checkLanguageStep) bind(_ *runtime) error {
	if s.precision < 0 || s.precision > 1 {
		return fmt.Errorf("precision must be in [0, 1], got %v", s.precision)
	}
	s.detector = lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()
	return nil
}

func (s *checkLanguageStep) Apply(_ context.Context, c *kiln.Context) error {
	text, ok := c.GetString(s.column)
	if !ok {
		return fmt.Errorf("column %q: %w", s.column, kiln.ErrMissingColumn)
	}
	confidence := s.detector.ComputeLanguageConfidence(text, s.language)
	if confidence < s.precision {
		return fmt.Errorf("language %s confidence %.3f below %.3f: %w",
			s.language, confidence, s.precision, ErrFiltered)
	}
	return nil
}

// ParseLanguage resolves a language by its English name ("english",
// "Polish"), for config-driven pipelines.
func ParseLanguage(name string) (lingua.Language, error) {
	for _, lang := range lingua.AllLanguages() {
		if strings.EqualFold(lang.String(), name) {
			return lang, nil
		}
	}
	return lingua.Unknown, fmt.Errorf("unknown language %q", name)
}
