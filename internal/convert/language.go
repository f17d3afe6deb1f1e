package convert

import (
	"sync"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// languageSample bounds how much text is fed to the detector.
const languageSample = 4000

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English, lingua.German, lingua.French, lingua.Spanish,
				lingua.Italian, lingua.Portuguese, lingua.Dutch, lingua.Polish,
				lingua.Swedish, lingua.Danish, lingua.Japanese, lingua.Chinese,
			).
			WithMinimumRelativeDistance(0.25).
			Build()
	})
	return detector
}

// DetectLanguage returns the English name of the language text is written
// in, or "" when the detector is not confident.
func DetectLanguage(text string) string {
	if len(text) > languageSample {
		n := languageSample
		for n > 0 && !utf8.RuneStart(text[n]) {
			n--
		}
		text = text[:n]
	}
	lang, ok := languageDetector().DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return lang.String()
}
