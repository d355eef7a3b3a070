package consultation

import "strings"

const (
	MaxQueryLength    = 5000
	MaxFeedbackLength = 1000
	MinQueryLength    = 10
)

var sanitizer = strings.NewReplacer(
	"<script>", "",
	"</script>", "",
)

var escaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
)

// Sanitize remove espaços nas pontas, tags <script>, escapa < e > e corta em
// maxLen runas (maxLen <= 0 desliga o corte).
func Sanitize(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = sanitizer.Replace(text)
	text = escaper.Replace(text)

	if maxLen > 0 {
		runes := []rune(text)
		if len(runes) > maxLen {
			text = string(runes[:maxLen])
		}
	}
	return text
}
