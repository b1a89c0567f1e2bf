package semantic

import (
	"strings"

	"github.com/kailas-cloud/sharingan/internal/domain"
)

// ComposeContext joins match texts in index order, each followed by one space.
// Matches without a string text contribute nothing.
func ComposeContext(matches []domain.Match) string {
	var b strings.Builder
	for _, m := range matches {
		text := m.Metadata.Text()
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteByte(' ')
	}
	return b.String()
}
