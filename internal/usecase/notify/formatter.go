package notify

import (
	"fmt"
	"strings"

	"github.com/egorkasprigorca/afisha-bot/internal/domain"
)

// FormatBatch формирует текст одного сообщения подборки:
// название события и ссылка на страницу афиши, по блоку на событие.
func FormatBatch(siteURL string, items []domain.Item) string {
	base := strings.TrimRight(siteURL, "/")
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(item.Title)
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s/%s", base, strings.TrimLeft(item.URL, "/")))
	}
	return b.String()
}
