package telegram

import (
	"strings"
	"testing"
)

func TestSplitMessageShortText(t *testing.T) {
	parts := SplitMessage("  Событие\nhttps://afisha.yandex.ru/x  ")
	if len(parts) != 1 {
		t.Fatalf("ожидали одно сообщение, получили %d", len(parts))
	}
	if parts[0] != "Событие\nhttps://afisha.yandex.ru/x" {
		t.Fatalf("текст должен быть обрезан по краям: %q", parts[0])
	}
}

func TestSplitMessageEmpty(t *testing.T) {
	if parts := SplitMessage("   \n  "); parts != nil {
		t.Fatalf("пустой текст не даёт сообщений, получили %v", parts)
	}
}

func TestSplitMessagePrefersLineBoundaries(t *testing.T) {
	line := strings.Repeat("а", 1000)
	text := strings.Join([]string{line, line, line, line, line}, "\n")

	parts := SplitMessage(text)
	if len(parts) != 2 {
		t.Fatalf("ожидали два сообщения, получили %d", len(parts))
	}
	for i, part := range parts {
		if len([]rune(part)) > messageLimit {
			t.Fatalf("часть %d длиннее лимита: %d", i, len([]rune(part)))
		}
		if strings.Contains(part, "\n\n") {
			t.Fatalf("части не должны содержать пустых строк: %q", part[:20])
		}
	}
	if got := strings.Count(parts[0], "\n"); got != 3 {
		t.Fatalf("в первой части ожидали 4 строки, переводов %d", got)
	}
}

func TestSplitMessageHardSplitsLongLine(t *testing.T) {
	text := strings.Repeat("б", messageLimit+100)
	parts := SplitMessage(text)
	if len(parts) != 2 {
		t.Fatalf("ожидали два сообщения, получили %d", len(parts))
	}
	if len([]rune(parts[0])) != messageLimit || len([]rune(parts[1])) != 100 {
		t.Fatalf("жёсткая резка дала %d и %d", len([]rune(parts[0])), len([]rune(parts[1])))
	}
}
