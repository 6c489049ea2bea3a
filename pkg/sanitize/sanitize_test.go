package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRedactPII(t *testing.T) {
	in := "Call Ana at +55 11 91234-5678 or write ana.souza@example.com.br"
	got := RedactPII(in)
	want := "Call Ana at [redacted phone] or write [redacted email]"
	if got != want {
		t.Fatalf("RedactPII() = %q, want %q", got, want)
	}
	if RedactPII("Paid 1500 on 2026") != "Paid 1500 on 2026" {
		t.Fatal("short numbers must not be redacted")
	}
}

func TestSummary(t *testing.T) {
	if got := Summary("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := Summary("hello brave new world", 12); got != "hello brave…" {
		t.Fatalf("got %q", got)
	}
}

func TestSummary_KeepsRunesWhole(t *testing.T) {
	got := Summary(strings.Repeat("ã", 100), 11)
	if !utf8.ValidString(got) {
		t.Fatalf("invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("ã", 5) + "…"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
