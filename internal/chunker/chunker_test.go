package chunker

import (
	"strings"
	"testing"
)

func nonBlankLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, strings.TrimSpace(l))
		}
	}
	return out
}

func TestSplit_ThreeThousandCharactersTwoChunks(t *testing.T) {
	line := strings.Repeat("a", 99)
	lines := make([]string, 30)
	for i := range lines {
		lines[i] = line
	}
	text := strings.Join(lines, "\n") + "\n"
	if len(text) != 3000 {
		t.Fatalf("fixture length = %d, want 3000", len(text))
	}

	chunks := Split(text, 1600, CharEstimate)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if CharEstimate(c) > 1600 {
			t.Errorf("chunk %d exceeds budget: %d", i, CharEstimate(c))
		}
	}
	if got := strings.Join(chunks, "\n"); got != strings.TrimSpace(text) {
		t.Error("rejoined chunks differ from original beyond boundary whitespace")
	}
}

func TestSplit_PreservesLineContent(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		budget int
	}{
		{"single short line", "hello world", 100},
		{"paragraphs with blank lines", "first para line one\nline two\n\nsecond para\n\n\nthird", 20},
		{"tiny budget", "a\nb\nc\nd\ne", 1},
		{"trailing blank lines", "x\ny\n\n\n", 3},
		{"leading blank lines", "\n\nalpha\nbeta", 6},
		{"cjk text", "这是第一行文本\n这是第二行文本\n第三行", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, tt.budget, CharEstimate)

			for i, c := range chunks {
				if strings.TrimSpace(c) == "" {
					t.Errorf("chunk %d is empty", i)
				}
			}

			want := nonBlankLines(tt.text)
			got := nonBlankLines(strings.Join(chunks, "\n"))
			if strings.Join(got, "|") != strings.Join(want, "|") {
				t.Errorf("line content mismatch\n got: %q\nwant: %q", got, want)
			}
		})
	}
}

func TestSplit_OversizedLineIsOwnChunk(t *testing.T) {
	long := strings.Repeat("x", 500)
	text := "short\n" + long + "\nafter"

	chunks := Split(text, 50, CharEstimate)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[1] != long {
		t.Error("oversized line should be emitted whole")
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "\n\n", "   \n\t"} {
		if chunks := Split(text, 10, CharEstimate); len(chunks) != 0 {
			t.Errorf("Split(%q) = %q, want no chunks", text, chunks)
		}
	}
}

func TestCapacity(t *testing.T) {
	local := TokenCapacity(2048)

	// 0.8 * 2048 = 1638.4 tokens, i.e. more than 4915 characters
	if local.Exceeds(strings.Repeat("a", 4914)) {
		t.Error("text at threshold should not exceed")
	}
	if !local.Exceeds(strings.Repeat("a", 4920)) {
		t.Error("text over threshold should exceed")
	}
	if got := local.Budget(); got != 1228 {
		t.Errorf("Budget() = %d, want 1228", got)
	}

	remote := CharCapacity(1500)
	if remote.Exceeds(strings.Repeat("字", 1500)) {
		t.Error("1500 characters fit a 1500 character limit")
	}
	if !remote.Exceeds(strings.Repeat("字", 1501)) {
		t.Error("1501 characters exceed a 1500 character limit")
	}
	if got := remote.Budget(); got != 1200 {
		t.Errorf("Budget() = %d, want 1200", got)
	}

	if (Capacity{}).Exceeds(strings.Repeat("a", 1_000_000)) {
		t.Error("unbounded capacity never exceeds")
	}
}

func TestCapacitySplit_UsesBudget(t *testing.T) {
	c := CharCapacity(100)
	text := strings.Repeat(strings.Repeat("b", 30)+"\n", 10)

	for i, chunk := range c.Split(text) {
		if CharEstimate(chunk) > c.Budget() {
			t.Errorf("chunk %d size %d over budget %d", i, CharEstimate(chunk), c.Budget())
		}
	}
}

func TestTokenEstimate(t *testing.T) {
	if got := TokenEstimate("abcdef"); got != 2 {
		t.Errorf("TokenEstimate = %d, want 2", got)
	}
	if got := TokenEstimate("中文字"); got != 1 {
		t.Errorf("TokenEstimate counts runes, got %d", got)
	}
}
