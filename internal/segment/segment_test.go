package segment

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitEmptyInput(t *testing.T) {
	if units := Split("", 100); units != nil {
		t.Fatalf("expected no units for empty input, got %v", units)
	}
	if units := Split("   \n\t ", 100); units != nil {
		t.Fatalf("expected no units for blank input, got %v", units)
	}
}

func TestSplitShortText(t *testing.T) {
	units := Split("Hello world.", 100)
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	if units[0].Index != 0 || units[0].Text != "Hello world." {
		t.Fatalf("unexpected unit: %+v", units[0])
	}
}

func TestSplitGroupsSentences(t *testing.T) {
	text := "One two. Three four. Five six. Seven eight."
	units := Split(text, 25)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d: %v", len(units), units)
	}
	if units[0].Text != "One two. Three four." {
		t.Fatalf("unexpected first unit: %q", units[0].Text)
	}
	if units[1].Text != "Five six. Seven eight." {
		t.Fatalf("unexpected second unit: %q", units[1].Text)
	}
}

func TestSplitIndicesContiguous(t *testing.T) {
	text := strings.Repeat("A sentence here. ", 50)
	units := Split(text, 60)
	for i, u := range units {
		if u.Index != i {
			t.Fatalf("unit %d has index %d", i, u.Index)
		}
	}
}

func TestSplitLongSentenceBound(t *testing.T) {
	text := "Hello world. This is a test sentence that is deliberately long enough to exceed a tiny bound, forcing a split, yes indeed."
	units := Split(text, 40)
	if len(units) < 3 {
		t.Fatalf("expected multiple units, got %d", len(units))
	}
	for _, u := range units {
		// an inserted terminator may push a hard cut one past the bound
		if len(u.Text) > 41 {
			t.Fatalf("unit %d exceeds bound: %d chars: %q", u.Index, len(u.Text), u.Text)
		}
		if !strings.HasSuffix(u.Text, ".") {
			t.Fatalf("unit %d does not end in period: %q", u.Index, u.Text)
		}
	}
	if got, want := canonical(joinUnits(units)), canonical(text); got != want {
		t.Fatalf("content not preserved:\n got %q\nwant %q", got, want)
	}
}

func TestSplitNoPunctuationHardCut(t *testing.T) {
	text := strings.Repeat("x", 95)
	units := Split(text, 30)
	if len(units) < 3 {
		t.Fatalf("expected hard cuts, got %d units", len(units))
	}
	for _, u := range units {
		if len(u.Text) > 31 {
			t.Fatalf("hard-cut unit too long: %d chars", len(u.Text))
		}
	}
	if got := canonical(joinUnits(units)); got != text {
		t.Fatalf("content not preserved: %q", got)
	}
}

func TestSplitHardCutKeepsRunesIntact(t *testing.T) {
	texts := []string{
		strings.Repeat("é", 40),
		strings.Repeat("日本語", 20),
		"açaí" + strings.Repeat("naïveté", 10),
	}
	for _, text := range texts {
		units := Split(text, 25)
		if len(units) < 2 {
			t.Fatalf("expected hard cuts for %q, got %d units", text, len(units))
		}
		for _, u := range units {
			if !utf8.ValidString(u.Text) {
				t.Fatalf("unit %d is invalid UTF-8: %q", u.Index, u.Text)
			}
		}
		if got, want := canonical(joinUnits(units)), canonical(text); got != want {
			t.Fatalf("content not preserved for %q:\n got %q\nwant %q", text, got, want)
		}
	}
}

func TestSplitPreservesContent(t *testing.T) {
	texts := []string{
		"Short. Also short! Question? Trailing without punctuation",
		"A extremely long opening clause with no break at all until here, then a second clause, then the end of it all.",
		"Numbers like 3.14 stay put. Second sentence.",
	}
	for _, text := range texts {
		units := Split(text, 48)
		if got, want := canonical(joinUnits(units)), canonical(text); got != want {
			t.Fatalf("content mismatch for %q:\n got %q\nwant %q", text, got, want)
		}
	}
}

func TestInsertPeriodsTerminatesSentences(t *testing.T) {
	got := InsertPeriods("First sentence without end", 100)
	if got != "First sentence without end." {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestInsertPeriodsKeepsParagraphs(t *testing.T) {
	got := InsertPeriods("Para one\nPara two", 100)
	if got != "Para one.\nPara two." {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestInsertPeriodsSplitsLongSentence(t *testing.T) {
	in := "A first clause that keeps going for a while, and then a second clause after the comma"
	got := InsertPeriods(in, 50)
	parts := sentences(got)
	if len(parts) < 2 {
		t.Fatalf("expected subdivision, got %q", got)
	}
	for _, p := range parts {
		if len(p) > 51 {
			t.Fatalf("fragment too long: %q", p)
		}
		if !strings.HasSuffix(p, ".") {
			t.Fatalf("fragment missing period: %q", p)
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	a := Split(text, 120)
	b := Split(text, 120)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic unit count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic unit %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func joinUnits(units []Unit) string {
	var b strings.Builder
	for _, u := range units {
		b.WriteString(u.Text)
		b.WriteByte(' ')
	}
	return b.String()
}

// canonical strips everything splitting may legitimately alter:
// inserted periods, commas consumed by cuts, and whitespace.
func canonical(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', ' ', '\n', '\t':
			return -1
		}
		return r
	}, s)
}
