package arxiv

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestExtractID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://arxiv.org/abs/2312.00752", "2312.00752", false},
		{"https://arxiv.org/abs/2312.00752/", "2312.00752", false},
		{"https://arxiv.org/pdf/2205.01152", "2205.01152", false},
		{"https://arxiv.org/abs/2205.01152v2", "2205.01152v2", false},
		{"https://arxiv.org/abs/hep-th/9901001", "hep-th/9901001", false},
		{"https://arxiv.org/abs/math.GT/0309136", "math.GT/0309136", false},
		{"https://example.com/abs/2312.00752", "", true},
		{"https://arxiv.org/abs/", "", true},
		{"https://arxiv.org/list/cs", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractID(tt.url)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ExtractID(%q): expected error, got %q", tt.url, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ExtractID(%q): %v", tt.url, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExtractID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

const feedResponse = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Mamba: Linear-Time Sequence
  Modeling with Selective State Spaces</title>
  </entry>
</feed>`

func texArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPaperBuildsOneChapterBook(t *testing.T) {
	archive := texArchive(t, map[string]string{
		"macros.tex": `\newcommand{\foo}{bar}`,
		"main.tex": `\documentclass{article}
\begin{document}
\section{Introduction}
Sequence models are everywhere. They work well.
\end{document}`,
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/query"):
			fmt.Fprint(w, feedResponse)
		case strings.HasPrefix(r.URL.Path, "/src/"):
			w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(testLogger(),
		WithBaseURLs(srv.URL+"/api/query?id_list=%s", srv.URL+"/src/%s"),
		WithTempDir(t.TempDir()))

	b, err := c.Paper(context.Background(), "https://arxiv.org/abs/2312.00752")
	if err != nil {
		t.Fatalf("Paper: %v", err)
	}
	want := "Mamba: Linear-Time Sequence Modeling with Selective State Spaces"
	if b.Title != want {
		t.Fatalf("title = %q, want %q", b.Title, want)
	}
	if len(b.Chapters) != 1 {
		t.Fatalf("got %d chapters, want 1", len(b.Chapters))
	}
	body := b.Chapters[0].Body
	if !strings.Contains(body, "Sequence models are everywhere.") {
		t.Fatalf("body lost prose: %q", body)
	}
	if strings.Contains(body, `\section`) {
		t.Fatalf("body still contains latex commands: %q", body)
	}
}

func TestPaperSourceErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/query") {
			fmt.Fprint(w, feedResponse)
			return
		}
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testLogger(),
		WithBaseURLs(srv.URL+"/api/query?id_list=%s", srv.URL+"/src/%s"),
		WithTempDir(t.TempDir()))
	if _, err := c.Paper(context.Background(), "https://arxiv.org/abs/2312.00752"); err == nil {
		t.Fatal("expected error when source download fails")
	}
}

func TestStripLaTeX(t *testing.T) {
	src := `\documentclass{article}
\usepackage{amsmath}
\begin{document}
\section{Results}
We show that $x > 0$ accuracy \textbf{improves}~\cite{smith2020}.
% a comment line
\begin{equation}
e = mc^2
\end{equation}
The effect is large.
\end{document}`
	got := StripLaTeX(src)
	for _, want := range []string{"Results.", "improves", "The effect is large."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	for _, bad := range []string{`\section`, "mc^2", "comment line", `\cite`, "$"} {
		if strings.Contains(got, bad) {
			t.Errorf("output still contains %q:\n%s", bad, got)
		}
	}
}

func TestStripLaTeXNestedWrappers(t *testing.T) {
	got := StripLaTeX(`\textbf{\emph{very} important} point`)
	if got != "very important point" {
		t.Fatalf("got %q", got)
	}
}
