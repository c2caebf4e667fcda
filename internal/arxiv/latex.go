package arxiv

import (
	"regexp"
	"strings"
)

var (
	commentRe   = regexp.MustCompile(`(?m)(^|[^\\])%.*$`)
	envRe       = regexp.MustCompile(`(?s)\\begin\{(equation|align|figure|table|tabular|algorithm|algorithmic|verbatim|lstlisting|tikzpicture)\*?\}.*?\\end\{[a-z]+\*?\}`)
	sectionRe   = regexp.MustCompile(`\\(?:chapter|section|subsection|subsubsection|paragraph)\*?\{([^{}]*)\}`)
	wrapperRe   = regexp.MustCompile(`\\(?:textbf|textit|emph|texttt|underline|mbox|text)\{([^{}]*)\}`)
	citeRe      = regexp.MustCompile(`~?\\(?:cite|citep|citet|ref|eqref|autoref|cref|label|footnote)\{[^{}]*\}`)
	inlineMath  = regexp.MustCompile(`\$[^$]*\$`)
	commandRe   = regexp.MustCompile(`\\[a-zA-Z]+\*?(\[[^\[\]]*\])?(\{[^{}]*\})?`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
)

// StripLaTeX reduces a LaTeX document to narratable prose. Math,
// figures and tables are dropped rather than read aloud; section
// headings keep their text.
func StripLaTeX(src string) string {
	// Only the document body is prose.
	if i := strings.Index(src, `\begin{document}`); i >= 0 {
		src = src[i+len(`\begin{document}`):]
	}
	if i := strings.Index(src, `\end{document}`); i >= 0 {
		src = src[:i]
	}

	src = commentRe.ReplaceAllString(src, "$1")
	src = envRe.ReplaceAllString(src, "")
	src = sectionRe.ReplaceAllString(src, "\n\n$1.\n\n")
	for wrapperRe.MatchString(src) {
		src = wrapperRe.ReplaceAllString(src, "$1")
	}
	src = citeRe.ReplaceAllString(src, "")
	src = inlineMath.ReplaceAllString(src, "")
	src = commandRe.ReplaceAllString(src, "")

	src = strings.NewReplacer("{", "", "}", "", "~", " ", `\\`, "\n").Replace(src)
	src = spaceRuns.ReplaceAllString(src, " ")
	src = blankRuns.ReplaceAllString(src, "\n\n")
	return strings.TrimSpace(src)
}
