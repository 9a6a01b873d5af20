package reporter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/wharflab/relint/internal/finding"
)

// Styles for different parts of the output
var (
	// Color detection: stdout must be a terminal and the environment must
	// allow color (termenv respects NO_COLOR and CLICOLOR_FORCE).
	useColors = isatty.IsTerminal(os.Stdout.Fd()) &&
			termenv.EnvColorProfile() != termenv.Ascii

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")) // Red

	warningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")) // Orange

	infoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Blue

	codeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")) // Red

	linterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Gray

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")) // White

	fileLocStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")) // Light gray

	lineNumStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // Dark gray

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")) // Darker gray

	markerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")) // Red
)

// TextOptions configures the text reporter output.
type TextOptions struct {
	// Color enables/disables colored output. Default: auto-detect.
	Color *bool

	// SyntaxHighlight enables syntax highlighting in snippets, using the
	// lexer matched to each file's name.
	SyntaxHighlight bool

	// ShowSource shows source code snippets. Default: true.
	ShowSource bool

	// ChromaStyle is the Chroma style name for syntax highlighting.
	// Default: "monokai" for dark terminals, "github" for light.
	ChromaStyle string
}

// TextReporter formats findings as styled text output.
type TextReporter struct {
	w         io.Writer
	opts      TextOptions
	formatter chroma.Formatter
	style     *chroma.Style
}

func newTextReporter(w io.Writer, opts TextOptions) *TextReporter {
	r := &TextReporter{w: w, opts: opts}

	if r.colorEnabled() && opts.SyntaxHighlight {
		styleName := opts.ChromaStyle
		if styleName == "" {
			if lipgloss.HasDarkBackground() {
				styleName = "monokai"
			} else {
				styleName = "github"
			}
		}
		r.style = styles.Get(styleName)
		if r.style == nil {
			r.style = styles.Fallback
		}
		r.formatter = formatters.Get("terminal256")
		if r.formatter == nil {
			r.formatter = formatters.Fallback
		}
	}
	return r
}

func (r *TextReporter) colorEnabled() bool {
	if r.opts.Color != nil {
		return *r.opts.Color
	}
	return useColors
}

// Report implements Reporter.
func (r *TextReporter) Report(findings []*finding.Finding, sources map[string]string, meta Metadata) error {
	sorted := sortedByFile(findings)
	for _, f := range sorted {
		if err := r.printFinding(f, sources[f.Filename]); err != nil {
			return err
		}
	}
	return r.printSummary(sorted, meta)
}

func (r *TextReporter) printFinding(f *finding.Finding, source string) error {
	color := r.colorEnabled()

	// Header line: SEVERITY: code (linter)
	label := strings.ToUpper(severityLabel(f))
	var header string
	if color {
		header = "\n" + r.severityStyle(f).Render(label+":")
		if f.Code != "" {
			header += " " + codeStyle.Render(f.Code)
		}
		header += " " + linterStyle.Render("("+f.Linter+")")
	} else {
		header = "\n" + label + ":"
		if f.Code != "" {
			header += " " + f.Code
		}
		header += " (" + f.Linter + ")"
	}
	fmt.Fprintln(r.w, header)

	if color {
		fmt.Fprintln(r.w, messageStyle.Render(f.Message))
	} else {
		fmt.Fprintln(r.w, f.Message)
	}

	if r.opts.ShowSource && source != "" {
		r.printSource(f, source, color)
	}
	return nil
}

func (r *TextReporter) severityStyle(f *finding.Finding) lipgloss.Style {
	switch f.Tag() {
	case 'e':
		return errorStyle
	case 'w':
		return warningStyle
	default:
		return infoStyle
	}
}

// printSource renders a few lines of context around the finding with a
// marker on the affected line. Lines print 1-based.
func (r *TextReporter) printSource(f *finding.Finding, source string, color bool) {
	lines := strings.Split(source, "\n")
	affected := f.Line + 1
	if affected < 1 || affected > len(lines) {
		return
	}

	const pad = 2
	start := max(affected-pad, 1)
	end := min(affected+pad, len(lines))

	fmt.Fprintln(r.w)
	if color {
		fmt.Fprintln(r.w, fileLocStyle.Render(fmt.Sprintf("%s:%d:%d", f.Filename, affected, f.Start+1)))
		fmt.Fprintln(r.w, separatorStyle.Render("────────────────────"))
	} else {
		fmt.Fprintf(r.w, "%s:%d:%d\n", f.Filename, affected, f.Start+1)
		fmt.Fprintln(r.w, "--------------------")
	}

	for i := start; i <= end; i++ {
		content := strings.TrimSuffix(lines[i-1], "\r")

		var lineNum, marker string
		if color {
			lineNum = lineNumStyle.Render(fmt.Sprintf(" %3d │", i))
		} else {
			lineNum = fmt.Sprintf(" %3d |", i)
		}
		if i == affected {
			marker = ">>>"
			if color {
				marker = markerStyle.Render(marker)
			}
		} else {
			marker = "   "
		}
		if color && r.formatter != nil {
			content = r.highlightLine(f.Filename, content)
		}
		fmt.Fprintf(r.w, "%s %s %s\n", lineNum, marker, content)
	}

	if color {
		fmt.Fprintln(r.w, separatorStyle.Render("────────────────────"))
	} else {
		fmt.Fprintln(r.w, "--------------------")
	}
}

// highlightLine applies syntax highlighting using the lexer matched to the
// file's name.
func (r *TextReporter) highlightLine(filename, line string) string {
	lexer := lexers.Match(filename)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, line)
	if err != nil {
		return line
	}
	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		return line
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func (r *TextReporter) printSummary(findings []*finding.Finding, meta Metadata) error {
	if len(findings) == 0 {
		if meta.FilesScanned > 0 {
			fmt.Fprintf(r.w, "%d file(s) clean.\n", meta.FilesScanned)
		}
		return nil
	}
	counts := finding.CountByTag(findings)
	fmt.Fprintf(r.w, "\n%d problem(s) (%d error(s), %d warning(s)) in %d file(s).\n",
		len(findings), counts['e'], counts['w'], countFiles(findings))
	return nil
}

func countFiles(findings []*finding.Finding) int {
	seen := make(map[string]struct{})
	for _, f := range findings {
		seen[f.Filename] = struct{}{}
	}
	return len(seen)
}
