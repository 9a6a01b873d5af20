package linter

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wharflab/relint/internal/finding"
)

var ansiEscapeRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// decodeOutput converts raw process output into clean text: invalid utf-8
// replaced, color escapes stripped, newlines normalized.
func decodeOutput(b []byte) string {
	s := string(b)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return ansiEscapeRE.ReplaceAllString(s, "")
}

// parse applies the configured regex to the program output. Matches yield
// findings in the coordinates of code, the text that was linted; tempPath
// is the temp file fed to the program, if any, so its echoes map back to
// the real filename.
func (c *Command) parse(code, output, tempPath string) []*finding.Finding {
	if c.regex == nil || output == "" {
		return nil
	}

	var found []*finding.Finding
	if c.cfg.Multiline {
		for _, match := range c.regex.FindAllStringSubmatch(output, -1) {
			if f := c.findingFromMatch(code, match, tempPath); f != nil {
				found = append(found, f)
			}
		}
		return found
	}
	for _, line := range strings.Split(output, "\n") {
		match := c.regex.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		if f := c.findingFromMatch(code, match, tempPath); f != nil {
			found = append(found, f)
		}
	}
	return found
}

func (c *Command) findingFromMatch(code string, match []string, tempPath string) *finding.Finding {
	groups := make(map[string]string)
	for i, name := range c.regex.SubexpNames() {
		if name != "" && i < len(match) {
			groups[name] = match[i]
		}
	}

	message := strings.TrimSpace(groups["message"])
	if message == "" {
		return nil
	}

	// Tools report one-based lines and columns; findings are zero-based.
	line := max(atoi(groups["line"])-1, 0)
	col := 0
	haveCol := groups["col"] != ""
	if haveCol {
		col = max(atoi(groups["col"])-1, 0)
	}

	lineStart := offsetOfLine(code, line)
	lineText := lineAt(code, line)
	near := unquoteNear(groups["near"])

	// Without a column, a quoted "near" fragment locates the problem on
	// the line.
	if !haveCol && near != "" {
		if idx := strings.Index(lineText, near); idx >= 0 {
			col = utf8.RuneCountInString(lineText[:idx])
			haveCol = true
		}
	}

	a := lineStart + colToOffset(lineText, col)
	b := a
	switch {
	case groups["end_col"] != "":
		endCol := max(atoi(groups["end_col"])-1, 0)
		b = lineStart + colToOffset(lineText, endCol)
	case near != "":
		b = a + len(near)
	}
	if b < a {
		b = a
	}
	if b > len(code) {
		b = len(code)
	}

	offending := near
	if offending == "" && b > a {
		offending = code[a:b]
	}

	errorType := finding.TypeError
	if groups["warning"] != "" {
		errorType = finding.TypeWarning
	}

	return &finding.Finding{
		Filename:      c.resolveFilename(groups["filename"], tempPath),
		Line:          line,
		Start:         col,
		Region:        finding.Region{A: a, B: b},
		OffendingText: offending,
		ErrorType:     errorType,
		Code:          groups["code"],
		Message:       message,
	}
}

// resolveFilename maps a filename echoed by the tool back to a real path.
// Stdin markers and the temp file both mean the linted document itself.
func (c *Command) resolveFilename(reported, tempPath string) string {
	switch reported {
	case "", "-", "stdin", "<stdin>":
		return c.filename
	}
	if tempPath != "" && (reported == tempPath || reported == filepath.Base(tempPath)) {
		return c.filename
	}
	if !filepath.IsAbs(reported) && c.workDir != "" {
		return filepath.Join(c.workDir, reported)
	}
	return reported
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// offsetOfLine returns the byte offset where the zero-based line begins,
// or len(code) when the line is past the end.
func offsetOfLine(code string, line int) int {
	offset := 0
	for ; line > 0; line-- {
		next := strings.IndexByte(code[offset:], '\n')
		if next < 0 {
			return len(code)
		}
		offset += next + 1
	}
	return offset
}

func lineAt(code string, line int) string {
	start := offsetOfLine(code, line)
	rest := code[start:]
	if end := strings.IndexByte(rest, '\n'); end >= 0 {
		return rest[:end]
	}
	return rest
}

// colToOffset converts a zero-based character column into a byte offset
// within the line, clamped to the line's end.
func colToOffset(lineText string, col int) int {
	offset := 0
	for ; col > 0 && offset < len(lineText); col-- {
		_, size := utf8.DecodeRuneInString(lineText[offset:])
		offset += size
	}
	return offset
}

// unquoteNear strips one layer of surrounding quotes from a "near"
// fragment, which tools commonly report as 'foo' or "foo".
func unquoteNear(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"' || first == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
