package compiler

import (
	"fmt"
	"strings"
)

// Diagnostic is one advisory finding from a file's compilation. Findings
// never abort a build; dev mode prints them with source context.
type Diagnostic struct {
	Path    string
	Line    int
	Message string
	Context string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", d.Path, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Path, d.Message)
}

// diagAt builds a diagnostic for a byte offset into source, with two
// context lines on either side of the offending line.
func diagAt(source, path string, offset int, format string, args ...any) Diagnostic {
	line := lineAt(source, offset)
	return Diagnostic{
		Path:    path,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
		Context: contextLines(source, line, 2),
	}
}

// lineAt returns the 1-based line number containing a byte offset.
func lineAt(source string, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	if offset < 0 {
		offset = 0
	}
	return strings.Count(source[:offset], "\n") + 1
}

// contextLines formats the lines around lineNumber, marking the target
// line the way the terminal output does.
func contextLines(source string, lineNumber, contextSize int) string {
	lines := strings.Split(source, "\n")

	startLine := lineNumber - contextSize - 1
	if startLine < 0 {
		startLine = 0
	}
	endLine := lineNumber + contextSize
	if endLine > len(lines) {
		endLine = len(lines)
	}

	var result strings.Builder
	result.WriteString("\n")
	for i := startLine; i < endLine; i++ {
		lineNum := i + 1
		prefix := "  "
		if lineNum == lineNumber {
			prefix = "> "
		}
		result.WriteString(fmt.Sprintf("%s%4d | %s\n", prefix, lineNum, lines[i]))
	}
	return result.String()
}
