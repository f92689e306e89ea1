package parser

import (
	"fmt"
	"strings"
)

// SyntaxError reports a parse failure with the offending position and
// what the parser expected there.
type SyntaxError struct {
	Offset   int
	Line     int
	Column   int
	Expected string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Expected)
}

// syntaxError builds a SyntaxError at the parser's current position.
func (p *Parser) syntaxError(format string, args ...any) error {
	prefix := p.input[:min(p.pos, len(p.input))]
	line := strings.Count(prefix, "\n") + 1
	col := p.pos - strings.LastIndexByte(prefix, '\n')
	return &SyntaxError{
		Offset:   p.pos,
		Line:     line,
		Column:   col,
		Expected: fmt.Sprintf(format, args...),
	}
}
