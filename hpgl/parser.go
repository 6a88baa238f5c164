package hpgl

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// Statement is one raw `;`-terminated HPGL instruction with whitespace removed.
type Statement struct {
	// Index counts non-empty statements from 0.
	Index    int
	Mnemonic string
	Params   string
}

func (s Statement) String() string { return s.Mnemonic + s.Params }

// Ints parses the comma separated parameter list. Empty elements are skipped.
func (s Statement) Ints() ([]int, error) {
	if s.Params == "" {
		return nil, nil
	}
	parts := strings.Split(s.Params, ",")
	res := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, &ParseError{Index: s.Index, Statement: s.String(), Err: invalidNumber(p)}
		}
		res = append(res, n)
	}
	return res, nil
}

// Parser splits an HPGL stream into statements.
type Parser struct {
	br *bufio.Reader
	n  int
}

func NewParser(r io.Reader) *Parser {
	if br, ok := r.(*bufio.Reader); ok {
		return &Parser{br: br}
	}

	return &Parser{br: bufio.NewReader(r)}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Read returns the next non-empty statement, or io.EOF.
func (p *Parser) Read() (Statement, error) {
	for {
		s, err := p.br.ReadString(';')
		if err == io.EOF && s != "" {
			err = nil
		}
		if err != nil {
			return Statement{}, err
		}

		s = stripSpace(strings.TrimSuffix(s, ";"))
		if s == "" {
			continue
		}

		st := Statement{Index: p.n}
		p.n++
		if len(s) < 2 {
			st.Mnemonic = strings.ToUpper(s)
			return st, nil
		}
		st.Mnemonic = strings.ToUpper(s[:2])
		st.Params = s[2:]
		return st, nil
	}
}
