// Package hgvs parses the subset of HGVS notation used for single-gene variant curation:
// coding-DNA substitutions, deletions, duplications, insertions and delins with optional
// intronic offsets, plus the matching protein-level descriptions.
package hgvs

import (
	"errors"
	"fmt"
	"strconv"
)

// Parse errors
var (
	ErrEmpty       = errors.New("empty HGVS expression")
	ErrSyntax      = errors.New("HGVS syntax error")
	ErrUnsupported = errors.New("unsupported HGVS construct")
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokBases    // run of upper-case nucleotides
	tokKeyword  // lower-case operator word: del, dup, ins, delins, fs, ext, inv
	tokResidue  // amino acid, one- or three-letter
	tokPlus     // +
	tokMinus    // -
	tokUnder    // _
	tokStar     // *
	tokGreater  // >
	tokEquals   // =
	tokQuestion // ?
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNumber:
		return "number"
	case tokBases:
		return "nucleotides"
	case tokKeyword:
		return "operator"
	case tokResidue:
		return "residue"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	case tokUnder:
		return "'_'"
	case tokStar:
		return "'*'"
	case tokGreater:
		return "'>'"
	case tokEquals:
		return "'='"
	case tokQuestion:
		return "'?'"
	}
	return "token"
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) number() int {
	n, _ := strconv.Atoi(t.text)
	return n
}

// lexMode switches how upper-case letters are read: nucleotides in c. notation,
// residues in p. notation.
type lexMode int

const (
	modeCoding lexMode = iota
	modeProtein
)

var keywords = map[string]bool{
	"del": true, "dup": true, "ins": true, "delins": true,
	"fs": true, "ext": true, "inv": true,
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func isBase(c byte) bool {
	switch c {
	case 'A', 'C', 'G', 'T', 'N':
		return true
	}
	return false
}

// lex splits an HGVS change body (without the "c." or "p." prefix) into tokens.
func lex(src string, mode lexMode) ([]token, error) {
	var out []token
	i := 0
	for i < len(src) {
		c := src[i]
		start := i
		switch {
		case isDigit(c):
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			out = append(out, token{tokNumber, src[start:i], start})
			continue
		case isLower(c):
			for i < len(src) && isLower(src[i]) {
				i++
			}
			word := src[start:i]
			if !keywords[word] {
				return nil, fmt.Errorf("%w: unknown operator %q at offset %d", ErrSyntax, word, start)
			}
			out = append(out, token{tokKeyword, word, start})
			continue
		case isUpper(c) && mode == modeCoding:
			for i < len(src) && isBase(src[i]) {
				i++
			}
			if i == start {
				return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, c, start)
			}
			out = append(out, token{tokBases, src[start:i], start})
			continue
		case isUpper(c) && mode == modeProtein:
			if i+2 < len(src) && isLower(src[i+1]) && isLower(src[i+2]) {
				if three := src[i : i+3]; isThreeLetter(three) {
					out = append(out, token{tokResidue, three, start})
					i += 3
					continue
				}
			}
			if one, ok := oneToThree[c]; ok {
				out = append(out, token{tokResidue, one, start})
				i++
				continue
			}
			return nil, fmt.Errorf("%w: unknown residue at offset %d", ErrSyntax, start)
		}

		var kind tokenKind
		switch c {
		case '+':
			kind = tokPlus
		case '-':
			kind = tokMinus
		case '_':
			kind = tokUnder
		case '*':
			kind = tokStar
		case '>':
			kind = tokGreater
		case '=':
			kind = tokEquals
		case '?':
			kind = tokQuestion
		default:
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, c, start)
		}
		out = append(out, token{kind, string(c), start})
		i++
	}
	out = append(out, token{tokEOF, "", len(src)})
	return out, nil
}

// tokenStream is a cursor over lexed tokens shared by both grammars.
type tokenStream struct {
	toks []token
	i    int
}

func (s *tokenStream) peek() token { return s.toks[s.i] }

func (s *tokenStream) next() token {
	t := s.toks[s.i]
	if t.kind != tokEOF {
		s.i++
	}
	return t
}

func (s *tokenStream) accept(kind tokenKind) (token, bool) {
	if s.peek().kind == kind {
		return s.next(), true
	}
	return token{}, false
}

func (s *tokenStream) acceptKeyword(word string) bool {
	t := s.peek()
	if t.kind == tokKeyword && t.text == word {
		s.next()
		return true
	}
	return false
}

func (s *tokenStream) expect(kind tokenKind) (token, error) {
	t := s.next()
	if t.kind != kind {
		return t, fmt.Errorf("%w: expected %s, found %s at offset %d", ErrSyntax, kind, t.kind, t.pos)
	}
	return t, nil
}

func (s *tokenStream) done() error {
	if t := s.peek(); t.kind != tokEOF {
		return fmt.Errorf("%w: trailing %s %q at offset %d", ErrSyntax, t.kind, t.text, t.pos)
	}
	return nil
}
