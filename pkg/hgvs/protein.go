package hgvs

import (
	"fmt"
	"strconv"
	"strings"
)

// ProteinKind classifies a protein-level change.
type ProteinKind string

const (
	ProteinMissense    ProteinKind = "missense"
	ProteinNonsense    ProteinKind = "nonsense"
	ProteinSynonymous  ProteinKind = "synonymous"
	ProteinFrameshift  ProteinKind = "frameshift"
	ProteinDeletion    ProteinKind = "deletion"
	ProteinInsertion   ProteinKind = "insertion"
	ProteinDuplication ProteinKind = "duplication"
	ProteinDelIns      ProteinKind = "delins"
	ProteinExtension   ProteinKind = "extension"
	ProteinStartLoss   ProteinKind = "start_loss"
)

// ProteinChange is a parsed p. expression. Residues are three-letter codes.
type ProteinChange struct {
	Kind   ProteinKind
	Ref    string
	Pos    int
	EndRef string
	EndPos int
	// Alt is the first replacement residue, or the inserted residues for ins/delins.
	Alt string
	// ExtLength is the number of residues a stop-loss adds; -1 when written as "?".
	ExtLength int
	// Predicted is set for the parenthesised p.(...) form.
	Predicted bool
}

// Span returns the first and last residue positions the change touches.
func (p *ProteinChange) Span() (int, int) {
	if p.EndPos > 0 {
		return p.Pos, p.EndPos
	}
	return p.Pos, p.Pos
}

// String renders the change in canonical three-letter notation without the predicted parentheses.
func (p *ProteinChange) String() string {
	var b strings.Builder
	b.WriteString("p.")
	b.WriteString(p.Ref + strconv.Itoa(p.Pos))
	if p.EndPos > 0 {
		b.WriteString("_" + p.EndRef + strconv.Itoa(p.EndPos))
	}
	switch p.Kind {
	case ProteinMissense:
		b.WriteString(p.Alt)
	case ProteinNonsense:
		b.WriteString(Stop)
	case ProteinSynonymous:
		b.WriteString("=")
	case ProteinStartLoss:
		b.WriteString("?")
	case ProteinFrameshift:
		b.WriteString(p.Alt + "fs")
	case ProteinDeletion:
		b.WriteString("del")
	case ProteinDuplication:
		b.WriteString("dup")
	case ProteinInsertion:
		b.WriteString("ins" + p.Alt)
	case ProteinDelIns:
		b.WriteString("delins" + p.Alt)
	case ProteinExtension:
		b.WriteString(p.Alt + "ext" + Stop)
		if p.ExtLength < 0 {
			b.WriteString("?")
		} else {
			b.WriteString(strconv.Itoa(p.ExtLength))
		}
	}
	return b.String()
}

// ParseProtein parses a protein change such as "p.Arg64Pro", "p.(R64P)", "p.Glu160fs"
// or "p.Ter214GlnextTer12". The "p." prefix is optional.
func ParseProtein(expr string) (*ProteinChange, error) {
	body := strings.TrimSpace(expr)
	body = strings.TrimPrefix(body, "p.")
	predicted := false
	if strings.HasPrefix(body, "(") && strings.HasSuffix(body, ")") {
		body = body[1 : len(body)-1]
		predicted = true
	}
	if body == "" {
		return nil, ErrEmpty
	}
	if body == "?" || body == "0" || body == "=" {
		return nil, fmt.Errorf("%w: %q carries no position", ErrUnsupported, expr)
	}

	toks, err := lex(body, modeProtein)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize %q: %w", expr, err)
	}
	s := &tokenStream{toks: toks}
	change := &ProteinChange{Predicted: predicted}

	if change.Ref, change.Pos, err = parseResiduePosition(s); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", expr, err)
	}
	if _, ok := s.accept(tokUnder); ok {
		if change.EndRef, change.EndPos, err = parseResiduePosition(s); err != nil {
			return nil, fmt.Errorf("failed to parse %q: %w", expr, err)
		}
		if change.EndPos < change.Pos {
			return nil, fmt.Errorf("%w: range end precedes start in %q", ErrSyntax, expr)
		}
	}

	if err := parseProteinEdit(s, change); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", expr, err)
	}
	if err := s.done(); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", expr, err)
	}
	return change, nil
}

func parseResiduePosition(s *tokenStream) (string, int, error) {
	res, err := parseResidue(s)
	if err != nil {
		return "", 0, err
	}
	n, err := s.expect(tokNumber)
	if err != nil {
		return "", 0, err
	}
	return res, n.number(), nil
}

func parseResidue(s *tokenStream) (string, error) {
	if _, ok := s.accept(tokStar); ok {
		return Stop, nil
	}
	t, err := s.expect(tokResidue)
	if err != nil {
		return "", err
	}
	return t.text, nil
}

func parseResidues(s *tokenStream) string {
	var b strings.Builder
	for {
		k := s.peek().kind
		if k != tokResidue && k != tokStar {
			break
		}
		res, _ := parseResidue(s)
		b.WriteString(res)
	}
	return b.String()
}

func parseProteinEdit(s *tokenStream, change *ProteinChange) error {
	t := s.peek()
	switch t.kind {
	case tokEquals:
		s.next()
		change.Kind = ProteinSynonymous
		return nil
	case tokQuestion:
		s.next()
		if change.Ref != "Met" {
			return fmt.Errorf("%w: unknown consequence at %s%d", ErrUnsupported, change.Ref, change.Pos)
		}
		change.Kind = ProteinStartLoss
		return nil
	case tokResidue, tokStar:
		alt, _ := parseResidue(s)
		change.Alt = alt
		if s.acceptKeyword("fs") {
			change.Kind = ProteinFrameshift
			skipFrameshiftTail(s)
			return nil
		}
		if s.acceptKeyword("ext") {
			if change.Ref != Stop {
				return fmt.Errorf("%w: N-terminal extension", ErrUnsupported)
			}
			change.Kind = ProteinExtension
			return parseExtensionLength(s, change)
		}
		switch {
		case alt == Stop && change.Ref == Stop:
			change.Kind = ProteinSynonymous
		case alt == Stop:
			change.Kind = ProteinNonsense
		case alt == change.Ref:
			change.Kind = ProteinSynonymous
		default:
			change.Kind = ProteinMissense
		}
		return nil
	case tokKeyword:
		s.next()
	default:
		return fmt.Errorf("%w: expected an edit, found %s at offset %d", ErrSyntax, t.kind, t.pos)
	}

	switch t.text {
	case "fs":
		change.Kind = ProteinFrameshift
		skipFrameshiftTail(s)
	case "del":
		change.Kind = ProteinDeletion
	case "dup":
		change.Kind = ProteinDuplication
	case "ins":
		change.Kind = ProteinInsertion
		change.Alt = parseResidues(s)
		if change.Alt == "" {
			s.accept(tokNumber)
		}
	case "delins":
		change.Kind = ProteinDelIns
		change.Alt = parseResidues(s)
		if change.Alt == "" {
			return fmt.Errorf("%w: delins without residues", ErrSyntax)
		}
	default:
		return fmt.Errorf("%w: operator %q", ErrUnsupported, t.text)
	}
	return nil
}

// skipFrameshiftTail consumes the optional "Ter12", "*12" or "*?" after fs.
func skipFrameshiftTail(s *tokenStream) {
	if k := s.peek().kind; k != tokResidue && k != tokStar {
		return
	}
	s.next()
	if _, ok := s.accept(tokNumber); !ok {
		s.accept(tokQuestion)
	}
}

func parseExtensionLength(s *tokenStream, change *ProteinChange) error {
	if _, err := parseResidue(s); err != nil {
		return err
	}
	if n, ok := s.accept(tokNumber); ok {
		change.ExtLength = n.number()
		return nil
	}
	if _, ok := s.accept(tokQuestion); ok {
		change.ExtLength = -1
		return nil
	}
	return fmt.Errorf("%w: extension without length", ErrSyntax)
}
