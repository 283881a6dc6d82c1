package hgvs

import (
	"fmt"
	"strconv"
	"strings"
)

// Region tells which part of the transcript a coding position anchors to.
type Region int

const (
	RegionCDS        Region = iota
	RegionFivePrime         // c.-N
	RegionThreePrime        // c.*N
)

// Position is a coding-DNA coordinate with an optional intronic offset.
type Position struct {
	Base   int
	Offset int
	Region Region
}

// IsIntronic reports whether the position lies in an intron.
func (p Position) IsIntronic() bool {
	return p.Offset != 0
}

func (p Position) String() string {
	var b strings.Builder
	switch p.Region {
	case RegionFivePrime:
		b.WriteByte('-')
	case RegionThreePrime:
		b.WriteByte('*')
	}
	b.WriteString(strconv.Itoa(p.Base))
	if p.Offset > 0 {
		b.WriteString("+" + strconv.Itoa(p.Offset))
	} else if p.Offset < 0 {
		b.WriteString(strconv.Itoa(p.Offset))
	}
	return b.String()
}

// Op is a coding-DNA edit operation.
type Op string

const (
	OpSubstitution Op = "sub"
	OpDeletion     Op = "del"
	OpDuplication  Op = "dup"
	OpInsertion    Op = "ins"
	OpDelIns       Op = "delins"
	OpIdentity     Op = "="
)

// CodingChange is a parsed c. expression.
type CodingChange struct {
	Start Position
	End   Position
	Op    Op
	// Ref is the reference allele: the substituted base or the deleted/duplicated sequence when given.
	Ref string
	// Alt is the substituted base for substitutions.
	Alt string
	// Inserted is the inserted sequence for ins and delins.
	Inserted string
	// InsertedLen is set when an insertion is written by length, e.g. ins12.
	InsertedLen int
}

// Span returns the number of reference nucleotides the change covers.
// It is only meaningful for exonic ranges.
func (c *CodingChange) Span() int {
	return c.End.Base - c.Start.Base + 1
}

// IsIntronic reports whether either bound carries an intronic offset.
func (c *CodingChange) IsIntronic() bool {
	return c.Start.IsIntronic() || c.End.IsIntronic()
}

// InCDS reports whether both bounds anchor to the coding sequence rather than a UTR.
func (c *CodingChange) InCDS() bool {
	return c.Start.Region == RegionCDS && c.End.Region == RegionCDS
}

// NetLengthChange returns the coding-length change the edit causes.
func (c *CodingChange) NetLengthChange() int {
	switch c.Op {
	case OpDeletion:
		return -c.Span()
	case OpDuplication:
		return c.Span()
	case OpInsertion:
		return c.insertedLength()
	case OpDelIns:
		return c.insertedLength() - c.Span()
	}
	return 0
}

func (c *CodingChange) insertedLength() int {
	if c.Inserted != "" {
		return len(c.Inserted)
	}
	return c.InsertedLen
}

// String renders the change back to canonical c. notation.
func (c *CodingChange) String() string {
	var b strings.Builder
	b.WriteString("c.")
	b.WriteString(c.Start.String())
	if c.End != c.Start {
		b.WriteString("_" + c.End.String())
	}
	switch c.Op {
	case OpSubstitution:
		b.WriteString(c.Ref + ">" + c.Alt)
	case OpDeletion, OpDuplication:
		b.WriteString(string(c.Op))
	case OpInsertion, OpDelIns:
		b.WriteString(string(c.Op))
		if c.Inserted != "" {
			b.WriteString(c.Inserted)
		} else {
			b.WriteString(strconv.Itoa(c.InsertedLen))
		}
	case OpIdentity:
		b.WriteString("=")
	}
	return b.String()
}

// ParseCoding parses a coding-DNA change such as "c.463+1G>A" or "190_195delinsTGC".
// The "c." prefix is optional.
func ParseCoding(expr string) (*CodingChange, error) {
	body := strings.TrimSpace(expr)
	body = strings.TrimPrefix(body, "c.")
	if body == "" {
		return nil, ErrEmpty
	}
	if strings.HasPrefix(body, "(") {
		return nil, fmt.Errorf("%w: uncertain positions in %q", ErrUnsupported, expr)
	}

	toks, err := lex(body, modeCoding)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize %q: %w", expr, err)
	}
	s := &tokenStream{toks: toks}

	change := &CodingChange{}
	if change.Start, err = parsePosition(s); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", expr, err)
	}
	change.End = change.Start
	if _, ok := s.accept(tokUnder); ok {
		if change.End, err = parsePosition(s); err != nil {
			return nil, fmt.Errorf("failed to parse %q: %w", expr, err)
		}
	}

	if err := parseEdit(s, change); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", expr, err)
	}
	if err := s.done(); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", expr, err)
	}
	if err := change.validate(); err != nil {
		return nil, fmt.Errorf("invalid change %q: %w", expr, err)
	}
	return change, nil
}

func parsePosition(s *tokenStream) (Position, error) {
	var p Position
	if _, ok := s.accept(tokMinus); ok {
		p.Region = RegionFivePrime
	} else if _, ok := s.accept(tokStar); ok {
		p.Region = RegionThreePrime
	}
	n, err := s.expect(tokNumber)
	if err != nil {
		return p, err
	}
	p.Base = n.number()

	if _, ok := s.accept(tokPlus); ok {
		off, err := s.expect(tokNumber)
		if err != nil {
			return p, err
		}
		p.Offset = off.number()
	} else if _, ok := s.accept(tokMinus); ok {
		off, err := s.expect(tokNumber)
		if err != nil {
			return p, err
		}
		p.Offset = -off.number()
	}
	return p, nil
}

func parseEdit(s *tokenStream, change *CodingChange) error {
	t := s.peek()
	switch t.kind {
	case tokBases:
		ref := s.next()
		if _, err := s.expect(tokGreater); err != nil {
			return err
		}
		alt, err := s.expect(tokBases)
		if err != nil {
			return err
		}
		change.Op = OpSubstitution
		change.Ref, change.Alt = ref.text, alt.text
		return nil
	case tokEquals:
		s.next()
		change.Op = OpIdentity
		return nil
	case tokKeyword:
		s.next()
	default:
		return fmt.Errorf("%w: expected an edit, found %s at offset %d", ErrSyntax, t.kind, t.pos)
	}

	switch t.text {
	case "del":
		change.Op = OpDeletion
		if seq, ok := s.accept(tokBases); ok {
			change.Ref = seq.text
		} else {
			s.accept(tokNumber)
		}
	case "dup":
		change.Op = OpDuplication
		if seq, ok := s.accept(tokBases); ok {
			change.Ref = seq.text
		} else {
			s.accept(tokNumber)
		}
	case "ins", "delins":
		change.Op = OpInsertion
		if t.text == "delins" {
			change.Op = OpDelIns
		}
		if seq, ok := s.accept(tokBases); ok {
			change.Inserted = seq.text
		} else if n, ok := s.accept(tokNumber); ok {
			change.InsertedLen = n.number()
		} else {
			return fmt.Errorf("%w: %s without inserted sequence", ErrSyntax, t.text)
		}
	default:
		return fmt.Errorf("%w: operator %q", ErrUnsupported, t.text)
	}
	return nil
}

func (c *CodingChange) validate() error {
	if c.Start.Base <= 0 || c.End.Base <= 0 {
		return fmt.Errorf("%w: positions must be positive", ErrSyntax)
	}
	if c.InCDS() && c.End.Base < c.Start.Base {
		return fmt.Errorf("%w: range end precedes start", ErrSyntax)
	}
	switch c.Op {
	case OpSubstitution:
		if c.Start != c.End {
			return fmt.Errorf("%w: substitution over a range", ErrSyntax)
		}
		if len(c.Ref) != 1 || len(c.Alt) != 1 || c.Ref == c.Alt {
			return fmt.Errorf("%w: substitution must change one base", ErrSyntax)
		}
	case OpInsertion:
		if c.Start == c.End {
			return fmt.Errorf("%w: insertion needs two flanking positions", ErrSyntax)
		}
	case OpDeletion, OpDuplication:
		if c.Ref != "" && !c.IsIntronic() && c.InCDS() && len(c.Ref) != c.Span() {
			return fmt.Errorf("%w: sequence length %d does not match range length %d", ErrSyntax, len(c.Ref), c.Span())
		}
	}
	return nil
}
