package product

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/htmlindex"
)

// ParseError is a structural violation of the input document. It aborts the run.
type ParseError struct {
	Line    int
	Element string
	Msg     string
}

func (e *ParseError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("%s <%s> on line %d", e.Msg, e.Element, e.Line)
	}
	return fmt.Sprintf("%s on line %d", e.Msg, e.Line)
}

// Parser reads products one at a time from an import document:
//
//	<import>
//	  <product type="simple" sku="a-1" attribute_set="Default">
//	    <global><name>A</name><price>1.00</price><category>Men/Shoes</category></global>
//	    <store_view code="nl"><name>Een</name></store_view>
//	  </product>
//	</import>
//
// Only the current record is held in memory.
type Parser struct {
	dec   *xml.Decoder
	state state

	// line where the current token began
	tokenLine int

	record     *Product
	scope      *FieldSet
	scopeState state
	globalSeen bool

	field     string
	fieldCode string
	text      strings.Builder
}

// NewParser creates a parser over r. Non UTF-8 encodings declared in the XML
// prolog are decoded through golang.org/x/text.
func NewParser(r io.Reader) *Parser {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader
	return &Parser{dec: dec, state: stateDocument}
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// Line returns the 1-based line on which the current token began. For a
// start tag spread over several lines that is the line of its '<'.
func (p *Parser) Line() int {
	return p.tokenLine
}

// Next returns the next complete product. It returns io.EOF once the import
// element is closed and the input is exhausted. Any other error is a *ParseError.
func (p *Parser) Next() (*Product, error) {
	for {
		p.tokenLine, _ = p.dec.InputPos()
		tok, err := p.dec.Token()
		if err == io.EOF {
			if p.state != stateDone {
				return nil, p.errorf("", "unexpected end of input in %s", p.state)
			}
			return nil, io.EOF
		}
		if err != nil {
			var se *xml.SyntaxError
			if errors.As(err, &se) {
				return nil, &ParseError{Line: se.Line, Msg: se.Msg}
			}
			line, _ := p.dec.InputPos()
			return nil, &ParseError{Line: line, Msg: err.Error()}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := p.open(t); err != nil {
				return nil, err
			}
		case xml.EndElement:
			done, err := p.close(t)
			if err != nil {
				return nil, err
			}
			if done != nil {
				return done, nil
			}
		case xml.CharData:
			if err := p.charData(t); err != nil {
				return nil, err
			}
		}
	}
}

func (p *Parser) open(el xml.StartElement) error {
	name := el.Name.Local
	next, ok := openTransitions[p.state][name]
	if !ok {
		return p.errorf(name, "unknown element")
	}
	to, err := next(p, el)
	if err != nil {
		return err
	}
	p.state = to
	return nil
}

func (p *Parser) close(el xml.EndElement) (*Product, error) {
	switch p.state {
	case stateInField:
		assign := fieldsByScope[p.scopeState][p.field]
		assign(p, strings.TrimSpace(p.text.String()))
		p.field, p.fieldCode = "", ""
		p.state = p.scopeState
	case stateGlobalScope, stateStoreViewScope:
		p.scope = nil
		p.state = stateInRecord
	case stateInRecord:
		done := p.record
		p.record = nil
		p.globalSeen = false
		p.state = stateTop
		return done, nil
	case stateTop:
		p.state = stateDone
	default:
		return nil, p.errorf(el.Name.Local, "unexpected closing element in %s", p.state)
	}
	return nil, nil
}

func (p *Parser) charData(data xml.CharData) error {
	if p.state == stateInField {
		p.text.Write(data)
		return nil
	}
	text := string(data)
	trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
	if trimmed == "" {
		return nil
	}
	// report the line of the first visible character
	line := p.tokenLine + strings.Count(text[:len(text)-len(trimmed)], "\n")
	return &ParseError{Line: line, Msg: fmt.Sprintf("unexpected text in %s", p.state)}
}

func (p *Parser) errorf(element, format string, args ...any) error {
	return &ParseError{Line: p.Line(), Element: element, Msg: fmt.Sprintf(format, args...)}
}

func attr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}
