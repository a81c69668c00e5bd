package tei

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultMaxFallbackLines bounds the generic-line fallback when no division
// matches the requested book.
const DefaultMaxFallbackLines = 700

// Line is one verse or prose line with its resolved reference.
type Line struct {
	Ref  string
	Text string
}

// WordToken is a word-level annotation record. Lemma is empty and Morph nil
// when the document carries no annotation for the word.
type WordToken struct {
	Surface string
	Lemma   string
	Morph   map[string]string
}

// ParseError marks a structurally unparsable document. It is fatal to the
// ingestion run that encountered it.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse source document: %v", e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reader parses TEI-style XML documents.
type Reader struct {
	// MaxFallbackLines caps how many generically-tagged <l> elements are
	// taken when no division matches the requested book.
	MaxFallbackLines int
}

// NewReader creates a Reader with default limits.
func NewReader() *Reader {
	return &Reader{MaxFallbackLines: DefaultMaxFallbackLines}
}

// ReadLines extracts the ordered (reference, text) pairs for one book.
// It prefers <l> elements inside a <div> explicitly tagged n="book"; when no
// such division exists it returns a bounded prefix of all <l> elements in
// document order. Empty lines are skipped.
func (r *Reader) ReadLines(src io.Reader, book int) ([]Line, error) {
	dec := xml.NewDecoder(src)
	wanted := strconv.Itoa(book)

	var explicit []Line // lines inside the matching division
	var generic []Line  // every line in the document, for fallback
	depthInWanted := 0  // nesting depth inside the matching div subtree
	seq := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "div", "div1", "div2":
				if depthInWanted > 0 {
					depthInWanted++
				} else if attrValue(el.Attr, "n") == wanted {
					depthInWanted = 1
				}
			case "l":
				seq++
				text, err := flattenElement(dec)
				if err != nil {
					return nil, &ParseError{Err: err}
				}
				text = strings.TrimSpace(text)
				if text == "" {
					continue
				}
				line := Line{Ref: resolveRef(el.Attr, seq), Text: text}
				generic = append(generic, line)
				if depthInWanted > 0 {
					explicit = append(explicit, line)
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "div", "div1", "div2":
				if depthInWanted > 0 {
					depthInWanted--
				}
			}
		}
	}

	if len(explicit) > 0 {
		return explicit, nil
	}

	// Leniency fallback: bounded prefix of whatever line elements exist
	max := r.MaxFallbackLines
	if max <= 0 {
		max = DefaultMaxFallbackLines
	}
	if len(generic) > max {
		generic = generic[:max]
	}
	return generic, nil
}

// ReadTokens extracts word-level records from a token-annotated document.
// Missing lemma or morphology attributes yield empty values.
func (r *Reader) ReadTokens(src io.Reader) ([]WordToken, error) {
	dec := xml.NewDecoder(src)

	var tokens []WordToken
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}

		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "w" {
			continue
		}

		surface, err := flattenElement(dec)
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		surface = strings.TrimSpace(surface)
		if surface == "" {
			continue
		}

		wt := WordToken{
			Surface: surface,
			Lemma:   attrValue(el.Attr, "lemma"),
		}
		for _, key := range []string{"ana", "pos", "msd"} {
			if v := attrValue(el.Attr, key); v != "" {
				if wt.Morph == nil {
					wt.Morph = make(map[string]string)
				}
				wt.Morph[key] = v
			}
		}
		tokens = append(tokens, wt)
	}

	return tokens, nil
}

// resolveRef picks the line reference: explicit id, else ordinal attribute,
// else the synthesized sequence number.
func resolveRef(attrs []xml.Attr, seq int) string {
	if id := attrValue(attrs, "id"); id != "" {
		return id
	}
	if n := attrValue(attrs, "n"); n != "" {
		return n
	}
	return strconv.Itoa(seq)
}

// attrValue returns the value of the named attribute, matching on the local
// name so namespaced forms like xml:id resolve too.
func attrValue(attrs []xml.Attr, local string) string {
	for _, a := range attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// flattenElement consumes the decoder until the current element closes and
// returns its concatenated character data, including text inside nested
// elements. The caller has already consumed the start tag.
func flattenElement(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}
	return b.String(), nil
}
