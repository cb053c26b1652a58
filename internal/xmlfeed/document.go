package xmlfeed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// ErrParse is returned when feed content is not well-formed XML.
var ErrParse = errors.New("feed is not well-formed XML")

// TextKey holds an element's character data when the element also has
// attributes or child elements.
const TextKey = "_"

// Document is a feed converted to nested maps. Keys are local element and
// attribute names; values are string, float64, map[string]any or []any.
type Document map[string]any

// Get walks nested maps along path.
func (d Document) Get(path ...string) (any, bool) {
	return Lookup(map[string]any(d), path...)
}

type element struct {
	name     string
	attrs    []xml.Attr
	children []*element
	text     strings.Builder
}

// Parse converts XML text into a Document. Repeated sibling elements become
// ordered lists, numeric-looking leaves are coerced to float64, namespace
// prefixes are dropped and the root element itself is elided.
func Parse(data []byte) (Document, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = true
	decoder.CharsetReader = charsetReader

	var root *element
	var path []*element
	for {
		token, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}

		switch tok := token.(type) {
		case xml.StartElement:
			el := &element{name: tok.Name.Local, attrs: tok.Copy().Attr}
			if len(path) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements", ErrParse)
				}
				root = el
			} else {
				parent := path[len(path)-1]
				parent.children = append(parent.children, el)
			}
			path = append(path, el)
		case xml.EndElement:
			path = path[:len(path)-1]
		case xml.CharData:
			if len(path) > 0 {
				path[len(path)-1].text.Write(tok)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrParse)
	}

	switch v := root.value().(type) {
	case map[string]any:
		return Document(v), nil
	case string:
		if v == "" {
			return Document{}, nil
		}
		return Document{TextKey: v}, nil
	default:
		return Document{TextKey: v}, nil
	}
}

func (e *element) value() any {
	text := strings.TrimSpace(e.text.String())
	if len(e.children) == 0 && !e.hasAttrs() {
		return coerce(text)
	}

	res := map[string]any{}
	for _, attr := range e.attrs {
		if isNamespaceDecl(attr.Name) {
			continue
		}
		add(res, attr.Name.Local, coerce(attr.Value))
	}
	for _, child := range e.children {
		add(res, child.name, child.value())
	}
	if text != "" {
		res[TextKey] = coerce(text)
	}
	return res
}

func (e *element) hasAttrs() bool {
	for _, attr := range e.attrs {
		if !isNamespaceDecl(attr.Name) {
			return true
		}
	}
	return false
}

// add stores v under key, turning the entry into a list when key repeats.
func add(res map[string]any, key string, v any) {
	cur, ok := res[key]
	if !ok {
		res[key] = v
		return
	}
	if arr, ok := cur.([]any); ok {
		res[key] = append(arr, v)
		return
	}
	res[key] = []any{cur, v}
}

func isNamespaceDecl(n xml.Name) bool {
	return n.Space == "xmlns" || (n.Space == "" && n.Local == "xmlns")
}

var numericPattern = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

// coerce turns numeric leaves into float64. Text that would not survive the
// round trip, such as "+971..." phone numbers or zero-padded references,
// stays a string; Number still reads it.
func coerce(s string) any {
	if !numericPattern.MatchString(s) || !canonicalNumber(s) {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f
}

func canonicalNumber(s string) bool {
	if strings.HasPrefix(s, "+") {
		return false
	}
	s = strings.TrimPrefix(s, "-")
	return !(len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9')
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
