package stimulus

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const maxSVGTextElements = 20

// VerifySVG checks that content is a well-formed, self-contained SVG
// document: a single <svg> root, no script elements or event handler
// attributes, and a bounded number of text elements.
func VerifySVG(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("empty svg")
	}

	decoder := xml.NewDecoder(strings.NewReader(trimmed))
	depth := 0
	textElements := 0
	sawRoot := false

	for {
		tok, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("svg is not well-formed XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			if depth == 0 {
				if name != "svg" {
					return fmt.Errorf("root element is <%s>, want <svg>", t.Name.Local)
				}
				sawRoot = true
			}
			if name == "script" {
				return fmt.Errorf("svg contains a script element")
			}
			if name == "text" {
				textElements++
			}
			for _, attr := range t.Attr {
				if strings.HasPrefix(strings.ToLower(attr.Name.Local), "on") {
					return fmt.Errorf("svg element <%s> carries event handler attribute %q", t.Name.Local, attr.Name.Local)
				}
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}

	if !sawRoot {
		return fmt.Errorf("no svg element found")
	}
	if depth != 0 {
		return fmt.Errorf("svg has unclosed elements")
	}
	if textElements > maxSVGTextElements {
		return fmt.Errorf("svg has %d text elements, limit is %d", textElements, maxSVGTextElements)
	}
	return nil
}
