// Package frontmatter reads and rewrites the YAML metadata block at the
// top of a markdown note.
//
// Parsing is tolerant: a note without a frontmatter block is valid and
// yields an empty Block, and lookups on missing fields return zero
// values. Rewrites go through the yaml.v3 node API so that unrelated
// fields, their order, and their comments survive a round trip.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var delimiter = []byte("---")

// timeLayouts are tried in order when reading a timestamp field. Notes
// written by hand rarely carry a timezone.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Block is a note split into its frontmatter mapping and body. The
// zero-ish Block produced for a note without frontmatter supports the
// same operations; setting a field on it creates the block on render.
type Block struct {
	doc  *yaml.Node // document node, nil when the note had no block
	body []byte     // everything after the closing delimiter, verbatim
}

// Parse splits a note into frontmatter and body. A note that does not
// open with a delimiter line has no frontmatter; an opening delimiter
// without a closing one, or YAML that fails to decode, is an error.
func Parse(data []byte) (*Block, error) {
	rest, ok := cutDelimiterLine(data)
	if !ok {
		return &Block{body: data}, nil
	}

	var raw, body []byte
	offset := 0
	for {
		line, tail, found := cutLine(rest[offset:])
		if isDelimiter(line) {
			raw = rest[:offset]
			body = tail
			break
		}
		if !found {
			return nil, fmt.Errorf("frontmatter block is not closed")
		}
		offset = len(rest) - len(tail)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	if len(doc.Content) > 0 && doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter is not a mapping")
	}
	return &Block{doc: &doc, body: body}, nil
}

// Strings reads a field as a list of strings. A scalar value yields a
// single-element list, a sequence yields its scalar entries, and a
// missing field yields nil. Wiki-link brackets around a value are
// stripped.
func (b *Block) Strings(field string) []string {
	value := b.lookup(field)
	if value == nil {
		return nil
	}

	switch value.Kind {
	case yaml.ScalarNode:
		if s := trimLink(value.Value); s != "" {
			return []string{s}
		}
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				continue
			}
			if s := trimLink(item.Value); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// Time reads a field as a timestamp, trying common note layouts.
func (b *Block) Time(field string) (time.Time, bool) {
	value := b.lookup(field)
	if value == nil || value.Kind != yaml.ScalarNode || value.Value == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value.Value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SetStrings replaces a field's value: a single value is written as a
// scalar, several as a sequence, and none removes the field. Other
// fields keep their position and comments.
func (b *Block) SetStrings(field string, values []string) {
	mapping := b.mapping(len(values) > 0)
	if mapping == nil {
		return
	}

	if len(values) == 0 {
		for i := 0; i+1 < len(mapping.Content); i += 2 {
			if mapping.Content[i].Value == field {
				mapping.Content = append(mapping.Content[:i:i], mapping.Content[i+2:]...)
				return
			}
		}
		return
	}

	var value *yaml.Node
	if len(values) == 1 {
		value = scalarNode(values[0])
	} else {
		value = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, v := range values {
			value.Content = append(value.Content, scalarNode(v))
		}
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == field {
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content, scalarNode(field), value)
}

// Render reassembles the note. A note that never had frontmatter and
// gained no fields renders as its body alone.
func (b *Block) Render() ([]byte, error) {
	mapping := b.mapping(false)
	if mapping == nil || len(mapping.Content) == 0 {
		return b.body, nil
	}

	var buf bytes.Buffer
	buf.Write(delimiter)
	buf.WriteByte('\n')

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}

	buf.Write(delimiter)
	buf.WriteByte('\n')
	buf.Write(b.body)
	return buf.Bytes(), nil
}

// lookup returns the value node for a top-level field, or nil.
func (b *Block) lookup(field string) *yaml.Node {
	mapping := b.mapping(false)
	if mapping == nil {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == field {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// mapping returns the frontmatter mapping node, creating the document
// and mapping when create is set.
func (b *Block) mapping(create bool) *yaml.Node {
	if b.doc == nil || len(b.doc.Content) == 0 {
		if !create {
			return nil
		}
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		b.doc = &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{m}}
		return m
	}
	return b.doc.Content[0]
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// trimLink strips [[wiki-link]] brackets and surrounding whitespace.
func trimLink(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[[") && strings.HasSuffix(s, "]]") && len(s) >= 4 {
		s = strings.TrimSpace(s[2 : len(s)-2])
	}
	return s
}

// cutDelimiterLine strips a leading delimiter line, reporting whether
// one was present.
func cutDelimiterLine(data []byte) ([]byte, bool) {
	line, rest, _ := cutLine(data)
	if !isDelimiter(line) {
		return data, false
	}
	return rest, true
}

// cutLine splits off the first line, without its terminator.
func cutLine(data []byte) (line, rest []byte, found bool) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return data, nil, false
	}
	return data[:i], data[i+1:], true
}

func isDelimiter(line []byte) bool {
	return bytes.Equal(bytes.TrimRight(line, "\r"), delimiter)
}
