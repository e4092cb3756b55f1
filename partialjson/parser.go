// Package partialjson extracts complete JSON objects from text that arrives
// in pieces, such as the text deltas of a model that is streaming a JSON
// array.
package partialjson

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Parser scans an append-only buffer and emits each top-level JSON object as
// soon as its closing brace arrives. A leading array bracket is transparent:
// the elements of `[{...},{...}]` are emitted one by one.
//
// The zero value is ready to use. A Parser is not safe for concurrent use.
type Parser struct {
	buf []byte
	pos int

	depth       int
	inString    bool
	escapeNext  bool
	objectStart int
	arrayMode   bool
}

func New() *Parser {
	return &Parser{}
}

// Feed appends chunk and returns every object completed by it, in order. It
// returns nil when nothing has completed yet. Incomplete or malformed data is
// kept for the next call.
func (p *Parser) Feed(chunk string) []json.RawMessage {
	p.buf = append(p.buf, chunk...)
	p.enterArrayMode()

	var out []json.RawMessage
	for p.pos < len(p.buf) {
		i := p.pos
		c := p.buf[i]
		p.pos++

		if p.inString {
			switch {
			case p.escapeNext:
				p.escapeNext = false
			case c == '\\':
				p.escapeNext = true
			case c == '"':
				p.inString = false
			}
			continue
		}

		switch c {
		case '"':
			p.inString = true
		case '{':
			if p.depth == 0 {
				p.objectStart = i
			}
			p.depth++
		case '}':
			if p.depth == 0 {
				continue
			}
			p.depth--
			if p.depth > 0 {
				continue
			}
			candidate := p.buf[p.objectStart : i+1]
			if !json.Valid(candidate) {
				continue
			}
			out = append(out, append(json.RawMessage(nil), candidate...))
			p.consume(i + 1)
		}
	}
	return out
}

// Partial returns the buffered text that has not been emitted yet.
func (p *Parser) Partial() string {
	return string(p.buf)
}

// Reset discards all buffered text and scan state.
func (p *Parser) Reset() {
	*p = Parser{}
}

// enterArrayMode drops a leading '[' (and the whitespace before it) the first
// time one shows up at the start of the buffer.
func (p *Parser) enterArrayMode() {
	if p.arrayMode || p.depth != 0 || p.inString {
		return
	}
	for i, c := range p.buf {
		if isSpace(c) {
			continue
		}
		if c == '[' {
			p.arrayMode = true
			p.buf = p.buf[i+1:]
			p.pos = 0
		}
		return
	}
}

// consume drops everything up to end plus any separators that follow, and
// restarts scanning at the new buffer start.
func (p *Parser) consume(end int) {
	for end < len(p.buf) && (isSpace(p.buf[end]) || p.buf[end] == ',') {
		end++
	}
	p.buf = p.buf[end:]
	p.pos = 0
	p.objectStart = 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// Decoder is a Parser that unmarshals every emitted object into T.
type Decoder[T any] struct {
	p Parser
}

func NewDecoder[T any]() *Decoder[T] {
	return &Decoder[T]{}
}

// Feed behaves like Parser.Feed. Objects that do not unmarshal into T are
// skipped and reported in the returned error; the parser keeps going.
func (d *Decoder[T]) Feed(chunk string) ([]T, error) {
	raws := d.p.Feed(chunk)
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]T, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", raw, err))
			continue
		}
		out = append(out, v)
	}
	return out, errors.Join(errs...)
}

func (d *Decoder[T]) Partial() string { return d.p.Partial() }
func (d *Decoder[T]) Reset()          { d.p.Reset() }
