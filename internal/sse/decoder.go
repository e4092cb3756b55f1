package sse

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Decoder splits a Server-Sent Events stream into blocks: the lines between
// two blank lines. Partial lines are buffered across reads, so blocks are
// always complete. CRLF and LF line endings are both accepted.
type Decoder struct {
	r     *bufio.Reader
	lines []string
	block string
	err   error
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next advances to the next non-empty block. It returns false on EOF or
// error. A final block that is not followed by a blank line is still returned.
func (d *Decoder) Next() bool {
	if d.err != nil {
		return false
	}
	d.lines = d.lines[:0]
	d.block = ""

	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if line = strings.TrimRight(line, "\r\n"); line != "" {
					d.lines = append(d.lines, line)
				}
				d.err = io.EOF
				if len(d.lines) > 0 {
					d.block = strings.Join(d.lines, "\n")
					return true
				}
				return false
			}
			d.err = err
			return false
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if len(d.lines) == 0 {
				continue
			}
			d.block = strings.Join(d.lines, "\n")
			return true
		}
		d.lines = append(d.lines, line)
	}
}

// Block returns the raw lines of the current block joined with "\n".
func (d *Decoder) Block() string {
	if d == nil {
		return ""
	}
	return d.block
}

func (d *Decoder) Err() error {
	if d == nil {
		return nil
	}
	if d.err == io.EOF {
		return nil
	}
	return d.err
}

func (d *Decoder) ExpectNoError() error {
	if err := d.Err(); err != nil {
		return fmt.Errorf("sse decode: %w", err)
	}
	return nil
}
