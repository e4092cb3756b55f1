package sse

import "strings"

// ParseFields turns one block into a field map. "field: value" contributes
// value with one leading space removed, a line without a colon is a field
// with an empty value, lines starting with ':' are comments, and repeated
// fields are joined with "\n". It returns nil when the block has no fields.
func ParseFields(block string) map[string]string {
	var fields map[string]string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		name, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		if fields == nil {
			fields = make(map[string]string)
		}
		if prev, ok := fields[name]; ok {
			fields[name] = prev + "\n" + value
			continue
		}
		fields[name] = value
	}
	return fields
}

type Frame struct {
	Event string
	Data  string
	ID    string
}

// ParseFrame is ParseFields narrowed to the fields this client reads.
func ParseFrame(block string) (Frame, bool) {
	fields := ParseFields(block)
	if fields == nil {
		return Frame{}, false
	}
	return Frame{
		Event: fields["event"],
		Data:  fields["data"],
		ID:    fields["id"],
	}, true
}
