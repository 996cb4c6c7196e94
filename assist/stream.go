package assist

import (
	"strings"
)

const (
	descriptionMarker = "DESCRIPTION:"
	queryMarker       = "\nQUERY:"
	endMarker         = "===END_SUGGESTION==="
)

// Suggestion is one streamed query idea.
type Suggestion struct {
	Description string `json:"description"`
	Query       string `json:"query"`
	Complete    bool   `json:"complete"`
}

type parseState int

const (
	stateIdle parseState = iota
	stateDescription
	stateQuery
)

// StreamParser assembles suggestions from a chunked stream. It implements
// io.Writer so a stream can be copied into it.
type StreamParser struct {
	// OnUpdate, when set, receives a copy of the suggestions after each write.
	OnUpdate func([]Suggestion)

	buf         string
	state       parseState
	description string
	suggestions []Suggestion
}

// NewStreamParser returns an empty parser.
func NewStreamParser() *StreamParser {
	return &StreamParser{}
}

// Write feeds a chunk of the stream. It never fails.
func (p *StreamParser) Write(chunk []byte) (int, error) {
	p.Feed(string(chunk))
	return len(chunk), nil
}

// Feed consumes chunk. Text that does not complete a marker is buffered and
// shown as the partial description or query of the last suggestion.
func (p *StreamParser) Feed(chunk string) {
	p.buf += chunk
	for p.step() {
	}

	if last := p.last(); last != nil && !last.Complete {
		switch p.state {
		case stateDescription:
			last.Description = p.description + p.buf
		case stateQuery:
			last.Query = p.buf
		}
	}
	if p.OnUpdate != nil {
		p.OnUpdate(p.Suggestions())
	}
}

// step advances over one marker and reports whether it found one.
func (p *StreamParser) step() bool {
	switch p.state {
	case stateIdle:
		i := strings.Index(p.buf, descriptionMarker)
		if i < 0 {
			return false
		}
		p.buf = p.buf[i+len(descriptionMarker):]
		p.description = ""
		p.suggestions = append(p.suggestions, Suggestion{})
		p.state = stateDescription
	case stateDescription:
		i := strings.Index(p.buf, queryMarker)
		if i < 0 {
			return false
		}
		p.description += p.buf[:i]
		p.last().Description = p.description
		p.buf = p.buf[i+len(queryMarker):]
		p.state = stateQuery
	case stateQuery:
		i := strings.Index(p.buf, endMarker)
		if i < 0 {
			return false
		}
		last := p.last()
		last.Query = p.buf[:i]
		last.Complete = true
		p.buf = p.buf[i+len(endMarker):]
		p.state = stateIdle
	}
	return true
}

// Suggestions returns a copy of the suggestions parsed so far.
func (p *StreamParser) Suggestions() []Suggestion {
	out := make([]Suggestion, len(p.suggestions))
	copy(out, p.suggestions)
	return out
}

// Finish ends the stream. A trailing partial suggestion is kept, and marked
// complete, only if some query text arrived for it. Suggestions with neither
// a description nor a query are dropped, and the rest are trimmed.
func (p *StreamParser) Finish() []Suggestion {
	if last := p.last(); last != nil && !last.Complete {
		switch p.state {
		case stateDescription:
			last.Description = p.description + p.buf
		case stateQuery:
			last.Query = p.buf
		}
		if strings.TrimSpace(last.Query) != "" {
			last.Complete = true
		} else {
			p.suggestions = p.suggestions[:len(p.suggestions)-1]
		}
	}
	p.buf = ""
	p.state = stateIdle

	out := make([]Suggestion, 0, len(p.suggestions))
	for _, s := range p.suggestions {
		s.Description = strings.TrimSpace(s.Description)
		s.Query = strings.TrimSpace(s.Query)
		if s.Description == "" && s.Query == "" {
			continue
		}
		out = append(out, s)
	}
	p.suggestions = out
	return p.Suggestions()
}

func (p *StreamParser) last() *Suggestion {
	if len(p.suggestions) == 0 {
		return nil
	}
	return &p.suggestions[len(p.suggestions)-1]
}
