package token

import (
	"strings"

	"vbscope/internal/source"
)

// Annotation is a markup comment of the form '@Name args.
// Examples: '@Ignore ObjectVariableNotSet, '@Folder("Utilities"), '@TestMethod.
type Annotation struct {
	Name string
	Args []string
	Span source.Span
}

type TriviaKind uint8

const (
	TriviaSpace TriviaKind = iota
	// TriviaContinuation is " _" followed by a line break; it joins physical lines.
	TriviaContinuation
	// TriviaComment covers ' comments and Rem comments up to the line break.
	TriviaComment
	// TriviaAnnotation is a comment that parsed as an Annotation.
	TriviaAnnotation
)

func (k TriviaKind) String() string {
	switch k {
	case TriviaSpace:
		return "Space"
	case TriviaContinuation:
		return "Continuation"
	case TriviaComment:
		return "Comment"
	case TriviaAnnotation:
		return "Annotation"
	}
	return "Unknown"
}

type Trivia struct {
	Kind       TriviaKind
	Span       source.Span
	Text       string
	Annotation *Annotation // только если Kind == TriviaAnnotation
}

// ParseAnnotation parses the body of a comment (text after the quote) as an
// annotation. It returns false when the comment is not an annotation.
func ParseAnnotation(body string, span source.Span) (*Annotation, bool) {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "@") {
		return nil, false
	}
	body = body[1:]
	end := 0
	for end < len(body) && isAnnotationNameByte(body[end]) {
		end++
	}
	if end == 0 {
		return nil, false
	}
	ann := &Annotation{Name: body[:end], Span: span}
	rest := strings.TrimSpace(body[end:])
	if strings.HasPrefix(rest, "(") {
		rest = strings.TrimPrefix(rest, "(")
		if idx := strings.LastIndexByte(rest, ')'); idx >= 0 {
			rest = rest[:idx]
		}
	}
	ann.Args = splitAnnotationArgs(rest)
	return ann, true
}

func isAnnotationNameByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// splitAnnotationArgs splits on commas outside double quotes and unquotes each arg.
func splitAnnotationArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		arg := strings.TrimSpace(cur.String())
		if len(arg) >= 2 && arg[0] == '"' && arg[len(arg)-1] == '"' {
			arg = strings.ReplaceAll(arg[1:len(arg)-1], `""`, `"`)
		}
		if arg != "" {
			args = append(args, arg)
		}
		cur.Reset()
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == ',' && !inQuote:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return args
}
