package interactive

import "io"

// ScriptSession replays a fixed sequence of input lines. It backs tests and
// non-terminal invocations; once the script is exhausted every read returns
// io.EOF.
type ScriptSession struct {
	Lines []string
	pos   int
}

var _ Session = (*ScriptSession)(nil)

func NewScriptSession(lines ...string) *ScriptSession {
	return &ScriptSession{Lines: lines}
}

func (s *ScriptSession) ReadLine(prompt string) (string, error) {
	return s.next()
}

func (s *ScriptSession) ReadRaw() (string, error) {
	return s.next()
}

func (s *ScriptSession) next() (string, error) {
	if s.pos >= len(s.Lines) {
		return "", io.EOF
	}
	line := s.Lines[s.pos]
	s.pos++
	return line, nil
}

func (s *ScriptSession) Close() error { return nil }
