package interactive

import (
	"errors"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

// ReadlineSession implements Session on top of chzyer/readline, with
// persistent input history kept separately from conversation history.
type ReadlineSession struct {
	reader *readline.Instance
}

var _ Session = (*ReadlineSession)(nil)

// NewReadlineSession opens the terminal. historyFile, if non-empty, is the
// readline input history path ("~/" prefixes are expanded).
func NewReadlineSession(historyFile string) (*ReadlineSession, error) {
	reader, err := readline.NewEx(&readline.Config{
		HistoryFile:       expandTilde(historyFile),
		HistoryLimit:      10000,
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
	})
	if err != nil {
		return nil, err
	}
	return &ReadlineSession{reader: reader}, nil
}

func (s *ReadlineSession) ReadLine(prompt string) (string, error) {
	s.reader.SetPrompt(prompt)
	defer s.reader.SetPrompt("")
	line, err := s.reader.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", ErrInterrupted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (s *ReadlineSession) ReadRaw() (string, error) {
	s.reader.SetPrompt("")
	line, err := s.reader.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", ErrInterrupted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (s *ReadlineSession) Close() error {
	return s.reader.Close()
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return strings.Replace(path, "~", home, 1)
		}
	}
	return path
}
