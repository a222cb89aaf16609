package confab

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"confab/message"
)

// Summarizer produces a short conversation title. Errors are expected and
// are absorbed by the Titler; title maintenance never blocks a conversation.
type Summarizer interface {
	Summarize(ctx context.Context, history []message.Message, isFirstMessage bool, currentTitle string) (string, error)
}

// Titler decides when a conversation title should be generated or refreshed.
// It counts user and assistant messages and refreshes the title every
// interval messages, skipping the very first user input of the session.
type Titler struct {
	summarizer Summarizer
	log        *zap.SugaredLogger

	// rename is invoked whenever the title changes; the owner points it at
	// the store rename.
	rename func(title string)

	title          string
	messageCount   int
	interval       int
	firstUserInput bool
}

// NewTitler returns a Titler with no title and the first-input flag set.
func NewTitler(summarizer Summarizer, interval int, log *zap.SugaredLogger) *Titler {
	return &Titler{
		summarizer:     summarizer,
		log:            log,
		interval:       interval,
		firstUserInput: true,
		rename:         func(string) {},
	}
}

// Title returns the current title, empty if none has been generated.
func (t *Titler) Title() string { return t.title }

// SetTitle seeds the title, e.g. one extracted from a resumed file name.
func (t *Titler) SetTitle(title string) { t.title = title }

// SetRenameFunc installs the hook run when the title changes.
func (t *Titler) SetRenameFunc(fn func(title string)) { t.rename = fn }

// Observe records that n user/assistant messages were added to the history.
func (t *Titler) Observe(n int) { t.messageCount += n }

// MessageCount returns the observed user+assistant message count.
func (t *Titler) MessageCount() int { return t.messageCount }

// shouldUpdate reports whether the message count has just crossed an
// interval boundary on a titled, non-fresh conversation.
func (t *Titler) shouldUpdate() bool {
	return t.messageCount > 0 &&
		t.messageCount%t.interval == 0 &&
		!t.firstUserInput &&
		t.title != ""
}

// GenerateInitial produces the first title for a fresh or title-less
// session. It is a no-op when the triggering input is empty or the
// continuation sentinel, and a no-op on failure.
func (t *Titler) GenerateInitial(ctx context.Context, input string, history []message.Message) {
	defer func() { t.firstUserInput = false }()
	if input == "" || input == continueSentinel {
		return
	}
	if t.title != "" {
		return
	}
	title, err := t.summarizer.Summarize(ctx, history, true, "")
	if err != nil {
		t.log.Warnw("failed to generate initial title", "error", err)
		return
	}
	if title == "" {
		return
	}
	t.title = title
	t.rename(title)
}

// MaybeUpdate refreshes the title if an interval boundary was crossed. It is
// evaluated twice per turn since either the user message or the assistant's
// final batch may cross the boundary.
func (t *Titler) MaybeUpdate(ctx context.Context, history []message.Message) {
	if !t.shouldUpdate() {
		return
	}
	title, err := t.summarizer.Summarize(ctx, history, false, t.title)
	if err != nil {
		t.log.Warnw("failed to refresh title", "error", err)
		return
	}
	if title == "" || title == t.title {
		return
	}
	t.title = title
	t.rename(title)
}

// modelSummarizer titles conversations by prompting the configured model.
type modelSummarizer struct {
	client Client
}

// NewModelSummarizer returns a Summarizer backed by the model client.
func NewModelSummarizer(client Client) Summarizer {
	return &modelSummarizer{client: client}
}

const titleMaxLen = 50

func (s *modelSummarizer) Summarize(ctx context.Context, history []message.Message, isFirstMessage bool, currentTitle string) (string, error) {
	var b strings.Builder
	if isFirstMessage {
		b.WriteString("Generate a short descriptive title (five words or fewer) for a conversation that starts like this. Reply with the title only.\n\n")
	} else {
		fmt.Fprintf(&b, "The conversation below is currently titled %q. Reply with a better short title (five words or fewer), or repeat the current one if it still fits.\n\n", currentTitle)
	}
	limit := min(len(history), 10)
	for _, m := range history[:limit] {
		if m.Role != message.RoleUser && m.Role != message.RoleAssistant {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Text())
	}

	title, err := s.client.Generate(ctx, b.String(), 64)
	if err != nil {
		return "", fmt.Errorf("failed to generate title: %w", err)
	}
	title = strings.Trim(strings.TrimSpace(title), `"`)
	if r := []rune(title); len(r) > titleMaxLen {
		title = string(r[:titleMaxLen])
	}
	return title, nil
}
