package confab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"confab/interactive"
	"confab/message"
	"confab/store"
)

// continueSentinel is the input substituted for the user's prompt when they
// accept the continuation gate.
const continueSentinel = "continue"

// Conversation is the state of one chat session. Its id is fixed at
// creation; FilePath tracks the store-naming mapping as the title evolves.
type Conversation struct {
	ID       string
	FilePath string
	History  []message.Message
	KnownIDs map[string]struct{}
	Resumed  bool
}

// ChatService drives the conversation loop: session selection, per-turn
// input handling, reconciliation of streamed output, title upkeep, and the
// per-turn rewrite of the conversation file.
type ChatService struct {
	cfg *Config

	loggerCfg zap.Config
	log       *zap.SugaredLogger

	client Client
	store  *store.Store
	titler *Titler
	term   interactive.Session
	tools  []Tool

	stdout io.Writer
	stderr io.Writer

	conv *Conversation
	now  func() time.Time
}

// NewChatService wires a service from its collaborators. tools are passed
// through to the model client unmodified.
func NewChatService(cfg *Config, client Client, term interactive.Session, tools []Tool, stdout, stderr io.Writer) (*ChatService, error) {
	loggerCfg := zap.NewDevelopmentConfig()
	logger, err := loggerCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Sugar()

	st, err := store.New(cfg.ConversationDir, log)
	if err != nil {
		return nil, err
	}

	return &ChatService{
		cfg:       cfg,
		loggerCfg: loggerCfg,
		log:       log,
		client:    client,
		store:     st,
		titler:    NewTitler(NewModelSummarizer(client), cfg.TitleInterval, log),
		term:      term,
		tools:     tools,
		stdout:    stdout,
		stderr:    stderr,
		now:       time.Now,
	}, nil
}

// RunConfig is the per-invocation configuration for Run.
type RunConfig struct {
	// ResumeID resumes the conversation with this identifier directly,
	// skipping the interactive listing.
	ResumeID string
	// ForceNew starts a fresh conversation without offering to resume.
	ForceNew bool

	Verbose   bool
	DebugMode bool
}

// Run executes the session loop until the user exits or input is exhausted.
// The final state of the conversation is always flushed to disk before
// returning.
func (s *ChatService) Run(ctx context.Context, runCfg RunConfig) error {
	s.loggerCfg.Level.SetLevel(zap.WarnLevel)
	if runCfg.Verbose {
		s.loggerCfg.Level.SetLevel(zap.InfoLevel)
	}
	if runCfg.DebugMode {
		s.loggerCfg.Level.SetLevel(zap.DebugLevel)
	}

	if err := s.selectConversation(runCfg); err != nil {
		return err
	}
	s.titler.SetRenameFunc(func(title string) {
		s.conv.FilePath = s.store.Rename(s.conv.FilePath, s.conv.ID, title)
	})
	if err := s.save(); err != nil {
		s.log.Warnw("failed initial save", "error", err)
	}

	return s.loop(ctx)
}

// selectConversation resolves which conversation this process works on:
// an explicit id, an interactive pick from the catalog, or a fresh one.
func (s *ChatService) selectConversation(runCfg RunConfig) error {
	if runCfg.ForceNew {
		s.startNew()
		return nil
	}
	if runCfg.ResumeID != "" {
		fileName, ok := s.store.FindByID(runCfg.ResumeID)
		if !ok {
			return fmt.Errorf("no conversation found for id %q", runCfg.ResumeID)
		}
		s.resume(fileName)
		return nil
	}

	entries := s.store.List()
	if len(entries) == 0 {
		s.startNew()
		return nil
	}
	fmt.Fprintln(s.stdout, "Saved conversations:")
	renderCatalog(s.stdout, entries)
	line, err := s.term.ReadLine(fmt.Sprintf("Resume (1-%d) or press Enter for a new conversation: ", len(entries)))
	if err != nil {
		s.startNew()
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(entries) {
		s.startNew()
		return nil
	}
	s.resume(entries[n-1].FileName)
	return nil
}

func (s *ChatService) startNew() {
	id := store.NowID(s.now())
	conv := &Conversation{
		ID:       id,
		FilePath: s.store.PathFor(id, ""),
		KnownIDs: make(map[string]struct{}),
	}
	if s.cfg.SystemPrompt != "" {
		sys := message.System(s.cfg.SystemPrompt)
		// The system message carries its own hint; rotation never touches it.
		sys.CacheHint = true
		conv.History = append(conv.History, sys)
	}
	s.conv = conv
}

// resume loads a saved conversation, repairing a malformed identifier in its
// file name and recovering the title from the slug. A conversation that
// cannot be parsed falls back to a fresh session rather than aborting.
func (s *ChatService) resume(fileName string) {
	path := filepath.Join(s.store.Dir(), fileName)
	history, err := s.store.Load(path)
	if err != nil {
		s.log.Warnw("failed to load conversation, starting fresh", "file", fileName, "error", err)
		s.startNew()
		return
	}

	title, _ := store.ExtractTitle(fileName)
	fallback := store.NowID(s.now())
	rawID := store.ExtractID(fileName)
	id := store.ResolveID(s.log, rawID, fallback)
	if id != rawID {
		path = s.store.FixMalformed(fileName, id, title)
	}

	conv := &Conversation{
		ID:       id,
		FilePath: path,
		History:  history,
		KnownIDs: make(map[string]struct{}),
		Resumed:  true,
	}
	var count int
	for _, m := range history {
		if m.ID != "" {
			conv.KnownIDs[m.ID] = struct{}{}
		}
		if m.Role == message.RoleUser || m.Role == message.RoleAssistant {
			count++
		}
	}
	s.conv = conv
	s.titler.SetTitle(title)
	s.titler.Observe(count)
	fmt.Fprintf(s.stdout, "Resumed conversation %s (%d messages)\n", id, count)
}

// loop is the steady-state turn loop, including the continuation gate.
func (s *ChatService) loop(ctx context.Context) error {
	forcedContinue := false
	for {
		var input string
		if forcedContinue {
			forcedContinue = false
			input = continueSentinel
		} else {
			line, err := s.term.ReadLine("> ")
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, interactive.ErrInterrupted) {
					s.log.Warnw("input error", "error", err)
				}
				return s.terminate()
			}
			input = line
		}

		switch input {
		case "":
			continue
		case "exit":
			return s.terminate()
		case "save":
			if err := s.save(); err != nil {
				s.log.Warnw("save failed", "error", err)
				continue
			}
			fmt.Fprintf(s.stdout, "Saved to %s\n", s.conv.FilePath)
			continue
		case "history":
			renderTranscript(s.stdout, s.conv.History)
			continue
		}

		gate, err := s.turn(ctx, input)
		if err != nil {
			s.log.Warnw("turn failed", "error", err)
			return s.terminate()
		}
		if gate {
			ok, err := s.promptContinue()
			if err != nil || !ok {
				return s.terminate()
			}
			forcedContinue = true
		}
	}
}

// turn runs one full exchange: append the user message, stream the model's
// response, merge its final batch, refresh the title, and rewrite the file.
// It reports whether the model exhausted its step budget.
func (s *ChatService) turn(ctx context.Context, input string) (gate bool, err error) {
	s.conv.History = append(s.conv.History, message.User(input))
	s.titler.Observe(1)
	s.titler.GenerateInitial(ctx, input, s.conv.History)
	s.titler.MaybeUpdate(ctx, s.conv.History)

	stream, err := s.client.Stream(ctx, s.conv.History, s.tools, s.cfg.MaxSteps)
	if err != nil {
		s.saveBestEffort()
		return false, fmt.Errorf("failed to start completion: %w", err)
	}
	for ev := range stream.Events() {
		fmt.Fprint(s.stdout, ev)
	}
	fmt.Fprintln(s.stdout)

	result, streamErr := stream.Result()
	if result != nil {
		s.mergeResult(result)
	}
	s.titler.MaybeUpdate(ctx, s.conv.History)
	if err := s.save(); err != nil {
		s.log.Warnw("failed to save conversation", "error", err)
	}
	if streamErr != nil {
		return false, fmt.Errorf("completion stream failed: %w", streamErr)
	}
	return result.Steps >= s.cfg.MaxSteps, nil
}

func (s *ChatService) mergeResult(result *TurnResult) {
	before := len(s.conv.History)
	s.conv.History = mergeMessages(s.conv.History, result.Messages, s.conv.KnownIDs, true)
	var added int
	for _, m := range s.conv.History[before:] {
		if m.Role == message.RoleAssistant {
			added++
		}
	}
	s.titler.Observe(added)
}

// promptContinue asks whether to keep going after the step budget ran out.
func (s *ChatService) promptContinue() (bool, error) {
	fmt.Fprint(s.stdout, "Step limit reached. Continue? [y/N] ")
	line, err := s.term.ReadRaw()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// terminate performs the final flush and releases the input reader. Written
// history always survives termination, whatever triggered it.
func (s *ChatService) terminate() error {
	var err error
	if s.conv != nil {
		err = s.save()
		if err != nil {
			s.log.Warnw("final save failed", "error", err)
		}
	}
	if cerr := s.term.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (s *ChatService) save() error {
	return s.store.Save(s.conv.FilePath, s.conv.History)
}

func (s *ChatService) saveBestEffort() {
	if err := s.save(); err != nil {
		s.log.Warnw("failed to save conversation", "error", err)
	}
}

// ListConversations prints the saved-conversation catalog, newest first.
func ListConversations(cfg *Config, stdout io.Writer) error {
	logger, err := zap.NewDevelopmentConfig().Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	st, err := store.New(cfg.ConversationDir, logger.Sugar())
	if err != nil {
		return err
	}
	entries := st.List()
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No saved conversations.")
		return nil
	}
	renderCatalog(stdout, entries)
	return nil
}
