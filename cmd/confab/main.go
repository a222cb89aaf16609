// Command confab is a terminal conversational assistant that keeps
// multi-turn dialogue across restarts.
//
// Usage:
//
//	confab [chat|list] [flags]
//
// chat (the default) starts or resumes a conversation; list enumerates the
// saved ones. Within a chat session, `save` flushes the conversation file,
// `history` prints the transcript, and `exit` quits.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"confab"
	"confab/interactive"
)

var (
	flagBackend = flag.StringP("backend", "b", "anthropic", "The backend to use")
	flagModel   = flag.StringP("model", "m", "", "The model to use (defaults per backend)")

	flagResume = flag.StringP("resume", "r", "", "Resume the conversation with this id")
	flagNew    = flag.Bool("new", false, "Start a new conversation without offering to resume")

	flagSystemPrompt = flag.StringP("system-prompt", "s", "", "System prompt for new conversations")
	flagDir          = flag.String("dir", "", "Conversation directory (default ~/.confab)")

	flagTitleInterval = flag.Int("title-interval", 5, "Refresh the conversation title every N messages")
	flagMaxSteps      = flag.Int("max-steps", 10, "Maximum model steps per turn before confirming")
	flagMaxTokens     = flag.IntP("max-tokens", "t", 4096, "Maximum tokens to generate")

	flagConfig  = flag.String("config", "", "Path to the configuration file")
	flagVerbose = flag.BoolP("verbose", "v", false, "Verbose output")
	flagDebug   = flag.Bool("debug", false, "Debug output")
	flagHelp    = flag.BoolP("help", "h", false, "")

	// hidden flags
	flagReadlineHistoryFile = flag.String("readline-history-file", "~/.confab_history", "File to store readline input history in")
)

func main() {
	initFlags()

	cfg, err := confab.LoadConfig(*flagConfig, os.Stderr, flag.CommandLine)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg)

	command := "chat"
	if args := flag.Args(); len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "list":
		err = confab.ListConversations(cfg, os.Stdout)
	case "chat":
		err = runChat(cfg)
	default:
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runChat(cfg *confab.Config) error {
	client, err := confab.NewModelClient(cfg)
	if err != nil {
		return err
	}
	sess, err := openInput()
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}

	s, err := confab.NewChatService(cfg, client, sess, nil, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	return s.Run(context.Background(), confab.RunConfig{
		ResumeID:  *flagResume,
		ForceNew:  *flagNew,
		Verbose:   *flagVerbose,
		DebugMode: *flagDebug,
	})
}

// openInput picks the input source: a readline terminal when stdin is a TTY,
// otherwise the piped lines replayed as a script.
func openInput() (interactive.Session, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return interactive.NewReadlineSession(*flagReadlineHistoryFile)
	}
	var lines []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return interactive.NewScriptSession(lines...), nil
}

// applyFlagOverrides maps flags that LoadConfig does not bind directly.
func applyFlagOverrides(cfg *confab.Config) {
	if *flagDir != "" {
		cfg.ConversationDir = *flagDir
	}
	if *flagSystemPrompt != "" {
		cfg.SystemPrompt = *flagSystemPrompt
	}
	if flag.CommandLine.Changed("title-interval") {
		cfg.TitleInterval = *flagTitleInterval
	}
	if flag.CommandLine.Changed("max-steps") {
		cfg.MaxSteps = *flagMaxSteps
	}
	if flag.CommandLine.Changed("max-tokens") {
		cfg.MaxTokens = *flagMaxTokens
	}
}

func initFlags() {
	flag.CommandLine.SortFlags = false
	flag.CommandLine.MarkHidden("readline-history-file")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "confab is a terminal assistant with durable conversations")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Usage: %s [chat|list] [flags]\n", os.Args[0])
		flag.CommandLine.PrintDefaults()
	}
	flag.Parse()
	if *flagHelp {
		flag.Usage()
		os.Exit(0)
	}
}
