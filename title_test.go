package confab

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"confab/message"
)

type fakeSummarizer struct {
	title string
	err   error
	calls int
	first []bool
}

func (f *fakeSummarizer) Summarize(ctx context.Context, history []message.Message, isFirst bool, current string) (string, error) {
	f.calls++
	f.first = append(f.first, isFirst)
	return f.title, f.err
}

func newTestTitler(sum Summarizer, interval int) *Titler {
	return NewTitler(sum, interval, zap.NewNop().Sugar())
}

func TestShouldUpdate(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		title      string
		firstInput bool
		want       bool
	}{
		{"ZeroCount", 0, "Topic", false, false},
		{"AtInterval", 5, "Topic", false, true},
		{"TwiceInterval", 10, "Topic", false, true},
		{"OffInterval", 7, "Topic", false, false},
		{"NoTitle", 5, "", false, false},
		{"FirstInput", 5, "Topic", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newTestTitler(&fakeSummarizer{}, 5)
			tl.SetTitle(tt.title)
			tl.Observe(tt.count)
			tl.firstUserInput = tt.firstInput
			if got := tl.shouldUpdate(); got != tt.want {
				t.Errorf("shouldUpdate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateInitial(t *testing.T) {
	ctx := context.Background()

	t.Run("SetsTitleAndRenames", func(t *testing.T) {
		sum := &fakeSummarizer{title: "Fresh Topic"}
		tl := newTestTitler(sum, 5)
		var renamedTo string
		tl.SetRenameFunc(func(title string) { renamedTo = title })

		tl.GenerateInitial(ctx, "hello", nil)
		if tl.Title() != "Fresh Topic" || renamedTo != "Fresh Topic" {
			t.Errorf("title = %q, renamed to %q", tl.Title(), renamedTo)
		}
		if len(sum.first) != 1 || !sum.first[0] {
			t.Errorf("summarizer not called in first-message mode: %v", sum.first)
		}
	})

	t.Run("SkipsSentinelAndEmpty", func(t *testing.T) {
		sum := &fakeSummarizer{title: "Nope"}
		tl := newTestTitler(sum, 5)
		tl.GenerateInitial(ctx, "", nil)
		tl.GenerateInitial(ctx, continueSentinel, nil)
		if sum.calls != 0 || tl.Title() != "" {
			t.Errorf("summarizer called %d times, title %q", sum.calls, tl.Title())
		}
	})

	t.Run("SkipsTitledSession", func(t *testing.T) {
		sum := &fakeSummarizer{title: "Other"}
		tl := newTestTitler(sum, 5)
		tl.SetTitle("Resumed Title")
		tl.GenerateInitial(ctx, "hello", nil)
		if sum.calls != 0 || tl.Title() != "Resumed Title" {
			t.Errorf("resumed title disturbed: calls=%d title=%q", sum.calls, tl.Title())
		}
	})

	t.Run("FailureLeavesStateUnchanged", func(t *testing.T) {
		sum := &fakeSummarizer{err: errors.New("model down")}
		tl := newTestTitler(sum, 5)
		tl.GenerateInitial(ctx, "hello", nil)
		if tl.Title() != "" {
			t.Errorf("title = %q after summarizer failure", tl.Title())
		}
	})
}

func TestMaybeUpdate(t *testing.T) {
	ctx := context.Background()

	setup := func(sum Summarizer) (*Titler, *string) {
		tl := newTestTitler(sum, 5)
		tl.SetTitle("Old Title")
		tl.firstUserInput = false
		var renamed string
		tl.SetRenameFunc(func(title string) { renamed = title })
		return tl, &renamed
	}

	t.Run("RefreshesAtBoundary", func(t *testing.T) {
		sum := &fakeSummarizer{title: "Better Title"}
		tl, renamed := setup(sum)
		tl.Observe(5)
		tl.MaybeUpdate(ctx, nil)
		if tl.Title() != "Better Title" || *renamed != "Better Title" {
			t.Errorf("title = %q, renamed = %q", tl.Title(), *renamed)
		}
		if len(sum.first) != 1 || sum.first[0] {
			t.Errorf("expected refine mode call, got %v", sum.first)
		}
	})

	t.Run("NoopOffBoundary", func(t *testing.T) {
		sum := &fakeSummarizer{title: "Better Title"}
		tl, _ := setup(sum)
		tl.Observe(4)
		tl.MaybeUpdate(ctx, nil)
		if sum.calls != 0 {
			t.Errorf("summarizer called off boundary")
		}
	})

	t.Run("SameTitleNoRename", func(t *testing.T) {
		sum := &fakeSummarizer{title: "Old Title"}
		tl, renamed := setup(sum)
		tl.Observe(5)
		tl.MaybeUpdate(ctx, nil)
		if *renamed != "" {
			t.Errorf("rename triggered for unchanged title")
		}
	})

	t.Run("FailureKeepsTitle", func(t *testing.T) {
		sum := &fakeSummarizer{err: errors.New("model down")}
		tl, renamed := setup(sum)
		tl.Observe(5)
		tl.MaybeUpdate(ctx, nil)
		if tl.Title() != "Old Title" || *renamed != "" {
			t.Errorf("title = %q, renamed = %q after failure", tl.Title(), *renamed)
		}
	})
}
