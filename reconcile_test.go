package confab

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"confab/message"
)

func TestMergeMessages(t *testing.T) {
	batch := []message.Message{
		message.Assistant("a1", "calling a tool"),
		message.Tool("t1", message.ToolResult{ToolCallID: "c1", Content: "result"}),
		message.Assistant("a2", "final answer"),
	}

	t.Run("AppendsInOrder", func(t *testing.T) {
		known := map[string]struct{}{}
		history := mergeMessages([]message.Message{message.User("hi")}, batch, known, true)
		if len(history) != 4 {
			t.Fatalf("history has %d messages, want 4", len(history))
		}
		if history[3].ID != "a2" || !history[3].CacheHint {
			t.Errorf("last message = %+v, want a2 with cache hint", history[3])
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		known := map[string]struct{}{}
		once := mergeMessages(nil, batch, known, true)
		twice := mergeMessages(append([]message.Message(nil), once...), batch, known, true)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("replaying the batch changed history (-once +twice):\n%s", diff)
		}
	})

	t.Run("HintRotates", func(t *testing.T) {
		known := map[string]struct{}{}
		history := mergeMessages(nil, batch, known, true)
		next := []message.Message{message.Assistant("a3", "another turn")}
		history = mergeMessages(history, next, known, true)

		hints := 0
		for _, m := range history {
			if m.CacheHint {
				hints++
				if m.ID != "a3" {
					t.Errorf("hint on %q, want a3", m.ID)
				}
			}
		}
		if hints != 1 {
			t.Errorf("history carries %d hints, want 1", hints)
		}
	})

	t.Run("SystemHintUntouched", func(t *testing.T) {
		sys := message.System("rules")
		sys.CacheHint = true
		known := map[string]struct{}{}
		history := mergeMessages([]message.Message{sys}, batch, known, true)
		if !history[0].CacheHint {
			t.Error("rotation stripped the system message's hint")
		}
	})

	t.Run("NoRotationLeavesHintsAlone", func(t *testing.T) {
		known := map[string]struct{}{}
		history := mergeMessages(nil, batch, known, true)
		history = mergeMessages(history, []message.Message{message.Assistant("a4", "quiet")}, known, false)
		if history[len(history)-1].CacheHint {
			t.Error("merge without rotation attached a hint")
		}
		if !history[2].CacheHint {
			t.Error("merge without rotation stripped the existing hint")
		}
	})

	t.Run("DropsUnidentifiedAndForeignRoles", func(t *testing.T) {
		known := map[string]struct{}{}
		batch := []message.Message{
			message.User("should not appear"),
			message.System("nor this"),
			{Role: message.RoleAssistant, Parts: []message.Part{{Type: message.PartText, Text: "no id"}}},
			message.Assistant("a1", "kept"),
		}
		history := mergeMessages(nil, batch, known, false)
		if len(history) != 1 || history[0].ID != "a1" {
			t.Errorf("history = %+v, want only a1", history)
		}
	})
}
