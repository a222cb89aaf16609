package confab

import "confab/message"

// mergeMessages folds one turn's final batch into the growing history,
// exactly once per message. known holds every message id already merged, so
// a replayed or duplicated batch is absorbed without growing the history.
//
// When rotateHint is set the cache hint is moved forward onto the batch's
// trailing assistant message: every other assistant message loses its hint
// (the system message's hint is never touched). The target is resolved by id,
// so replaying a batch leaves the hint exactly where it already is. At most
// one assistant hint exists at any time and it sits on the most recent
// assistant turn, which is what lets the model client treat the preceding
// context as a stable prefix.
func mergeMessages(history []message.Message, incoming []message.Message, known map[string]struct{}, rotateHint bool) []message.Message {
	var hintID string
	if rotateHint {
		if n := len(incoming); n > 0 {
			if last := incoming[n-1]; last.Role == message.RoleAssistant && last.ID != "" {
				hintID = last.ID
			}
		}
		for i := range history {
			if history[i].Role == message.RoleAssistant {
				history[i].CacheHint = hintID != "" && history[i].ID == hintID
			}
		}
	}
	for _, m := range incoming {
		if m.Role != message.RoleAssistant && m.Role != message.RoleTool {
			continue
		}
		if m.ID == "" {
			continue
		}
		if _, seen := known[m.ID]; seen {
			continue
		}
		known[m.ID] = struct{}{}
		m.CacheHint = rotateHint && m.ID == hintID
		history = append(history, m)
	}
	return history
}
