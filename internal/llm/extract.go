package llm

import (
	"bytes"
	"encoding/json"
	"unicode"
)

// Tool-call recovery for backends without native tool use. The model is
// instructed to emit {"tool": ..., "input": ...} objects inline; this file
// finds them in the raw output and decides which ones to trust.

// gapThreshold is the maximum number of non-whitespace characters allowed
// between two adjacent tool calls for them to land in the same batch.
// Short connective text (JSON lines, markdown fences) stays under it;
// simulated prose between invented calls does not. Variable so adversarial
// tests can tighten it.
var gapThreshold = 40

// toolCallCandidate is one recovered {"tool","input"} object and the byte
// span it occupied in the output.
type toolCallCandidate struct {
	name  string
	input json.RawMessage
	start int // offset of the opening brace
	end   int // offset one past the last consumed byte
}

// extractToolCalls scans raw output for embedded tool-call objects. At every
// '{' it attempts to parse exactly one JSON value; on success the cursor
// jumps past the consumed span (nested objects and arrays inside the value
// are never re-entered), on any failure it advances a single byte. An object
// qualifies only if it has a string-valued "tool" key and an "input" key.
func extractToolCalls(raw []byte) []toolCallCandidate {
	var candidates []toolCallCandidate

	for i := 0; i < len(raw); {
		if raw[i] != '{' {
			i++
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(raw[i:]))
		var obj map[string]json.RawMessage
		if err := dec.Decode(&obj); err != nil {
			i++
			continue
		}
		consumed := int(dec.InputOffset())

		var name string
		if err := json.Unmarshal(obj["tool"], &name); err != nil || name == "" {
			i++
			continue
		}
		input, ok := obj["input"]
		if !ok {
			i++
			continue
		}

		candidates = append(candidates, toolCallCandidate{
			name:  name,
			input: input,
			start: i,
			end:   i + consumed,
		})
		i += consumed
	}

	return candidates
}

// batchToolCalls keeps the leading contiguous run of candidates. A single
// CLI response can contain an entire simulated conversation: genuine calls
// first, then fabricated results and further invented calls. Only calls
// separated by short connective text are trusted.
func batchToolCalls(raw []byte, candidates []toolCallCandidate) []toolCallCandidate {
	if len(candidates) == 0 {
		return nil
	}

	batch := candidates[:1]
	for i := 1; i < len(candidates); i++ {
		prev, next := candidates[i-1], candidates[i]
		if nonWhitespaceCount(raw[prev.end:next.start]) > gapThreshold {
			break
		}
		batch = candidates[:i+1]
	}
	return batch
}

func nonWhitespaceCount(b []byte) int {
	n := 0
	for _, r := range string(b) {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
