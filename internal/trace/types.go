package trace

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is one ingested UI-automation event: a transition between two
// perceptually-hashed screen states, optionally annotated with the action
// that caused it and a screenshot of the resulting state.
type Record struct {
	Timestamp  Timestamp  `json:"timestamp"`
	URL        string     `json:"url"`
	Previous   *uint64    `json:"hash_previous"`
	Current    *uint64    `json:"hash_current"`
	Screenshot string     `json:"screenshot_path"`
	Action     *Action    `json:"action"`
	Violation  *Violation `json:"violation"`
}

// Action tags. Unknown tags are preserved verbatim in Action.Tag.
const (
	TagBack       = "Back"
	TagForward    = "Forward"
	TagClick      = "Click"
	TagTypeText   = "TypeText"
	TagPressKey   = "PressKey"
	TagScrollUp   = "ScrollUp"
	TagScrollDown = "ScrollDown"
	TagReload     = "Reload"
)

// Action is a tagged browser action. Exactly one variant is present,
// identified by Tag; payload fields are only meaningful for their variant.
// Positional coordinates, typing delays and scroll distances present in the
// wire format are discarded on decode.
type Action struct {
	Tag     string
	Name    string // Click
	Content string // Click, optional
	Text    string // TypeText
	Code    int    // PressKey
}

// UnmarshalJSON decodes the externally-tagged wire form: either a bare
// string for payload-free variants ("Back") or a single-key object for
// variants with fields ({"Click":{"name":...}}).
func (a *Action) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		a.Tag = tag
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("action: expected string or tagged object: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("action: expected exactly one tag, got %d", len(obj))
	}

	for tag, payload := range obj {
		a.Tag = tag
		switch tag {
		case TagClick:
			var p struct {
				Name    *string `json:"name"`
				Content string  `json:"content"`
			}
			if err := json.Unmarshal(payload, &p); err != nil {
				return fmt.Errorf("action %s: %w", tag, err)
			}
			if p.Name != nil {
				a.Name = *p.Name
			} else {
				a.Name = "?"
			}
			a.Content = p.Content
		case TagTypeText:
			var p struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(payload, &p); err != nil {
				return fmt.Errorf("action %s: %w", tag, err)
			}
			a.Text = p.Text
		case TagPressKey:
			var p struct {
				Code int `json:"code"`
			}
			if err := json.Unmarshal(payload, &p); err != nil {
				return fmt.Errorf("action %s: %w", tag, err)
			}
			a.Code = p.Code
		}
		// Other tags carry no payload we keep.
	}
	return nil
}

// Violation is an invariant failure the automation runner reported at this
// step. The graph does not use it beyond counting.
type Violation struct {
	Kind    string // "Invariant" or "Unknown"
	Message string
}

// UnmarshalJSON accepts both the tagged object form ({"Invariant":"msg"})
// and a bare string.
func (v *Violation) UnmarshalJSON(data []byte) error {
	var msg string
	if err := json.Unmarshal(data, &msg); err == nil {
		v.Kind = "Unknown"
		v.Message = msg
		return nil
	}

	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("violation: %w", err)
	}
	for kind, msg := range obj {
		v.Kind = kind
		v.Message = msg
	}
	return nil
}

func (v *Violation) String() string {
	if v.Kind == "Invariant" {
		return "invariant: " + v.Message
	}
	return v.Message
}

// Timestamp tolerates both RFC 3339 strings and the
// {"secs_since_epoch":..,"nanos_since_epoch":..} object form some trace
// writers emit. Unrecognized forms decode to the zero time rather than
// failing the record.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil
		}
		t.Time = parsed
		return nil
	}

	var epoch struct {
		Secs  int64 `json:"secs_since_epoch"`
		Nanos int64 `json:"nanos_since_epoch"`
	}
	if err := json.Unmarshal(data, &epoch); err == nil && epoch.Secs > 0 {
		t.Time = time.Unix(epoch.Secs, epoch.Nanos).UTC()
	}
	return nil
}

// Trace holds the ingested event sequence in original order.
// It is read-only after parsing; no component reorders records.
type Trace struct {
	Records []Record
}

// Hashes returns all distinct non-nil hashes across all records, in
// first-seen order (previous before current within a record). Clustering
// consumes this order directly, so results are reproducible for a given
// trace file; a different order would produce a different clustering.
func (t *Trace) Hashes() []uint64 {
	seen := make(map[uint64]bool)
	var out []uint64
	for _, r := range t.Records {
		for _, h := range []*uint64{r.Previous, r.Current} {
			if h != nil && !seen[*h] {
				seen[*h] = true
				out = append(out, *h)
			}
		}
	}
	return out
}

// Screenshots maps each hash to the first non-empty screenshot path
// recorded against it. A record's screenshot is attributed to both its
// endpoint hashes.
func (t *Trace) Screenshots() map[uint64]string {
	shots := make(map[uint64]string)
	for _, r := range t.Records {
		if r.Screenshot == "" {
			continue
		}
		for _, h := range []*uint64{r.Previous, r.Current} {
			if h != nil {
				if _, ok := shots[*h]; !ok {
					shots[*h] = r.Screenshot
				}
			}
		}
	}
	return shots
}

// Violations counts records carrying a violation.
func (t *Trace) Violations() int {
	n := 0
	for _, r := range t.Records {
		if r.Violation != nil {
			n++
		}
	}
	return n
}
