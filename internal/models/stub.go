package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// StubStatus represents the lifecycle state of a stub
type StubStatus string

const (
	StatusPlanning  StubStatus = "planning"
	StatusReady     StubStatus = "ready"
	StatusBlocked   StubStatus = "blocked"
	StatusPromoted  StubStatus = "promoted"
	StatusAbandoned StubStatus = "abandoned"

	// StatusLegacyStub is the pre-schema value migrated to planning
	StatusLegacyStub StubStatus = "stub"
)

// Category classifies the kind of work a stub describes
type Category string

const (
	CategoryFeature        Category = "feature"
	CategoryEnhancement    Category = "enhancement"
	CategoryBugfix         Category = "bugfix"
	CategoryInfrastructure Category = "infrastructure"
	CategoryDocumentation  Category = "documentation"
	CategoryRefactor       Category = "refactor"
	CategoryResearch       Category = "research"
)

// ValidCategories lists the canonical category enum
var ValidCategories = []Category{
	CategoryFeature,
	CategoryEnhancement,
	CategoryBugfix,
	CategoryInfrastructure,
	CategoryDocumentation,
	CategoryRefactor,
	CategoryResearch,
}

// IsValid reports whether c is one of the canonical categories
func (c Category) IsValid() bool {
	for _, v := range ValidCategories {
		if c == v {
			return true
		}
	}
	return false
}

// Priority is the urgency of a stub. Comparison is case-insensitive.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank returns the numeric urgency (critical=0 ... low=3). Unknown or empty
// priorities rank as low.
func (p Priority) Rank() int {
	switch Priority(strings.ToLower(string(p))) {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Normalized returns the lower-cased priority
func (p Priority) Normalized() Priority {
	return Priority(strings.ToLower(string(p)))
}

// IDPrefix is the prefix every allocated stub id carries
const IDPrefix = "STUB-"

// FormatID renders a sequence number as STUB-NNN
func FormatID(n int) string {
	return fmt.Sprintf("%s%03d", IDPrefix, n)
}

// Stub is one backlog work item, stored as a single JSON document in its own
// directory. Fields the schema does not know about are kept in Extra. A stub
// decoded from a document is written back in that document's key order, and
// known keys that were present stay present even when empty.
type Stub struct {
	StubID        string          `json:"stub_id,omitempty"`
	FeatureName   string          `json:"feature_name,omitempty"`
	Description   string          `json:"description,omitempty"`
	Category      Category        `json:"category,omitempty"`
	Priority      Priority        `json:"priority,omitempty"`
	Status        StubStatus      `json:"status,omitempty"`
	Created       string          `json:"created,omitempty"`
	TargetProject string          `json:"target_project,omitempty"`
	Context       json.RawMessage `json:"context,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`

	layout *docLayout
}

// docLayout is the shape of the document a stub was decoded from. It is
// never modified after decoding.
type docLayout struct {
	order []string
	known map[string]json.RawMessage
}

// stubFields is Stub without its methods, used to avoid marshal recursion
type stubFields Stub

var knownStubKeys = []string{
	"stub_id", "feature_name", "description", "category", "priority",
	"status", "created", "target_project", "context",
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra
func (s *Stub) UnmarshalJSON(data []byte) error {
	var fields stubFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	order, err := objectKeys(data)
	if err != nil {
		return err
	}

	layout := &docLayout{order: order, known: map[string]json.RawMessage{}}
	for _, k := range knownStubKeys {
		if v, ok := all[k]; ok {
			layout.known[k] = v
			delete(all, k)
		}
	}
	if len(all) > 0 {
		fields.Extra = all
	} else {
		fields.Extra = nil
	}
	fields.layout = layout

	*s = Stub(fields)
	return nil
}

// objectKeys returns the top-level keys of a JSON object in document order
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("stub document is not a JSON object")
	}

	var keys []string
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

type member struct {
	key   string
	value json.RawMessage
}

// MarshalJSON writes the keys of the source document in their original
// order. Known values that did not change are written byte for byte; known
// keys that were present are kept even when now empty. New known fields
// follow in schema order, then new Extra keys in lexical order.
func (s Stub) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(stubFields(s))
	if err != nil {
		return nil, err
	}
	var current map[string]json.RawMessage
	if err := json.Unmarshal(base, &current); err != nil {
		return nil, err
	}

	var members []member
	written := map[string]bool{}
	if s.layout != nil {
		for _, k := range s.layout.order {
			if orig, ok := s.layout.known[k]; ok {
				members = append(members, member{k, knownValue(k, orig, current[k])})
				written[k] = true
				continue
			}
			if v, ok := s.Extra[k]; ok {
				members = append(members, member{k, v})
				written[k] = true
			}
		}
	}

	for _, k := range knownStubKeys {
		if v, ok := current[k]; ok && !written[k] {
			members = append(members, member{k, v})
		}
	}

	var extra []string
	for k := range s.Extra {
		if !written[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		members = append(members, member{k, s.Extra[k]})
	}

	return encodeObject(members)
}

// knownValue picks what to write for a known key that was in the source
// document: the original bytes when the value is unchanged, otherwise the
// current value, or an explicit empty value when the field was cleared.
func knownValue(key string, orig, cur json.RawMessage) json.RawMessage {
	var before, after any
	_ = json.Unmarshal(orig, &before)
	if cur == nil {
		if before == nil || before == "" {
			return orig
		}
		if key == "context" {
			return json.RawMessage("null")
		}
		return json.RawMessage(`""`)
	}
	if err := json.Unmarshal(cur, &after); err == nil && reflect.DeepEqual(before, after) {
		return orig
	}
	return cur
}

func encodeObject(members []member) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(m.value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Clone returns a deep copy of the stub. The decoded layout is shared; it is
// read-only.
func (s *Stub) Clone() *Stub {
	c := *s
	if s.Context != nil {
		c.Context = append(json.RawMessage(nil), s.Context...)
	}
	if s.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// ContextStatus returns context.status when context is an object carrying a
// string status, and "" otherwise
func (s *Stub) ContextStatus() string {
	if len(s.Context) == 0 {
		return ""
	}
	var ctx struct {
		Status any `json:"status"`
	}
	if err := json.Unmarshal(s.Context, &ctx); err != nil {
		return ""
	}
	status, _ := ctx.Status.(string)
	return status
}

// HasTarget reports whether a target project has already been set
func (s *Stub) HasTarget() bool {
	return s.TargetProject != ""
}

// Entry pairs a loaded stub with its directory name, which is the stable key
// for archival and inference
type Entry struct {
	Name string
	Path string
	Stub *Stub
}

// DisplayName returns feature_name, falling back to the directory name
func (e *Entry) DisplayName() string {
	if e.Stub != nil && e.Stub.FeatureName != "" {
		return e.Stub.FeatureName
	}
	return e.Name
}

// IDOr returns the stub id or fallback when none is set
func (e *Entry) IDOr(fallback string) string {
	if e.Stub != nil && e.Stub.StubID != "" {
		return e.Stub.StubID
	}
	return fallback
}
