package normalize

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdouB/stubkeeper/internal/models"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }

// ignoreLayout skips the decoded document layout, which is not a field value
var ignoreLayout = cmpopts.IgnoreUnexported(models.Stub{})

// seqIDs is an in-memory allocator for tests
type seqIDs struct{ next int }

func (s *seqIDs) Allocate() string {
	id := models.FormatID(s.next)
	s.next++
	return id
}

func TestNormalize_Rules(t *testing.T) {
	tests := []struct {
		name        string
		in          models.Stub
		want        models.Stub
		wantKinds   []ChangeKind
		wantDetails []string
	}{
		{
			name:        "legacy status only",
			in:          models.Stub{StubID: "STUB-001", Status: "stub", Category: "feature", Created: "2025-12-28"},
			want:        models.Stub{StubID: "STUB-001", Status: "planning", Category: "feature", Created: "2025-12-28"},
			wantKinds:   []ChangeKind{ChangeStatus},
			wantDetails: []string{"Changed 'stub' -> 'planning'"},
		},
		{
			name:        "iso timestamp truncated",
			in:          models.Stub{StubID: "STUB-002", Created: "2025-12-28T06:37:00Z"},
			want:        models.Stub{StubID: "STUB-002", Created: "2025-12-28"},
			wantKinds:   []ChangeKind{ChangeDate},
			wantDetails: []string{"Fixed date: 2025-12-28T06:37:00Z -> 2025-12-28"},
		},
		{
			name:      "undatable timestamp falls back to today",
			in:        models.Stub{StubID: "STUB-003", Created: "last Tuesday"},
			want:      models.Stub{StubID: "STUB-003", Created: "2026-10-19"},
			wantKinds: []ChangeKind{ChangeDate},
		},
		{
			name:        "missing id allocated",
			in:          models.Stub{Status: "ready"},
			want:        models.Stub{StubID: "STUB-084", Status: "ready"},
			wantKinds:   []ChangeKind{ChangeStubID},
			wantDetails: []string{"Added stub_id: STUB-084"},
		},
		{
			name:        "mapped category",
			in:          models.Stub{StubID: "STUB-004", Category: "investigation"},
			want:        models.Stub{StubID: "STUB-004", Category: "research"},
			wantKinds:   []ChangeKind{ChangeCategory},
			wantDetails: []string{"Remapped 'investigation' -> 'research'"},
		},
		{
			name:        "unknown category becomes feature",
			in:          models.Stub{StubID: "STUB-005", Category: "moonshot"},
			want:        models.Stub{StubID: "STUB-005", Category: "feature"},
			wantKinds:   []ChangeKind{ChangeCategory},
			wantDetails: []string{"Unknown category 'moonshot' -> 'feature'"},
		},
		{
			name:      "all rules in order",
			in:        models.Stub{Status: "stub", Created: "2026-01-02T10:00:00", Category: "idea"},
			want:      models.Stub{StubID: "STUB-084", Status: "planning", Created: "2026-01-02", Category: "feature"},
			wantKinds: []ChangeKind{ChangeStatus, ChangeDate, ChangeStubID, ChangeCategory},
		},
		{
			name: "compliant record untouched",
			in:   models.Stub{StubID: "STUB-006", Status: "blocked", Created: "2026-01-02", Category: "bugfix", Priority: "HIGH"},
			want: models.Stub{StubID: "STUB-006", Status: "blocked", Created: "2026-01-02", Category: "bugfix", Priority: "HIGH"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(fixedNow)
			in := tt.in
			got, changes := n.Normalize(&in, &seqIDs{next: 84})

			if diff := cmp.Diff(tt.want, *got, ignoreLayout); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.in, in, "input must not be modified")

			var kinds []ChangeKind
			var details []string
			for _, c := range changes {
				kinds = append(kinds, c.Kind)
				details = append(details, c.Detail)
			}
			assert.Equal(t, tt.wantKinds, kinds)
			if tt.wantDetails != nil {
				assert.Equal(t, tt.wantDetails, details)
			}
		})
	}
}

func TestNormalize_StatusRepairChangesNothingElse(t *testing.T) {
	var in models.Stub
	require.NoError(t, json.Unmarshal([]byte(`{
		"stub_id": "STUB-040",
		"feature_name": "noted-sync",
		"description": "sync notes",
		"category": "feature",
		"priority": "low",
		"status": "stub",
		"created": "2025-11-02",
		"links": ["x"]
	}`), &in))

	got, changes := New(fixedNow).Normalize(&in, &seqIDs{next: 84})
	require.Len(t, changes, 1)

	want := in.Clone()
	want.Status = models.StatusPlanning
	if diff := cmp.Diff(want, got, ignoreLayout); diff != "" {
		t.Errorf("unexpected field changes (-want +got):\n%s", diff)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := New(fixedNow)
	ids := &seqIDs{next: 84}
	records := []models.Stub{
		{Status: "stub", Created: "2025-12-28T06:37:00Z", Category: "utility"},
		{StubID: "STUB-010", Created: "Z", Category: "persona"},
		{Category: "refactor"},
		{StubID: "STUB-011", Status: "promoted"},
	}

	var first []*models.Stub
	for i := range records {
		out, _ := n.Normalize(&records[i], ids)
		first = append(first, out)
	}
	allocated := ids.next

	for _, s := range first {
		out, changes := n.Normalize(s, ids)
		assert.Empty(t, changes)
		assert.Equal(t, s, out)
	}
	assert.Equal(t, allocated, ids.next, "second pass allocates nothing")
}

func TestNormalize_UniqueSequentialIDs(t *testing.T) {
	n := New(fixedNow)
	ids := &seqIDs{next: 84}
	seen := map[string]bool{}

	const count = 12
	for i := 0; i < count; i++ {
		out, _ := n.Normalize(&models.Stub{FeatureName: fmt.Sprintf("s%d", i)}, ids)
		assert.False(t, seen[out.StubID], "duplicate id %s", out.StubID)
		seen[out.StubID] = true
	}
	assert.Equal(t, 84+count, ids.next)
}
