// Package normalize repairs stub records so they satisfy the canonical
// schema, and auto-fills missing required fields.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/AbdouB/stubkeeper/internal/models"
)

// ChangeKind groups repairs in reports
type ChangeKind string

const (
	ChangeStatus   ChangeKind = "status_fixed"
	ChangeDate     ChangeKind = "date_fixed"
	ChangeStubID   ChangeKind = "stub_id_added"
	ChangeCategory ChangeKind = "category_fixed"
)

// ChangeKinds lists the repair kinds in the order the rules run
var ChangeKinds = []ChangeKind{ChangeStatus, ChangeDate, ChangeStubID, ChangeCategory}

// Change is one repair applied to a record
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Detail string     `json:"detail"`
}

// CategoryRemap maps legacy categories onto the canonical enum. Anything not
// listed here becomes feature.
var CategoryRemap = map[models.Category]models.Category{
	"idea":          models.CategoryFeature,
	"improvement":   models.CategoryEnhancement,
	"persona":       models.CategoryFeature,
	"test":          models.CategoryInfrastructure,
	"investigation": models.CategoryResearch,
	"config":        models.CategoryInfrastructure,
	"utility":       models.CategoryInfrastructure,
	"system":        models.CategoryInfrastructure,
}

var leadingDate = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

// IDAllocator hands out sequential stub ids. *store.Counter implements it.
type IDAllocator interface {
	Allocate() string
}

// Normalizer applies the repair rules in a fixed order: status, created date,
// stub id, category. Each rule is idempotent.
type Normalizer struct {
	Now func() time.Time
}

// New creates a normalizer using the given clock
func New(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{Now: now}
}

// Normalize returns a repaired copy of s and the changes made. The input is
// never modified. ids is only consulted when the record lacks a stub id.
func (n *Normalizer) Normalize(s *models.Stub, ids IDAllocator) (*models.Stub, []Change) {
	out := s.Clone()
	var changes []Change

	if out.Status == models.StatusLegacyStub {
		out.Status = models.StatusPlanning
		changes = append(changes, Change{ChangeStatus, fmt.Sprintf("Changed '%s' -> '%s'", models.StatusLegacyStub, models.StatusPlanning)})
	}

	if created := out.Created; strings.ContainsAny(created, "TZ") {
		out.Created = n.truncateDate(created)
		changes = append(changes, Change{ChangeDate, fmt.Sprintf("Fixed date: %s -> %s", created, out.Created)})
	}

	if out.StubID == "" && ids != nil {
		out.StubID = ids.Allocate()
		changes = append(changes, Change{ChangeStubID, "Added stub_id: " + out.StubID})
	}

	if cat := out.Category; cat != "" && !cat.IsValid() {
		if mapped, ok := CategoryRemap[cat]; ok {
			out.Category = mapped
			changes = append(changes, Change{ChangeCategory, fmt.Sprintf("Remapped '%s' -> '%s'", cat, mapped)})
		} else {
			out.Category = models.CategoryFeature
			changes = append(changes, Change{ChangeCategory, fmt.Sprintf("Unknown category '%s' -> '%s'", cat, models.CategoryFeature)})
		}
	}

	return out, changes
}

// truncateDate keeps the leading YYYY-MM-DD of a timestamp, or today's date
// when there is none
func (n *Normalizer) truncateDate(value string) string {
	if m := leadingDate.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	return n.Now().Format("2006-01-02")
}
