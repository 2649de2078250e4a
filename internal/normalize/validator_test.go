package normalize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdouB/stubkeeper/internal/models"
)

func messages(findings []Finding) []string {
	var out []string
	for _, f := range findings {
		out = append(out, f.Message)
	}
	return out
}

func TestValidator_FillsMissingFields(t *testing.T) {
	v := NewValidator(fixedNow)
	in := &models.Stub{StubID: "STUB-050"}

	got, findings := v.Check("mcp-usage-tracker", in)

	assert.Equal(t, "mcp-usage-tracker", got.FeatureName)
	assert.Equal(t, "TODO: Add description for mcp-usage-tracker", got.Description)
	assert.Equal(t, models.CategoryFeature, got.Category)
	assert.Equal(t, models.PriorityMedium, got.Priority)
	assert.Equal(t, models.StatusPlanning, got.Status)
	assert.Equal(t, "2026-10-19", got.Created)

	assert.Equal(t, []string{
		"Added feature_name: mcp-usage-tracker",
		"Added placeholder description",
		"Added category: feature",
		"Added priority: medium",
		"Added status: planning",
		"Added created: 2026-10-19",
	}, messages(findings))
	assert.True(t, HasFixes(findings))
	assert.Empty(t, in.FeatureName, "input must not be modified")
}

func TestValidator_CompliantRecord(t *testing.T) {
	v := NewValidator(fixedNow)
	in := &models.Stub{
		StubID:      "STUB-051",
		FeatureName: "noted",
		Description: "markdown notes",
		Category:    "documentation",
		Priority:    "Low",
		Status:      "ready",
		Created:     "2026-01-02",
	}

	got, findings := v.Check("noted", in)
	assert.Empty(t, findings)
	assert.Equal(t, in, got)
}

func TestValidator_WarningsDoNotFix(t *testing.T) {
	v := NewValidator(fixedNow)
	in := &models.Stub{
		StubID:      "WO-17",
		FeatureName: "legacy",
		Description: "d",
		Category:    "idea",
		Priority:    "urgent",
		Status:      "stub",
		Created:     "2026-01-02T00:00:00Z",
	}

	got, findings := v.Check("legacy", in)

	assert.Equal(t, in, got)
	assert.False(t, HasFixes(findings))
	assert.Equal(t, []string{
		"[WARNING] Invalid category: idea",
		"[WARNING] Invalid priority: urgent",
		"[WARNING] Invalid status: stub",
		"[WARNING] created is not YYYY-MM-DD: 2026-01-02T00:00:00Z",
		"[WARNING] Invalid stub_id format: WO-17",
	}, messages(findings))
}

func TestSchemaDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stub-schema.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"required":["stub_id","feature_name","owner"]}`), 0644))

	doc, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner"}, doc.UnhandledRequired())

	_, err = LoadSchema(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
