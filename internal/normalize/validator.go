package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AbdouB/stubkeeper/internal/models"
)

// stubValidate is shared by every Validator; the custom stubid rule is
// registered once in init.
var stubValidate *validator.Validate

func init() {
	stubValidate = validator.New()
	_ = stubValidate.RegisterValidation("stubid", func(fl validator.FieldLevel) bool {
		return strings.HasPrefix(fl.Field().String(), models.IDPrefix)
	})
}

// requiredFields is the view of a stub the validator checks. Field order is
// the order findings are reported in.
type requiredFields struct {
	FeatureName string `validate:"required"`
	Description string `validate:"required"`
	Category    string `validate:"required,oneof=feature enhancement bugfix infrastructure documentation refactor research"`
	Priority    string `validate:"required,oneof=critical high medium low"`
	Status      string `validate:"required,oneof=planning ready blocked promoted abandoned"`
	Created     string `validate:"required,datetime=2006-01-02"`
	StubID      string `validate:"omitempty,stubid"`
}

// RequiredFieldNames are the JSON fields the validator guarantees exist
var RequiredFieldNames = []string{"stub_id", "feature_name", "description", "category", "priority", "status", "created"}

// Finding is one validator observation. Fixed findings changed the record;
// the rest are warnings.
type Finding struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Fixed   bool   `json:"fixed"`
}

// Validator fills missing required fields with defaults and warns about
// values it does not repair
type Validator struct {
	Now func() time.Time
}

// NewValidator creates a validator using the given clock for created defaults
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{Now: now}
}

// Check returns a copy of s with missing required fields filled in, plus the
// findings. name is the record's directory name.
func (v *Validator) Check(name string, s *models.Stub) (*models.Stub, []Finding) {
	out := s.Clone()
	view := requiredFields{
		FeatureName: out.FeatureName,
		Description: out.Description,
		Category:    string(out.Category),
		Priority:    string(out.Priority.Normalized()),
		Status:      string(out.Status),
		Created:     out.Created,
		StubID:      out.StubID,
	}

	err := stubValidate.Struct(view)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out, nil
	}

	var findings []Finding
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			findings = append(findings, v.fill(out, name, fe.Field()))
			continue
		}
		findings = append(findings, warning(fe))
	}
	return out, findings
}

func (v *Validator) fill(s *models.Stub, name, field string) Finding {
	switch field {
	case "FeatureName":
		s.FeatureName = name
		return Finding{Field: "feature_name", Message: "Added feature_name: " + name, Fixed: true}
	case "Description":
		s.Description = "TODO: Add description for " + name
		return Finding{Field: "description", Message: "Added placeholder description", Fixed: true}
	case "Category":
		s.Category = models.CategoryFeature
		return Finding{Field: "category", Message: "Added category: feature", Fixed: true}
	case "Priority":
		s.Priority = models.PriorityMedium
		return Finding{Field: "priority", Message: "Added priority: medium", Fixed: true}
	case "Status":
		s.Status = models.StatusPlanning
		return Finding{Field: "status", Message: "Added status: planning", Fixed: true}
	case "Created":
		s.Created = v.Now().Format("2006-01-02")
		return Finding{Field: "created", Message: "Added created: " + s.Created, Fixed: true}
	}
	return Finding{Field: field, Message: "missing " + field}
}

func warning(fe validator.FieldError) Finding {
	field := jsonFieldName(fe.Field())
	value := fmt.Sprint(fe.Value())
	switch fe.Tag() {
	case "stubid":
		return Finding{Field: field, Message: "[WARNING] Invalid stub_id format: " + value}
	case "oneof":
		return Finding{Field: field, Message: fmt.Sprintf("[WARNING] Invalid %s: %s", field, value)}
	case "datetime":
		return Finding{Field: field, Message: "[WARNING] created is not YYYY-MM-DD: " + value}
	}
	return Finding{Field: field, Message: fmt.Sprintf("[WARNING] %s failed %s", field, fe.Tag())}
}

func jsonFieldName(structField string) string {
	switch structField {
	case "FeatureName":
		return "feature_name"
	case "StubID":
		return "stub_id"
	}
	return strings.ToLower(structField)
}

// HasFixes reports whether any finding changed the record
func HasFixes(findings []Finding) bool {
	for _, f := range findings {
		if f.Fixed {
			return true
		}
	}
	return false
}

// SchemaDocument is the subset of the canonical schema file the validator
// reads
type SchemaDocument struct {
	Required []string `json:"required"`
}

// LoadSchema reads the canonical schema document
func LoadSchema(path string) (*SchemaDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc SchemaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return &doc, nil
}

// UnhandledRequired returns required fields named by the schema that the
// validator does not know how to guarantee
func (d *SchemaDocument) UnhandledRequired() []string {
	known := make(map[string]bool, len(RequiredFieldNames))
	for _, f := range RequiredFieldNames {
		known[f] = true
	}
	var out []string
	for _, f := range d.Required {
		if !known[f] {
			out = append(out, f)
		}
	}
	return out
}
