// Package tenant defines the tenant domain model for multi-tenancy.
//
// A tenant is the isolation boundary: it owns a userData sub-collection of
// user records and a config document that declares the per-tenant record
// schema and the shared default credential used for bulk password resets.
package tenant

import (
	"fmt"
	"time"

	"github.com/rosterhub/rosterhub/internal/domain"
)

// Tenant represents an isolated tenant in the system.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// FieldType is the value type of a schema-declared record field.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldBool   FieldType = "bool"
)

// FieldSpec declares one field of the tenant's user record schema.
type FieldSpec struct {
	Key      string    `json:"key"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required,omitempty"`
}

// Config is the per-tenant configuration document.
// UserFields is the ordered schema descriptor interpreted generically by the
// store layer; Settings carries free-form tenant settings.
type Config struct {
	Name       string            `json:"name,omitempty"`
	UserFields []FieldSpec       `json:"userFields,omitempty"`
	Settings   map[string]string `json:"settings,omitempty"`
}

// ValidateRecord checks a user record payload against the schema descriptor.
// Unknown keys are rejected; required fields must be present; values must
// match the declared type.
func (c *Config) ValidateRecord(fields map[string]any) error {
	known := make(map[string]FieldSpec, len(c.UserFields))
	for _, f := range c.UserFields {
		known[f.Key] = f
	}
	for key, val := range fields {
		spec, ok := known[key]
		if !ok {
			return fmt.Errorf("%w: unknown field %q", domain.ErrInvalidArgument, key)
		}
		if !spec.Type.matches(val) {
			return fmt.Errorf("%w: field %q must be %s", domain.ErrInvalidArgument, key, spec.Type)
		}
	}
	for _, f := range c.UserFields {
		if f.Required {
			if _, ok := fields[f.Key]; !ok {
				return fmt.Errorf("%w: field %q is required", domain.ErrInvalidArgument, f.Key)
			}
		}
	}
	return nil
}

func (t FieldType) matches(val any) bool {
	switch t {
	case FieldString:
		_, ok := val.(string)
		return ok
	case FieldNumber:
		// JSON numbers decode to float64.
		switch val.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case FieldBool:
		_, ok := val.(bool)
		return ok
	}
	return false
}

// DefaultCredential is the shared default-user credential document stored at
// tenants/<id>/appData/defaultUser. Its password is the value bulk resets
// apply and return to the caller.
type DefaultCredential struct {
	Password string `json:"password"`
}
