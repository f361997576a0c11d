// Package inspection builds the property handover checklist: per-tenant item templates
// by environment type, copied into each environment when it is created.
package inspection

import (
	"context"
	"strings"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/entity"
	"arriendos/internal/core/id"
)

// EnvironmentType is the kind of room being inspected.
type EnvironmentType string

const (
	EnvBedroom  EnvironmentType = "ALCOBA"
	EnvBathroom EnvironmentType = "BANO"
	EnvKitchen  EnvironmentType = "COCINA"
	EnvLiving   EnvironmentType = "SALA"
	EnvDining   EnvironmentType = "COMEDOR"
	EnvLaundry  EnvironmentType = "ZONA_ROPA"
	EnvBalcony  EnvironmentType = "BALCON"
	EnvOther    EnvironmentType = "OTRO"
)

// EnvironmentTypes lists every known type.
var EnvironmentTypes = []EnvironmentType{
	EnvBedroom, EnvBathroom, EnvKitchen, EnvLiving, EnvDining, EnvLaundry, EnvBalcony, EnvOther,
}

// Valid reports whether t is a known type.
func (t EnvironmentType) Valid() bool {
	for _, known := range EnvironmentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Condition grades an item at handover.
type Condition string

const (
	ConditionGood Condition = "B"
	ConditionFair Condition = "R"
	ConditionPoor Condition = "M"
)

// Valid reports whether c is a known grade.
func (c Condition) Valid() bool {
	return c == ConditionGood || c == ConditionFair || c == ConditionPoor
}

// Template is a catalog entry: an item every environment of its type starts with.
type Template struct {
	entity.BaseEntity

	EnvironmentType EnvironmentType `db:"environment_type" json:"environmentType"`
	Name            string          `db:"name" json:"name"`
}

// Validate implements entity.Validatable.
func (t *Template) Validate(ctx context.Context) error {
	if !t.EnvironmentType.Valid() {
		return apperror.NewValidation("unknown environment type").WithDetail("environment_type", t.EnvironmentType)
	}
	if strings.TrimSpace(t.Name) == "" {
		return apperror.NewValidation("item name is required")
	}
	return nil
}

// Environment is one room of a handover inspection.
type Environment struct {
	entity.BaseEntity

	InspectionID id.ID           `db:"inspection_id" json:"inspectionId"`
	Type         EnvironmentType `db:"environment_type" json:"type"`
	Number       *int            `db:"number" json:"number,omitempty"`
	CustomName   string          `db:"custom_name" json:"customName,omitempty"`
}

// Validate implements entity.Validatable.
func (e *Environment) Validate(ctx context.Context) error {
	if id.IsNil(e.InspectionID) {
		return apperror.NewValidation("inspection is required")
	}
	if !e.Type.Valid() {
		return apperror.NewValidation("unknown environment type").WithDetail("environment_type", e.Type)
	}
	if e.Number != nil && *e.Number < 1 {
		return apperror.NewValidation("environment number must be positive")
	}
	return nil
}

// Item is an inspected element of an environment. Items are copies: editing one never
// touches the catalog.
type Item struct {
	entity.BaseEntity

	EnvironmentID id.ID     `db:"environment_id" json:"environmentId"`
	Name          string    `db:"name" json:"name"`
	Condition     Condition `db:"condition" json:"condition"`
	Quantity      *int      `db:"quantity" json:"quantity,omitempty"`
	Material      string    `db:"material" json:"material,omitempty"`
	Notes         string    `db:"notes" json:"notes,omitempty"`
	Custom        bool      `db:"custom" json:"custom"`
}

// Validate implements entity.Validatable.
func (i *Item) Validate(ctx context.Context) error {
	if strings.TrimSpace(i.Name) == "" {
		return apperror.NewValidation("item name is required")
	}
	if !i.Condition.Valid() {
		return apperror.NewValidation("unknown item condition").WithDetail("condition", i.Condition)
	}
	if i.Quantity != nil && *i.Quantity < 0 {
		return apperror.NewValidation("quantity cannot be negative")
	}
	return nil
}

// ItemUpdate carries the editable fields of an item. Nil fields are left unchanged.
type ItemUpdate struct {
	Condition *Condition
	Quantity  *int
	Material  *string
	Notes     *string
}

func (u ItemUpdate) apply(item *Item) {
	if u.Condition != nil {
		item.Condition = *u.Condition
	}
	if u.Quantity != nil {
		q := *u.Quantity
		item.Quantity = &q
	}
	if u.Material != nil {
		item.Material = *u.Material
	}
	if u.Notes != nil {
		item.Notes = *u.Notes
	}
}
