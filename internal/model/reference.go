package model

import "time"

// WasteTemplate classifies a kind of waste. The disposal engine reads it for
// display and to flag critical-hazard entries.
type WasteTemplate struct {
	ID          string    `json:"id" yaml:"id" db:"id"`
	Name        string    `json:"name" yaml:"name" db:"name"`
	HazardLevel string    `json:"hazard_level" yaml:"hazard_level" db:"hazard_level"`
	Category    string    `json:"category" yaml:"category" db:"category"`
	Color       string    `json:"color" yaml:"color" db:"color"`
	Icon        string    `json:"icon" yaml:"icon" db:"icon"`
	CreatedAt   time.Time `json:"created_at" yaml:"-" db:"created_at"`
}

// WasteItem is a concrete container or batch of waste.
type WasteItem struct {
	ID         string    `json:"id" yaml:"id" db:"id"`
	Name       string    `json:"name" yaml:"name" db:"name"`
	TemplateID *string   `json:"template_id,omitempty" yaml:"template_id" db:"template_id"`
	CreatedAt  time.Time `json:"created_at" yaml:"-" db:"created_at"`
}

// User is a lab member who can be assigned to or complete disposals.
type User struct {
	ID        string    `json:"id" yaml:"id" db:"id"`
	Name      string    `json:"name" yaml:"name" db:"name"`
	Email     string    `json:"email" yaml:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" yaml:"-" db:"created_at"`
}
