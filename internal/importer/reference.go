package importer

import (
	"context"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/nhle/disposal-planner/internal/model"
)

// Reference is the reference data a schedule joins against.
type Reference struct {
	Templates  []model.WasteTemplate `yaml:"templates"`
	WasteItems []model.WasteItem     `yaml:"waste_items"`
	Users      []model.User          `yaml:"users"`
}

// ReferenceWriter persists reference rows. store.Store satisfies it.
type ReferenceWriter interface {
	CreateWasteTemplate(ctx context.Context, t model.WasteTemplate) error
	CreateWasteItem(ctx context.Context, item model.WasteItem) error
	CreateUser(ctx context.Context, u model.User) error
}

// LoadReference reads reference data from a YAML file.
func LoadReference(path string) (*Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference file: %w", err)
	}

	var ref Reference
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("parsing reference file: %w", err)
	}
	return &ref, nil
}

// Apply upserts templates, then waste items, then users, stopping at the
// first failure.
func (r *Reference) Apply(ctx context.Context, w ReferenceWriter) error {
	for _, t := range r.Templates {
		if t.ID == "" {
			return fmt.Errorf("template %q has no id", t.Name)
		}
		if err := w.CreateWasteTemplate(ctx, t); err != nil {
			return err
		}
	}
	for _, item := range r.WasteItems {
		if item.ID == "" {
			return fmt.Errorf("waste item %q has no id", item.Name)
		}
		if err := w.CreateWasteItem(ctx, item); err != nil {
			return err
		}
	}
	for _, u := range r.Users {
		if u.ID == "" {
			return fmt.Errorf("user %q has no id", u.Name)
		}
		if err := w.CreateUser(ctx, u); err != nil {
			return err
		}
	}
	return nil
}
