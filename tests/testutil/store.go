package testutil

import (
	"context"
	"testing"

	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/store"
)

// Reference IDs inserted by Seed.
const (
	TemplateSolvent = "tpl-solvent"
	TemplateSharps  = "tpl-sharps"
	ItemAcetone     = "item-acetone"
	ItemNeedles     = "item-needles"
	UserAlice       = "user-alice"
	UserBob         = "user-bob"
)

// NewTestStore creates an in-memory SQLStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Seed inserts a small fixed set of templates, waste items and users.
// ItemAcetone is a critical-hazard solvent; ItemNeedles is low-hazard sharps.
func Seed(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	solvent, sharps := TemplateSolvent, TemplateSharps
	templates := []model.WasteTemplate{
		{ID: TemplateSolvent, Name: "Halogenated solvent", HazardLevel: model.HazardCritical, Category: "chemical", Color: "#d33", Icon: "flask"},
		{ID: TemplateSharps, Name: "Sharps", HazardLevel: "low", Category: "biological", Color: "#39c", Icon: "needle"},
	}
	for _, tpl := range templates {
		if err := s.CreateWasteTemplate(ctx, tpl); err != nil {
			t.Fatalf("seeding template: %v", err)
		}
	}

	items := []model.WasteItem{
		{ID: ItemAcetone, Name: "Acetone waste drum", TemplateID: &solvent},
		{ID: ItemNeedles, Name: "Needle container", TemplateID: &sharps},
	}
	for _, item := range items {
		if err := s.CreateWasteItem(ctx, item); err != nil {
			t.Fatalf("seeding waste item: %v", err)
		}
	}

	users := []model.User{
		{ID: UserAlice, Name: "Alice", Email: "alice@lab.example"},
		{ID: UserBob, Name: "Bob", Email: "bob@lab.example"},
	}
	for _, u := range users {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("seeding user: %v", err)
		}
	}
}
