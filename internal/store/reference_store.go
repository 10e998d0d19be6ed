package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/disposal-planner/internal/model"
)

// CreateWasteTemplate inserts a waste template, replacing the mutable fields
// of an existing row with the same ID.
func (s *SQLStore) CreateWasteTemplate(ctx context.Context, t model.WasteTemplate) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO waste_templates (id, name, hazard_level, category, color, icon, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			hazard_level = excluded.hazard_level,
			category = excluded.category,
			color = excluded.color,
			icon = excluded.icon`),
		t.ID, t.Name, t.HazardLevel, t.Category, t.Color, t.Icon, t.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating waste template %s: %w", t.ID, err)
	}
	return nil
}

// CreateWasteItem inserts a waste item, replacing the name and template of an
// existing row with the same ID.
func (s *SQLStore) CreateWasteItem(ctx context.Context, item model.WasteItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO waste_items (id, name, template_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			template_id = excluded.template_id`),
		item.ID, item.Name, nullString(item.TemplateID), item.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating waste item %s: %w", item.ID, err)
	}
	return nil
}

// CreateUser inserts a user, replacing the name and email of an existing row
// with the same ID.
func (s *SQLStore) CreateUser(ctx context.Context, u model.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (id, name, email, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email`),
		u.ID, u.Name, u.Email, u.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating user %s: %w", u.ID, err)
	}
	return nil
}

// GetWasteItem retrieves a waste item by ID.
func (s *SQLStore) GetWasteItem(ctx context.Context, id string) (*model.WasteItem, error) {
	var item model.WasteItem
	err := s.db.GetContext(ctx, &item, s.q(
		"SELECT id, name, template_id, created_at FROM waste_items WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("waste item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting waste item %s: %w", id, err)
	}
	return &item, nil
}

// GetUser retrieves a user by ID.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, s.q(
		"SELECT id, name, email, created_at FROM users WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by name.
func (s *SQLStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.SelectContext(ctx, &users,
		"SELECT id, name, email, created_at FROM users ORDER BY name"); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// ListWasteItems returns all waste items ordered by name.
func (s *SQLStore) ListWasteItems(ctx context.Context) ([]model.WasteItem, error) {
	var items []model.WasteItem
	if err := s.db.SelectContext(ctx, &items,
		"SELECT id, name, template_id, created_at FROM waste_items ORDER BY name"); err != nil {
		return nil, fmt.Errorf("listing waste items: %w", err)
	}
	return items, nil
}
