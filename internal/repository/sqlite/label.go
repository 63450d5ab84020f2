package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
)

var (
	_ repository.LabelRepository[model.Tag]        = (*LabelStore[model.Tag])(nil)
	_ repository.LabelRepository[model.Ingredient] = (*LabelStore[model.Ingredient])(nil)
)

// labelTable names the tables behind one label kind. The values are fixed
// below and never come from input, so they are interpolated into SQL.
type labelTable struct {
	resource   string // for error messages
	table      string // tags
	link       string // recipe_tags
	linkColumn string // tag_id
}

var (
	tagTable = labelTable{
		resource:   "tag",
		table:      "tags",
		link:       "recipe_tags",
		linkColumn: "tag_id",
	}
	ingredientTable = labelTable{
		resource:   "ingredient",
		table:      "ingredients",
		link:       "recipe_ingredients",
		linkColumn: "ingredient_id",
	}
)

// LabelStore is the shared store for tags and ingredients.
type LabelStore[T model.Label] struct {
	db *DB
	t  labelTable
}

func (db *DB) Tags() *LabelStore[model.Tag] {
	return &LabelStore[model.Tag]{db: db, t: tagTable}
}

func (db *DB) Ingredients() *LabelStore[model.Ingredient] {
	return &LabelStore[model.Ingredient]{db: db, t: ingredientTable}
}

// ListByOwner returns the owner's labels ordered by name descending, ties
// broken by id descending. With AssignedOnly each label appears once no
// matter how many recipes reference it.
func (s *LabelStore[T]) ListByOwner(ctx context.Context, ownerID int64, opts repository.LabelListOptions) ([]T, error) {
	var b strings.Builder
	fmt.Fprintf(&b, `SELECT l.id, l.name, l.user_id FROM %s l WHERE l.user_id = ?`, s.t.table)
	if opts.AssignedOnly {
		fmt.Fprintf(&b, ` AND EXISTS (SELECT 1 FROM %s j WHERE j.%s = l.id)`, s.t.link, s.t.linkColumn)
	}
	b.WriteString(` ORDER BY l.name DESC, l.id DESC`)

	rows, err := s.db.conn.QueryContext(ctx, b.String(), ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s: %w", s.t.table, err)
	}
	defer rows.Close()

	labels := make([]T, 0)
	for rows.Next() {
		var (
			id, userID int64
			name       string
		)
		if err := rows.Scan(&id, &name, &userID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s row: %w", s.t.resource, err)
		}
		labels = append(labels, model.NewLabel[T](id, userID, name))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s: %w", s.t.table, err)
	}
	return labels, nil
}

func (s *LabelStore[T]) Create(ctx context.Context, ownerID int64, name string) (*T, error) {
	res, err := s.db.conn.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (name, user_id) VALUES (?, ?)`, s.t.table),
		name, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: inserting %s: %w", s.t.resource, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading %s id: %w", s.t.resource, err)
	}
	label := model.NewLabel[T](id, ownerID, name)
	return &label, nil
}

// OwnedIDs filters ids down to those that exist and belong to ownerID.
// Duplicates in the input collapse. Order of the result is ascending.
func (s *LabelStore[T]) OwnedIDs(ctx context.Context, ownerID int64, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id FROM %s WHERE user_id = ? AND id IN (%s) ORDER BY id`,
		s.t.table, placeholders(len(ids)))
	args := append([]any{ownerID}, int64Args(ids)...)

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking %s ownership: %w", s.t.resource, err)
	}
	defer rows.Close()

	var owned []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s id: %w", s.t.resource, err)
		}
		owned = append(owned, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s ids: %w", s.t.resource, err)
	}
	return owned, nil
}
