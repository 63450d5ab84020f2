package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
)

var _ repository.RecipeRepository = (*RecipeStore)(nil)

type RecipeStore struct {
	db *DB
}

func (db *DB) Recipes() *RecipeStore {
	return &RecipeStore{db: db}
}

const recipeColumns = `r.id, r.user_id, r.title, r.time_minutes, r.price_cents, r.link, r.image, r.created_at, r.updated_at`

func scanRecipe(row interface{ Scan(dest ...any) error }) (model.Recipe, error) {
	var (
		r     model.Recipe
		cents int64
	)
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Title,
		&r.TimeMinutes,
		&cents,
		&r.Link,
		&r.Image,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	r.Price = model.Price(cents)
	return r, err
}

// ListByOwner returns the owner's recipes newest first.
//
// Each filter list becomes one EXISTS clause, so a recipe linked to several
// of the requested tags still appears once.
func (s *RecipeStore) ListByOwner(ctx context.Context, ownerID int64, filter repository.RecipeFilter) ([]model.Recipe, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + recipeColumns + ` FROM recipes r WHERE r.user_id = ?`)
	args := []any{ownerID}

	if len(filter.TagIDs) > 0 {
		fmt.Fprintf(&b, ` AND EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.recipe_id = r.id AND rt.tag_id IN (%s))`,
			placeholders(len(filter.TagIDs)))
		args = append(args, int64Args(filter.TagIDs)...)
	}
	if len(filter.IngredientIDs) > 0 {
		fmt.Fprintf(&b, ` AND EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.recipe_id = r.id AND ri.ingredient_id IN (%s))`,
			placeholders(len(filter.IngredientIDs)))
		args = append(args, int64Args(filter.IngredientIDs)...)
	}
	b.WriteString(` ORDER BY r.id DESC`)

	recipes, err := queryRecipes(ctx, s.db.conn, b.String(), args...)
	if err != nil {
		return nil, err
	}
	if err := attachLabels(ctx, s.db.conn, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// queryRecipes reads every row and closes the cursor before returning. The
// single pooled connection is free again once it returns.
func queryRecipes(ctx context.Context, q dbtx, query string, args ...any) ([]model.Recipe, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recipes: %w", err)
	}
	defer rows.Close()

	recipes := make([]model.Recipe, 0)
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning recipe row: %w", err)
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating recipes: %w", err)
	}
	return recipes, nil
}

func (s *RecipeStore) GetByID(ctx context.Context, ownerID, id int64) (*model.Recipe, error) {
	r, err := scanRecipe(s.db.conn.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes r WHERE r.id = ? AND r.user_id = ?`,
		id, ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("recipe", id)
		}
		return nil, fmt.Errorf("sqlite: getting recipe %d: %w", id, err)
	}

	one := []model.Recipe{r}
	if err := attachLabels(ctx, s.db.conn, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// Create fills in ID and timestamps. Tags and Ingredients are linked by id;
// their names are not written.
func (s *RecipeStore) Create(ctx context.Context, recipe *model.Recipe) error {
	now := time.Now().UTC()
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO recipes (user_id, title, time_minutes, price_cents, link, image, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			recipe.UserID,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price.Cents(),
			recipe.Link,
			recipe.Image,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting recipe: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading recipe id: %w", err)
		}

		if err := replaceLinks(ctx, tx, tagTable, id, recipe.TagIDs()); err != nil {
			return err
		}
		if err := replaceLinks(ctx, tx, ingredientTable, id, recipe.IngredientIDs()); err != nil {
			return err
		}

		recipe.ID = id
		recipe.CreatedAt = now
		recipe.UpdatedAt = now
		return nil
	})
}

// Update writes every scalar column except image and replaces both link
// sets with recipe.Tags and recipe.Ingredients.
func (s *RecipeStore) Update(ctx context.Context, recipe *model.Recipe) error {
	now := time.Now().UTC()
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE recipes SET title = ?, time_minutes = ?, price_cents = ?, link = ?, updated_at = ?
			 WHERE id = ? AND user_id = ?`,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price.Cents(),
			recipe.Link,
			now,
			recipe.ID,
			recipe.UserID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating recipe %d: %w", recipe.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFound("recipe", recipe.ID)
		}

		if err := replaceLinks(ctx, tx, tagTable, recipe.ID, recipe.TagIDs()); err != nil {
			return err
		}
		if err := replaceLinks(ctx, tx, ingredientTable, recipe.ID, recipe.IngredientIDs()); err != nil {
			return err
		}

		recipe.UpdatedAt = now
		return nil
	})
}

func (s *RecipeStore) SetImage(ctx context.Context, ownerID, id int64, image string) (string, error) {
	var previous string
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT image FROM recipes WHERE id = ? AND user_id = ?`, id, ownerID,
		).Scan(&previous)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("recipe", id)
			}
			return fmt.Errorf("sqlite: reading image of recipe %d: %w", id, err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE recipes SET image = ?, updated_at = ? WHERE id = ?`,
			image, time.Now().UTC(), id,
		)
		if err != nil {
			return fmt.Errorf("sqlite: setting image of recipe %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

// Delete relies on ON DELETE CASCADE to drop the link rows.
func (s *RecipeStore) Delete(ctx context.Context, ownerID, id int64) (string, error) {
	var image string
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT image FROM recipes WHERE id = ? AND user_id = ?`, id, ownerID,
		).Scan(&image)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("recipe", id)
			}
			return fmt.Errorf("sqlite: reading recipe %d: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting recipe %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return image, nil
}

// replaceLinks makes the link table for recipeID hold exactly ids.
func replaceLinks(ctx context.Context, tx *sql.Tx, t labelTable, recipeID int64, ids []int64) error {
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE recipe_id = ?`, t.link), recipeID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing %s links: %w", t.resource, err)
	}

	insert := fmt.Sprintf(`INSERT OR IGNORE INTO %s (recipe_id, %s) VALUES (?, ?)`, t.link, t.linkColumn)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, insert, recipeID, id); err != nil {
			return fmt.Errorf("sqlite: linking %s %d: %w", t.resource, id, err)
		}
	}
	return nil
}

// attachLabels fills Tags and Ingredients for every recipe with two batched
// queries.
func attachLabels(ctx context.Context, q dbtx, recipes []model.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	ids := make([]int64, len(recipes))
	for i := range recipes {
		ids[i] = recipes[i].ID
	}

	tags, err := loadLinked[model.Tag](ctx, q, tagTable, ids)
	if err != nil {
		return err
	}
	ingredients, err := loadLinked[model.Ingredient](ctx, q, ingredientTable, ids)
	if err != nil {
		return err
	}

	for i := range recipes {
		recipes[i].Tags = nonNil(tags[recipes[i].ID])
		recipes[i].Ingredients = nonNil(ingredients[recipes[i].ID])
	}
	return nil
}

// loadLinked returns the labels linked to each recipe id, ordered by label id.
func loadLinked[T model.Label](ctx context.Context, q dbtx, t labelTable, recipeIDs []int64) (map[int64][]T, error) {
	query := fmt.Sprintf(
		`SELECT j.recipe_id, l.id, l.name, l.user_id
		 FROM %s j JOIN %s l ON l.id = j.%s
		 WHERE j.recipe_id IN (%s)
		 ORDER BY l.id`,
		t.link, t.table, t.linkColumn, placeholders(len(recipeIDs)))

	rows, err := q.QueryContext(ctx, query, int64Args(recipeIDs)...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading %s links: %w", t.resource, err)
	}
	defer rows.Close()

	out := make(map[int64][]T)
	for rows.Next() {
		var (
			recipeID, id, userID int64
			name                 string
		)
		if err := rows.Scan(&recipeID, &id, &name, &userID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s link: %w", t.resource, err)
		}
		out[recipeID] = append(out[recipeID], model.NewLabel[T](id, userID, name))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s links: %w", t.resource, err)
	}
	return out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
