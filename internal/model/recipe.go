package model

import "time"

// Recipe belongs to one user and references any number of that user's tags
// and ingredients.
//
// Image is the storage key of the attached picture ("" when none). The
// public URL is derived from the key by the image store.
type Recipe struct {
	ID          int64        `db:"id"`
	UserID      int64        `db:"user_id"`
	Title       string       `db:"title"`
	TimeMinutes int          `db:"time_minutes"`
	Price       Price        `db:"price_cents"`
	Link        string       `db:"link"`
	Image       string       `db:"image"`
	Tags        []Tag        `db:"-"`
	Ingredients []Ingredient `db:"-"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

// TagIDs returns the ids of r.Tags in order.
func (r *Recipe) TagIDs() []int64 {
	ids := make([]int64, 0, len(r.Tags))
	for _, t := range r.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// IngredientIDs returns the ids of r.Ingredients in order.
func (r *Recipe) IngredientIDs() []int64 {
	ids := make([]int64, 0, len(r.Ingredients))
	for _, i := range r.Ingredients {
		ids = append(ids, i.ID)
	}
	return ids
}
