package model

// Tag and Ingredient share one shape: a name owned by exactly one user.
// Names are not unique; a user may hold several tags called "Vegan".
//
// They are kept as distinct types so a tag id can never be passed where an
// ingredient id is expected without the compiler noticing.
type Tag struct {
	ID     int64  `json:"id"   db:"id"`
	Name   string `json:"name" db:"name"`
	UserID int64  `json:"-"    db:"user_id"`
}

type Ingredient struct {
	ID     int64  `json:"id"   db:"id"`
	Name   string `json:"name" db:"name"`
	UserID int64  `json:"-"    db:"user_id"`
}

// Label is the constraint satisfied by every user-owned name collection.
// Generic stores and services are written against it once.
type Label interface {
	Tag | Ingredient
}

// NewLabel builds a T from its columns. A type switch on the zero value is
// the only way to construct a union-constrained type parameter.
func NewLabel[T Label](id, userID int64, name string) T {
	var out T
	switch p := any(&out).(type) {
	case *Tag:
		*p = Tag{ID: id, Name: name, UserID: userID}
	case *Ingredient:
		*p = Ingredient{ID: id, Name: name, UserID: userID}
	}
	return out
}

// LabelID returns the id of any label.
func LabelID[T Label](l T) int64 {
	switch v := any(l).(type) {
	case Tag:
		return v.ID
	case Ingredient:
		return v.ID
	}
	return 0
}
