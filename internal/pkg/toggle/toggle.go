// Package toggle flips the presence of a unique pair row, such as a like or a
// follow edge.
package toggle

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Pair deletes the row matching where if one exists and otherwise inserts
// fresh. It reports whether the row is present afterwards.
//
// A concurrent toggle can insert the same pair between the lookup and the
// insert. The unique index rejects the loser, which then runs once more
// against the committed row.
func Pair[T any](ctx context.Context, db *gorm.DB, fresh *T, where string, args ...any) (bool, error) {
	added, err := flip(ctx, db, fresh, where, args...)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		added, err = flip(ctx, db, fresh, where, args...)
	}
	if err != nil {
		return false, err
	}
	return added, nil
}

func flip[T any](ctx context.Context, db *gorm.DB, fresh *T, where string, args ...any) (bool, error) {
	added := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing T
		err := tx.Where(where, args...).First(&existing).Error
		switch {
		case err == nil:
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			added = true
			return tx.Create(fresh).Error
		default:
			return err
		}
	})
	return added, err
}
