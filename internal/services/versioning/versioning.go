package versioning

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound   = errors.New("entity not found")
	ErrStaleWrite = errors.New("stale write")
	ErrDuplicate  = errors.New("duplicate entity")
)

// Versioned is any row carrying the last-modified instant the persistence
// layer stamps on every write.
type Versioned interface {
	LastUpdated() time.Time
}

// Identified is any row with an immutable primary key.
type Identified interface {
	EntityID() int64
}

// CheckCurrent runs lookup and verifies the row's updated_at still equals the
// instant the caller saw when it last read the row. The comparison is exact,
// never truncated. The check is read-only: the caller performs the actual
// write afterwards, inside the same transaction, and the write statement must
// re-assert updated_at in its predicate.
//
// The lookup reports a missing row as ErrNotFound; a row gone and a row the
// caller may not see are deliberately indistinguishable.
func CheckCurrent[T Versioned](ctx context.Context, claimed time.Time, lookup func(context.Context) (T, error)) (T, error) {
	var zero T

	row, err := lookup(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("lookup current row: %w", err)
	}

	if !row.LastUpdated().Equal(claimed) {
		return zero, fmt.Errorf("claimed %s but row is at %s: %w",
			claimed.UTC().Format(time.RFC3339Nano),
			row.LastUpdated().UTC().Format(time.RFC3339Nano),
			ErrStaleWrite)
	}

	return row, nil
}

// CheckDuplicate runs lookup for a row that would violate a uniqueness rule.
// A hit is ErrDuplicate unless it is the exempted row itself, so updating an
// entity without changing its unique field does not self-conflict.
// exemptID 0 means no exemption.
func CheckDuplicate[T Identified](ctx context.Context, exemptID int64, lookup func(context.Context) (T, bool, error)) error {
	row, found, err := lookup(ctx)
	if err != nil {
		return fmt.Errorf("lookup conflicting row: %w", err)
	}
	if !found {
		return nil
	}
	if exemptID != 0 && row.EntityID() == exemptID {
		return nil
	}
	return ErrDuplicate
}
