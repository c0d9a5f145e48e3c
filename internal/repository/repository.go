// Пакет repository — SQL-доступ к PostgreSQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound — строки с таким ключом нет.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — нарушено ограничение уникальности.
	ErrConflict = errors.New("запись уже существует")
	// ErrConstraint — значение отклонено CHECK-ограничением схемы.
	ErrConstraint = errors.New("значение нарушает ограничение схемы")
)

// DBTX — общий интерфейс *pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// classify переводит ошибку pgx в ошибку слоя; op — описание операции
// для прочих ошибок.
func classify(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w (%s)", ErrConflict, pgErr.ConstraintName)
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
			return fmt.Errorf("%w (%s)", ErrConstraint, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
