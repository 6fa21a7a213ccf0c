package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/skillsphere/progression-engine/internal/domain/enrollment"
	"github.com/skillsphere/progression-engine/internal/domain/profile"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK IMPLEMENTATION
// Node completion writes a progress row, an enrollment, and a profile in
// one atomic step. The unit of work binds all three repositories to one
// pgx transaction so they commit or roll back together.
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWorkFactory implements enrollment.UnitOfWorkFactory for PostgreSQL.
type UnitOfWorkFactory struct {
	conn *Connection
}

// NewUnitOfWorkFactory creates a new factory.
func NewUnitOfWorkFactory(conn *Connection) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{conn: conn}
}

// Begin starts a new transaction.
func (f *UnitOfWorkFactory) Begin(ctx context.Context) (enrollment.UnitOfWork, error) {
	tx, err := f.conn.BeginTx(ctx, DefaultTxOptions())
	if err != nil {
		return nil, err
	}

	return &unitOfWork{
		tx:          tx,
		enrollments: newEnrollmentRepositoryTx(tx),
		progress:    newProgressRepositoryTx(tx),
		profiles:    newProfileRepositoryTx(tx),
	}, nil
}

// unitOfWork scopes the repositories to one transaction.
type unitOfWork struct {
	tx          pgx.Tx
	enrollments *EnrollmentRepository
	progress    *ProgressRepository
	profiles    *ProfileRepository
	done        bool
}

// Enrollments returns the enrollment repository bound to the transaction.
func (u *unitOfWork) Enrollments() enrollment.Repository {
	return u.enrollments
}

// Progress returns the progress repository bound to the transaction.
func (u *unitOfWork) Progress() enrollment.ProgressRepository {
	return u.progress
}

// Profiles returns the profile repository bound to the transaction.
func (u *unitOfWork) Profiles() profile.Repository {
	return u.profiles
}

// Commit commits the transaction.
func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return fmt.Errorf("%w: transaction already finished", ErrTransactionFailed)
	}
	u.done = true

	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	return nil
}

// Rollback aborts the transaction. Safe to call after Commit.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true

	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	return nil
}
