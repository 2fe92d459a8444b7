// AngelaMos | 2026
// postgres.go

package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/angelamos/orderhub/internal/core"
)

// PostgresProvider backs the identity provider with an accounts table.
type PostgresProvider struct {
	db core.DBTX
}

func NewPostgresProvider(db core.DBTX) *PostgresProvider {
	return &PostgresProvider{db: db}
}

func (p *PostgresProvider) Create(
	ctx context.Context,
	email, password string,
) (string, error) {
	passwordHash, err := core.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}

	id := uuid.New().String()
	query := `
		INSERT INTO accounts (id, email, password_hash)
		VALUES ($1, $2, $3)`

	if _, err := p.db.ExecContext(ctx, query, id, NormalizeEmail(email), passwordHash); err != nil {
		if isDuplicateKeyError(err) {
			return "", fmt.Errorf("create account: %w", core.ErrDuplicateKey)
		}
		return "", fmt.Errorf("create account: %w", err)
	}

	return id, nil
}

func (p *PostgresProvider) GetByID(
	ctx context.Context,
	id string,
) (*Account, error) {
	query := `SELECT id, email FROM accounts WHERE id = $1`

	var account Account
	err := p.db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &account, nil
}

func (p *PostgresProvider) LookupByEmail(
	ctx context.Context,
	email string,
) (*Account, error) {
	query := `SELECT id, email FROM accounts WHERE email = $1`

	var account Account
	err := p.db.GetContext(ctx, &account, query, NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup account: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	return &account, nil
}

func (p *PostgresProvider) LookupByEmails(
	ctx context.Context,
	emails []string,
) (*LookupResult, error) {
	result := &LookupResult{Found: make(map[string]string)}

	normalized := make([]string, 0, len(emails))
	for _, email := range emails {
		normalized = append(normalized, NormalizeEmail(email))
	}

	for _, chunk := range chunkStrings(normalized, LookupBatchSize) {
		query, args, err := sqlx.In(
			`SELECT id, email FROM accounts WHERE email IN (?)`, chunk)
		if err != nil {
			return nil, fmt.Errorf("lookup accounts: %w", err)
		}

		var accounts []Account
		err = p.db.SelectContext(ctx, &accounts, sqlx.Rebind(sqlx.DOLLAR, query), args...)
		if err != nil {
			return nil, fmt.Errorf("lookup accounts: %w", err)
		}

		for _, account := range accounts {
			result.Found[account.Email] = account.ID
		}
	}

	for _, email := range normalized {
		if _, ok := result.Found[email]; !ok {
			result.NotFound = append(result.NotFound, email)
		}
	}

	return result, nil
}

func (p *PostgresProvider) DeleteMany(
	ctx context.Context,
	ids []string,
) (*DeleteResult, error) {
	result := &DeleteResult{Failed: make(map[string]error)}

	for _, id := range ids {
		query := `DELETE FROM accounts WHERE id = $1`

		res, err := p.db.ExecContext(ctx, query, id)
		if err != nil {
			result.Failed[id] = err
			continue
		}

		rows, err := res.RowsAffected()
		if err != nil {
			result.Failed[id] = err
			continue
		}
		if rows == 0 {
			result.Failed[id] = core.ErrNotFound
			continue
		}

		result.Deleted = append(result.Deleted, id)
	}

	return result, nil
}

func (p *PostgresProvider) UpdateEmail(
	ctx context.Context,
	id, email string,
) error {
	query := `UPDATE accounts SET email = $2, updated_at = NOW() WHERE id = $1`

	res, err := p.db.ExecContext(ctx, query, id, NormalizeEmail(email))
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("update email: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("update email: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update email: %w", core.ErrNotFound)
	}

	return nil
}

func (p *PostgresProvider) UpdatePassword(
	ctx context.Context,
	id, password string,
) error {
	passwordHash, err := core.HashPassword(password)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	query := `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	res, err := p.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	return nil
}

func (p *PostgresProvider) GetPasswordHash(
	ctx context.Context,
	email string,
) (string, string, error) {
	query := `SELECT id, password_hash FROM accounts WHERE email = $1`

	var row struct {
		ID           string `db:"id"`
		PasswordHash string `db:"password_hash"`
	}
	err := p.db.GetContext(ctx, &row, query, NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("get password hash: %w", core.ErrNotFound)
	}
	if err != nil {
		return "", "", fmt.Errorf("get password hash: %w", err)
	}

	return row.ID, row.PasswordHash, nil
}

func (p *PostgresProvider) List(
	ctx context.Context,
	limit int,
) ([]Account, error) {
	query := `SELECT id, email FROM accounts ORDER BY email LIMIT $1`

	var accounts []Account
	if err := p.db.SelectContext(ctx, &accounts, query, limit); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return accounts, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
