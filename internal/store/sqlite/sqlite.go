// Package sqlite is the SQLite store backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

const dateLayout = "2006-01-02"

type Repository struct {
	db *sql.DB
}

var _ store.Store = (*Repository)(nil)

func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Workspace(ctx context.Context, id string) (core.Workspace, error) {
	var ws core.Workspace
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, currency FROM workspaces WHERE id = ?`, id,
	).Scan(&ws.ID, &ws.Name, &ws.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Workspace{}, fmt.Errorf("workspace %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Workspace{}, fmt.Errorf("get workspace: %w", err)
	}
	return ws, nil
}

func (r *Repository) Workspaces(ctx context.Context) ([]core.Workspace, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, currency FROM workspaces ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []core.Workspace
	for rows.Next() {
		var ws core.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Currency); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

func (r *Repository) ActiveDefinitions(ctx context.Context, workspaceID string) ([]core.RecurringDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workspace_id, category_id, amount, currency, frequency,
		       start_date, end_date, next_due_date, last_processed_date,
		       version, active, note
		FROM recurring_definitions
		WHERE workspace_id = ? AND active = 1
		ORDER BY id`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list active definitions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

func scanDefinition(rows *sql.Rows) (core.RecurringDefinition, error) {
	var (
		def                 core.RecurringDefinition
		amount              string
		startDate, nextDue  string
		endDate, lastProc   sql.NullString
		active              int64
	)
	err := rows.Scan(&def.ID, &def.WorkspaceID, &def.CategoryID, &amount,
		&def.Currency, &def.Frequency, &startDate, &endDate, &nextDue,
		&lastProc, &def.Version, &active, &def.Note)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("scan definition: %w", err)
	}

	if def.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("definition %s: parse amount %q: %w", def.ID, amount, err)
	}
	if def.StartDate, err = parseDate(startDate); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("definition %s: %w", def.ID, err)
	}
	if def.NextDueDate, err = parseDate(nextDue); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("definition %s: %w", def.ID, err)
	}
	if endDate.Valid {
		if def.EndDate, err = parseDate(endDate.String); err != nil {
			return core.RecurringDefinition{}, fmt.Errorf("definition %s: %w", def.ID, err)
		}
	}
	if lastProc.Valid {
		if def.LastProcessedDate, err = parseDate(lastProc.String); err != nil {
			return core.RecurringDefinition{}, fmt.Errorf("definition %s: %w", def.ID, err)
		}
	}
	def.Active = active != 0
	return def, nil
}

// MaterializeOccurrence inserts the generated transaction and advances
// the definition's cursor inside one SQL transaction. The version
// predicate on the UPDATE is the compare-and-swap guard; the partial
// unique index on transactions is the de-duplication key. Either
// tripping reports core.ErrAlreadyProcessed and commits nothing.
func (r *Repository) MaterializeOccurrence(ctx context.Context, t core.Transaction, adv store.DefinitionAdvance) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin materialize: %w", err)
	}
	defer dbtx.Rollback()

	_, err = dbtx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, workspace_id, type, category_id, income_source_id,
			amount, currency, converted_amount, exchange_rate,
			description, tx_date, recurring_definition_id, tags
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.WorkspaceID, string(t.Type), t.CategoryID, t.IncomeSourceID,
		t.Amount.String(), t.Currency,
		nullDecimal(t.ConvertedAmount, t.HasConversion()),
		nullDecimal(t.ExchangeRate, t.HasConversion()),
		t.Description, t.Date.String(), nullString(t.RecurringDefinitionID),
		strings.Join(t.Tags, ","))
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrAlreadyProcessed
		}
		return fmt.Errorf("insert generated transaction: %w", err)
	}

	res, err := dbtx.ExecContext(ctx, `
		UPDATE recurring_definitions
		SET last_processed_date = ?, next_due_date = ?, active = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		adv.LastProcessedDate.String(), adv.NextDueDate.String(),
		boolToInt(adv.Active), adv.DefinitionID, adv.Version)
	if err != nil {
		return fmt.Errorf("advance definition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance definition: %w", err)
	}
	if affected == 0 {
		// Lost the compare-and-swap race; the insert rolls back with us.
		return core.ErrAlreadyProcessed
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit materialize: %w", err)
	}
	return nil
}

func (r *Repository) Categories(ctx context.Context, workspaceID string) ([]core.BudgetCategory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, icon, color, is_default
		FROM budget_categories
		WHERE workspace_id = ?
		ORDER BY name`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetCategory
	for rows.Next() {
		var (
			c   core.BudgetCategory
			def int64
		)
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Icon, &c.Color, &def); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Default = def != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) BudgetsForMonth(ctx context.Context, workspaceID string, year, month int) ([]core.MonthlyBudget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT workspace_id, category_id, year, month, planned, currency
		FROM monthly_budgets
		WHERE workspace_id = ? AND year = ? AND month = ?`, workspaceID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyBudget
	for rows.Next() {
		var (
			b       core.MonthlyBudget
			planned string
		)
		if err := rows.Scan(&b.WorkspaceID, &b.CategoryID, &b.Year, &b.Month, &planned, &b.Currency); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Planned, err = decimal.NewFromString(planned); err != nil {
			return nil, fmt.Errorf("budget %s/%s: parse planned %q: %w", b.WorkspaceID, b.CategoryID, planned, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) TransactionsForMonth(ctx context.Context, workspaceID string, year, month int) ([]core.Transaction, error) {
	from := core.NewDate(year, month, 1)
	to := core.Date{Time: from.AddDate(0, 1, 0)}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workspace_id, type, category_id, income_source_id,
		       amount, currency, converted_amount, exchange_rate,
		       description, tx_date, recurring_definition_id, tags
		FROM transactions
		WHERE workspace_id = ? AND tx_date >= ? AND tx_date < ?
		ORDER BY tx_date, id`, workspaceID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		t                     core.Transaction
		txType, amount, date  string
		converted, rate       sql.NullString
		definitionID          sql.NullString
		tags                  string
	)
	err := rows.Scan(&t.ID, &t.WorkspaceID, &txType, &t.CategoryID, &t.IncomeSourceID,
		&amount, &t.Currency, &converted, &rate, &t.Description, &date, &definitionID, &tags)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	t.Type = core.TransactionType(txType)
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: parse amount %q: %w", t.ID, amount, err)
	}
	if converted.Valid {
		if t.ConvertedAmount, err = decimal.NewFromString(converted.String); err != nil {
			return core.Transaction{}, fmt.Errorf("transaction %s: parse converted amount: %w", t.ID, err)
		}
	}
	if rate.Valid {
		if t.ExchangeRate, err = decimal.NewFromString(rate.String); err != nil {
			return core.Transaction{}, fmt.Errorf("transaction %s: parse exchange rate: %w", t.ID, err)
		}
	}
	if t.Date, err = parseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	t.RecurringDefinitionID = definitionID.String
	if tags != "" {
		t.Tags = strings.Split(tags, ",")
	}
	return t, nil
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.DateOf(t), nil
}

func nullDecimal(d decimal.Decimal, present bool) any {
	if !present {
		return nil
	}
	return d.String()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// modernc.org/sqlite surfaces constraint failures as plain errors with
// the SQLite message text; there is no typed error to match on.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
