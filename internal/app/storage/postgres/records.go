package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mctcapital/invest_layer/internal/app/domain/account"
	"github.com/mctcapital/invest_layer/internal/app/domain/catalog"
	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/storage"
)

// --- AccountStore -----------------------------------------------------------

const accountColumns = `id, email, name, wallet_id, balance, active, version, created_at, updated_at`

func (s *Store) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	acct.Email = strings.ToLower(strings.TrimSpace(acct.Email))
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	acct.Version = 1

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, name, wallet_id, balance, active, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, acct.ID, acct.Email, acct.Name, acct.WalletID, acct.Balance, acct.Active, acct.Version, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, fmt.Errorf("create account: %w", mapError(err))
	}
	return acct, nil
}

func (s *Store) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	acct.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET name = $2, balance = $3, active = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND version = $6
	`, acct.ID, acct.Name, acct.Balance, acct.Active, acct.UpdatedAt, acct.Version)
	if err != nil {
		return account.Account{}, fmt.Errorf("update account: %w", mapError(err))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// distinguish a stale version from a missing row
		if _, err := s.GetAccount(ctx, acct.ID); err != nil {
			return account.Account{}, err
		}
		return account.Account{}, fmt.Errorf("account %s: %w", acct.ID, storage.ErrVersionConflict)
	}
	acct.Version++
	return acct, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id)
	acct, err := scanAccount(row)
	if err != nil {
		return account.Account{}, fmt.Errorf("account %s: %w", id, mapError(err))
	}
	return acct, nil
}

func (s *Store) GetAccountByWalletID(ctx context.Context, walletID string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE wallet_id = $1
	`, walletID)
	acct, err := scanAccount(row)
	if err != nil {
		return account.Account{}, fmt.Errorf("wallet %s: %w", walletID, mapError(err))
	}
	return acct, nil
}

func (s *Store) ListAccounts(ctx context.Context, filter storage.AccountFilter) ([]account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
		  AND ($2::boolean IS NULL OR active = $2)
		ORDER BY created_at DESC
	`
	var active sql.NullBool
	if filter.Active != nil {
		active = sql.NullBool{Bool: *filter.Active, Valid: true}
	}
	rows, err := s.db.QueryContext(ctx, query, filter.Search, active)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, acct)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (account.Account, error) {
	var acct account.Account
	err := row.Scan(&acct.ID, &acct.Email, &acct.Name, &acct.WalletID, &acct.Balance,
		&acct.Active, &acct.Version, &acct.CreatedAt, &acct.UpdatedAt)
	return acct, err
}

// --- PackageStore -----------------------------------------------------------

const packageColumns = `id, name, description, min_amount, max_amount, duration_days, roi_percent, risk_level, features, active, created_at, updated_at`

func (s *Store) CreatePackage(ctx context.Context, pkg catalog.Package) (catalog.Package, error) {
	if pkg.ID == "" {
		pkg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	pkg.CreatedAt = now
	pkg.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO packages (id, name, description, min_amount, max_amount, duration_days, roi_percent, risk_level, features, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, pkg.ID, pkg.Name, pkg.Description, pkg.MinAmount, pkg.MaxAmount, pkg.DurationDays,
		pkg.ROIPercent, string(pkg.RiskLevel), pq.Array(pkg.Features), pkg.Active, pkg.CreatedAt, pkg.UpdatedAt)
	if err != nil {
		return catalog.Package{}, fmt.Errorf("create package: %w", mapError(err))
	}
	return pkg, nil
}

func (s *Store) UpdatePackage(ctx context.Context, pkg catalog.Package) (catalog.Package, error) {
	existing, err := s.GetPackage(ctx, pkg.ID)
	if err != nil {
		return catalog.Package{}, err
	}
	pkg.CreatedAt = existing.CreatedAt
	pkg.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE packages
		SET name = $2, description = $3, min_amount = $4, max_amount = $5, duration_days = $6,
		    roi_percent = $7, risk_level = $8, features = $9, active = $10, updated_at = $11
		WHERE id = $1
	`, pkg.ID, pkg.Name, pkg.Description, pkg.MinAmount, pkg.MaxAmount, pkg.DurationDays,
		pkg.ROIPercent, string(pkg.RiskLevel), pq.Array(pkg.Features), pkg.Active, pkg.UpdatedAt)
	if err != nil {
		return catalog.Package{}, fmt.Errorf("update package: %w", mapError(err))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return catalog.Package{}, fmt.Errorf("package %s: %w", pkg.ID, storage.ErrNotFound)
	}
	return pkg, nil
}

func (s *Store) GetPackage(ctx context.Context, id string) (catalog.Package, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+packageColumns+`
		FROM packages
		WHERE id = $1
	`, id)
	pkg, err := scanPackage(row)
	if err != nil {
		return catalog.Package{}, fmt.Errorf("package %s: %w", id, mapError(err))
	}
	return pkg, nil
}

func (s *Store) ListPackages(ctx context.Context, onlyActive bool) ([]catalog.Package, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+packageColumns+`
		FROM packages
		WHERE NOT $1 OR active
		ORDER BY created_at
	`, onlyActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, pkg)
	}
	return result, rows.Err()
}

func (s *Store) DeletePackage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete package: %w", mapError(err))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("package %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func scanPackage(row rowScanner) (catalog.Package, error) {
	var (
		pkg  catalog.Package
		risk string
	)
	err := row.Scan(&pkg.ID, &pkg.Name, &pkg.Description, &pkg.MinAmount, &pkg.MaxAmount,
		&pkg.DurationDays, &pkg.ROIPercent, &risk, pq.Array(&pkg.Features), &pkg.Active,
		&pkg.CreatedAt, &pkg.UpdatedAt)
	pkg.RiskLevel = catalog.RiskLevel(risk)
	return pkg, err
}

// --- InvestmentStore --------------------------------------------------------

const investmentColumns = `id, account_id, package_id, amount, start_date, end_date, current_value, daily_return, total_returns, status, last_calculated, approved_by, approved_at, version, created_at, updated_at`

// execer covers *sql.DB and *sql.Tx so writes can join a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) createInvestmentTx(ctx context.Context, db execer, inv investment.Investment) (investment.Investment, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	inv.Version = 1

	_, err := db.ExecContext(ctx, `
		INSERT INTO investments (id, account_id, package_id, amount, start_date, end_date, current_value,
			daily_return, total_returns, status, last_calculated, approved_by, approved_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, inv.ID, inv.AccountID, inv.PackageID, inv.Amount, inv.StartDate, inv.EndDate, inv.CurrentValue,
		inv.DailyReturn, inv.TotalReturns, string(inv.Status), inv.LastCalculated, inv.ApprovedBy,
		toNullTime(inv.ApprovedAt), inv.Version, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return investment.Investment{}, fmt.Errorf("create investment: %w", mapError(err))
	}
	return inv, nil
}

func (s *Store) UpdateInvestment(ctx context.Context, inv investment.Investment) (investment.Investment, error) {
	return s.updateInvestmentTx(ctx, s.db, inv)
}

func (s *Store) updateInvestmentTx(ctx context.Context, db execer, inv investment.Investment) (investment.Investment, error) {
	inv.UpdatedAt = time.Now().UTC()

	result, err := db.ExecContext(ctx, `
		UPDATE investments
		SET current_value = $2, daily_return = $3, total_returns = $4, status = $5,
		    last_calculated = $6, approved_by = $7, approved_at = $8, version = version + 1, updated_at = $9
		WHERE id = $1 AND version = $10
	`, inv.ID, inv.CurrentValue, inv.DailyReturn, inv.TotalReturns, string(inv.Status),
		inv.LastCalculated, inv.ApprovedBy, toNullTime(inv.ApprovedAt), inv.UpdatedAt, inv.Version)
	if err != nil {
		return investment.Investment{}, fmt.Errorf("update investment: %w", mapError(err))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		row := db.QueryRowContext(ctx, `SELECT 1 FROM investments WHERE id = $1`, inv.ID)
		var one int
		if err := row.Scan(&one); err != nil {
			return investment.Investment{}, fmt.Errorf("investment %s: %w", inv.ID, mapError(err))
		}
		return investment.Investment{}, fmt.Errorf("investment %s: %w", inv.ID, storage.ErrVersionConflict)
	}
	inv.Version++
	return inv, nil
}

func (s *Store) GetInvestment(ctx context.Context, id string) (investment.Investment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+investmentColumns+`
		FROM investments
		WHERE id = $1
	`, id)
	inv, err := scanInvestment(row)
	if err != nil {
		return investment.Investment{}, fmt.Errorf("investment %s: %w", id, mapError(err))
	}
	return inv, nil
}

func (s *Store) ListInvestments(ctx context.Context, filter storage.InvestmentFilter) ([]investment.Investment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+investmentColumns+`
		FROM investments
		WHERE ($1 = '' OR account_id::text = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`, filter.AccountID, string(filter.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvestments(rows)
}

func (s *Store) ListOpenInvestments(ctx context.Context) ([]investment.Investment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+investmentColumns+`
		FROM investments
		WHERE status IN ('pending', 'active')
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvestments(rows)
}

func collectInvestments(rows *sql.Rows) ([]investment.Investment, error) {
	var result []investment.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func scanInvestment(row rowScanner) (investment.Investment, error) {
	var (
		inv        investment.Investment
		status     string
		approvedAt sql.NullTime
	)
	err := row.Scan(&inv.ID, &inv.AccountID, &inv.PackageID, &inv.Amount, &inv.StartDate, &inv.EndDate,
		&inv.CurrentValue, &inv.DailyReturn, &inv.TotalReturns, &status, &inv.LastCalculated,
		&inv.ApprovedBy, &approvedAt, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt)
	inv.Status = investment.Status(status)
	inv.ApprovedAt = fromNullTime(approvedAt)
	return inv, err
}

// --- LedgerStore ------------------------------------------------------------

const entryColumns = `id, account_id, type, amount, fee, net_amount, status, method, reference, wallet_address, description, admin_notes, investment_id, processed_by, processed_at, created_at, updated_at`

func (s *Store) CreateEntry(ctx context.Context, entry ledger.Entry) (ledger.Entry, error) {
	return s.createEntryTx(ctx, s.db, entry)
}

func (s *Store) createEntryTx(ctx context.Context, db execer, entry ledger.Entry) (ledger.Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	entry.Normalize(now)

	_, err := db.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, account_id, type, amount, fee, net_amount, status, method, reference,
			wallet_address, description, admin_notes, investment_id, processed_by, processed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, entry.ID, entry.AccountID, string(entry.Type), entry.Amount, entry.Fee, entry.NetAmount,
		string(entry.Status), string(entry.Method), entry.Reference, entry.WalletAddress,
		entry.Description, entry.AdminNotes, entry.InvestmentID, entry.ProcessedBy,
		toNullTime(entry.ProcessedAt), entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("create entry: %w", mapError(err))
	}
	return entry, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE id = $1
	`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("entry %s: %w", id, mapError(err))
	}
	return entry, nil
}

func (s *Store) ListEntries(ctx context.Context, filter storage.EntryFilter) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE ($1 = '' OR account_id::text = $1)
		  AND ($2 = '' OR type = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
	`, filter.AccountID, string(filter.Type), string(filter.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func scanEntry(row rowScanner) (ledger.Entry, error) {
	var (
		entry       ledger.Entry
		typ         string
		status      string
		method      string
		processedAt sql.NullTime
	)
	err := row.Scan(&entry.ID, &entry.AccountID, &typ, &entry.Amount, &entry.Fee, &entry.NetAmount,
		&status, &method, &entry.Reference, &entry.WalletAddress, &entry.Description,
		&entry.AdminNotes, &entry.InvestmentID, &entry.ProcessedBy, &processedAt,
		&entry.CreatedAt, &entry.UpdatedAt)
	entry.Type = ledger.Type(typ)
	entry.Status = ledger.Status(status)
	entry.Method = ledger.Method(method)
	entry.ProcessedAt = fromNullTime(processedAt)
	return entry, err
}
