package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
)

// GormAccountRepository implements AccountRepository using GORM.
type GormAccountRepository struct {
	db *gorm.DB
	// mu serialises transfers in process. SQLite has no row locks.
	mu sync.Mutex
}

// NewGormAccountRepository creates a new GORM-based account repository.
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// Create creates a new account. ChannelID defaults to the username.
func (r *GormAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	model := &domain.AccountModel{
		Username:  account.Username,
		ChannelID: account.ChannelID,
		Balance:   account.Balance,
		Followers: account.Followers,
	}
	if model.ChannelID == "" {
		model.ChannelID = model.Username
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return r.handleError(err)
	}
	account.ChannelID = model.ChannelID
	return nil
}

// GetByUsername retrieves an account by username.
func (r *GormAccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var model domain.AccountModel
	result := r.db.WithContext(ctx).First(&model, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetChannelOwner retrieves the account whose channel is streamID.
func (r *GormAccountRepository) GetChannelOwner(ctx context.Context, streamID string) (*domain.Account, error) {
	var model domain.AccountModel
	result := r.db.WithContext(ctx).First(&model, "channel_id = ?", streamID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Transfer runs one tip as a single transaction. Rows are locked in name
// order where the dialect supports SELECT ... FOR UPDATE.
func (r *GormAccountRepository) Transfer(ctx context.Context, from string, amount int64, credits []domain.Credit) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := involved(from, credits)
	balances := make(map[string]int64, len(names))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []domain.AccountModel
		q := tx.Where("username IN ?", names).Order("username")
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Find(&rows).Error; err != nil {
			return err
		}

		current := make(map[string]int64, len(rows))
		for _, row := range rows {
			current[row.Username] = row.Balance
		}
		for _, name := range names {
			if _, ok := current[name]; !ok {
				return ErrAccountNotFound
			}
		}
		if current[from] < amount {
			return ErrInsufficientFunds
		}

		res := tx.Model(&domain.AccountModel{}).
			Where("username = ? AND balance >= ?", from, amount).
			UpdateColumn("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientFunds
		}
		current[from] -= amount

		for _, c := range credits {
			res := tx.Model(&domain.AccountModel{}).
				Where("username = ?", c.Name).
				UpdateColumn("balance", gorm.Expr("balance + ?", c.Amount))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrAccountNotFound
			}
			current[c.Name] += c.Amount
		}

		for _, name := range names {
			balances[name] = current[name]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balances, nil
}

// handleError converts database-specific errors to domain errors.
func (r *GormAccountRepository) handleError(err error) error {
	errStr := err.Error()
	if strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "Duplicate entry") {
		return ErrAccountExists
	}
	return err
}

func involved(from string, credits []domain.Credit) []string {
	seen := map[string]struct{}{from: {}}
	names := []string{from}
	for _, c := range credits {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}
