package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sms-gateway/internal/models"
)

type GormStore struct {
	*gormRepo
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{gormRepo: &gormRepo{db: db}}
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(repo Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepo{db: tx})
	})
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type gormRepo struct {
	db *gorm.DB
}

func (r *gormRepo) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *gormRepo) forUpdate(ctx context.Context) *gorm.DB {
	return r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

// Users

func (r *gormRepo) CreateUser(ctx context.Context, user *models.User) error {
	return translate(r.conn(ctx).Create(user).Error)
}

func (r *gormRepo) GetUser(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	if err := r.conn(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.conn(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormRepo) SaveUser(ctx context.Context, user *models.User) error {
	return translate(r.conn(ctx).Save(user).Error)
}

// Wallets

func (r *gormRepo) FindWallet(ctx context.Context, userID int) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.conn(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, translate(err)
	}
	wallet.Balance = wallet.Balance.Round(2)
	return &wallet, nil
}

func (r *gormRepo) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	return translate(r.conn(ctx).Create(wallet).Error)
}

func (r *gormRepo) LockWallet(ctx context.Context, userID int) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.forUpdate(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, translate(err)
	}
	wallet.Balance = wallet.Balance.Round(2)
	return &wallet, nil
}

func (r *gormRepo) ApplyDelta(ctx context.Context, walletID int, delta decimal.Decimal) (decimal.Decimal, error) {
	res := r.conn(ctx).Model(&models.Wallet{}).
		Where("id = ?", walletID).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return decimal.Zero, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, ErrNotFound
	}

	var wallet models.Wallet
	if err := r.conn(ctx).Select("balance").First(&wallet, walletID).Error; err != nil {
		return decimal.Zero, translate(err)
	}
	// sqlite computes in floating point
	return wallet.Balance.Round(2), nil
}

// Transactions

func (r *gormRepo) CreateTransaction(ctx context.Context, trx *models.Transaction) error {
	return translate(r.conn(ctx).Create(trx).Error)
}

func (r *gormRepo) GetTransaction(ctx context.Context, id, userID int) (*models.Transaction, error) {
	var trx models.Transaction
	if err := r.conn(ctx).Where("id = ? AND user_id = ?", id, userID).First(&trx).Error; err != nil {
		return nil, translate(err)
	}
	return &trx, nil
}

func (r *gormRepo) LockTransaction(ctx context.Context, id int) (*models.Transaction, error) {
	var trx models.Transaction
	if err := r.forUpdate(ctx).Where("id = ?", id).First(&trx).Error; err != nil {
		return nil, translate(err)
	}
	return &trx, nil
}

func (r *gormRepo) SetTransactionStatus(ctx context.Context, id int, status models.TransactionStatus) error {
	res := r.conn(ctx).Model(&models.Transaction{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormRepo) ListTransactions(ctx context.Context, userID int, page Page) ([]models.Transaction, int64, error) {
	var total int64
	if err := r.conn(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var trxs []models.Transaction
	query := r.conn(ctx).Where("user_id = ?", userID)
	if err := paginate(query, page).Order("id ASC").Find(&trxs).Error; err != nil {
		return nil, 0, translate(err)
	}
	return trxs, total, nil
}

func (r *gormRepo) ListPendingTransactionsBefore(ctx context.Context, before time.Time) ([]models.Transaction, error) {
	var trxs []models.Transaction
	err := r.conn(ctx).
		Where("status = ? AND created_at < ?", models.TransactionPending, before).
		Order("id ASC").
		Find(&trxs).Error
	return trxs, translate(err)
}

// SIMs

func (r *gormRepo) CreateSim(ctx context.Context, sim *models.Sim) error {
	return translate(r.conn(ctx).Create(sim).Error)
}

func (r *gormRepo) GetSim(ctx context.Context, id, userID int) (*models.Sim, error) {
	var sim models.Sim
	if err := r.conn(ctx).Where("id = ? AND user_id = ?", id, userID).First(&sim).Error; err != nil {
		return nil, translate(err)
	}
	return &sim, nil
}

func (r *gormRepo) LockSims(ctx context.Context, ids []int, userID int) ([]models.Sim, error) {
	var sims []models.Sim
	err := r.forUpdate(ctx).
		Where("id IN ? AND user_id = ?", ids, userID).
		Order("id ASC").
		Find(&sims).Error
	return sims, translate(err)
}

func (r *gormRepo) FindSimByPhone(ctx context.Context, phone string) (*models.Sim, error) {
	var sim models.Sim
	if err := r.conn(ctx).Where("phone_number = ?", phone).First(&sim).Error; err != nil {
		return nil, translate(err)
	}
	return &sim, nil
}

func (r *gormRepo) SaveSim(ctx context.Context, sim *models.Sim) error {
	return translate(r.conn(ctx).Save(sim).Error)
}

func (r *gormRepo) ListSims(ctx context.Context, userID int) ([]models.Sim, error) {
	var sims []models.Sim
	err := r.conn(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&sims).Error
	return sims, translate(err)
}

func (r *gormRepo) DeleteSim(ctx context.Context, id, userID int) error {
	res := r.conn(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Sim{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormRepo) ExpireSims(ctx context.Context, now time.Time) (int64, error) {
	res := r.conn(ctx).Model(&models.Sim{}).
		Where("expiry_date IS NOT NULL AND expiry_date < ? AND status <> ?", now, models.SimExpired).
		Updates(map[string]interface{}{
			"status":    models.SimExpired,
			"is_active": false,
		})
	return res.RowsAffected, translate(res.Error)
}

// Messages

func (r *gormRepo) CreateMessage(ctx context.Context, msg *models.Message) error {
	return translate(r.conn(ctx).Create(msg).Error)
}

func (r *gormRepo) SaveMessage(ctx context.Context, msg *models.Message) error {
	return translate(r.conn(ctx).Save(msg).Error)
}

func (r *gormRepo) GetMessage(ctx context.Context, id, userID int) (*models.Message, error) {
	var msg models.Message
	if err := r.conn(ctx).Where("id = ? AND user_id = ?", id, userID).First(&msg).Error; err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (r *gormRepo) GetMessageByID(ctx context.Context, id int) (*models.Message, error) {
	var msg models.Message
	if err := r.conn(ctx).First(&msg, id).Error; err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (r *gormRepo) LockMessage(ctx context.Context, id int) (*models.Message, error) {
	var msg models.Message
	if err := r.forUpdate(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (r *gormRepo) ListMessages(ctx context.Context, userID int, page Page) ([]models.Message, int64, error) {
	var total int64
	if err := r.conn(ctx).Model(&models.Message{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var msgs []models.Message
	query := r.conn(ctx).Where("user_id = ?", userID)
	if err := paginate(query, page).Order("id DESC").Find(&msgs).Error; err != nil {
		return nil, 0, translate(err)
	}
	return msgs, total, nil
}

// API keys

func (r *gormRepo) CreateApiKey(ctx context.Context, key *models.ApiKey) error {
	return translate(r.conn(ctx).Create(key).Error)
}

func (r *gormRepo) ListApiKeys(ctx context.Context, userID int) ([]models.ApiKey, error) {
	var keys []models.ApiKey
	err := r.conn(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&keys).Error
	return keys, translate(err)
}

func (r *gormRepo) DeleteApiKey(ctx context.Context, id, userID int) error {
	res := r.conn(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.ApiKey{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormRepo) FindApiKey(ctx context.Context, key string) (*models.ApiKey, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	var apiKey models.ApiKey
	if err := r.conn(ctx).Where(&models.ApiKey{Key: key}).First(&apiKey).Error; err != nil {
		return nil, translate(err)
	}
	return &apiKey, nil
}

func (r *gormRepo) TouchApiKey(ctx context.Context, id int, at time.Time) error {
	res := r.conn(ctx).Model(&models.ApiKey{}).Where("id = ?", id).UpdateColumn("last_used_at", at)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func paginate(db *gorm.DB, page Page) *gorm.DB {
	if page.Limit <= 0 {
		return db
	}
	return db.Offset(page.Offset).Limit(page.Limit)
}
