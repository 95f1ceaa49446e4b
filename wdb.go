package nameseed

import (
	"path"
	"time"

	"github.com/web3infra/nameseed/schema"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const sqliteName = "nameseed.sqlite"

type Wdb struct {
	Db *gorm.DB
}

func NewMysqlDb(dsn string) *Wdb {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect mysql db success")
	return &Wdb{Db: db}
}

func NewSqliteDb(dbDir string) *Wdb {
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect sqlite db success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(
		&schema.Registration{}, &schema.Approval{},
		&schema.ResolverRecord{}, &schema.ReverseRecord{},
		&schema.Account{}, &schema.Receipt{},
		&schema.TokenPrice{}, &schema.DailyStatistic{}, &schema.DepositCursor{},
	)
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}

// registrations

func (w *Wdb) GetRegistration(labelHash string) (schema.Registration, error) {
	res := schema.Registration{}
	err := w.Db.Where("label_hash = ?", labelHash).First(&res).Error
	return res, err
}

func (w *Wdb) InsertRegistration(reg schema.Registration) error {
	return w.Db.Create(&reg).Error
}

func (w *Wdb) UpdateRegistration(labelHash string, updates map[string]interface{}) error {
	return w.Db.Model(&schema.Registration{}).Where("label_hash = ?", labelHash).Updates(updates).Error
}

func (w *Wdb) DeleteRegistration(labelHash string) error {
	return w.Db.Where("label_hash = ?", labelHash).Delete(&schema.Registration{}).Error
}

func (w *Wdb) ExistApproval(owner, operator string) (bool, error) {
	var count int64
	err := w.Db.Model(&schema.Approval{}).Where("owner = ? and operator = ?", owner, operator).Count(&count).Error
	return count > 0, err
}

func (w *Wdb) InsertApproval(appr schema.Approval) error {
	return w.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(&appr).Error
}

// resolver && reverse records

func (w *Wdb) GetResolverRecord(node string) (schema.ResolverRecord, error) {
	res := schema.ResolverRecord{}
	err := w.Db.Where("node = ?", node).First(&res).Error
	return res, err
}

func (w *Wdb) UpsertResolverRecord(rec schema.ResolverRecord) error {
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "node"}},
		UpdateAll: true,
	}).Create(&rec).Error
}

func (w *Wdb) DeleteResolverRecord(node string) error {
	return w.Db.Where("node = ?", node).Delete(&schema.ResolverRecord{}).Error
}

func (w *Wdb) GetReverseRecord(addr string) (schema.ReverseRecord, error) {
	res := schema.ReverseRecord{}
	err := w.Db.Where("address = ?", addr).First(&res).Error
	return res, err
}

func (w *Wdb) UpsertReverseRecord(rec schema.ReverseRecord) error {
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		UpdateAll: true,
	}).Create(&rec).Error
}

func (w *Wdb) DeleteReverseRecord(addr string) error {
	return w.Db.Where("address = ?", addr).Delete(&schema.ReverseRecord{}).Error
}

// accounts && receipts

func (w *Wdb) GetAccount(addr string) (schema.Account, error) {
	res := schema.Account{}
	err := w.Db.Where("address = ?", addr).First(&res).Error
	if err == gorm.ErrRecordNotFound {
		return schema.Account{Address: addr, Balance: "0"}, nil
	}
	return res, err
}

func (w *Wdb) InsertReceipt(rpt schema.Receipt) error {
	return w.Db.Create(&rpt).Error
}

func (w *Wdb) ExistReceiptByTxHash(txHash string) (bool, error) {
	var count int64
	err := w.Db.Model(&schema.Receipt{}).Where("tx_hash = ?", txHash).Count(&count).Error
	return count > 0, err
}

func (w *Wdb) GetReceiptsByKind(kind string, limit int) ([]schema.Receipt, error) {
	res := make([]schema.Receipt, 0, limit)
	err := w.Db.Where("kind = ?", kind).Order("created_at desc").Limit(limit).Find(&res).Error
	return res, err
}

func (w *Wdb) GetReceiptsBetween(kind string, start, end time.Time) ([]schema.Receipt, error) {
	res := make([]schema.Receipt, 0)
	err := w.Db.Where("kind = ? and created_at >= ? and created_at < ?", kind, start, end).Find(&res).Error
	return res, err
}

// token price

func (w *Wdb) InsertPrices(tps []schema.TokenPrice) error {
	return w.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tps).Error
}

func (w *Wdb) UpdatePrice(symbol string, newPrice float64) error {
	return w.Db.Model(&schema.TokenPrice{}).Where("symbol = ?", symbol).
		Updates(map[string]interface{}{"price": newPrice, "updated_at": time.Now()}).Error
}

func (w *Wdb) GetPrice(symbol string) (schema.TokenPrice, error) {
	res := schema.TokenPrice{}
	err := w.Db.Where("symbol = ?", symbol).First(&res).Error
	return res, err
}

// statistics

func (w *Wdb) UpsertDailyStatistic(st schema.DailyStatistic) error {
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		UpdateAll: true,
	}).Create(&st).Error
}

func (w *Wdb) GetDailyStatistics(limit int) ([]schema.DailyStatistic, error) {
	res := make([]schema.DailyStatistic, 0, limit)
	err := w.Db.Order("date desc").Limit(limit).Find(&res).Error
	return res, err
}

func (w *Wdb) CountRegistrationsBetween(start, end time.Time) (int64, error) {
	var count int64
	err := w.Db.Model(&schema.Registration{}).Where("created_at >= ? and created_at < ?", start, end).Count(&count).Error
	return count, err
}

// deposit cursor

func (w *Wdb) GetDepositCursor() (int64, error) {
	cur := schema.DepositCursor{}
	err := w.Db.First(&cur).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	return cur.Height, err
}

func (w *Wdb) SetDepositCursor(height int64) error {
	cur := schema.DepositCursor{ID: 1, Height: height}
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&cur).Error
}
