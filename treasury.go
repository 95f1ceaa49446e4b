package nameseed

import (
	"math/big"

	"github.com/google/uuid"
	"github.com/web3infra/nameseed/schema"
	"gorm.io/gorm"
)

// LedgerTreasury keeps per-address wei balances in the accounts table.
// Attach moves an attached payment from the caller into the treasury
// account; Transfer pays out of it. Every movement writes a receipt row.
type LedgerTreasury struct {
	wdb *Wdb
}

func NewLedgerTreasury(wdb *Wdb) *LedgerTreasury {
	return &LedgerTreasury{wdb: wdb}
}

func balanceOf(tx *gorm.DB, addr string) (*big.Int, error) {
	acc := schema.Account{}
	err := tx.Where("address = ?", addr).First(&acc).Error
	if err == gorm.ErrRecordNotFound {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	bal, ok := new(big.Int).SetString(acc.Balance, 10)
	if !ok {
		return nil, ErrNotExist
	}
	return bal, nil
}

func setBalance(tx *gorm.DB, addr string, bal *big.Int) error {
	acc := schema.Account{Address: addr, Balance: bal.String()}
	res := tx.Model(&schema.Account{}).Where("address = ?", addr).Update("balance", bal.String())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tx.Create(&acc).Error
	}
	return nil
}

func (t *LedgerTreasury) move(from, to string, amount *big.Int, kind, label string) error {
	if amount.Sign() < 0 {
		return ErrInvalidValue
	}
	return t.wdb.Db.Transaction(func(tx *gorm.DB) error {
		fromBal, err := balanceOf(tx, from)
		if err != nil {
			return err
		}
		if fromBal.Cmp(amount) < 0 {
			return ErrInsufficientBalance
		}
		toBal, err := balanceOf(tx, to)
		if err != nil {
			return err
		}
		if err = setBalance(tx, from, new(big.Int).Sub(fromBal, amount)); err != nil {
			return err
		}
		if err = setBalance(tx, to, new(big.Int).Add(toBal, amount)); err != nil {
			return err
		}
		return tx.Create(&schema.Receipt{
			ID:      uuid.NewString(),
			Kind:    kind,
			From:    from,
			To:      to,
			Amount:  amount.String(),
			Label:   label,
			Settled: true,
		}).Error
	})
}

// Attach pulls an attached payment into the treasury. Fails with
// insufficient_balance when the caller's deposits do not cover it.
func (t *LedgerTreasury) Attach(from string, amount *big.Int) error {
	return t.move(from, schema.TreasuryAccount, amount, schema.ReceiptPayment, "")
}

// Transfer pays out of the treasury (refunds, withdrawal).
func (t *LedgerTreasury) Transfer(to string, amount *big.Int) error {
	return t.move(schema.TreasuryAccount, to, amount, schema.ReceiptPayout, "")
}

func (t *LedgerTreasury) Balance() (*big.Int, error) {
	return balanceOf(t.wdb.Db, schema.TreasuryAccount)
}

func (t *LedgerTreasury) AccountBalance(addr string) (*big.Int, error) {
	return balanceOf(t.wdb.Db, addr)
}

// Credit funds an account from a confirmed on-chain deposit. Idempotent by
// deposit tx hash: a replayed hash is skipped.
func (t *LedgerTreasury) Credit(addr string, amount *big.Int, txHash string) error {
	exist, err := t.wdb.ExistReceiptByTxHash(txHash)
	if err != nil {
		return err
	}
	if exist {
		return nil
	}
	return t.wdb.Db.Transaction(func(tx *gorm.DB) error {
		bal, err := balanceOf(tx, addr)
		if err != nil {
			return err
		}
		if err = setBalance(tx, addr, new(big.Int).Add(bal, amount)); err != nil {
			return err
		}
		return tx.Create(&schema.Receipt{
			ID:      uuid.NewString(),
			Kind:    schema.ReceiptDeposit,
			To:      addr,
			Amount:  amount.String(),
			TxHash:  txHash,
			Settled: true,
		}).Error
	})
}
