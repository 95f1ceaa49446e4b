package nameseed

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/web3infra/nameseed/schema"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LedgerRegistrar is the gorm-backed ownership ledger. Names stay reserved
// for their owner through a grace period past expiry before they become
// available again.
type LedgerRegistrar struct {
	wdb   *Wdb
	grace int64 // seconds
}

func NewLedgerRegistrar(wdb *Wdb) *LedgerRegistrar {
	return &LedgerRegistrar{
		wdb:   wdb,
		grace: int64(schema.GracePeriod / time.Second),
	}
}

func (r *LedgerRegistrar) Available(label string, now int64) (bool, error) {
	reg, err := r.wdb.GetRegistration(Labelhash(label).Hex())
	if err == gorm.ErrRecordNotFound {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return reg.Expiry+r.grace < now, nil
}

// NameExpires returns the recorded expiry even when it is in the past, so
// premium pricing stays continuous across re-registration. 0 when the label
// was never registered.
func (r *LedgerRegistrar) NameExpires(label string) (int64, error) {
	reg, err := r.wdb.GetRegistration(Labelhash(label).Hex())
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return reg.Expiry, nil
}

func (r *LedgerRegistrar) Register(label, owner string, now, duration int64, privileges uint32, privilegeExpiry int64) (int64, error) {
	labelHash := Labelhash(label).Hex()
	old, err := r.wdb.GetRegistration(labelHash)
	if err == nil {
		if old.Expiry+r.grace >= now {
			return 0, ErrNameNotAvailable
		}
		// stale row from a lapsed registration
		if err = r.wdb.DeleteRegistration(labelHash); err != nil {
			return 0, err
		}
	} else if err != gorm.ErrRecordNotFound {
		return 0, err
	}

	expiry := now + duration
	err = r.wdb.InsertRegistration(schema.Registration{
		LabelHash:       labelHash,
		Label:           label,
		Owner:           owner,
		Expiry:          expiry,
		Privileges:      privileges,
		PrivilegeExpiry: privilegeExpiry,
	})
	if err != nil {
		return 0, err
	}
	return expiry, nil
}

func (r *LedgerRegistrar) Remove(label string) error {
	return r.wdb.DeleteRegistration(Labelhash(label).Hex())
}

// Renew extends from the recorded expiry, not from now. Zero privilege
// arguments leave the bitset untouched.
func (r *LedgerRegistrar) Renew(label string, now, duration int64, privileges uint32, privilegeExpiry int64) (int64, error) {
	labelHash := Labelhash(label).Hex()
	reg, err := r.wdb.GetRegistration(labelHash)
	if err == gorm.ErrRecordNotFound {
		return 0, ErrNotExist
	}
	if err != nil {
		return 0, err
	}
	if reg.Expiry+r.grace < now {
		return 0, ErrNotExist
	}

	expiry := reg.Expiry + duration
	updates := map[string]interface{}{"expiry": expiry}
	if privileges != 0 || privilegeExpiry != 0 {
		updates["privileges"] = privileges
		updates["privilege_expiry"] = privilegeExpiry
	}
	if err = r.wdb.UpdateRegistration(labelHash, updates); err != nil {
		return 0, err
	}
	return expiry, nil
}

func (r *LedgerRegistrar) IsOwnerOrApproved(label, addr string) (bool, error) {
	reg, err := r.wdb.GetRegistration(Labelhash(label).Hex())
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if reg.Owner == addr {
		return true, nil
	}
	return r.wdb.ExistApproval(reg.Owner, addr)
}

// Approve lets owner delegate privilege-changing renewals to operator.
func (r *LedgerRegistrar) Approve(owner, operator string) error {
	return r.wdb.InsertApproval(schema.Approval{Owner: owner, Operator: operator})
}

// DbResolver stores the batched records for a node, guarding writes with its
// own ownership check against the ledger.
type DbResolver struct {
	wdb       *Wdb
	registrar *LedgerRegistrar
}

func NewDbResolver(wdb *Wdb, registrar *LedgerRegistrar) *DbResolver {
	return &DbResolver{wdb: wdb, registrar: registrar}
}

func (r *DbResolver) SetRecords(node common.Hash, label, owner string, records []schema.Record) ([]byte, error) {
	reg, err := r.wdb.GetRegistration(Labelhash(label).Hex())
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUnauthorised
		}
		return nil, err
	}
	if reg.Owner != owner {
		return nil, ErrUnauthorised
	}

	var prev []byte
	old, err := r.wdb.GetResolverRecord(node.Hex())
	if err == nil {
		prev = []byte(old.Records)
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	raw, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	err = r.wdb.UpsertResolverRecord(schema.ResolverRecord{
		Node:    node.Hex(),
		Records: datatypes.JSON(raw),
	})
	if err != nil {
		return nil, err
	}
	return prev, nil
}

func (r *DbResolver) Restore(node common.Hash, prev []byte) error {
	if prev == nil {
		return r.wdb.DeleteResolverRecord(node.Hex())
	}
	return r.wdb.UpsertResolverRecord(schema.ResolverRecord{
		Node:    node.Hex(),
		Records: datatypes.JSON(prev),
	})
}

// Records reads back the stored records for a node.
func (r *DbResolver) Records(node common.Hash) ([]schema.Record, error) {
	rec, err := r.wdb.GetResolverRecord(node.Hex())
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	records := make([]schema.Record, 0)
	if err = json.Unmarshal(rec.Records, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DbReverseRegistrar maps an address back to its primary qualified name.
type DbReverseRegistrar struct {
	wdb *Wdb
}

func NewDbReverseRegistrar(wdb *Wdb) *DbReverseRegistrar {
	return &DbReverseRegistrar{wdb: wdb}
}

func (r *DbReverseRegistrar) SetName(addr, name string) (string, error) {
	prev := ""
	old, err := r.wdb.GetReverseRecord(addr)
	if err == nil {
		prev = old.Name
	} else if err != gorm.ErrRecordNotFound {
		return "", err
	}

	if name == "" {
		return prev, r.wdb.DeleteReverseRecord(addr)
	}
	return prev, r.wdb.UpsertReverseRecord(schema.ReverseRecord{Address: addr, Name: name})
}

func (r *DbReverseRegistrar) NameOf(addr string) (string, error) {
	rec, err := r.wdb.GetReverseRecord(addr)
	if err == gorm.ErrRecordNotFound {
		return "", ErrNotFound
	}
	return rec.Name, err
}
