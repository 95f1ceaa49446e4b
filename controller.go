package nameseed

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/web3infra/nameseed/schema"
)

// Clock abstracts the wall clock so the reveal-window boundaries are
// deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// CommitmentStore is the hash -> issuance-timestamp ledger. Get returns 0
// for a hash that was never committed.
type CommitmentStore interface {
	Get(hash common.Hash) (int64, error)
	Put(hash common.Hash, ts int64) error
	Del(hash common.Hash) error
}

// NameRegistrar is the ownership ledger that actually mints and extends
// registrations. Remove exists so a failed registration can be unwound.
type NameRegistrar interface {
	Available(label string, now int64) (bool, error)
	NameExpires(label string) (int64, error)
	Register(label, owner string, now, duration int64, privileges uint32, privilegeExpiry int64) (int64, error)
	Remove(label string) error
	Renew(label string, now, duration int64, privileges uint32, privilegeExpiry int64) (int64, error)
	IsOwnerOrApproved(label, addr string) (bool, error)
}

// Resolver writes the deferred records for a node, doing its own ownership
// check. SetRecords returns the previous raw records so the write can be
// restored on rollback.
type Resolver interface {
	SetRecords(node common.Hash, label, owner string, records []schema.Record) (prev []byte, err error)
	Restore(node common.Hash, prev []byte) error
}

// ReverseRegistrar binds an address back to its qualified name. SetName
// returns the previous binding for rollback.
type ReverseRegistrar interface {
	SetName(addr, name string) (prev string, err error)
}

// Treasury moves attached payments. Attach pulls wei from a caller account
// into the treasury; Transfer pays out of the treasury.
type Treasury interface {
	Attach(from string, amount *big.Int) error
	Transfer(to string, amount *big.Int) error
	Balance() (*big.Int, error)
}

// Quote is one price lookup result, re-queried on every call.
type Quote struct {
	Base    *big.Int
	Premium *big.Int
}

func (q Quote) Total() *big.Int {
	return new(big.Int).Add(q.Base, q.Premium)
}

// PriceOracle converts a name, its current expiry (0 when never registered)
// and a duration into a quote. Describe identifies the oracle in the
// oracle-changed event.
type PriceOracle interface {
	Quote(label string, expires, duration, now int64) (Quote, error)
	Describe() string
}

// EventSink receives the controller events. Implementations must not fail
// the calling operation; publish errors are theirs to log.
type EventSink interface {
	Registered(ev schema.EventRegistered)
	Renewed(ev schema.EventRenewed)
	PriceOracleChanged(ev schema.EventOracleChanged)
}

// capability ids answered by SupportsCapability
var (
	CapIntrospection = capabilityID("supportsCapability(bytes4)")
	CapController    = capabilityID("commit(bytes32)register(params)renew(string,uint64)")
)

func capabilityID(sig string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(sig))[:4])
}

// journal collects undo closures for the mutations of one call so a failure
// anywhere leaves no partial effects.
type journal struct {
	undo []func()
}

func (j *journal) record(fn func()) { j.undo = append(j.undo, fn) }

func (j *journal) revert() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
}

type ControllerConfig struct {
	Registrar        NameRegistrar
	Prices           PriceOracle
	Resolver         Resolver
	Reverse          ReverseRegistrar
	Treasury         Treasury
	Commitments      CommitmentStore
	Events           EventSink
	Clock            Clock
	MinCommitmentAge int64 // seconds
	MaxCommitmentAge int64 // seconds
	Suffix           string
	Owner            string
	Beneficiary      string
}

// Controller owns the commit-reveal state machine. All mutating operations
// take the controller mutex, giving the strict total order the accounting
// relies on.
type Controller struct {
	mu sync.Mutex

	registrar NameRegistrar
	prices    PriceOracle
	resolver  Resolver
	reverse   ReverseRegistrar
	treasury  Treasury
	commits   CommitmentStore
	events    EventSink
	clock     Clock

	minCommitmentAge int64
	maxCommitmentAge int64
	suffix           string
	baseNode         common.Hash
	owner            string
	beneficiary      string
}

func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.MaxCommitmentAge <= cfg.MinCommitmentAge {
		return nil, ErrMaxCommitmentAgeTooLow
	}
	if cfg.MaxCommitmentAge >= cfg.Clock.Now().Unix() {
		return nil, ErrMaxCommitmentAgeTooHigh
	}
	return &Controller{
		registrar:        cfg.Registrar,
		prices:           cfg.Prices,
		resolver:         cfg.Resolver,
		reverse:          cfg.Reverse,
		treasury:         cfg.Treasury,
		commits:          cfg.Commitments,
		events:           cfg.Events,
		clock:            cfg.Clock,
		minCommitmentAge: cfg.MinCommitmentAge,
		maxCommitmentAge: cfg.MaxCommitmentAge,
		suffix:           cfg.Suffix,
		baseNode:         SuffixNode(cfg.Suffix),
		owner:            normAddr(cfg.Owner),
		beneficiary:      normAddr(cfg.Beneficiary),
	}, nil
}

func normAddr(s string) string {
	return strings.ToLower(common.HexToAddress(s).Hex())
}

func (c *Controller) Suffix() string          { return c.suffix }
func (c *Controller) BaseNode() common.Hash   { return c.baseNode }
func (c *Controller) Owner() string           { return c.owner }
func (c *Controller) Beneficiary() string     { return c.beneficiary }
func (c *Controller) MinCommitmentAge() int64 { return c.minCommitmentAge }
func (c *Controller) MaxCommitmentAge() int64 { return c.maxCommitmentAge }

// Valid reports whether a name can ever be registered.
func (c *Controller) Valid(name string) bool {
	return ValidLabel(NormalizeLabel(name))
}

// Available is valid plus the ownership-ledger availability check.
func (c *Controller) Available(name string) (bool, error) {
	label := NormalizeLabel(name)
	if !ValidLabel(label) {
		return false, nil
	}
	return c.registrar.Available(label, c.clock.Now().Unix())
}

// NameExpires exposes the ledger expiry for a label, 0 when unregistered.
func (c *Controller) NameExpires(name string) (int64, error) {
	return c.registrar.NameExpires(NormalizeLabel(name))
}

// RentPrice re-queries the oracle for every call; quotes are never cached.
// The current expiry is passed through so premium decay stays continuous
// across re-registration of an expired name.
func (c *Controller) RentPrice(name string, duration int64) (Quote, error) {
	label := NormalizeLabel(name)
	expires, err := c.registrar.NameExpires(label)
	if err != nil {
		return Quote{}, err
	}
	return c.prices.Quote(label, expires, duration, c.clock.Now().Unix())
}

// CommitmentAt reads the public ledger entry for a hash, 0 if absent.
func (c *Controller) CommitmentAt(hash common.Hash) (int64, error) {
	return c.commits.Get(hash)
}

// Commit records hash -> now. A hash whose prior entry is still inside the
// validity window cannot be overwritten; that would let anyone reset a
// committer's timer.
func (c *Controller) Commit(hash common.Hash) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now().Unix()
	ts, err := c.commits.Get(hash)
	if err != nil {
		return err
	}
	if ts+c.maxCommitmentAge >= now {
		return ErrUnexpiredCommitment
	}
	return c.commits.Put(hash, now)
}

// consumeCommitment enforces the reveal window and clears the entry.
// A never-committed hash carries the zero timestamp and fails the too-new
// check. Availability is checked before duration so the more specific
// failure surfaces when both apply.
func (c *Controller) consumeCommitment(j *journal, label string, duration int64, hash common.Hash) error {
	now := c.clock.Now().Unix()
	ts, err := c.commits.Get(hash)
	if err != nil {
		return err
	}
	if ts+c.minCommitmentAge > now {
		return ErrCommitmentTooNew
	}
	if ts+c.maxCommitmentAge <= now {
		return ErrCommitmentTooOld
	}
	// the ledger treats unknown labels as available, so names Valid
	// rejects must be stopped here, before the ledger query
	if !ValidLabel(label) {
		return ErrInvalidName
	}
	avail, err := c.registrar.Available(label, now)
	if err != nil {
		return err
	}
	if !avail {
		return ErrNameNotAvailable
	}
	if err = c.commits.Del(hash); err != nil {
		return err
	}
	j.record(func() {
		if perr := c.commits.Put(hash, ts); perr != nil {
			log.Error("restore commitment", "err", perr, "hash", hash)
		}
	})
	if duration < int64(schema.MinRegistrationDuration/time.Second) {
		return ErrDurationTooShort
	}
	return nil
}

// Register consumes a commitment and mints the name. The commitment hash is
// re-derived from the call arguments rather than taken from the caller, so
// nobody can claim a commitment for inputs they did not commit to. Effect
// order is fixed: validate, consume, attach payment, mint, records, reverse
// record, event, refund; the refund runs last so a reentrant recipient sees
// a fully-updated system.
func (c *Controller) Register(req schema.ReqRegister) (resp *schema.RespRegister, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	label := NormalizeLabel(req.Name)
	from := normAddr(req.From)
	owner := normAddr(req.Owner)
	now := c.clock.Now().Unix()

	value, err := parseWei(req.Value)
	if err != nil {
		return nil, err
	}

	expires, err := c.registrar.NameExpires(label)
	if err != nil {
		return nil, err
	}
	quote, err := c.prices.Quote(label, expires, req.Duration, now)
	if err != nil {
		return nil, err
	}
	total := quote.Total()
	if value.Cmp(total) < 0 {
		return nil, ErrInsufficientValue
	}

	hash, err := MakeCommitment(req.CommitmentParams)
	if err != nil {
		return nil, err
	}

	j := &journal{}
	defer func() {
		if err != nil {
			j.revert()
		}
	}()

	if err = c.consumeCommitment(j, label, req.Duration, hash); err != nil {
		return nil, err
	}

	if err = c.treasury.Attach(from, value); err != nil {
		return nil, err
	}
	j.record(func() {
		if terr := c.treasury.Transfer(from, value); terr != nil {
			log.Error("unwind payment", "err", terr, "from", from)
		}
	})

	expiry, err := c.registrar.Register(label, owner, now, req.Duration, req.Privileges, req.PrivilegeExpiry)
	if err != nil {
		return nil, err
	}
	j.record(func() {
		if rerr := c.registrar.Remove(label); rerr != nil {
			log.Error("unwind registration", "err", rerr, "label", label)
		}
	})

	node := Namehash(c.baseNode, label)
	if len(req.Records) > 0 {
		var prev []byte
		prev, err = c.resolver.SetRecords(node, label, owner, req.Records)
		if err != nil {
			return nil, err
		}
		prevRecords := prev
		j.record(func() {
			if rerr := c.resolver.Restore(node, prevRecords); rerr != nil {
				log.Error("unwind resolver records", "err", rerr, "node", node)
			}
		})
	}

	if req.ReverseRecord {
		var prev string
		prev, err = c.reverse.SetName(owner, label+"."+c.suffix)
		if err != nil {
			return nil, err
		}
		prevName := prev
		j.record(func() {
			if _, rerr := c.reverse.SetName(owner, prevName); rerr != nil {
				log.Error("unwind reverse record", "err", rerr, "owner", owner)
			}
		})
	}

	c.events.Registered(schema.EventRegistered{
		Name:      label + "." + c.suffix,
		LabelHash: Labelhash(label).Hex(),
		Owner:     owner,
		Base:      quote.Base.String(),
		Premium:   quote.Premium.String(),
		Expiry:    expiry,
		At:        now,
	})

	refund := new(big.Int).Sub(value, total)
	if refund.Sign() > 0 {
		if err = c.treasury.Transfer(from, refund); err != nil {
			return nil, err
		}
	}

	return &schema.RespRegister{
		Name:      label + "." + c.suffix,
		LabelHash: Labelhash(label).Hex(),
		Owner:     owner,
		Base:      quote.Base.String(),
		Premium:   quote.Premium.String(),
		Expiry:    expiry,
		Refund:    refund.String(),
	}, nil
}

// Renew extends a registration without touching its privileges. No caller
// authorization: paying someone else's rent is allowed. Overpayment is NOT
// refunded here, unlike registration.
func (c *Controller) Renew(req schema.ReqRenew) (*schema.RespRenew, error) {
	return c.renew(req, false)
}

// RenewWithPrivileges additionally rewrites the privilege bitset and its
// expiry, so only the owner or an approved operator may call it.
func (c *Controller) RenewWithPrivileges(req schema.ReqRenew) (*schema.RespRenew, error) {
	return c.renew(req, true)
}

func (c *Controller) renew(req schema.ReqRenew, privileged bool) (resp *schema.RespRenew, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	label := NormalizeLabel(req.Name)
	from := normAddr(req.From)
	now := c.clock.Now().Unix()

	value, err := parseWei(req.Value)
	if err != nil {
		return nil, err
	}

	privileges, privilegeExpiry := req.Privileges, req.PrivilegeExpiry
	if !privileged {
		privileges, privilegeExpiry = 0, 0
	} else {
		ok, aerr := c.registrar.IsOwnerOrApproved(label, from)
		if aerr != nil {
			return nil, aerr
		}
		if !ok {
			return nil, ErrUnauthorised
		}
	}

	expires, err := c.registrar.NameExpires(label)
	if err != nil {
		return nil, err
	}
	quote, err := c.prices.Quote(label, expires, req.Duration, now)
	if err != nil {
		return nil, err
	}
	if value.Cmp(quote.Total()) < 0 {
		return nil, ErrInsufficientValue
	}

	j := &journal{}
	defer func() {
		if err != nil {
			j.revert()
		}
	}()

	if err = c.treasury.Attach(from, value); err != nil {
		return nil, err
	}
	j.record(func() {
		if terr := c.treasury.Transfer(from, value); terr != nil {
			log.Error("unwind payment", "err", terr, "from", from)
		}
	})

	expiry, err := c.registrar.Renew(label, now, req.Duration, privileges, privilegeExpiry)
	if err != nil {
		return nil, err
	}

	c.events.Renewed(schema.EventRenewed{
		Name:      label + "." + c.suffix,
		LabelHash: Labelhash(label).Hex(),
		Paid:      value.String(),
		Expiry:    expiry,
		At:        now,
	})

	return &schema.RespRenew{
		Name:      label + "." + c.suffix,
		LabelHash: Labelhash(label).Hex(),
		Paid:      value.String(),
		Expiry:    expiry,
	}, nil
}

// Withdraw empties the treasury to the beneficiary. Owner or beneficiary
// only.
func (c *Controller) Withdraw(caller string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	caller = normAddr(caller)
	if caller != c.owner && caller != c.beneficiary {
		return nil, ErrUnauthorised
	}
	bal, err := c.treasury.Balance()
	if err != nil {
		return nil, err
	}
	if bal.Sign() > 0 {
		if err = c.treasury.Transfer(c.beneficiary, bal); err != nil {
			return nil, err
		}
	}
	return bal, nil
}

// SetPriceOracle swaps the pricing collaborator. Owner only; the new
// oracle's behavior is trusted as-is.
func (c *Controller) SetPriceOracle(caller string, oracle PriceOracle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if normAddr(caller) != c.owner {
		return ErrUnauthorised
	}
	old := c.prices.Describe()
	c.prices = oracle
	c.events.PriceOracleChanged(schema.EventOracleChanged{
		Old: old,
		New: oracle.Describe(),
		At:  c.clock.Now().Unix(),
	})
	return nil
}

// SupportsCapability answers the two fixed capability ids.
func (c *Controller) SupportsCapability(id string) bool {
	id = strings.ToLower(id)
	return id == CapIntrospection || id == CapController
}

func parseWei(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, ErrInvalidValue
	}
	return v, nil
}
