package nameseed

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/web3infra/nameseed/schema"
)

const t0 = int64(1700000000)

type fakeClock struct {
	now int64
}

func (c *fakeClock) Now() time.Time     { return time.Unix(c.now, 0) }
func (c *fakeClock) Advance(secs int64) { c.now += secs }
func (c *fakeClock) Set(ts int64)       { c.now = ts }

type memCommits struct {
	m map[common.Hash]int64
}

func newMemCommits() *memCommits { return &memCommits{m: map[common.Hash]int64{}} }

func (s *memCommits) Get(hash common.Hash) (int64, error) { return s.m[hash], nil }
func (s *memCommits) Put(hash common.Hash, ts int64) error {
	s.m[hash] = ts
	return nil
}
func (s *memCommits) Del(hash common.Hash) error {
	delete(s.m, hash)
	return nil
}

type fakeReg struct {
	owner           string
	expiry          int64
	privileges      uint32
	privilegeExpiry int64
}

type fakeRegistrar struct {
	regs      map[string]*fakeReg
	approvals map[string]bool // owner|operator
	grace     int64
	failNext  error
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{
		regs:      map[string]*fakeReg{},
		approvals: map[string]bool{},
		grace:     int64(schema.GracePeriod / time.Second),
	}
}

func (r *fakeRegistrar) Available(label string, now int64) (bool, error) {
	reg, ok := r.regs[label]
	if !ok {
		return true, nil
	}
	return reg.expiry+r.grace < now, nil
}

func (r *fakeRegistrar) NameExpires(label string) (int64, error) {
	reg, ok := r.regs[label]
	if !ok {
		return 0, nil
	}
	return reg.expiry, nil
}

func (r *fakeRegistrar) Register(label, owner string, now, duration int64, privileges uint32, privilegeExpiry int64) (int64, error) {
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return 0, err
	}
	expiry := now + duration
	r.regs[label] = &fakeReg{owner: owner, expiry: expiry, privileges: privileges, privilegeExpiry: privilegeExpiry}
	return expiry, nil
}

func (r *fakeRegistrar) Remove(label string) error {
	delete(r.regs, label)
	return nil
}

func (r *fakeRegistrar) Renew(label string, now, duration int64, privileges uint32, privilegeExpiry int64) (int64, error) {
	reg, ok := r.regs[label]
	if !ok {
		return 0, ErrNotExist
	}
	reg.expiry += duration
	if privileges != 0 || privilegeExpiry != 0 {
		reg.privileges = privileges
		reg.privilegeExpiry = privilegeExpiry
	}
	return reg.expiry, nil
}

func (r *fakeRegistrar) IsOwnerOrApproved(label, addr string) (bool, error) {
	reg, ok := r.regs[label]
	if !ok {
		return false, nil
	}
	return reg.owner == addr || r.approvals[reg.owner+"|"+addr], nil
}

type fakeOracle struct {
	base        *big.Int
	premium     *big.Int
	lastExpires int64
}

func (o *fakeOracle) Quote(label string, expires, duration, now int64) (Quote, error) {
	o.lastExpires = expires
	return Quote{Base: new(big.Int).Set(o.base), Premium: new(big.Int).Set(o.premium)}, nil
}

func (o *fakeOracle) Describe() string { return "fake-oracle" }

type memTreasury struct {
	balances     map[string]*big.Int
	transferHook func(to string, amount *big.Int)
}

func newMemTreasury() *memTreasury {
	return &memTreasury{balances: map[string]*big.Int{}}
}

func (t *memTreasury) bal(addr string) *big.Int {
	if b, ok := t.balances[addr]; ok {
		// copy via Set so computed zeros normalise to the same
		// representation as big.NewInt(0) under deep equality
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

func (t *memTreasury) fund(addr string, amount int64) {
	t.balances[normAddr(addr)] = big.NewInt(amount)
}

func (t *memTreasury) Attach(from string, amount *big.Int) error {
	b := t.bal(from)
	if b.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	t.balances[from] = new(big.Int).Sub(b, amount)
	t.balances[schema.TreasuryAccount] = new(big.Int).Add(t.bal(schema.TreasuryAccount), amount)
	return nil
}

func (t *memTreasury) Transfer(to string, amount *big.Int) error {
	b := t.bal(schema.TreasuryAccount)
	if b.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	t.balances[schema.TreasuryAccount] = new(big.Int).Sub(b, amount)
	t.balances[to] = new(big.Int).Add(t.bal(to), amount)
	if t.transferHook != nil {
		hook := t.transferHook
		t.transferHook = nil
		hook(to, amount)
	}
	return nil
}

func (t *memTreasury) Balance() (*big.Int, error) {
	return new(big.Int).Set(t.bal(schema.TreasuryAccount)), nil
}

type memResolver struct {
	records map[common.Hash][]schema.Record
}

func (r *memResolver) SetRecords(node common.Hash, label, owner string, records []schema.Record) ([]byte, error) {
	if r.records == nil {
		r.records = map[common.Hash][]schema.Record{}
	}
	r.records[node] = records
	return nil, nil
}

func (r *memResolver) Restore(node common.Hash, prev []byte) error {
	delete(r.records, node)
	return nil
}

type memReverse struct {
	names map[string]string
}

func (r *memReverse) SetName(addr, name string) (string, error) {
	if r.names == nil {
		r.names = map[string]string{}
	}
	prev := r.names[addr]
	r.names[addr] = name
	return prev, nil
}

type memSink struct {
	registered []schema.EventRegistered
	renewed    []schema.EventRenewed
	oracle     []schema.EventOracleChanged
}

func (s *memSink) Registered(ev schema.EventRegistered)            { s.registered = append(s.registered, ev) }
func (s *memSink) Renewed(ev schema.EventRenewed)                  { s.renewed = append(s.renewed, ev) }
func (s *memSink) PriceOracleChanged(ev schema.EventOracleChanged) { s.oracle = append(s.oracle, ev) }

type fixture struct {
	clock     *fakeClock
	commits   *memCommits
	registrar *fakeRegistrar
	oracle    *fakeOracle
	treasury  *memTreasury
	resolver  *memResolver
	reverse   *memReverse
	sink      *memSink
}

const (
	testOwner       = "0x1000000000000000000000000000000000000001"
	testBeneficiary = "0x2000000000000000000000000000000000000002"
	testAlice       = "0x3000000000000000000000000000000000000003"
	testBob         = "0x4000000000000000000000000000000000000004"

	testSecret = "0x0000000000000000000000000000000000000000000000000000000000001234"

	yearSecs = int64(31536000)
)

func newTestController(t *testing.T, minAge, maxAge int64) (*Controller, *fixture) {
	f := &fixture{
		clock:     &fakeClock{now: t0},
		commits:   newMemCommits(),
		registrar: newFakeRegistrar(),
		oracle:    &fakeOracle{base: big.NewInt(1000), premium: big.NewInt(0)},
		treasury:  newMemTreasury(),
		resolver:  &memResolver{},
		reverse:   &memReverse{},
		sink:      &memSink{},
	}
	c, err := NewController(ControllerConfig{
		Registrar:        f.registrar,
		Prices:           f.oracle,
		Resolver:         f.resolver,
		Reverse:          f.reverse,
		Treasury:         f.treasury,
		Commitments:      f.commits,
		Events:           f.sink,
		Clock:            f.clock,
		MinCommitmentAge: minAge,
		MaxCommitmentAge: maxAge,
		Suffix:           "seed",
		Owner:            testOwner,
		Beneficiary:      testBeneficiary,
	})
	assert.NoError(t, err)
	return c, f
}

func registerReq(name, owner, from string, duration int64, value string) schema.ReqRegister {
	return schema.ReqRegister{
		CommitmentParams: schema.CommitmentParams{
			Name:     name,
			Owner:    owner,
			Duration: duration,
			Secret:   testSecret,
		},
		From:  from,
		Value: value,
	}
}

func commitFor(t *testing.T, c *Controller, req schema.ReqRegister) common.Hash {
	hash, err := MakeCommitment(req.CommitmentParams)
	assert.NoError(t, err)
	assert.NoError(t, c.Commit(hash))
	return hash
}

func TestNewControllerValidation(t *testing.T) {
	f := &fixture{clock: &fakeClock{now: t0}}

	_, err := NewController(ControllerConfig{Clock: f.clock, MinCommitmentAge: 100, MaxCommitmentAge: 100})
	assert.ErrorIs(t, err, ErrMaxCommitmentAgeTooLow)

	_, err = NewController(ControllerConfig{Clock: f.clock, MinCommitmentAge: 60, MaxCommitmentAge: t0 + 1})
	assert.ErrorIs(t, err, ErrMaxCommitmentAgeTooHigh)
}

func TestCommitRejectsUnexpired(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	hash := common.HexToHash("0xabcd")

	assert.NoError(t, c.Commit(hash))
	assert.ErrorIs(t, c.Commit(hash), ErrUnexpiredCommitment)

	// still inside the window right at the boundary
	f.clock.Advance(86400)
	assert.ErrorIs(t, c.Commit(hash), ErrUnexpiredCommitment)

	// strictly past maxCommitmentAge the hash can be re-issued
	f.clock.Advance(1)
	assert.NoError(t, c.Commit(hash))
}

func TestMakeCommitmentDeterministic(t *testing.T) {
	base := schema.CommitmentParams{
		Name:     "alice",
		Owner:    testAlice,
		Duration: yearSecs,
		Secret:   testSecret,
		Resolver: testBob,
		Records:  []schema.Record{{Key: "url", Value: "https://alice.example"}},
	}

	h1, err := MakeCommitment(base)
	assert.NoError(t, err)
	h2, err := MakeCommitment(base)
	assert.NoError(t, err)
	assert.Equal(t, h1, h2)

	// case folding is part of normalization
	upper := base
	upper.Name = "ALICE"
	h3, err := MakeCommitment(upper)
	assert.NoError(t, err)
	assert.Equal(t, h1, h3)

	variants := []func(p *schema.CommitmentParams){
		func(p *schema.CommitmentParams) { p.Name = "alicf" },
		func(p *schema.CommitmentParams) { p.Owner = testBob },
		func(p *schema.CommitmentParams) { p.Duration = yearSecs + 1 },
		func(p *schema.CommitmentParams) {
			p.Secret = "0x0000000000000000000000000000000000000000000000000000000000001235"
		},
		func(p *schema.CommitmentParams) { p.Resolver = testAlice },
		func(p *schema.CommitmentParams) { p.Records = []schema.Record{{Key: "url", Value: "https://evil.example"}} },
		func(p *schema.CommitmentParams) { p.ReverseRecord = true },
		func(p *schema.CommitmentParams) { p.Privileges = 7 },
		func(p *schema.CommitmentParams) { p.PrivilegeExpiry = t0 },
	}
	for i, mutate := range variants {
		p := base
		mutate(&p)
		h, err := MakeCommitment(p)
		assert.NoError(t, err)
		assert.NotEqual(t, h1, h, "variant %d must change the hash", i)
	}
}

func TestMakeCommitmentRequiresResolverForRecords(t *testing.T) {
	p := schema.CommitmentParams{
		Name:     "alice",
		Owner:    testAlice,
		Duration: yearSecs,
		Secret:   testSecret,
		Records:  []schema.Record{{Key: "url", Value: "x"}},
	}
	_, err := MakeCommitment(p)
	assert.ErrorIs(t, err, ErrResolverRequired)
}

func TestRegisterRevealWindow(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	f.treasury.fund(testAlice, 1_000_000)

	req := registerReq("alice", testAlice, testAlice, yearSecs, "1000")
	commitFor(t, c, req)

	// too new inside minCommitmentAge
	f.clock.Advance(30)
	_, err := c.Register(req)
	assert.ErrorIs(t, err, ErrCommitmentTooNew)

	// never-committed parameters look like a zero-timestamp entry
	other := registerReq("someoneelse", testAlice, testAlice, yearSecs, "1000")
	_, err = c.Register(other)
	assert.ErrorIs(t, err, ErrCommitmentTooNew)

	// too old once maxCommitmentAge has elapsed
	f.clock.Set(t0 + 86400)
	_, err = c.Register(req)
	assert.ErrorIs(t, err, ErrCommitmentTooOld)
}

func TestRegisterScenario(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	f.treasury.fund(testAlice, 10_000)
	f.treasury.fund(testBob, 10_000)

	req := registerReq("alice", testAlice, testAlice, yearSecs, "1000")
	commitFor(t, c, req)

	f.clock.Advance(30)
	_, err := c.Register(req)
	assert.ErrorIs(t, err, ErrCommitmentTooNew)

	f.clock.Set(t0 + 61)
	resp, err := c.Register(req)
	assert.NoError(t, err)
	assert.Equal(t, "alice.seed", resp.Name)
	assert.Equal(t, t0+61+yearSecs, resp.Expiry)
	assert.Len(t, f.sink.registered, 1)
	assert.Equal(t, "1000", f.sink.registered[0].Base)

	// the ledger entry was cleared, so a replay fails at availability
	f.clock.Advance(1)
	commitBob := registerReq("alice", testBob, testBob, yearSecs, "1000")
	commitFor(t, c, commitBob)
	f.clock.Advance(61)
	_, err = c.Register(commitBob)
	assert.ErrorIs(t, err, ErrNameNotAvailable)

	// and the original commitment is gone
	hash, _ := MakeCommitment(req.CommitmentParams)
	ts, err := c.CommitmentAt(hash)
	assert.NoError(t, err)
	assert.Zero(t, ts)
}

func TestRegisterPayment(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	f.oracle.base = big.NewInt(700)
	f.oracle.premium = big.NewInt(300)
	f.treasury.fund(testAlice, 5000)

	// underpay: no state change at all
	req := registerReq("alice", testAlice, testAlice, yearSecs, "999")
	hash := commitFor(t, c, req)
	f.clock.Advance(61)
	_, err := c.Register(req)
	assert.ErrorIs(t, err, ErrInsufficientValue)
	assert.Equal(t, big.NewInt(5000), f.treasury.bal(normAddr(testAlice)))
	ts, _ := c.CommitmentAt(hash)
	assert.Equal(t, t0, ts)

	// exact payment: zero refund
	req.Value = "1000"
	resp, err := c.Register(req)
	assert.NoError(t, err)
	assert.Equal(t, "0", resp.Refund)
	assert.Equal(t, big.NewInt(4000), f.treasury.bal(normAddr(testAlice)))
	assert.Equal(t, big.NewInt(1000), f.treasury.bal(schema.TreasuryAccount))

	// overpayment: net cost is exactly base+premium
	req2 := registerReq("bobby", testAlice, testAlice, yearSecs, "3500")
	commitFor(t, c, req2)
	f.clock.Advance(61)
	resp, err = c.Register(req2)
	assert.NoError(t, err)
	assert.Equal(t, "2500", resp.Refund)
	assert.Equal(t, big.NewInt(3000), f.treasury.bal(normAddr(testAlice)))
	assert.Equal(t, big.NewInt(2000), f.treasury.bal(schema.TreasuryAccount))
}

func TestRegisterPricingContinuity(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	f.treasury.fund(testAlice, 10_000)

	req := registerReq("alice", testAlice, testAlice, yearSecs, "1000")
	commitFor(t, c, req)
	f.clock.Advance(61)
	_, err := c.Register(req)
	assert.NoError(t, err)
	firstExpiry := t0 + 61 + yearSecs

	// a fresh name quotes with zero expiry, a lapsed one with its old expiry
	assert.Zero(t, f.oracle.lastExpires)

	f.clock.Set(firstExpiry + int64(schema.GracePeriod/time.Second) + 10)
	req2 := registerReq("alice", testBob, testAlice, yearSecs, "1000")
	commitFor(t, c, req2)
	f.clock.Advance(61)
	_, err = c.Register(req2)
	assert.NoError(t, err)
	assert.Equal(t, firstExpiry, f.oracle.lastExpires)
}

func TestAvailabilityCheckedBeforeDuration(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	f.treasury.fund(testAlice, 10_000)
	f.treasury.fund(testBob, 10_000)

	req := registerReq("alice", testAlice, testAlice, yearSecs, "1000")
	commitFor(t, c, req)
	f.clock.Advance(61)
	_, err := c.Register(req)
	assert.NoError(t, err)

	// both violations hold: availability must surface
	taken := registerReq("alice", testBob, testBob, 100, "1000")
	commitFor(t, c, taken)
	f.clock.Advance(61)
	_, err = c.Register(taken)
	assert.ErrorIs(t, err, ErrNameNotAvailable)

	// only the duration violation holds
	short := registerReq("carol", testBob, testBob, 100, "1000")
	hash := commitFor(t, c, short)
	f.clock.Advance(61)
	_, err = c.Register(short)
	assert.ErrorIs(t, err, ErrDurationTooShort)

	// the failed call must not have consumed the commitment
	ts, _ := c.CommitmentAt(hash)
	assert.NotZero(t, ts)
}

func TestRegisterRejectsInvalidLabel(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	f.treasury.fund(testAlice, 10_000)

	// names the public surface reports as unregistrable must not be
	// mintable through commit-reveal either
	for _, name := range []string{"ab", "a.b"} {
		assert.False(t, c.Valid(name))
		avail, err := c.Available(name)
		assert.NoError(t, err)
		assert.False(t, avail)

		req := registerReq(name, testAlice, testAlice, yearSecs, "1000")
		hash := commitFor(t, c, req)
		f.clock.Advance(61)
		_, err = c.Register(req)
		assert.ErrorIs(t, err, ErrInvalidName)

		// nothing consumed, nothing charged
		ts, err := c.CommitmentAt(hash)
		assert.NoError(t, err)
		assert.NotZero(t, ts)
	}
	assert.Empty(t, f.registrar.regs)
	assert.Equal(t, big.NewInt(10_000), f.treasury.bal(normAddr(testAlice)))
}

func TestRegisterRejectsMalformedValue(t *testing.T) {
	c, _ := newTestController(t, 60, 86400)

	req := registerReq("alice", testAlice, testAlice, yearSecs, "not-a-number")
	_, err := c.Register(req)
	assert.ErrorIs(t, err, ErrInvalidValue)

	req.Value = "-5"
	_, err = c.Register(req)
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = c.Renew(schema.ReqRenew{Name: "alice", Duration: yearSecs, From: testAlice, Value: "0x10"})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestRegisterRollbackOnMintFailure(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	f.treasury.fund(testAlice, 5000)

	req := registerReq("alice", testAlice, testAlice, yearSecs, "1000")
	hash := commitFor(t, c, req)
	f.clock.Advance(61)

	f.registrar.failNext = ErrNotExist
	_, err := c.Register(req)
	assert.Error(t, err)

	// commitment restored, payment returned, nothing registered
	ts, _ := c.CommitmentAt(hash)
	assert.Equal(t, t0, ts)
	assert.Equal(t, big.NewInt(5000), f.treasury.bal(normAddr(testAlice)))
	assert.Equal(t, big.NewInt(0), f.treasury.bal(schema.TreasuryAccount))
	assert.Empty(t, f.registrar.regs)
	assert.Empty(t, f.sink.registered)
}

func TestRegisterWritesRecordsAndReverse(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	f.treasury.fund(testAlice, 5000)

	req := registerReq("alice", testAlice, testAlice, yearSecs, "1000")
	req.Resolver = testBob
	req.Records = []schema.Record{{Key: "url", Value: "https://alice.example"}}
	req.ReverseRecord = true
	commitFor(t, c, req)
	f.clock.Advance(61)

	_, err := c.Register(req)
	assert.NoError(t, err)

	node := Namehash(SuffixNode("seed"), "alice")
	assert.Equal(t, req.Records, f.resolver.records[node])
	assert.Equal(t, "alice.seed", f.reverse.names[normAddr(testAlice)])
}

func TestReentrantRefundCannotDoubleConsume(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	f.treasury.fund(testAlice, 5000)

	req := registerReq("alice", testAlice, testAlice, yearSecs, "1500")
	commitFor(t, c, req)
	f.clock.Advance(61)

	// a malicious refund recipient re-submits the same registration; the
	// total order means it runs after the outer call and must fail
	inner := make(chan error, 1)
	f.treasury.transferHook = func(to string, amount *big.Int) {
		go func() {
			_, err := c.Register(req)
			inner <- err
		}()
	}

	resp, err := c.Register(req)
	assert.NoError(t, err)
	assert.Equal(t, "500", resp.Refund)

	assert.Error(t, <-inner)
	assert.Len(t, f.sink.registered, 1)
	assert.Len(t, f.registrar.regs, 1)
	// exactly one payment and one refund happened
	assert.Equal(t, big.NewInt(4000), f.treasury.bal(normAddr(testAlice)))
	assert.Equal(t, big.NewInt(1000), f.treasury.bal(schema.TreasuryAccount))
}

func TestRenewPlain(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	f.treasury.fund(testAlice, 5000)
	f.treasury.fund(testBob, 5000)

	req := registerReq("alice", testAlice, testAlice, yearSecs, "1000")
	commitFor(t, c, req)
	f.clock.Advance(61)
	resp, err := c.Register(req)
	assert.NoError(t, err)

	// anyone may pay someone else's rent; overpayment is kept, not refunded
	renewed, err := c.Renew(schema.ReqRenew{Name: "alice", Duration: yearSecs, From: testBob, Value: "1500"})
	assert.NoError(t, err)
	assert.Equal(t, resp.Expiry+yearSecs, renewed.Expiry)
	assert.Equal(t, big.NewInt(3500), f.treasury.bal(normAddr(testBob)))
	assert.Equal(t, big.NewInt(2500), f.treasury.bal(schema.TreasuryAccount))
	assert.Len(t, f.sink.renewed, 1)
	assert.Equal(t, "1500", f.sink.renewed[0].Paid)

	// privileges untouched by a plain renewal
	assert.Zero(t, f.registrar.regs["alice"].privileges)

	_, err = c.Renew(schema.ReqRenew{Name: "ghost", Duration: yearSecs, From: testBob, Value: "1500"})
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestRenewWithPrivileges(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	f.treasury.fund(testAlice, 5000)
	f.treasury.fund(testBob, 5000)

	req := registerReq("alice", testAlice, testAlice, yearSecs, "1000")
	commitFor(t, c, req)
	f.clock.Advance(61)
	_, err := c.Register(req)
	assert.NoError(t, err)

	renewReq := schema.ReqRenew{
		Name: "alice", Duration: yearSecs, From: testBob, Value: "1000",
		Privileges: 5, PrivilegeExpiry: t0 + 2*yearSecs,
	}
	_, err = c.RenewWithPrivileges(renewReq)
	assert.ErrorIs(t, err, ErrUnauthorised)
	assert.Equal(t, big.NewInt(5000), f.treasury.bal(normAddr(testBob)))

	renewReq.From = testAlice
	_, err = c.RenewWithPrivileges(renewReq)
	assert.NoError(t, err)
	assert.Equal(t, uint32(5), f.registrar.regs["alice"].privileges)

	// an approved operator may change privileges too
	f.registrar.approvals[normAddr(testAlice)+"|"+normAddr(testBob)] = true
	renewReq.From = testBob
	_, err = c.RenewWithPrivileges(renewReq)
	assert.NoError(t, err)
}

func TestWithdraw(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	f.treasury.fund(testAlice, 5000)

	req := registerReq("alice", testAlice, testAlice, yearSecs, "1000")
	commitFor(t, c, req)
	f.clock.Advance(61)
	_, err := c.Register(req)
	assert.NoError(t, err)

	_, err = c.Withdraw(testAlice)
	assert.ErrorIs(t, err, ErrUnauthorised)

	amount, err := c.Withdraw(testOwner)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), amount)
	assert.Equal(t, big.NewInt(0), f.treasury.bal(schema.TreasuryAccount))
	assert.Equal(t, big.NewInt(1000), f.treasury.bal(normAddr(testBeneficiary)))

	// the beneficiary can also trigger a (now empty) withdrawal
	amount, err = c.Withdraw(testBeneficiary)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(0), amount)
}

func TestSetPriceOracle(t *testing.T) {
	c, f := newTestController(t, 60, 86400)
	next := &fakeOracle{base: big.NewInt(9), premium: big.NewInt(0)}

	assert.ErrorIs(t, c.SetPriceOracle(testAlice, next), ErrUnauthorised)

	assert.NoError(t, c.SetPriceOracle(testOwner, next))
	assert.Len(t, f.sink.oracle, 1)
	assert.Equal(t, "fake-oracle", f.sink.oracle[0].Old)

	quote, err := c.RentPrice("alice", yearSecs)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(9), quote.Base)
}

func TestSupportsCapability(t *testing.T) {
	c, _ := newTestController(t, 60, 86400)
	assert.True(t, c.SupportsCapability(CapIntrospection))
	assert.True(t, c.SupportsCapability(CapController))
	assert.False(t, c.SupportsCapability("0xdeadbeef"))
}

func TestValidAndAvailable(t *testing.T) {
	c, f := newTestController(t, 60, 86400)

	assert.True(t, c.Valid("alice"))
	assert.False(t, c.Valid("ab"))
	assert.False(t, c.Valid("a.b"))

	avail, err := c.Available("ab")
	assert.NoError(t, err)
	assert.False(t, avail)

	avail, err = c.Available("alice")
	assert.NoError(t, err)
	assert.True(t, avail)

	f.treasury.fund(testAlice, 5000)
	req := registerReq("alice", testAlice, testAlice, yearSecs, "1000")
	commitFor(t, c, req)
	f.clock.Advance(61)
	_, err = c.Register(req)
	assert.NoError(t, err)

	avail, err = c.Available("ALICE")
	assert.NoError(t, err)
	assert.False(t, avail)
}
