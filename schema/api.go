package schema

const (
	// default commit-reveal window, overridable from cli flags
	DefaultMinCommitmentAge = 60          // seconds
	DefaultMaxCommitmentAge = 24 * 60 * 60

	DefaultSuffix = "seed"
)

// Record is one deferred resolver record, written after a successful
// registration when a resolver was named in the commitment.
type Record struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CommitmentParams is the full parameter set bound by a commitment hash.
// Identical values must be used for makeCommitment and register, otherwise
// the re-derived hash will not match the ledger entry.
type CommitmentParams struct {
	Name            string   `json:"name"`
	Owner           string   `json:"owner"`
	Duration        int64    `json:"duration"` // seconds
	Secret          string   `json:"secret"`   // 0x + 32 bytes hex
	Resolver        string   `json:"resolver"`
	Records         []Record `json:"records"`
	ReverseRecord   bool     `json:"reverseRecord"`
	Privileges      uint32   `json:"privileges"`
	PrivilegeExpiry int64    `json:"privilegeExpiry"`
}

type RespCommitment struct {
	Commitment string `json:"commitment"`
}

type ReqCommit struct {
	Commitment string `json:"commitment"`
}

// ReqRegister attaches a caller and payment to the committed parameters.
// Value is the attached payment in wei; the strict excess over base+premium
// is refunded to From.
type ReqRegister struct {
	CommitmentParams
	From  string `json:"from"`
	Value string `json:"value"`
}

type RespRegister struct {
	Name      string `json:"name"`
	LabelHash string `json:"labelHash"`
	Owner     string `json:"owner"`
	Base      string `json:"base"`
	Premium   string `json:"premium"`
	Expiry    int64  `json:"expiry"`
	Refund    string `json:"refund"`
}

type ReqRenew struct {
	Name            string `json:"name"`
	Duration        int64  `json:"duration"`
	From            string `json:"from"`
	Value           string `json:"value"`
	Privileges      uint32 `json:"privileges,omitempty"`
	PrivilegeExpiry int64  `json:"privilegeExpiry,omitempty"`
}

type RespRenew struct {
	Name      string `json:"name"`
	LabelHash string `json:"labelHash"`
	Paid      string `json:"paid"`
	Expiry    int64  `json:"expiry"`
}

type RespQuote struct {
	Name     string `json:"name"`
	Duration int64  `json:"duration"`
	Base     string `json:"base"`    // wei
	Premium  string `json:"premium"` // wei
}

type RespName struct {
	Name      string `json:"name"`
	Valid     bool   `json:"valid"`
	Available bool   `json:"available"`
	Expiry    int64  `json:"expiry,omitempty"`
}

type RespCommitmentAt struct {
	Commitment string `json:"commitment"`
	Timestamp  int64  `json:"timestamp"` // zero when never committed
}

type ReqWithdraw struct {
	Caller string `json:"caller"`
}

type RespWithdraw struct {
	Beneficiary string `json:"beneficiary"`
	Amount      string `json:"amount"`
}

// ReqSetOracle replaces the usd pricing table. Prices are USD per year
// indexed from 1-char names up; the last entry covers all longer names.
type ReqSetOracle struct {
	Caller        string   `json:"caller"`
	UsdPrices     []string `json:"usdPrices"`
	PremiumStart  string   `json:"premiumStart"`  // USD
	PremiumPeriod int64    `json:"premiumPeriod"` // halving period, seconds
}

type RespInfo struct {
	Suffix           string `json:"suffix"`
	BaseNode         string `json:"baseNode"`
	MinCommitmentAge int64  `json:"minCommitmentAge"`
	MaxCommitmentAge int64  `json:"maxCommitmentAge"`
	Owner            string `json:"owner"`
	Beneficiary      string `json:"beneficiary"`
	DepositAddress   string `json:"depositAddress"`
}

type RespErr struct {
	Err string `json:"error"`
}
