package schema

// Kafka topics the controller events are published on.
const (
	RegisteredTopic    = "nameseed_registered"
	RenewedTopic       = "nameseed_renewed"
	OracleChangedTopic = "nameseed_oracle_changed"
)

type EventRegistered struct {
	Name      string `json:"name"`
	LabelHash string `json:"labelHash"`
	Owner     string `json:"owner"`
	Base      string `json:"base"`
	Premium   string `json:"premium"`
	Expiry    int64  `json:"expiry"`
	At        int64  `json:"at"`
}

type EventRenewed struct {
	Name      string `json:"name"`
	LabelHash string `json:"labelHash"`
	Paid      string `json:"paid"`
	Expiry    int64  `json:"expiry"`
	At        int64  `json:"at"`
}

type EventOracleChanged struct {
	Old string `json:"old"`
	New string `json:"new"`
	At  int64  `json:"at"`
}
