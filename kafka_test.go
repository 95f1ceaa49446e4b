package nameseed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/web3infra/nameseed/schema"
)

func TestKafkaSinkTopics(t *testing.T) {
	// the writers are lazy, so construction needs no broker
	sink, err := NewKafkaSink("localhost:9092")
	assert.NoError(t, err)
	defer sink.Close()

	for _, topic := range []string{schema.RegisteredTopic, schema.RenewedTopic, schema.OracleChangedTopic} {
		assert.NotNil(t, sink.writers[topic])
	}
}

func TestNoopSink(t *testing.T) {
	var sink EventSink = NoopSink{}
	sink.Registered(schema.EventRegistered{})
	sink.Renewed(schema.EventRenewed{})
	sink.PriceOracleChanged(schema.EventOracleChanged{})
}
