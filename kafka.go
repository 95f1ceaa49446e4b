package nameseed

import (
	"context"
	"encoding/json"

	"github.com/panjf2000/ants/v2"
	"github.com/segmentio/kafka-go"
	"github.com/web3infra/nameseed/schema"
)

type KWriter struct {
	w *kafka.Writer
}

func NewKWriter(topic string, uri string) (*KWriter, error) {
	w := &kafka.Writer{
		Addr:     kafka.TCP(uri),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &KWriter{
		w: w,
	}, nil
}

func (kw *KWriter) Write(body []byte) error {
	err := kw.w.WriteMessages(
		context.Background(),
		kafka.Message{
			Value: body,
		},
	)
	return err
}

func (kw *KWriter) Close() {
	kw.w.Close()
}

// KafkaSink publishes controller events to their topics through a small
// worker pool so a slow broker never stalls a registration. Publish errors
// are logged, not surfaced; the controller treats emission as infallible.
type KafkaSink struct {
	writers map[string]*KWriter
	pool    *ants.Pool
}

func NewKafkaSink(uri string) (*KafkaSink, error) {
	writers := make(map[string]*KWriter, 3)
	for _, topic := range []string{schema.RegisteredTopic, schema.RenewedTopic, schema.OracleChangedTopic} {
		w, err := NewKWriter(topic, uri)
		if err != nil {
			return nil, err
		}
		writers[topic] = w
	}
	pool, err := ants.NewPool(10)
	if err != nil {
		return nil, err
	}
	return &KafkaSink{writers: writers, pool: pool}, nil
}

func (s *KafkaSink) publish(topic string, ev interface{}) {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Error("marshal event", "err", err, "topic", topic)
		return
	}
	err = s.pool.Submit(func() {
		if werr := s.writers[topic].Write(body); werr != nil {
			log.Error("publish event", "err", werr, "topic", topic)
		}
	})
	if err != nil {
		log.Error("submit event", "err", err, "topic", topic)
	}
}

func (s *KafkaSink) Registered(ev schema.EventRegistered) {
	s.publish(schema.RegisteredTopic, ev)
}

func (s *KafkaSink) Renewed(ev schema.EventRenewed) {
	s.publish(schema.RenewedTopic, ev)
}

func (s *KafkaSink) PriceOracleChanged(ev schema.EventOracleChanged) {
	s.publish(schema.OracleChangedTopic, ev)
}

func (s *KafkaSink) Close() {
	for _, w := range s.writers {
		w.Close()
	}
	s.pool.Release()
}

// NoopSink drops events; used when no kafka uri is configured.
type NoopSink struct{}

func (NoopSink) Registered(schema.EventRegistered)            {}
func (NoopSink) Renewed(schema.EventRenewed)                  {}
func (NoopSink) PriceOracleChanged(schema.EventOracleChanged) {}
