package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues events in memory and writes them from a single
// background goroutine, so Publish never waits on the broker.
//
// LIFECYCLE:
//   - NewKafkaPublisher starts the writer goroutine
//   - Publish enqueues; when the queue is full the event is dropped and logged
//   - Close stops accepting events, flushes what is queued and closes the writer
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
	queue  chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ Publisher = (*KafkaPublisher)(nil)

const (
	queueSize    = 256
	writeTimeout = 5 * time.Second
)

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // same user → same partition → ordered
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, logger)
}

func newKafkaPublisher(w messageWriter, logger *slog.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		writer: w,
		logger: logger,
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *KafkaPublisher) Publish(_ context.Context, e Event) {
	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.queue <- e:
	default:
		p.logger.Warn("events: queue full, dropping event",
			slog.String("type", e.Type),
			slog.String("eventID", e.ID),
		)
	}
}

func (p *KafkaPublisher) run() {
	defer p.wg.Done()
	for {
		select {
		case e := <-p.queue:
			p.write(e)
		case <-p.done:
			// drain what was queued before Close
			for {
				select {
				case e := <-p.queue:
					p.write(e)
				default:
					return
				}
			}
		}
	}
}

func (p *KafkaPublisher) write(e Event) {
	value, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("events: encoding event", slog.String("type", e.Type), slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.UserID),
		Value: value,
		Time:  e.OccurredAt,
	})
	if err != nil {
		p.logger.Warn("events: publish failed",
			slog.String("type", e.Type),
			slog.String("eventID", e.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Close flushes queued events and closes the writer. Safe to call twice.
func (p *KafkaPublisher) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
		err = p.writer.Close()
	})
	return err
}
