package eventproducers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/jiaming2012/strategy-engine/src/eventpubsub"
	"github.com/jiaming2012/strategy-engine/src/utils"
)

const appendTimeout = 5 * time.Second

// IStreamAppender is the part of *esdb.Client the journal writes through.
type IStreamAppender interface {
	AppendToStream(ctx context.Context, streamID string, opts esdb.AppendToStreamOptions, events ...esdb.EventData) (*esdb.WriteResult, error)
}

type JournalMetadata struct {
	Topic        string                 `json:"topic"`
	SessionID    uuid.UUID              `json:"session_id"`
	TraceContext *utils.TraceContextDTO `json:"trace_context,omitempty"`
}

// EsdbJournal appends every live session event published on the bus to the session's stream.
type EsdbJournal struct {
	ctx      context.Context
	db       IStreamAppender
	bus      *eventpubsub.Bus
	mutex    sync.Mutex
	handlers map[string]func(eventpubsub.SessionEvent)
	appended int
	failures int
}

func NewEsdbClient(url string) (*esdb.Client, error) {
	settings, err := esdb.ParseConnectionString(url)
	if err != nil {
		return nil, fmt.Errorf("NewEsdbClient: failed to parse connection string: %w", err)
	}

	db, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("NewEsdbClient: failed to create client: %w", err)
	}

	return db, nil
}

func SessionStreamName(sessionID uuid.UUID) string {
	return fmt.Sprintf("live-session-%s", sessionID)
}

func (j *EsdbJournal) insertEvent(ctx context.Context, topic string, ev eventpubsub.SessionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	meta, err := json.Marshal(JournalMetadata{
		Topic:        topic,
		SessionID:    ev.SessionID,
		TraceContext: utils.NewTraceContextDTO(trace.SpanContextFromContext(ctx)),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	eventData := esdb.EventData{
		EventID:     uuid.New(),
		ContentType: esdb.ContentTypeJson,
		EventType:   topic,
		Data:        data,
		Metadata:    meta,
	}

	ctx, cancel := context.WithTimeout(ctx, appendTimeout)
	defer cancel()

	if _, err := j.db.AppendToStream(ctx, SessionStreamName(ev.SessionID), esdb.AppendToStreamOptions{}, eventData); err != nil {
		return fmt.Errorf("failed to append event to stream: %w", err)
	}

	return nil
}

func (j *EsdbJournal) handle(topic string, ev eventpubsub.SessionEvent) {
	err := j.insertEvent(j.ctx, topic, ev)

	j.mutex.Lock()
	defer j.mutex.Unlock()

	if err != nil {
		j.failures++
		log.Errorf("EsdbJournal: %s for session %s: %v", topic, ev.SessionID, err)
		return
	}

	j.appended++
	log.Debugf("EsdbJournal: saved %s to %s", topic, SessionStreamName(ev.SessionID))
}

// Start subscribes the journal to every live session topic.
func (j *EsdbJournal) Start() error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	for _, topic := range eventpubsub.LiveTopics {
		if _, ok := j.handlers[topic]; ok {
			continue
		}

		topic := topic
		fn := func(ev eventpubsub.SessionEvent) {
			j.handle(topic, ev)
		}

		if err := j.bus.Subscribe(topic, fn); err != nil {
			return fmt.Errorf("EsdbJournal.Start: failed to subscribe to %s: %w", topic, err)
		}

		j.handlers[topic] = fn
	}

	return nil
}

// Stop unsubscribes from the bus and waits for in-flight appends.
func (j *EsdbJournal) Stop() {
	j.mutex.Lock()
	for topic, fn := range j.handlers {
		if err := j.bus.Unsubscribe(topic, fn); err != nil {
			log.Warnf("EsdbJournal.Stop: failed to unsubscribe from %s: %v", topic, err)
		}
		delete(j.handlers, topic)
	}
	j.mutex.Unlock()

	j.bus.WaitAsync()
}

// Stats returns how many events were appended and how many appends failed.
func (j *EsdbJournal) Stats() (appended int, failures int) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	return j.appended, j.failures
}

func NewEsdbJournal(ctx context.Context, db IStreamAppender, bus *eventpubsub.Bus) *EsdbJournal {
	return &EsdbJournal{
		ctx:      ctx,
		db:       db,
		bus:      bus,
		handlers: make(map[string]func(eventpubsub.SessionEvent)),
	}
}
