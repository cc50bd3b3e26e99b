package eventpubsub

import (
	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"
)

// Bus is an in-process pub/sub bus. Handlers run asynchronously, one at a time per handler.
type Bus struct {
	bus EventBus.Bus
}

func New() *Bus {
	return &Bus{
		bus: EventBus.New(),
	}
}

func (b *Bus) Publish(topic string, event interface{}) {
	if b == nil {
		return
	}

	b.bus.Publish(topic, event)
}

func (b *Bus) Subscribe(topic string, callbackFn interface{}) error {
	if err := b.bus.SubscribeAsync(topic, callbackFn, false); err != nil {
		return err
	}

	log.Infof("Subscribed to topic %s", topic)
	return nil
}

func (b *Bus) Unsubscribe(topic string, callbackFn interface{}) error {
	return b.bus.Unsubscribe(topic, callbackFn)
}

// WaitAsync blocks until every asynchronous handler has returned.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}
