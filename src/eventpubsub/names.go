package eventpubsub

const (
	LiveBarEvent          = "LiveBarEvent"
	LiveOrderEvent        = "LiveOrderEvent"
	LiveTradeClosedEvent  = "LiveTradeClosedEvent"
	LiveSessionErrorEvent = "LiveSessionErrorEvent"
	LiveSessionStatus     = "LiveSessionStatus"
)

// LiveTopics lists every topic a live session publishes to.
var LiveTopics = []string{
	LiveBarEvent,
	LiveOrderEvent,
	LiveTradeClosedEvent,
	LiveSessionErrorEvent,
	LiveSessionStatus,
}
