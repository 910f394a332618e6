package constants

// Exchange
const (
	MonitorExchange     = "monitor_exchange"
	MonitorExchangeType = "topic"
)

// Routing keys
const (
	RoutingKeyZeroRatioAlerts = "monitor.alerts.zero_ratio"
	RoutingKeyPriceChanges    = "monitor.alerts.price_change"
)

// Event contracts
const (
	EventZeroRatioAlert = "ZeroRatioAlertEvent"
	EventPriceChange    = "PriceChangeEvent"
	EventVersion        = "1.0.0"
)
