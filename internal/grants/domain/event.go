package domain

// Event announces an applied registry call to subscribers.
type Event struct {
	Op      string  `json:"op"`
	Receipt Receipt `json:"receipt"`
}
