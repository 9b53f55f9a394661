// Structure of the relay Metrics in Mechat.

package entity

// Saved in DB as the fields of a Redis hash.
type Metrics struct {
	// Sockets accepted since the counters were created.
	ConnectionsOpened int64 `json:"connections_opened" redis:"connections_opened"`
	// Highest number of simultaneously registered users seen.
	PeakConnections int64 `json:"peak_connections" redis:"peak_connections"`
}
