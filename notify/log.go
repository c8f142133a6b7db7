package notify

import "dictafield/log"

// Log writes every notification to the diagnostics log.
type Log struct{}

func (Log) Add(n Notification) {
	log.Notification(string(n.Type), n.Title, n.Message)
}
