package notify

import (
	"github.com/gen2brain/beeep"

	"dictafield/log"
)

var rank = map[Type]int{Info: 0, Success: 1, Warning: 2, Danger: 3}

// Desktop shows notifications through the OS notification daemon.
// Notifications below MinType are dropped; sticky ones use an alert.
type Desktop struct {
	AppName string
	MinType Type
	Icon    string

	notify func(title, message string, icon any) error
	alert  func(title, message string, icon any) error
}

func NewDesktop(appName string, min Type) *Desktop {
	return &Desktop{
		AppName: appName,
		MinType: min,
		notify:  func(t, m string, i any) error { return beeep.Notify(t, m, i) },
		alert:   func(t, m string, i any) error { return beeep.Alert(t, m, i) },
	}
}

func (d *Desktop) Add(n Notification) {
	if rank[n.Type] < rank[d.MinType] {
		return
	}
	title := d.AppName
	if n.Title != "" {
		title += ": " + n.Title
	}
	show := d.notify
	if n.Sticky {
		show = d.alert
	}
	go func() {
		if err := show(title, n.Message, d.Icon); err != nil {
			log.Warnf("desktop notification failed: %v", err)
		}
	}()
}
