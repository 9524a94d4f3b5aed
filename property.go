package incr

import "github.com/AnatoleLucet/incr/internal"

// PropertyChange reports that a named attribute of Sender changed value.
type PropertyChange struct {
	Sender   any
	Property string
}

// PropertyNotifier is implemented by items whose mutable state takes part in a computation.
type PropertyNotifier interface {
	OnPropertyChanged(fn func(PropertyChange)) Subscription
}

// Notifier implements PropertyNotifier. Embed it in item types.
type Notifier struct {
	changes internal.Emitter
}

func (n *Notifier) OnPropertyChanged(fn func(PropertyChange)) Subscription {
	return n.changes.Subscribe(func(v any) { fn(as[PropertyChange](v)) })
}

// NotifyPropertyChanged tells every listener that property of sender changed.
func (n *Notifier) NotifyPropertyChanged(sender any, property string) {
	n.changes.Emit(PropertyChange{Sender: sender, Property: property})
}

func watchProperties(item any, fn func(PropertyChange)) Subscription {
	if isNil(item) {
		return nil
	}

	pn, ok := item.(PropertyNotifier)
	if !ok {
		return nil
	}

	return pn.OnPropertyChanged(fn)
}

func unsubscribe(sub Subscription) {
	if sub != nil {
		sub.Unsubscribe()
	}
}
