package common

// Subscription is returned by every Subscribe* method, Cancel removes the observer
type Subscription struct {
	cancel func()
}

// NewSubscription creates a Subscription which calls cancel once
func NewSubscription(cancel func()) Subscription {
	return Subscription{cancel: cancel}
}

// Cancel removes the observer; calling it more than once is harmless
func (s Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// ObserverList keeps observers in subscription order
type ObserverList struct {
	nextID    int
	observers []observer
}

type observer struct {
	id int
	fn interface{}
}

// Add appends fn and returns the subscription removing it
func (ol *ObserverList) Add(fn interface{}) Subscription {
	ol.nextID += 1
	id := ol.nextID
	ol.observers = append(ol.observers, observer{id: id, fn: fn})
	return NewSubscription(func() {
		ol.remove(id)
	})
}

func (ol *ObserverList) remove(id int) {
	for i, o := range ol.observers {
		if o.id == id {
			ol.observers = append(ol.observers[:i:i], ol.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of observers
func (ol *ObserverList) Len() int {
	return len(ol.observers)
}

// Each calls f with a snapshot of the observers, so observers may subscribe or cancel during the call
func (ol *ObserverList) Each(f func(fn interface{})) {
	if len(ol.observers) == 0 {
		return
	}
	snapshot := make([]observer, len(ol.observers))
	copy(snapshot, ol.observers)
	for _, o := range snapshot {
		f(o.fn)
	}
}
