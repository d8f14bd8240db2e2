package notify

// Navigator publishes the post-submit redirect as a navigation event; the
// web client follows it, and the submit response body carries the same path.
type Navigator struct {
	pub Publisher
}

func NewNavigator(pub Publisher) *Navigator {
	return &Navigator{pub: pub}
}

func (n *Navigator) GoTo(path string) {
	n.pub.Publish(Event{Type: "navigate", Data: map[string]string{"path": path}})
}

// Alerter surfaces submission failures as alert events.
type Alerter struct {
	pub Publisher
}

func NewAlerter(pub Publisher) *Alerter {
	return &Alerter{pub: pub}
}

func (a *Alerter) Alert(message string) {
	a.pub.Publish(Event{Type: "alert", Data: map[string]string{"message": message}})
}
