package broker

type publishContent[TScope comparable, TEvent any] struct {
	Scope TScope
	Event TEvent
}

type subscribeContent[TScope comparable, TEvent any] struct {
	Scope   TScope
	Channel chan TEvent
}

type unsubscribeContent[TScope comparable, TEvent any] struct {
	Scope   TScope
	Channel chan TEvent
}

// Notifier fans events out to every subscriber of a scope. The store
// publishes a change event after each successful write scoped by session, and
// each participant's engine instance subscribes to its session so it can
// re-fetch affected state instead of polling.
//
// Delivery is best-effort: a subscriber that has fallen behind its buffer
// misses the event. Subscribers must treat any received event as a hint to
// re-query, never as the full state, so a dropped event is repaired by the
// next one.
type Notifier[TScope comparable, TEvent any] struct {
	stopChannel        chan struct{}
	publishChannel     chan publishContent[TScope, TEvent]
	subscribeChannel   chan subscribeContent[TScope, TEvent]
	unsubscribeChannel chan unsubscribeContent[TScope, TEvent]
}

// subscriberBuffer bounds how far a subscriber may lag before events are dropped.
const subscriberBuffer = 16

// NewNotifier creates a new Notifier. Call Start in a goroutine to begin
// delivery and Stop to end it.
func NewNotifier[TScope comparable, TEvent any]() *Notifier[TScope, TEvent] {
	return &Notifier[TScope, TEvent]{
		stopChannel:        make(chan struct{}),
		publishChannel:     make(chan publishContent[TScope, TEvent]),
		subscribeChannel:   make(chan subscribeContent[TScope, TEvent]),
		unsubscribeChannel: make(chan unsubscribeContent[TScope, TEvent]),
	}
}

// Start listens for publish, subscribe, and unsubscribe events. This function blocks until Stop() is called,
// so it should be called in a goroutine.
func (n *Notifier[TScope, TEvent]) Start() {
	subscriberLists := map[TScope][]chan TEvent{}
	for {
		select {
		case <-n.stopChannel:
			for _, subscribers := range subscriberLists {
				for _, subscriber := range subscribers {
					close(subscriber)
				}
			}
			return

		case subscription := <-n.subscribeChannel:
			subscriberLists[subscription.Scope] = append(subscriberLists[subscription.Scope], subscription.Channel)

		case unsubscription := <-n.unsubscribeChannel:
			subscribers := subscriberLists[unsubscription.Scope]
			for i, subscriber := range subscribers {
				if subscriber == unsubscription.Channel {
					subscriberLists[unsubscription.Scope] = append(subscribers[:i], subscribers[i+1:]...)
					close(subscriber)
					break
				}
			}
			if len(subscriberLists[unsubscription.Scope]) == 0 {
				delete(subscriberLists, unsubscription.Scope)
			}

		case publication := <-n.publishChannel:
			for _, subscriber := range subscriberLists[publication.Scope] {
				// Non-blocking send so one stalled subscriber cannot hold up the store's write path.
				select {
				case subscriber <- publication.Event:
				default:
				}
			}
		}
	}
}

// Stop ends delivery and closes every subscriber channel.
func (n *Notifier[TScope, TEvent]) Stop() {
	close(n.stopChannel)
}

// Subscribe registers a new subscriber for the scope and returns its channel.
// The channel is closed on Unsubscribe or Stop.
func (n *Notifier[TScope, TEvent]) Subscribe(scope TScope) chan TEvent {
	channel := make(chan TEvent, subscriberBuffer)
	n.subscribeChannel <- subscribeContent[TScope, TEvent]{
		Scope:   scope,
		Channel: channel,
	}
	return channel
}

// Unsubscribe removes the subscriber channel from the scope and closes it.
func (n *Notifier[TScope, TEvent]) Unsubscribe(scope TScope, channel chan TEvent) {
	n.unsubscribeChannel <- unsubscribeContent[TScope, TEvent]{
		Scope:   scope,
		Channel: channel,
	}
}

// Publish delivers the event to every current subscriber of the scope.
func (n *Notifier[TScope, TEvent]) Publish(scope TScope, event TEvent) {
	n.publishChannel <- publishContent[TScope, TEvent]{
		Scope: scope,
		Event: event,
	}
}
