package mesh

import (
	"github.com/grekinsky/lorachain-sub002/ids"
)

// The event kinds below are the closed set subsystems publish to the
// mesh protocol (spec §9 redesign: typed channels per event kind
// instead of an EventEmitter everyone subscribes to generically).
type PeerDiscoveredEvent struct{ Peer ids.NodeID }
type PeerBannedEvent struct{ Peer ids.NodeID }
type DeliveryConfirmedEvent struct{ MessageID ids.MessageID }
type DeliveryFailedEvent struct{ MessageID ids.MessageID }
type FragmentCompleteEvent struct {
	MessageID ids.MessageID
	Sender    ids.NodeID
}

// Bus fans events out to one channel per kind, so a subscriber
// interested only in bans never blocks on delivery-confirmation
// traffic (spec §9: subsystems subscribe at construction, tests drain
// channels deterministically).
type Bus struct {
	PeerDiscovered    chan PeerDiscoveredEvent
	PeerBanned        chan PeerBannedEvent
	DeliveryConfirmed chan DeliveryConfirmedEvent
	DeliveryFailed    chan DeliveryFailedEvent
	FragmentComplete  chan FragmentCompleteEvent
}

// NewBus builds a Bus with the given per-channel buffer size.
func NewBus(buffer int) *Bus {
	return &Bus{
		PeerDiscovered:    make(chan PeerDiscoveredEvent, buffer),
		PeerBanned:        make(chan PeerBannedEvent, buffer),
		DeliveryConfirmed: make(chan DeliveryConfirmedEvent, buffer),
		DeliveryFailed:    make(chan DeliveryFailedEvent, buffer),
		FragmentComplete:  make(chan FragmentCompleteEvent, buffer),
	}
}

// Publish* are non-blocking best-effort sends: a full channel (a
// stalled or absent subscriber) drops the event rather than stalling
// the publishing subsystem's own cooperative task.
func (b *Bus) PublishPeerDiscovered(e PeerDiscoveredEvent) {
	select {
	case b.PeerDiscovered <- e:
	default:
	}
}

func (b *Bus) PublishPeerBanned(e PeerBannedEvent) {
	select {
	case b.PeerBanned <- e:
	default:
	}
}

func (b *Bus) PublishDeliveryConfirmed(e DeliveryConfirmedEvent) {
	select {
	case b.DeliveryConfirmed <- e:
	default:
	}
}

func (b *Bus) PublishDeliveryFailed(e DeliveryFailedEvent) {
	select {
	case b.DeliveryFailed <- e:
	default:
	}
}

func (b *Bus) PublishFragmentComplete(e FragmentCompleteEvent) {
	select {
	case b.FragmentComplete <- e:
	default:
	}
}
