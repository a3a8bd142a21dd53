// Package broadcast carries real-time events to listeners grouped in rooms.
//
// A Publisher sends an Event (name, JSON payload, timestamp) to a room.
// Notification state changes are published to UserRoom(userID) so that every
// client of that user sees them. Publishing is fire-and-forget: slow
// subscribers drop events and publish errors are reported but never block
// the caller.
//
// Implementations:
//
//   - MemoryPublisher: in-process rooms, for a single instance and tests
//   - RedisPublisher: Redis PUB/SUB, for several API instances
//   - MultiPublisher: fan out to several publishers
//   - NoopPublisher: discard
//
// Basic usage:
//
//	pub := broadcast.NewMemoryPublisher(16)
//	defer pub.Close()
//
//	sub := pub.Subscribe(ctx, broadcast.UserRoom("u1"))
//	defer sub.Close()
//
//	_ = pub.Publish(ctx, broadcast.UserRoom("u1"), "notification.created", payload)
//
//	for ev := range sub.Events() {
//		fmt.Println(ev.Name)
//	}
package broadcast
