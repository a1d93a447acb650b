package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Bridge fans room events out across server instances through a Redis
// pub/sub channel. Each instance publishes its locally originated events and
// applies everyone else's; a single-instance deployment simply runs without
// a bridge and keeps identical semantics.
type Bridge struct {
	hub        *Hub
	rc         *redis.Client
	channel    string
	instanceID string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type bridgeMessage struct {
	Instance string          `json:"instance"`
	BoardID  string          `json:"boardId"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data"`
}

func NewBridge(hub *Hub, rc *redis.Client, channel string) *Bridge {
	return &Bridge{
		hub:        hub,
		rc:         rc,
		channel:    channel,
		instanceID: uuid.NewString(),
	}
}

// Start hooks the bridge into the hub and begins applying peer events.
func (b *Bridge) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	b.hub.SetRelay(b.publish)

	b.wg.Add(1)
	go b.subscribeLoop(ctx)
}

// Stop detaches from Redis and waits for the subscriber to exit.
func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

func (b *Bridge) publish(boardID uuid.UUID, ev Event) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		log.Printf("bridge: marshal %s: %v", ev.Event, err)
		return
	}
	msg, err := json.Marshal(bridgeMessage{
		Instance: b.instanceID,
		BoardID:  boardID.String(),
		Event:    ev.Event,
		Data:     data,
	})
	if err != nil {
		log.Printf("bridge: marshal message: %v", err)
		return
	}
	if err := b.rc.Publish(context.Background(), b.channel, msg).Err(); err != nil {
		log.Printf("bridge: publish %s: %v", ev.Event, err)
	}
}

func (b *Bridge) subscribeLoop(ctx context.Context) {
	defer b.wg.Done()

	for {
		sub := b.rc.Subscribe(ctx, b.channel)
		ch := sub.Channel()

	recv:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				b.apply(msg.Payload)
			}
		}

		sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.Println("bridge: pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}

func (b *Bridge) apply(payload string) {
	var msg bridgeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		log.Printf("bridge: unable to parse message: %v", err)
		return
	}
	if msg.Instance == b.instanceID {
		return
	}
	boardID, err := uuid.Parse(msg.BoardID)
	if err != nil {
		log.Printf("bridge: bad board ID %q: %v", msg.BoardID, err)
		return
	}
	b.hub.Deliver(boardID, Event{Event: msg.Event, Data: msg.Data})
}
