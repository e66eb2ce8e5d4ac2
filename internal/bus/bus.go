// Package bus is the Frame Bus (C1): the AMQP topology carrying encoded
// frames camera→processor, config-invalidation events, and the WebSocket
// fan-out queue, per spec §6.
//
// No example repo in the retrieval pack uses an AMQP client (checked across
// every go.mod); amqp091-go is introduced here as a deliberate, named
// exception — it is the RabbitMQ-maintained canonical Go client for the exact
// protocol semantics (durable/non-durable queues, topic and fanout exchanges)
// spec §6 requires. The reconnect-with-backoff shape follows the teacher's
// infinite-retry idiom in internal/pipeline/frame_provider.go's capture loop.
package bus

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"visionmesh/internal/model"
)

const (
	FramesQueue         = "frames_queue"
	WebsocketEventsQ    = "websocket_events"
	NotificationsQueue  = "notifications_queue"
	ConfigEventsExchange = "config_events"
	WSExchange          = "ws_exchange"
	PipelineUpdatedKey  = "pipeline.updated"

	reconnectBackoff = 5 * time.Second
)

// Bus owns the AMQP connection and declares the full topology on connect.
type Bus struct {
	addr string
	log  zerolog.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

func New(addr string, log zerolog.Logger) *Bus {
	return &Bus{addr: addr, log: log}
}

// Connect dials and declares the topology, retrying with a fixed back-off
// until ctx is cancelled — matching spec §5's "reconnection loops are
// infinite with 5-s back-off".
func (b *Bus) Connect(ctx context.Context) error {
	for {
		conn, err := amqp.Dial(b.addr)
		if err == nil {
			ch, chErr := conn.Channel()
			if chErr == nil {
				if declErr := declareTopology(ch); declErr == nil {
					b.conn = conn
					b.ch = ch
					return nil
				} else {
					err = declErr
				}
			} else {
				err = chErr
			}
			conn.Close()
		}

		b.log.Warn().Err(err).Msg("amqp connect failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectBackoff):
		}
	}
}

func declareTopology(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(FramesQueue, false, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring %s: %w", FramesQueue, err)
	}
	if _, err := ch.QueueDeclare(WebsocketEventsQ, false, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring %s: %w", WebsocketEventsQ, err)
	}
	if _, err := ch.QueueDeclare(NotificationsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring %s: %w", NotificationsQueue, err)
	}
	if err := ch.ExchangeDeclare(ConfigEventsExchange, "topic", false, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring exchange %s: %w", ConfigEventsExchange, err)
	}
	if err := ch.ExchangeDeclare(WSExchange, "fanout", false, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring exchange %s: %w", WSExchange, err)
	}
	if err := ch.QueueBind(WebsocketEventsQ, "", WSExchange, false, nil); err != nil {
		return fmt.Errorf("binding %s to %s: %w", WebsocketEventsQ, WSExchange, err)
	}
	return nil
}

func (b *Bus) Close() {
	if b.ch != nil {
		b.ch.Close()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}

// PublishFrame enqueues a FrameMessage onto frames_queue, non-persistent
// delivery mode per spec §6.
func (b *Bus) PublishFrame(ctx context.Context, camera string, jpeg []byte, ts time.Time) error {
	msg := model.FrameMessage{
		CameraName: camera,
		Timestamp:  float64(ts.UnixNano()) / 1e9,
		Frame:      hex.EncodeToString(jpeg),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding frame message: %w", err)
	}
	return b.ch.PublishWithContext(ctx, "", FramesQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Body:         body,
	})
}

// PublishConfigEvent publishes the camera name as a bare string on the
// pipeline.updated routing key, per spec §4.2/§6.
func (b *Bus) PublishConfigEvent(ctx context.Context, cameraName string) error {
	return b.ch.PublishWithContext(ctx, ConfigEventsExchange, PipelineUpdatedKey, false, false, amqp.Publishing{
		ContentType:  "text/plain",
		DeliveryMode: amqp.Transient,
		Body:         []byte(cameraName),
	})
}

// PublishWsEvent fans the compact WsEvent body out to every WebSocket
// broadcaster instance subscribed to ws_exchange.
func (b *Bus) PublishWsEvent(ctx context.Context, body []byte) error {
	return b.ch.PublishWithContext(ctx, WSExchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Body:         body,
	})
}

// PublishNotification enqueues a durable message for a deferred notification
// sink (telegram/email/whatsapp retried outside the hot path).
func (b *Bus) PublishNotification(ctx context.Context, body []byte) error {
	return b.ch.PublishWithContext(ctx, "", NotificationsQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// FrameHandler processes one FrameMessage; a returned error only affects
// metrics/logging, never bus acknowledgement — frames are always acked after
// the handler returns, per spec §4.3's "frame is always acknowledged on the
// bus after executor return".
type FrameHandler func(model.FrameMessage) error

// ConsumeFrames runs one prefetch-1 consumer over frames_queue until ctx is
// cancelled, acking every delivery exactly once regardless of handler outcome.
func (b *Bus) ConsumeFrames(ctx context.Context, handler FrameHandler) error {
	if err := b.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("setting qos: %w", err)
	}
	deliveries, err := b.ch.Consume(FramesQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming %s: %w", FramesQueue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("frames_queue delivery channel closed")
			}
			var msg model.FrameMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				b.log.Warn().Err(err).Msg("dropping undecodable frame message")
				d.Ack(false)
				continue
			}
			if err := handler(msg); err != nil {
				b.log.Warn().Err(err).Str("camera", msg.CameraName).Msg("frame handler error")
			}
			d.Ack(false)
		}
	}
}

// ConsumeConfigEvents binds an exclusive, auto-deleting queue to
// config_events/pipeline.updated and invokes handler with each camera name,
// mirroring original_source's _start_config_update_listener.
func (b *Bus) ConsumeConfigEvents(ctx context.Context, handler func(cameraName string)) error {
	q, err := b.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declaring config-event queue: %w", err)
	}
	if err := b.ch.QueueBind(q.Name, PipelineUpdatedKey, ConfigEventsExchange, false, nil); err != nil {
		return fmt.Errorf("binding config-event queue: %w", err)
	}
	deliveries, err := b.ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming config-event queue: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("config-event delivery channel closed")
			}
			handler(string(d.Body))
		}
	}
}

// ConsumeWsEvents is the single websocket_events consumer backing the
// WebSocket Broadcaster (C9).
func (b *Bus) ConsumeWsEvents(ctx context.Context, handler func(body []byte)) error {
	deliveries, err := b.ch.Consume(WebsocketEventsQ, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming %s: %w", WebsocketEventsQ, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("websocket_events delivery channel closed")
			}
			handler(d.Body)
		}
	}
}
