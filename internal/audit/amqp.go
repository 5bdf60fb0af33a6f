package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/ai-chatbot/internal/common"
)

// ErrRecentUnsupported is returned by recorders that only ship records out.
var ErrRecentUnsupported = errors.New("audit driver cannot list records")

const (
	defaultAMQPQueue = "chatbot.completion_audit"
	publishTimeout   = 5 * time.Second
)

// amqpChannel is the part of *amqp.Channel the recorder uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPRecorder publishes every record as JSON onto a durable queue for an
// external consumer. It keeps nothing itself, so Recent is unsupported.
type AMQPRecorder struct {
	conn  io.Closer
	ch    amqpChannel
	queue string
}

// DialAMQPRecorder connects to url and declares queue plus its dead-letter
// queue queue+".dlq".
func DialAMQPRecorder(url, queue string) (*AMQPRecorder, error) {
	if queue == "" {
		queue = defaultAMQPQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	dlq := queue + ".dlq"
	if _, err := ch.QueueDeclare(
		dlq,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	// rejected records end up in the DLQ
	if _, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dlq,
		},
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &AMQPRecorder{conn: conn, ch: ch, queue: queue}, nil
}

// NewAMQPRecorder wraps an already open channel. Close closes only the channel.
func NewAMQPRecorder(ch amqpChannel, queue string) *AMQPRecorder {
	if queue == "" {
		queue = defaultAMQPQueue
	}
	return &AMQPRecorder{ch: ch, queue: queue}
}

func (r *AMQPRecorder) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		id, err := common.NewULID()
		if err != nil {
			return err
		}
		rec.ID = id
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return r.ch.PublishWithContext(cctx,
		"",      // default exchange
		r.queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    rec.ID,
			Type:         rec.TableName(),
			Body:         body,
			Timestamp:    rec.CreatedAt,
		},
	)
}

func (r *AMQPRecorder) Recent(context.Context, int) ([]Record, error) {
	return nil, ErrRecentUnsupported
}

func (r *AMQPRecorder) Close() error {
	var errs []error
	if r.ch != nil {
		errs = append(errs, r.ch.Close())
	}
	if r.conn != nil {
		errs = append(errs, r.conn.Close())
	}
	return errors.Join(errs...)
}
