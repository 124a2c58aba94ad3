package broker

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	Close() error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
}

type amqpConnection interface {
	Channel() (amqpChannel, error)
	Close() error
	IsClosed() bool
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
}

type dialFunc func(url string, cfg amqp.Config) (amqpConnection, error)

// connectionAdapter narrows *amqp.Connection to amqpConnection.
type connectionAdapter struct {
	*amqp.Connection
}

func (c connectionAdapter) Channel() (amqpChannel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string, cfg amqp.Config) (amqpConnection, error) {
	conn, err := amqp.DialConfig(url, cfg)
	if err != nil {
		return nil, err
	}
	return connectionAdapter{conn}, nil
}

// pooledChannel is a channel in confirm mode. It is used by one publisher at a
// time, so at most one confirmation is outstanding.
type pooledChannel struct {
	channel     amqpChannel
	notifyClose chan *amqp.Error
	confirms    chan amqp.Confirmation
}

func newPooledChannel(ch amqpChannel) (*pooledChannel, error) {
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	// buffered so the library never blocks delivering notifications
	return &pooledChannel{
		channel:     ch,
		notifyClose: ch.NotifyClose(make(chan *amqp.Error, 1)),
		confirms:    ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}, nil
}

// connectAndInitialize dials the broker and fills the channel pool. Callers
// must hold r.mu.
func (r *rabbitMqBroker) connectAndInitialize() error {
	if r.connection != nil && !r.connection.IsClosed() {
		r.connection.Close()
	}
	r.drainPoolLocked()

	connection, err := r.dial(r.settings.URL, amqp.Config{
		Vhost:     r.settings.Vhost,
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		r.connection = nil
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	notifyClose := connection.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		for err := range notifyClose {
			r.logger.Warn("RabbitMQ connection closed", "error", err)
		}
	}()

	for i := 0; i < r.poolSize; i++ {
		channel, err := connection.Channel()
		if err != nil {
			connection.Close()
			r.connection = nil
			r.drainPoolLocked()
			return fmt.Errorf("failed to open channel: %w", err)
		}
		pooledChan, err := newPooledChannel(channel)
		if err != nil {
			connection.Close()
			r.connection = nil
			r.drainPoolLocked()
			return err
		}
		r.channelPool <- pooledChan
	}

	r.connection = connection
	r.logger.Info("RabbitMQ connection and channel pool initialized", "vhost", r.settings.Vhost, "pool_size", r.poolSize)
	return nil
}

// drainPoolLocked closes every pooled channel. Callers must hold r.mu.
func (r *rabbitMqBroker) drainPoolLocked() {
	for {
		select {
		case pooledChan := <-r.channelPool:
			pooledChan.channel.Close()
		default:
			return
		}
	}
}

func (r *rabbitMqBroker) getChannel() (*pooledChannel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.connectedLocked() {
		return nil, ErrNotConnected
	}

	for {
		select {
		case pooledChan := <-r.channelPool:
			select {
			case err := <-pooledChan.notifyClose:
				r.logger.Debug("Discarding closed channel", "error", err)
				continue
			default:
				return pooledChan, nil
			}
		default:
			r.logger.Debug("Channel pool empty, opening new channel")
			channel, err := r.connection.Channel()
			if err != nil {
				return nil, fmt.Errorf("failed to open channel: %w", err)
			}
			return newPooledChannel(channel)
		}
	}
}

func (r *rabbitMqBroker) releaseChannel(pooledChan *pooledChannel) {
	select {
	case err := <-pooledChan.notifyClose:
		r.logger.Debug("Discarding closed channel", "error", err)
		return
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.connectedLocked() {
		pooledChan.channel.Close()
		return
	}
	select {
	case r.channelPool <- pooledChan:
	default:
		// Pool is full, close the channel
		pooledChan.channel.Close()
	}
}
