package broker

import (
	"context"
	"encoding/json"

	"github.com/creamline/milkrun/wallet"

	extErrors "github.com/pkg/errors"
	"github.com/streadway/amqp"
)

var _ wallet.Notifier = &AMQPBroker{}

const (
	walletCreditExchange   string = "wallet_credit"
	walletCreditRoutingKey        = "credit_owed"
)

// AMQPBroker publishes wallet credit notices via RabbitMQ. The wallet
// service consumes them and performs the actual crediting
type AMQPBroker struct {
	connection *amqp.Connection
	channel    *amqp.Channel
}

// NewAMQPBroker returns a message broker over RabbitMQ
func NewAMQPBroker(amqpURI string) (*AMQPBroker, error) {
	amqpConn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot connect to Message Broker")
	}
	amqpChan, err := amqpConn.Channel()
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot create broker channel")
	}
	broker := &AMQPBroker{
		connection: amqpConn,
		channel:    amqpChan,
	}
	if err := broker.setupCreditExchange(); err != nil {
		return nil, extErrors.Wrap(err, "Cannot declare exchange for wallet credits")
	}

	return broker, nil
}

func (a *AMQPBroker) setupCreditExchange() error {
	return a.channel.ExchangeDeclare(
		walletCreditExchange, // name
		"direct",             // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	)
}

// Close will close the channel and connection to release resources
func (a *AMQPBroker) Close() {
	a.channel.Close()
	a.connection.Close()
}

// NotifyCredit publishes the credit notice for the wallet service
func (a *AMQPBroker) NotifyCredit(ctx context.Context, notice wallet.CreditNotice) error {
	jsonBytes, err := json.Marshal(&notice)
	if err != nil {
		return extErrors.Wrap(err, "Cannot encode credit notice into bytes")
	}
	if err := a.channel.Publish(
		walletCreditExchange,
		walletCreditRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        jsonBytes,
		},
	); err != nil {
		return extErrors.Wrap(err, "Cannot publish credit notice")
	}
	return nil
}
