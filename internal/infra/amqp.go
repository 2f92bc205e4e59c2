package infra

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DialAMQP opens a broker connection using AMQP_URL.
func DialAMQP(cfg *Config) (*amqp.Connection, error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	return conn, nil
}
