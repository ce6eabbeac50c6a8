package queue

import (
	"encoding/json"

	"github.com/streadway/amqp"
)

// DispatchQueueName is the RabbitMQ queue the worker consumes.
const DispatchQueueName = "campaign_dispatch"

// DispatchJob asks the worker to run a campaign's bulk send now.
type DispatchJob struct {
	CampaignID string `json:"campaign_id"`
}

// AMQPPublisher publishes dispatch jobs to RabbitMQ.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	_, err = ch.QueueDeclare(
		DispatchQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

// PublishCampaign enqueues a dispatch job for the campaign.
func (p *AMQPPublisher) PublishCampaign(campaignID string) error {
	body, err := json.Marshal(DispatchJob{CampaignID: campaignID})
	if err != nil {
		return err
	}

	return p.ch.Publish(
		"", // default exchange
		DispatchQueueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (p *AMQPPublisher) Close() {
	p.ch.Close()
	p.conn.Close()
}
