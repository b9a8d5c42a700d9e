package kafka

import (
	"log"
	"os"
	"strings"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultKafkaBrokers       = "localhost:9092"
	DefaultTaskGeneratedTopic = "task_generated_events"
)

// NewTaskGeneratedProducer builds the writer for task-generated events.
// Brokers and topic come from KAFKA_BROKERS and TASK_GENERATED_TOPIC.
func NewTaskGeneratedProducer() *kafka.Writer {
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		kafkaBrokers = DefaultKafkaBrokers
	}
	topic := os.Getenv("TASK_GENERATED_TOPIC")
	if topic == "" {
		topic = DefaultTaskGeneratedTopic
	}
	brokerList := strings.Split(kafkaBrokers, ",")
	producer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokerList,
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: int(kafka.RequireOne),
		Async:        false,
	})
	log.Printf("Task-generated event producer configured for topic: %s", topic)
	return producer
}
