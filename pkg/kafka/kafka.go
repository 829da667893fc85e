package kafka

import (
	"log"

	"github.com/IBM/sarama"
)

// Producer 生产者
type Producer struct {
	asyncProducer sarama.AsyncProducer
}

// InitProducer 初始化生产者
func InitProducer(brokers []string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Partitioner = sarama.NewHashPartitioner
	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return newProducer(producer), nil
}

// newProducer 包装异步生产者并启动回执排水协程
func newProducer(asyncProducer sarama.AsyncProducer) *Producer {
	p := &Producer{asyncProducer: asyncProducer}
	go p.drainAcks()
	return p
}

// drainAcks 持续读取Successes和Errors通道。
// 两个通道不读的话缓冲填满后Input会永久阻塞，发送方跟着挂死。
// Close关闭通道后协程退出。
func (p *Producer) drainAcks() {
	successes := p.asyncProducer.Successes()
	errs := p.asyncProducer.Errors()
	for successes != nil || errs != nil {
		select {
		case _, ok := <-successes:
			if !ok {
				successes = nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
			} else if err != nil {
				log.Printf("kafka produce failed: %v", err)
			}
		}
	}
}

// SendMessage 发送消息
func (p *Producer) SendMessage(topic string, key, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	p.asyncProducer.Input() <- msg
	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	return p.asyncProducer.Close()
}
