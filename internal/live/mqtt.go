package live

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// MQTTBroker is the production Broker, backed by the platform's MQTT bus.
// Subscriptions use QoS 1 and survive reconnects.
type MQTTBroker struct {
	client mqtt.Client
}

func NewMQTTBroker(brokerURL, clientID string) (*MQTTBroker, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetResumeSubs(true)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Error().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &MQTTBroker{client: client}, nil
}

func (b *MQTTBroker) Publish(topic string, payload []byte) error {
	token := b.client.Publish(topic, 1, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}
	return nil
}

func (b *MQTTBroker) Subscribe(topic string, h Handler) (Subscription, error) {
	token := b.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Topic(), msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}
	return &mqttSub{client: b.client, topic: topic}, nil
}

func (b *MQTTBroker) Close() {
	b.client.Disconnect(250)
}

type mqttSub struct {
	client mqtt.Client
	topic  string
}

func (s *mqttSub) Unsubscribe() {
	if token := s.client.Unsubscribe(s.topic); token.Wait() && token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", s.topic).Msg("failed to unsubscribe")
	}
}
