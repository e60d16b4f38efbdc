package kafka

import segkafka "github.com/segmentio/kafka-go"

// HeaderCarrier lets OpenTelemetry read and write trace context in Kafka
// message headers. It implements propagation.TextMapCarrier.
type HeaderCarrier []segkafka.Header

func (c HeaderCarrier) Get(key string) string {
	for _, h := range c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Set replaces any header already stored under key.
func (c *HeaderCarrier) Set(key, value string) {
	kept := (*c)[:0]
	for _, h := range *c {
		if h.Key != key {
			kept = append(kept, h)
		}
	}
	*c = append(kept, segkafka.Header{Key: key, Value: []byte(value)})
}

func (c HeaderCarrier) Keys() []string {
	out := make([]string, 0, len(c))
	for _, h := range c {
		out = append(out, h.Key)
	}
	return out
}
