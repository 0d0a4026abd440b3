package meter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const inactivityLimit = 10 * time.Minute

// maxTimestampSkew bounds how far ahead of the receive time a payload's own
// timestamp may claim to be before it is ignored in favor of the receive
// time. Meters with a wrong clock must not be allowed to date readings into
// the future.
const maxTimestampSkew = 5 * time.Minute

// Reading is one raw observation of the meter's cumulative energy register.
type Reading struct {
	At  time.Time
	KWH float64
}

// Meter subscribes to an MQTT topic carrying the cumulative kWh register and
// delivers readings on C. The feed is irregular (sub-second to minutes) and
// occasionally malformed; unparseable payloads are dropped with a debug log.
type Meter struct {
	C chan Reading

	mqttClient      mqtt.Client
	logger          *slog.Logger
	topic           string
	lastMessageTime concurrentTimer
	stopMonitorCh   chan struct{}

	// OnInactivity fires when no message arrived within the inactivity limit.
	OnInactivity func()
}

func New(broker string, port int16, username string, password string, topic string) *Meter {
	logger := slog.Default().With("module", "meter")
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port))
	opts.SetClientID("tariffsaver")
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("meter MQTT connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("meter MQTT connection lost", slog.Any("error", err))
	}

	mqttLog := slog.Default().With("module", "mqtt")
	mqtt.CRITICAL = newMqttLogger(mqttLog, slog.LevelError)
	mqtt.ERROR = newMqttLogger(mqttLog, slog.LevelError)
	mqtt.WARN = newMqttLogger(mqttLog, slog.LevelWarn)

	return &Meter{
		C:          make(chan Reading, 64),
		mqttClient: mqtt.NewClient(opts),
		logger:     logger,
		topic:      topic,
	}
}

func (m *Meter) Connect() error {
	m.logger.Debug("connecting meter MQTT client")

	if token := m.mqttClient.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	m.inactivityWatchdog()

	token := m.mqttClient.Subscribe(m.topic, 0, func(client mqtt.Client, msg mqtt.Message) {
		m.lastMessageTime.Reset()

		reading, ok := parsePayload(msg.Payload(), time.Now())
		if !ok {
			m.logger.Debug("dropping unparseable meter payload",
				slog.String("topic", msg.Topic()),
				slog.Int("bytes", len(msg.Payload())))
			return
		}

		select {
		case m.C <- reading:
		default:
			// Consumer is behind; dropping beats blocking the MQTT router.
			m.logger.Warn("meter reading channel full, dropping reading")
		}
	})

	if token.Wait() && token.Error() != nil {
		return token.Error()
	}

	return nil
}

func (m *Meter) Disconnect() {
	m.logger.Info("disconnecting meter MQTT client")
	if m.stopMonitorCh != nil {
		close(m.stopMonitorCh)
		m.stopMonitorCh = nil
	}

	token := m.mqttClient.Unsubscribe(m.topic)
	token.WaitTimeout(1 * time.Second)
	if token.Error() != nil {
		m.logger.Error("error unsubscribing from topic", slog.Any("error", token.Error()))
	}

	m.mqttClient.Disconnect(250)
}

func (m *Meter) inactivityWatchdog() {
	m.lastMessageTime.Reset()
	m.stopMonitorCh = make(chan struct{})

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopMonitorCh:
				return
			case <-ticker.C:
				if m.lastMessageTime.Elapsed() > inactivityLimit {
					m.logger.Warn("no meter traffic", slog.Duration("elapsed", m.lastMessageTime.Elapsed()))
					if m.OnInactivity != nil {
						m.OnInactivity()
					}
				}
			}
		}
	}()
}

type jsonReading struct {
	Timestamp *string  `json:"timestamp"`
	KWHTotal  *float64 `json:"kwh_total"`
}

// parsePayload accepts either a JSON object with a kwh_total field (plus an
// optional RFC3339 timestamp) or a bare numeric payload stamped with the
// receive time.
func parsePayload(payload []byte, received time.Time) (Reading, bool) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return Reading{}, false
	}

	if strings.HasPrefix(trimmed, "{") {
		var jr jsonReading
		if err := json.Unmarshal([]byte(trimmed), &jr); err != nil || jr.KWHTotal == nil {
			return Reading{}, false
		}
		at := received
		if jr.Timestamp != nil {
			if t, err := time.Parse(time.RFC3339, *jr.Timestamp); err == nil {
				if !t.After(received.Add(maxTimestampSkew)) {
					at = t
				}
			}
		}
		return Reading{At: at.UTC(), KWH: *jr.KWHTotal}, true
	}

	kwh, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return Reading{}, false
	}
	return Reading{At: received.UTC(), KWH: kwh}, true
}
