package node

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics instruments for the node package.
// When no MeterProvider is configured (noop), all recording is zero-cost.
var (
	meter = otel.Meter("gossipnet.node")

	metricMessagesOriginated metric.Int64Counter
	metricMessagesAdmitted   metric.Int64Counter
	metricMessagesDuplicate  metric.Int64Counter
	metricForwardedPeers     metric.Int64Histogram
	metricDecodeErrors       metric.Int64Counter
	metricReceiveErrors      metric.Int64Counter
	metricSendErrors         metric.Int64Counter
)

func init() {
	var err error

	metricMessagesOriginated, err = meter.Int64Counter("gossipnet.messages.originated",
		metric.WithDescription("Messages originated locally via Originate"),
		metric.WithUnit("{messages}"),
	)
	if err != nil {
		panic("otel meter: " + err.Error())
	}

	metricMessagesAdmitted, err = meter.Int64Counter("gossipnet.messages.admitted",
		metric.WithDescription("Received messages admitted to the dedup cache"),
		metric.WithUnit("{messages}"),
	)
	if err != nil {
		panic("otel meter: " + err.Error())
	}

	metricMessagesDuplicate, err = meter.Int64Counter("gossipnet.messages.duplicate",
		metric.WithDescription("Received messages rejected as duplicates"),
		metric.WithUnit("{messages}"),
	)
	if err != nil {
		panic("otel meter: " + err.Error())
	}

	metricForwardedPeers, err = meter.Int64Histogram("gossipnet.forward.peers",
		metric.WithDescription("Peers a message was forwarded to per gossip round"),
		metric.WithUnit("{peers}"),
	)
	if err != nil {
		panic("otel meter: " + err.Error())
	}

	metricDecodeErrors, err = meter.Int64Counter("gossipnet.decode.errors",
		metric.WithDescription("Datagrams dropped due to codec decode failure"),
		metric.WithUnit("{datagrams}"),
	)
	if err != nil {
		panic("otel meter: " + err.Error())
	}

	metricReceiveErrors, err = meter.Int64Counter("gossipnet.receive.errors",
		metric.WithDescription("Non-fatal errors from the endpoint's Receive"),
		metric.WithUnit("{errors}"),
	)
	if err != nil {
		panic("otel meter: " + err.Error())
	}

	metricSendErrors, err = meter.Int64Counter("gossipnet.send.errors",
		metric.WithDescription("Errors forwarding a message to a single peer"),
		metric.WithUnit("{errors}"),
	)
	if err != nil {
		panic("otel meter: " + err.Error())
	}
}
