package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatMessagesPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_posted_total",
			Help:      "Total number of chat messages appended to the feed",
		},
	)

	ChatFeedReads = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_feed_reads_total",
			Help:      "Total number of full feed reads",
		},
	)

	ChatFeedSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_feed_size_messages",
			Help:      "Number of messages returned per feed read",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	ChatWebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chat_websocket_connections_active",
			Help:      "Number of active WebSocket connections",
		},
	)

	ChatWebSocketBroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_websocket_broadcasts_total",
			Help:      "Total number of feed events broadcast to WebSocket clients",
		},
	)

	ChatWebSocketDroppedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_websocket_dropped_messages_total",
			Help:      "Total number of dropped messages due to slow clients",
		},
	)

	ChatWebSocketDisconnections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_websocket_disconnections_total",
			Help:      "Total number of WebSocket disconnections",
		},
		[]string{"reason"},
	)
)
