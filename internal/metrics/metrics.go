package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// 数据库连接指标
	// ============================================
	DBConnectionPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lockproxy_db_connection_pool_size",
		Help: "Database connection pool size",
	})

	DBConnectionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lockproxy_db_connection_active",
		Help: "Number of active database connections",
	})

	DBConnectionIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lockproxy_db_connection_idle",
		Help: "Number of idle database connections",
	})

	// ============================================
	// NATS 连接和消息指标
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lockproxy_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockproxy_nats_messages_published_total",
			Help: "Total number of cross-chain messages published to NATS",
		},
		[]string{"to_chain"},
	)

	NATSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockproxy_nats_messages_received_total",
			Help: "Total number of cross-chain messages received from NATS",
		},
		[]string{"from_chain"},
	)

	NATSMessagesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockproxy_nats_messages_failed_total",
			Help: "Total number of NATS messages failed to process",
		},
		[]string{"from_chain", "error_kind"},
	)

	// ============================================
	// 网关业务指标
	// ============================================
	GatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockproxy_gateway_calls_total",
			Help: "Gateway entry point calls by operation and result kind",
		},
		[]string{"operation", "result"},
	)

	GatewayCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lockproxy_gateway_call_duration_seconds",
			Help:    "Gateway entry point duration in seconds, transaction included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	AssetsLocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockproxy_assets_locked_total",
			Help: "Number of successful lock operations",
		},
		[]string{"asset", "to_chain"},
	)

	AssetsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockproxy_assets_released_total",
			Help: "Number of releases by path (direct, approve, unban)",
		},
		[]string{"asset", "path"},
	)

	QuotaDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockproxy_quota_denials_total",
			Help: "Inbound unlocks that exceeded the asset quota",
		},
		[]string{"asset", "mode"},
	)

	ReleaseRequestTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockproxy_release_request_transitions_total",
			Help: "Release request status transitions",
		},
		[]string{"action"},
	)

	PendingReleaseRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lockproxy_release_requests_pending",
		Help: "Release requests waiting for review",
	})

	GatewayPaused = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lockproxy_gateway_paused",
		Help: "Circuit breaker state (1=paused, 0=running)",
	})

	// ============================================
	// HTTP / WebSocket
	// ============================================
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockproxy_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	ReviewFeedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lockproxy_review_feed_clients",
		Help: "Connected websocket review feed clients",
	})
)

// RecordDBStats copies database/sql pool statistics into the gauges
func RecordDBStats(stats sql.DBStats) {
	DBConnectionPoolSize.Set(float64(stats.MaxOpenConnections))
	DBConnectionActive.Set(float64(stats.InUse))
	DBConnectionIdle.Set(float64(stats.Idle))
}

// SetGatewayPaused mirrors the pause flag
func SetGatewayPaused(paused bool) {
	if paused {
		GatewayPaused.Set(1)
		return
	}
	GatewayPaused.Set(0)
}
