// Package metrics exposes the relay's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons used as the `reason` label on huddle_signaling_dropped_total.
const (
	DropReasonBadMessage    = "bad_message"
	DropReasonBadJoin       = "bad_join"
	DropReasonNotSameRoom   = "not_same_room"
	DropReasonUnknownTarget = "unknown_target"
)

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "huddle_ws_connections",
			Help: "Current number of live signaling connections.",
		},
	)
	liveRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "huddle_rooms",
			Help: "Current number of rooms with at least one member.",
		},
	)
	roomMembers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "huddle_room_members",
			Help: "Current number of room memberships.",
		},
	)
	joins = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_joins_total",
			Help: "Total successful room joins.",
		},
	)
	forwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_signaling_forwarded_total",
			Help: "Total peer-directed messages forwarded, by message type.",
		},
		[]string{"type"},
	)
	dropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_signaling_dropped_total",
			Help: "Total signaling messages dropped, by reason.",
		},
		[]string{"reason"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_http_requests_total",
			Help: "Total HTTP requests, by method, matched route and status code.",
		},
		[]string{"method", "route", "code"},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, liveRooms, roomMembers, joins, forwarded, dropped, httpRequests)
}

func ConnectionOpened() { wsConnections.Inc() }
func ConnectionClosed() { wsConnections.Dec() }

func SetDirectoryGauges(rooms, members int) {
	liveRooms.Set(float64(rooms))
	roomMembers.Set(float64(members))
}

func JoinCompleted() { joins.Inc() }

func MessageForwarded(msgType string) { forwarded.WithLabelValues(msgType).Inc() }
func MessageDropped(reason string)    { dropped.WithLabelValues(reason).Inc() }

func HTTPRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler serves the Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
