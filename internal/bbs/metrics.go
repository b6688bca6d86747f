package bbs

import "github.com/prometheus/client_golang/prometheus"

var (
	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bbs_online_users",
		Help: "Number of users currently logged in",
	})

	SessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bbs_sessions_total",
		Help: "Total accepted sessions",
	})

	LoginFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bbs_login_failures_total",
		Help: "Total failed password attempts",
	})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bbs_commands_total",
		Help: "Menu commands processed by type",
	}, []string{"command"})

	SessionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bbs_session_duration_seconds",
		Help:    "Session lifetime from accept to teardown",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
	})
)

func init() {
	prometheus.MustRegister(OnlineUsers)
	prometheus.MustRegister(SessionsTotal)
	prometheus.MustRegister(LoginFailuresTotal)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(SessionDuration)
}
