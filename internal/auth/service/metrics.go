package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts token and account outcomes.
type Metrics struct {
	TokensIssued    *prometheus.CounterVec
	RefreshReplays  prometheus.Counter
	LoginFailures   *prometheus.CounterVec
	UsersRegistered prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		TokensIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_auth_tokens_issued_total",
			Help: "Tokens issued, by type",
		}, []string{"type"}),
		RefreshReplays: f.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_auth_refresh_replays_total",
			Help: "Refresh attempts rejected because the token was no longer the stored one",
		}),
		LoginFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_auth_login_failures_total",
			Help: "Failed logins, by reason",
		}, []string{"reason"}),
		UsersRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_auth_users_registered_total",
			Help: "Accounts created",
		}),
	}
}

func (m *Metrics) incIssued(kind string) {
	if m != nil {
		m.TokensIssued.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) incReplay() {
	if m != nil {
		m.RefreshReplays.Inc()
	}
}

func (m *Metrics) incLoginFailure(reason string) {
	if m != nil {
		m.LoginFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) incRegistered() {
	if m != nil {
		m.UsersRegistered.Inc()
	}
}
