package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Login outcomes recorded on portal_login_attempts_total.
const (
	LoginSuccess     = "success"
	LoginInvalid     = "invalid"
	LoginRateLimited = "rate_limited"
	LoginError       = "error"
)

// Portal records the portal's request, login and setup metrics. A nil
// *Portal is valid and records nothing.
type Portal struct {
	loginAttempts  *prometheus.CounterVec
	setupCompleted prometheus.Counter
	userIDAttempts prometheus.Histogram
	requests       *prometheus.CounterVec
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
}

// NewPortal registers the portal metrics on the provided registerer.
func NewPortal(reg prometheus.Registerer) *Portal {
	if reg == nil {
		return &Portal{}
	}
	loginAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_login_attempts_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})
	setupCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_setup_completed_total",
		Help: "Completed first-run setups.",
	})
	userIDAttempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "portal_userid_generation_attempts",
		Help:    "Candidates drawn before a unique user id was found.",
		Buckets: []float64{1, 2, 3, 5, 8, 16, 32},
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_requests_total",
		Help: "HTTP requests by tenant and status code.",
	}, []string{"tenant", "status"})
	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_housekeeping_job_runs_total",
		Help: "Housekeeping job runs by job and result.",
	}, []string{"job", "result"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_housekeeping_job_duration_seconds",
		Help:    "Housekeeping job duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	reg.MustRegister(loginAttempts, setupCompleted, userIDAttempts, requests, jobRuns, jobDuration)
	return &Portal{
		loginAttempts:  loginAttempts,
		setupCompleted: setupCompleted,
		userIDAttempts: userIDAttempts,
		requests:       requests,
		jobRuns:        jobRuns,
		jobDuration:    jobDuration,
	}
}

func (p *Portal) ObserveLogin(outcome string) {
	if p == nil || p.loginAttempts == nil {
		return
	}
	p.loginAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (p *Portal) IncSetupCompleted() {
	if p == nil || p.setupCompleted == nil {
		return
	}
	p.setupCompleted.Inc()
}

func (p *Portal) ObserveUserIDAttempts(attempts int) {
	if p == nil || p.userIDAttempts == nil {
		return
	}
	p.userIDAttempts.Observe(float64(attempts))
}

func (p *Portal) ObserveRequest(tenant string, status int) {
	if p == nil || p.requests == nil {
		return
	}
	p.requests.WithLabelValues(normalizeLabel(tenant), strconv.Itoa(status)).Inc()
}

func (p *Portal) ObserveJobDuration(job string, d time.Duration) {
	if p == nil || p.jobDuration == nil {
		return
	}
	p.jobDuration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
}

func (p *Portal) IncJobSuccess(job string) {
	if p == nil || p.jobRuns == nil {
		return
	}
	p.jobRuns.WithLabelValues(normalizeLabel(job), "success").Inc()
}

func (p *Portal) IncJobFailure(job string) {
	if p == nil || p.jobRuns == nil {
		return
	}
	p.jobRuns.WithLabelValues(normalizeLabel(job), "failure").Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
