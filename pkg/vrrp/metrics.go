package vrrp

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "vrrp"

var labelNames = []string{"vrid", "interface"}

var (
	routerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "router",
		Name:      "state",
		Help:      "Current Router state: 0=Initialized, 1=Backup, 2=Active",
	}, labelNames)

	advertisementsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "router",
		Name:      "advertisements_sent_total",
		Help:      "Number of VRRP advertisements transmitted",
	}, labelNames)

	advertisementsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "router",
		Name:      "advertisements_received_total",
		Help:      "Number of VRRP advertisements received",
	}, labelNames)

	transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "router",
		Name:      "transitions_total",
		Help:      "Number of state transitions, labeled by the state entered",
	}, []string{"vrid", "interface", "state"})
)

func init() {
	prometheus.MustRegister(routerState)
	prometheus.MustRegister(advertisementsSent)
	prometheus.MustRegister(advertisementsReceived)
	prometheus.MustRegister(transitionsTotal)
}

// Metrics reports one Router's runtime behavior to Prometheus. Created
// once per Instance and fed from its action-processing loop, which is
// the single goroutine that ever calls ObserveState, so hasPrev and
// prevKind need no locking of their own.
type Metrics struct {
	labels   prometheus.Labels
	hasPrev  bool
	prevKind StateKind
}

// NewMetrics returns a Metrics reporter labeled for the given VRID and
// interface.
func NewMetrics(vrid VRID, iface string) *Metrics {
	return &Metrics{labels: prometheus.Labels{
		"vrid":      strconv.Itoa(int(vrid)),
		"interface": iface,
	}}
}

// ObserveState records the current StateKind as a gauge, and bumps the
// transition counter only when it differs from the previously observed
// state. Callers pass the state after every HandleInput call, which
// includes idle ticks that leave the state unchanged.
func (m *Metrics) ObserveState(kind StateKind) {
	routerState.With(m.labels).Set(float64(kind))
	if m.hasPrev && m.prevKind == kind {
		return
	}
	m.hasPrev = true
	m.prevKind = kind
	transitionsTotal.With(prometheus.Labels{
		"vrid":      m.labels["vrid"],
		"interface": m.labels["interface"],
		"state":     kind.String(),
	}).Inc()
}

// ObserveSend increments the advertisement-sent counter. Only
// SendAdvertisement and SendShutdownAdvertisement count as
// advertisements; gratuitous and reply ARP are not.
func (m *Metrics) ObserveSend(kind SendKind) {
	if kind == SendAdvertisement || kind == SendShutdownAdvertisement {
		advertisementsSent.With(m.labels).Inc()
	}
}

// ObserveReceivedAdvertisement increments the advertisement-received
// counter.
func (m *Metrics) ObserveReceivedAdvertisement() {
	advertisementsReceived.With(m.labels).Inc()
}
