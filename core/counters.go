package core

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

// Counters aggregates the tx/rx/forwarding counters spec.md §4.J calls for,
// plus the channel/memory/queue monitor readings spec.md §1 names as core
// (folded in here rather than as separate components, since each reduces to
// one sampled gauge rather than a stateful subsystem of its own).
// QueueDepth is fed from MeshCore.receiveLoop's Radio.QueueSize() sample on
// every poll tick; FreeMemoryBytes from MeshCore.sweepLoop's runtime.MemStats
// read. Modeled on the teacher's perf package: one metric.Counter/Histogram
// per signal, held as a field of this struct rather than a package-level
// variable, published to expvar under a namespaced key.
type Counters struct {
	PacketsTransmitted     metric.Metric
	PacketsReceived        metric.Metric
	PacketsForwarded       metric.Metric
	PacketsDropped         metric.Metric
	DuplicatesDropped      metric.Metric
	DropsDueToDutyCycle    metric.Metric
	MalformedAdvertisements metric.Metric
	RoutingTableFull       metric.Metric

	DutyCycleFraction metric.Metric
	QueueDepth        metric.Metric
	FreeMemoryBytes   metric.Metric
}

// NewCounters constructs and registers a fresh counter set under expvar,
// namespaced by nodeLabel so a simulation harness running several nodes in
// one process does not collide on key names.
func NewCounters(nodeLabel string) *Counters {
	c := &Counters{
		PacketsTransmitted:      metric.NewCounter("10s1s"),
		PacketsReceived:         metric.NewCounter("10s1s"),
		PacketsForwarded:        metric.NewCounter("10s1s"),
		PacketsDropped:          metric.NewCounter("10s1s"),
		DuplicatesDropped:       metric.NewCounter("10s1s"),
		DropsDueToDutyCycle:     metric.NewCounter("10s1s"),
		MalformedAdvertisements: metric.NewCounter("10s1s"),
		RoutingTableFull:        metric.NewCounter("10s1s"),
		DutyCycleFraction:       metric.NewHistogram("1m1s"),
		QueueDepth:              metric.NewHistogram("10s1s"),
		FreeMemoryBytes:         metric.NewHistogram("1m1s"),
	}

	prefix := "xmesh:" + nodeLabel + ":"
	publishOnce(prefix+"PacketsTransmitted", c.PacketsTransmitted)
	publishOnce(prefix+"PacketsReceived", c.PacketsReceived)
	publishOnce(prefix+"PacketsForwarded", c.PacketsForwarded)
	publishOnce(prefix+"PacketsDropped", c.PacketsDropped)
	publishOnce(prefix+"DuplicatesDropped", c.DuplicatesDropped)
	publishOnce(prefix+"DropsDueToDutyCycle", c.DropsDueToDutyCycle)
	publishOnce(prefix+"MalformedAdvertisements", c.MalformedAdvertisements)
	publishOnce(prefix+"RoutingTableFull", c.RoutingTableFull)
	publishOnce(prefix+"DutyCycleFraction", c.DutyCycleFraction)
	publishOnce(prefix+"QueueDepth", c.QueueDepth)
	publishOnce(prefix+"FreeMemoryBytes", c.FreeMemoryBytes)

	return c
}

// publishOnce registers v under name unless something is already published
// there. expvar.Publish panics on a duplicate name, which would otherwise
// make it unsafe to construct two Counters for the same nodeLabel in one
// process (a real concern for tests and for a simulation harness that
// restarts a node in place).
func publishOnce(name string, v expvar.Var) {
	if expvar.Get(name) != nil {
		return
	}
	expvar.Publish(name, v)
}

// ServeMetricsHandler mounts encodeous/metric's introspection endpoint,
// mirroring the teacher's perf.init() wiring of /debug/metrics.
func ServeMetricsHandler() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
}
