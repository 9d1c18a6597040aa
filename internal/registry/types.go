package registry

// IPv4 is the registry's sole address representation (spec's Non-goals:
// "IPv6 support in the jail registry... the release pipeline is keyed on
// IPv4 only").
type IPv4 = [4]byte

// Hit is the cross-thread event a Tailer sends when an IP crosses an
// observer's threshold (spec §3 "Hit event").
type Hit struct {
	ObserverName  string
	IP            IPv4
	CorrelationID string
}

// entry is one row of the Jail Entry sequence (spec §3), kept sorted
// ascending by ReleaseAt.
type entry struct {
	ip        IPv4
	releaseAt int64
}

// Metrics is the observability hook the Registry reports through; a no-op
// implementation is used when none is supplied. internal/metrics provides a
// Prometheus-backed implementation.
type Metrics interface {
	HitObserved(observerName string)
	Jailed()
	JailRefreshed()
	JailFailed()
	Unjailed()
	UnjailFailed()
	ActiveJails(n int)
}

type noopMetrics struct{}

func (noopMetrics) HitObserved(string) {}
func (noopMetrics) Jailed()            {}
func (noopMetrics) JailRefreshed()     {}
func (noopMetrics) JailFailed()        {}
func (noopMetrics) Unjailed()          {}
func (noopMetrics) UnjailFailed()      {}
func (noopMetrics) ActiveJails(int)    {}
