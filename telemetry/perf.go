package telemetry

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase is one stage of a simulation tick.
type Phase uint8

const (
	PhasePlants Phase = iota
	PhaseOrganisms
	PhaseBirths
	PhaseTelemetry
	numPhases
)

func (p Phase) String() string {
	switch p {
	case PhasePlants:
		return "plants"
	case PhaseOrganisms:
		return "organisms"
	case PhaseBirths:
		return "births"
	case PhaseTelemetry:
		return "telemetry"
	default:
		return "unknown"
	}
}

// tickTiming is the wall time spent on one tick, split by phase.
type tickTiming struct {
	total  time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector times ticks and their phases over a ring of the most
// recent ticks.
type PerfCollector struct {
	ring   []tickTiming
	next   int
	filled int

	current    tickTiming
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool
}

// NewPerfCollector averages over the last window ticks; window < 1 means 100.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 100
	}
	return &PerfCollector{ring: make([]tickTiming, window)}
}

// StartTick starts the tick clock.
func (p *PerfCollector) StartTick() {
	p.current = tickTiming{}
	p.inPhase = false
	p.tickStart = time.Now()
}

// StartPhase closes the running phase, if any, and opens phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phase, p.phaseStart, p.inPhase = phase, now, true
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase && p.phase < numPhases {
		p.current.phases[p.phase] += now.Sub(p.phaseStart)
	}
	p.inPhase = false
}

// EndTick closes the running phase and stores the tick in the ring.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.current.total = now.Sub(p.tickStart)

	p.ring[p.next] = p.current
	p.next = (p.next + 1) % len(p.ring)
	p.filled = min(p.filled+1, len(p.ring))
}

// PerfStats summarizes the ticks in the ring.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	TicksPerSecond  float64

	PhaseAvg [numPhases]time.Duration
	PhasePct [numPhases]float64 // share of the average tick, in percent
}

// Stats aggregates the stored ticks. An empty ring gives zero stats.
func (p *PerfCollector) Stats() PerfStats {
	var out PerfStats
	if p.filled == 0 {
		return out
	}

	totals := make([]float64, p.filled)
	var phaseSum [numPhases]time.Duration
	out.MinTickDuration = p.ring[0].total
	for i, t := range p.ring[:p.filled] {
		totals[i] = float64(t.total)
		out.MinTickDuration = min(out.MinTickDuration, t.total)
		out.MaxTickDuration = max(out.MaxTickDuration, t.total)
		for ph, d := range t.phases {
			phaseSum[ph] += d
		}
	}

	out.AvgTickDuration = time.Duration(stat.Mean(totals, nil))
	if out.AvgTickDuration > 0 {
		out.TicksPerSecond = float64(time.Second) / float64(out.AvgTickDuration)
	}
	for ph, sum := range phaseSum {
		out.PhaseAvg[ph] = sum / time.Duration(p.filled)
		if out.AvgTickDuration > 0 {
			out.PhasePct[ph] = 100 * float64(out.PhaseAvg[ph]) / float64(out.AvgTickDuration)
		}
	}
	return out
}

// LogStats logs the summary at info level. Phases under 0.1% are omitted.
func (s PerfStats) LogStats(logger *slog.Logger) {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	for ph := range numPhases {
		if pct := s.PhasePct[ph]; pct >= 0.1 {
			attrs = append(attrs, ph.String()+"_pct", float64(int(pct*10))/10)
		}
	}
	logger.Info("perf", attrs...)
}

// PerfRow is one line of perf.csv.
type PerfRow struct {
	WindowEnd    int32   `csv:"window_end"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	MinTickUS    int64   `csv:"min_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	PlantsPct    float64 `csv:"plants_pct"`
	OrganismsPct float64 `csv:"organisms_pct"`
	BirthsPct    float64 `csv:"births_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// Row flattens the summary for the window ending at windowEnd.
func (s PerfStats) Row(windowEnd int32) PerfRow {
	return PerfRow{
		WindowEnd:    windowEnd,
		AvgTickUS:    s.AvgTickDuration.Microseconds(),
		MinTickUS:    s.MinTickDuration.Microseconds(),
		MaxTickUS:    s.MaxTickDuration.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		PlantsPct:    s.PhasePct[PhasePlants],
		OrganismsPct: s.PhasePct[PhaseOrganisms],
		BirthsPct:    s.PhasePct[PhaseBirths],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
	}
}
