package analytics

import (
	"fmt"
	"time"

	"PairPulse/internal/domain/models"
)

// Config fixes one pair's analysis parameters. Out-of-range values are
// rejected here, before any bar is processed.
type Config struct {
	SymbolA         string
	SymbolB         string
	Window          int
	ZscoreThreshold float64
}

func (c Config) validate() error {
	if c.SymbolA == "" || c.SymbolB == "" {
		return fmt.Errorf("both pair symbols are required")
	}
	if c.Window < 30 || c.Window > 500 {
		return fmt.Errorf("window must be in [30,500], got %d", c.Window)
	}
	if c.ZscoreThreshold < 1.0 || c.ZscoreThreshold > 4.0 {
		return fmt.Errorf("zscore threshold must be in [1.0,4.0], got %g", c.ZscoreThreshold)
	}
	return nil
}

// closePair is one retained bar pair used for the hedge-ratio median.
type closePair struct {
	a, b float64
}

// Result is the outcome of one engine update.
type Result struct {
	State       models.PairState
	RollingMean float64
	RollingStd  float64
	Skipped     bool
	Transition  bool
}

// PairEngine derives the statistical relationship of one symbol pair from
// its stream of paired closed bars.
//
// Per update: hedge ratio = median(close_A/close_B) over the bars currently
// in the window, recomputed fresh (the window is bounded, so this stays
// cheap and robust to outlier bars); spread = close_A - ratio*close_B for
// the newest bar, appended to the rolling window; z-score from the window's
// incremental mean/std. No z-score, and therefore no signal, until the
// window has filled and std is nonzero.
//
// Not safe for concurrent use; the pair analyzer serializes updates.
type PairEngine struct {
	cfg Config

	pairs []closePair // ring, same capacity as the spread window
	head  int
	n     int

	window *RollingWindow

	state     models.Signal
	entrySign int // sign of the z-score at entry, 0 while FLAT

	last Result
}

// NewPairEngine validates cfg and creates an engine in the FLAT state.
func NewPairEngine(cfg Config) (*PairEngine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("pair engine config: %w", err)
	}
	e := &PairEngine{
		cfg:    cfg,
		pairs:  make([]closePair, cfg.Window),
		window: NewRollingWindow(cfg.Window),
		state:  models.SignalFlat,
	}
	e.last.State = e.snapshot(time.Time{})
	return e, nil
}

// Update consumes one paired closed bar. barA and barB must cover the same
// interval; the caller guarantees the pairing. A degenerate input (zero
// close_B, non-finite hedge ratio) skips the update entirely and leaves all
// state unchanged.
func (e *PairEngine) Update(barA, barB models.Bar) Result {
	ts := barA.End
	if barB.Close == 0 || !isFinite(barA.Close) || !isFinite(barB.Close) {
		r := e.last
		r.Skipped = true
		r.Transition = false
		return r
	}

	ratio := e.hedgeRatioWith(barA.Close, barB.Close)
	if !isFinite(ratio) || ratio <= 0 {
		r := e.last
		r.Skipped = true
		r.Transition = false
		return r
	}

	// Commit: the newest pair joins the ratio window, its spread joins the
	// rolling stats window.
	e.pushPair(closePair{a: barA.Close, b: barB.Close})
	spread := barA.Close - ratio*barB.Close
	e.window.Push(spread)

	mean := e.window.Mean()
	std := e.window.Std()
	zscore := 0.0
	zvalid := e.window.Full() && std > 0
	if zvalid {
		zscore = (spread - mean) / std
	}

	transition := e.step(zscore, zvalid)

	st := e.snapshot(ts)
	st.HedgeRatio = ratio
	st.Spread = spread
	st.Zscore = zscore
	st.ZValid = zvalid
	st.WindowLen = e.window.Len()

	e.last = Result{State: st, RollingMean: mean, RollingStd: std, Transition: transition}
	return e.last
}

// State returns the most recent pair state snapshot.
func (e *PairEngine) State() models.PairState { return e.last.State }

// step advances the signal state machine and reports whether a transition
// happened. With an undefined z-score no transition ever fires.
func (e *PairEngine) step(zscore float64, zvalid bool) bool {
	if !zvalid {
		return false
	}
	switch e.state {
	case models.SignalFlat:
		if zscore < -e.cfg.ZscoreThreshold {
			e.state = models.SignalLongAShortB
			e.entrySign = -1
			return true
		}
		if zscore > e.cfg.ZscoreThreshold {
			e.state = models.SignalShortALongB
			e.entrySign = 1
			return true
		}
	default:
		// Exit when the spread has crossed back through zero relative to the
		// entry direction. Re-entry while already positioned is a no-op.
		if (e.entrySign < 0 && zscore >= 0) || (e.entrySign > 0 && zscore <= 0) {
			e.state = models.SignalFlat
			e.entrySign = 0
			return true
		}
	}
	return false
}

// hedgeRatioWith computes the median close_A/close_B over the retained pairs
// plus the incoming one, without committing it.
func (e *PairEngine) hedgeRatioWith(a, b float64) float64 {
	ratios := make([]float64, 0, e.n+1)
	for i := 0; i < e.n; i++ {
		p := e.pairs[(e.head+i)%len(e.pairs)]
		if p.b != 0 {
			ratios = append(ratios, p.a/p.b)
		}
	}
	ratios = append(ratios, a/b)
	return Median(ratios)
}

func (e *PairEngine) pushPair(p closePair) {
	if e.n == len(e.pairs) {
		e.pairs[e.head] = p
		e.head = (e.head + 1) % len(e.pairs)
		return
	}
	e.pairs[(e.head+e.n)%len(e.pairs)] = p
	e.n++
}

func (e *PairEngine) snapshot(ts time.Time) models.PairState {
	return models.PairState{
		SymbolA:   e.cfg.SymbolA,
		SymbolB:   e.cfg.SymbolB,
		Signal:    e.state,
		UpdatedAt: ts,
	}
}
