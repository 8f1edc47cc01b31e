package telemetry

import (
	"fmt"
	"log/slog"
	"math"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkPopulationCrash  BookmarkType = "population_crash"
	BookmarkExtinction       BookmarkType = "extinction"
	BookmarkDominantTakeover BookmarkType = "dominant_takeover"
	BookmarkStablePopulation BookmarkType = "stable_population"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	logger.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	recentPeak     int    // peak organism count since the last crash
	lastDominant   string // dominant genome of the previous window
	stableWindows  int    // consecutive windows with a stable population
	extinctionSeen bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable population detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkExtinction(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkPopulationCrash(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkDominantTakeover(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)

	if b := bd.checkStablePopulation(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if stats.Organisms > bd.recentPeak {
		bd.recentPeak = stats.Organisms
	}
	bd.lastDominant = stats.DominantGenome

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkExtinction(stats WindowStats) *Bookmark {
	if bd.extinctionSeen || stats.Organisms > 0 || bd.recentPeak == 0 {
		return nil
	}
	bd.extinctionSeen = true
	return &Bookmark{
		Type:        BookmarkExtinction,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("organisms died out after peaking at %d", bd.recentPeak),
	}
}

// checkPopulationCrash fires when organisms drop more than 30% below the
// recent peak. The peak resets so one crash is reported once.
func (bd *BookmarkDetector) checkPopulationCrash(stats WindowStats) *Bookmark {
	if bd.recentPeak < 10 || stats.Organisms == 0 {
		return nil
	}
	threshold := int(float64(bd.recentPeak) * 0.7)
	if stats.Organisms >= threshold {
		return nil
	}

	b := &Bookmark{
		Type:        BookmarkPopulationCrash,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("organisms crashed from %d to %d", bd.recentPeak, stats.Organisms),
	}
	bd.recentPeak = stats.Organisms
	return b
}

// checkDominantTakeover fires when a new genome becomes the majority.
func (bd *BookmarkDetector) checkDominantTakeover(stats WindowStats) *Bookmark {
	if stats.DominantGenome == "" || stats.DominantGenome == bd.lastDominant || stats.DominantShare < 0.5 {
		return nil
	}
	if bd.lastDominant == "" {
		return nil
	}
	return &Bookmark{
		Type: BookmarkDominantTakeover,
		Tick: stats.WindowEndTick,
		Description: fmt.Sprintf("genome %s replaced %s with %.0f%% of organisms",
			stats.DominantGenome, bd.lastDominant, stats.DominantShare*100),
	}
}

// checkStablePopulation fires once after five consecutive windows whose
// organism counts vary by less than 15% around the mean.
func (bd *BookmarkDetector) checkStablePopulation(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 5 || stats.Organisms == 0 {
		bd.stableWindows = 0
		return nil
	}

	recent := history
	if bd.historyFull {
		recent = nil
		for i := range 5 {
			idx := (bd.historyIdx - 5 + i + bd.historySize) % bd.historySize
			recent = append(recent, history[idx])
		}
	} else {
		recent = history[len(history)-5:]
	}

	var sum float64
	for _, h := range recent {
		sum += float64(h.Organisms)
	}
	mean := sum / float64(len(recent))
	var sq float64
	for _, h := range recent {
		d := float64(h.Organisms) - mean
		sq += d * d
	}
	cv := math.Sqrt(sq/float64(len(recent))) / mean

	if cv >= 0.15 {
		bd.stableWindows = 0
		return nil
	}
	bd.stableWindows++
	if bd.stableWindows != 1 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkStablePopulation,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("population stable around %.0f organisms", mean),
	}
}
