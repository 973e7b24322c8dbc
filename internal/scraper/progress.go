package scraper

import (
	"sync"
	"time"
)

// logRingCap bounds the progress log ring
const logRingCap = 100

// GameRef identifies the title currently being harvested.
type GameRef struct {
	AppID uint   `json:"app_id"`
	Name  string `json:"name"`
}

// Snapshot is a point-in-time copy of ingestion progress, safe to serialize.
type Snapshot struct {
	IsRunning     bool     `json:"is_running"`
	StopRequested bool     `json:"stop_requested"`
	CurrentGame   *GameRef `json:"current_game,omitempty"`

	CurrentGameScraped int64 `json:"current_game_scraped"`
	CurrentGameTotal   int64 `json:"current_game_total"`
	GlobalScraped      int64 `json:"global_scraped"`
	GlobalTotal        int64 `json:"global_total"`

	RequestsMade      int64   `json:"requests_made"`
	AvgRequestSeconds float64 `json:"avg_request_seconds"`

	StartTime          *time.Time `json:"start_time,omitempty"`
	StartGlobalScraped int64      `json:"start_global_scraped"`
	RateLimitRPM       int        `json:"rate_limit_rpm"`

	ETASeconds float64  `json:"eta_seconds"`
	Logs       []string `json:"logs"`
}

// Progress tracks a running ingestion. The engine is the single writer;
// status endpoints read concurrently via Snapshot.
type Progress struct {
	mu sync.Mutex

	running       bool
	stopRequested bool
	currentGame   *GameRef

	currentGameScraped int64
	currentGameTotal   int64
	globalScraped      int64
	globalTotal        int64

	requestsMade     int64
	totalRequestTime time.Duration

	startTime          time.Time
	startGlobalScraped int64
	rateLimitRPM       int

	logs []string
}

// NewProgress creates an empty progress tracker.
func NewProgress() *Progress {
	return &Progress{}
}

// BeginRun resets the tracker for a new run.
func (p *Progress) BeginRun(rateLimitRPM int, globalScraped int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.running = true
	p.stopRequested = false
	p.currentGame = nil
	p.currentGameScraped = 0
	p.currentGameTotal = 0
	p.globalScraped = globalScraped
	p.globalTotal = 0
	p.requestsMade = 0
	p.totalRequestTime = 0
	p.startTime = time.Now().UTC()
	p.startGlobalScraped = globalScraped
	p.rateLimitRPM = rateLimitRPM
	p.logs = nil
}

// EndRun marks the run finished. Counters are kept for inspection until
// the next BeginRun.
func (p *Progress) EndRun() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	p.currentGame = nil
}

// IsRunning reports whether a run is active.
func (p *Progress) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// RequestStop asks the running engine to stop at its next checkpoint.
func (p *Progress) RequestStop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopRequested = true
}

// StopRequested reports whether a cooperative stop has been requested.
func (p *Progress) StopRequested() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopRequested
}

// SetCurrentGame switches the tracker to a new title, resetting per-title counters.
func (p *Progress) SetCurrentGame(appID uint, name string, scraped int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentGame = &GameRef{AppID: appID, Name: name}
	p.currentGameScraped = scraped
	p.currentGameTotal = 0
}

// SetCurrentGameTotal records the title's target once the first page reveals it.
// The delta also grows the global total.
func (p *Progress) SetCurrentGameTotal(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.globalTotal += total - p.currentGameTotal
	p.currentGameTotal = total
}

// AddScraped advances both the per-title and global counters.
func (p *Progress) AddScraped(n int64) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentGameScraped += n
	p.globalScraped += n
}

// RecordRequest accounts one upstream request for the rolling average.
func (p *Progress) RecordRequest(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestsMade++
	p.totalRequestTime += d
}

// AppendLog appends one line to the bounded log ring.
// Implements logger.ScrapeLogSink; lines arrive already timestamped.
func (p *Progress) AppendLog(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs = append(p.logs, line)
	if len(p.logs) > logRingCap {
		p.logs = p.logs[len(p.logs)-logRingCap:]
	}
}

// Snapshot returns a consistent copy of the current state with the ETA computed.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		IsRunning:          p.running,
		StopRequested:      p.stopRequested,
		CurrentGameScraped: p.currentGameScraped,
		CurrentGameTotal:   p.currentGameTotal,
		GlobalScraped:      p.globalScraped,
		GlobalTotal:        p.globalTotal,
		RequestsMade:       p.requestsMade,
		StartGlobalScraped: p.startGlobalScraped,
		RateLimitRPM:       p.rateLimitRPM,
		Logs:               append([]string(nil), p.logs...),
	}
	if p.currentGame != nil {
		ref := *p.currentGame
		snap.CurrentGame = &ref
	}
	if !p.startTime.IsZero() {
		t := p.startTime
		snap.StartTime = &t
	}
	if p.requestsMade > 0 {
		snap.AvgRequestSeconds = p.totalRequestTime.Seconds() / float64(p.requestsMade)
	}
	snap.ETASeconds = p.etaSecondsLocked()
	return snap
}

// etaSecondsLocked estimates time to completion.
// Expected throughput is the theoretical page rate capped by observed
// throughput; before any reviews land, 90% of theoretical is assumed.
func (p *Progress) etaSecondsLocked() float64 {
	remaining := float64(p.globalTotal - p.globalScraped)
	if remaining <= 0 || p.rateLimitRPM <= 0 {
		return 0
	}

	theoretical := float64(p.rateLimitRPM) * 100 / 60

	expected := 0.9 * theoretical
	if !p.startTime.IsZero() {
		elapsed := time.Since(p.startTime).Seconds()
		if elapsed > 0 {
			observed := float64(p.globalScraped-p.startGlobalScraped) / elapsed
			if observed > 0 {
				expected = observed
			}
		}
	}
	if expected > theoretical {
		expected = theoretical
	}
	if expected <= 0 {
		return 0
	}
	return remaining / expected
}
