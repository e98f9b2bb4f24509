package main

import (
	"fmt"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"sumo-arena/internal/game"
)

// BatchConfig describes a run of headless bot-vs-bot bouts
type BatchConfig struct {
	Matches  int
	P1       string // persona key
	P2       string
	Seed     int64
	TickRate int
	MaxTicks int
	Tuning   game.Tuning
}

// BoutResult is the outcome of one headless bout
type BoutResult struct {
	WinnerID string
	Side     string // "east", "west" or empty when unsettled
	Ticks    int
	Duration float64 // simulated seconds
	Pushes   int
	Final    game.Snapshot
}

// BatchReport aggregates a batch
type BatchReport struct {
	Bouts     []BoutResult
	Wins      map[string]int // by side
	Unsettled int
	Min       float64
	Max       float64
	Avg       float64
}

// stepClock advances only when the loop says so, keeping tachiai timing deterministic
type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) advance(dt float64) {
	c.now = c.now.Add(time.Duration(dt * float64(time.Second)))
}

func persona(key string) (game.Persona, error) {
	p, ok := game.Personas[key]
	if !ok {
		return game.Persona{}, eris.Errorf("unknown persona %q", key)
	}
	return p, nil
}

// runBatch plays cfg.Matches bouts with both sides driven by bots
func runBatch(cfg BatchConfig) (BatchReport, error) {
	if cfg.Matches <= 0 {
		return BatchReport{}, eris.New("matches must be positive")
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	if cfg.MaxTicks <= 0 {
		cfg.MaxTicks = cfg.TickRate * 300
	}
	p1, err := persona(cfg.P1)
	if err != nil {
		return BatchReport{}, err
	}
	p2, err := persona(cfg.P2)
	if err != nil {
		return BatchReport{}, err
	}

	rng := game.NewRand(cfg.Seed)
	report := BatchReport{Wins: make(map[string]int), Min: math.Inf(1)}
	total := 0.0
	settled := 0

	for i := 0; i < cfg.Matches; i++ {
		res := runBout(cfg, p1, p2, rng, i)
		report.Bouts = append(report.Bouts, res)
		if res.WinnerID == "" {
			report.Unsettled++
			continue
		}
		report.Wins[res.Side]++
		settled++
		total += res.Duration
		report.Min = math.Min(report.Min, res.Duration)
		report.Max = math.Max(report.Max, res.Duration)
	}

	if settled == 0 {
		report.Min = 0
	} else {
		report.Avg = total / float64(settled)
	}
	return report, nil
}

func runBout(cfg BatchConfig, p1, p2 game.Persona, rng game.Rand, n int) BoutResult {
	east := game.SyntheticProfile(fmt.Sprintf("east-%d", n), rng)
	east.Name = "East " + p1.Name
	west := game.SyntheticProfile(fmt.Sprintf("west-%d", n), rng)
	west.Name = "West " + p2.Name

	clock := &stepClock{now: time.Unix(0, 0)}
	eng := game.NewEngine(east, west, game.Options{Tuning: cfg.Tuning, Rand: rng, Clock: clock})
	eng.SetBot(east.ID, &p1)
	eng.SetBot(west.ID, &p2)
	eng.ForceStart()

	dt := 1.0 / float64(cfg.TickRate)
	var snap game.Snapshot
	ticks := 0
	for ticks < cfg.MaxTicks {
		clock.advance(dt)
		snap = eng.Tick(dt)
		ticks++
		if snap.GameOver {
			break
		}
	}

	res := BoutResult{
		Ticks:    ticks,
		Duration: snap.Time,
		Pushes:   snap.P1.PushCount + snap.P2.PushCount,
		Final:    snap,
	}
	if snap.GameOver {
		res.WinnerID = snap.WinnerID
		res.Side = "west"
		if snap.WinnerID == east.ID {
			res.Side = "east"
		}
	}
	return res
}
