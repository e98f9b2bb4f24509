package game

import (
	"math"
	"testing"
)

// TestCounterAndClash covers every direction pairing against a fresh opponent action
func TestCounterAndClash(t *testing.T) {
	tests := []struct {
		name    string
		act     Action
		oppDir  Direction
		counter bool
		clash   bool
	}{
		{"right counters left", ActionPushRight, DirLeft, true, false},
		{"left counters right", ActionPushLeft, DirRight, true, false},
		{"right clashes right", ActionPushRight, DirRight, false, true},
		{"left clashes left", ActionPushLeft, DirLeft, false, true},
		{"neutral push never counters", ActionPush, DirLeft, false, false},
		{"no opponent direction", ActionPushRight, DirNone, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := fightingEngine(t, constRand(0.5), 5)
			e.p2.LastActionDirection = tt.oppDir
			e.p2.LastActionTime = e.timestamp - 0.2
			before := e.p1.Stamina

			out := e.resolvePush(0, tt.act)
			if !out.Accepted {
				t.Fatal("Push should be accepted")
			}
			if out.Counter != tt.counter || out.Clash != tt.clash {
				t.Fatalf("counter=%v clash=%v, want %v/%v", out.Counter, out.Clash, tt.counter, tt.clash)
			}

			if tt.counter {
				if out.CounterMult < e.tuning.CounterBonus {
					t.Errorf("Counter multiplier %.2f below base bonus %.2f", out.CounterMult, e.tuning.CounterBonus)
				}
				if !hasEvent(e.staged, EventCounter) {
					t.Error("Missing counter event")
				}
			}
			if tt.clash {
				if spent := before - e.p1.Stamina; spent < 2*e.tuning.StaminaCostPush {
					t.Errorf("Clash spent %.1f stamina, want >= %.1f", spent, 2*e.tuning.StaminaCostPush)
				}
				if !hasEvent(e.staged, EventClash) {
					t.Error("Missing clash event")
				}
			}
			if !tt.counter && !tt.clash && len(e.staged) != 0 {
				t.Errorf("Ordinary hits emit no events, got %v", e.staged)
			}
		})
	}
}

func TestCounterScalesWithTechnique(t *testing.T) {
	e := fightingEngine(t, constRand(0.5), 5)
	e.p1.Technique = 2
	e.p2.LastActionDirection = DirRight
	e.p2.LastActionTime = e.timestamp

	out := e.resolvePush(0, ActionPushLeft)
	if !almostEqual(out.CounterMult, e.tuning.CounterBonus*2) {
		t.Errorf("CounterMult = %.3f, want %.3f", out.CounterMult, e.tuning.CounterBonus*2)
	}
	if out.Variance < e.tuning.CounterVarianceMin || out.Variance > e.tuning.CounterVarianceMax {
		t.Errorf("Counter variance %.3f outside the counter band", out.Variance)
	}
}

func TestStaleOpponentActionIsNeutral(t *testing.T) {
	e := fightingEngine(t, constRand(0.5), 5)
	e.p2.LastActionDirection = DirLeft
	e.p2.LastActionTime = e.timestamp - e.tuning.CounterWindow - 0.1

	if out := e.resolvePush(0, ActionPushRight); out.Counter || out.Clash {
		t.Error("Opponent action outside the recency window should not count")
	}
}

// TestPushRange verifies a hit moves only the opponent and a lunge only the pusher
func TestPushRange(t *testing.T) {
	t.Run("in range", func(t *testing.T) {
		e := fightingEngine(t, constRand(0.5), 5)
		out := e.resolvePush(0, ActionPush)

		if out.Lunge {
			t.Fatal("Push at 5 units should land")
		}
		if e.p1.VX != 0 || e.p1.VY != 0 {
			t.Errorf("Pusher moved: %.3f, %.3f", e.p1.VX, e.p1.VY)
		}
		if e.p2.VX <= 0 {
			t.Errorf("Opponent should be driven back, vx = %.3f", e.p2.VX)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		e := fightingEngine(t, constRand(0.5), 10)
		out := e.resolvePush(1, ActionPush)

		if !out.Lunge {
			t.Fatal("Push at 10 units should lunge")
		}
		if e.p2.VX >= 0 {
			t.Errorf("West should lunge toward east, vx = %.3f", e.p2.VX)
		}
		if e.p1.VX != 0 || e.p1.VY != 0 {
			t.Errorf("Lunge moved the opponent: %.3f, %.3f", e.p1.VX, e.p1.VY)
		}
	})
}

func TestLungeReportsNoLandedEffects(t *testing.T) {
	// tech_2 procs, then the variance draw
	r := &scriptRand{draws: []float64{0.1, 0.5}}
	e := fightingEngine(t, r, 12)
	e.p1.UnlockedSkills = []string{"tech_2"}
	e.p2.LastActionDirection = DirLeft
	e.p2.LastActionTime = e.timestamp - 0.2

	out := e.resolvePush(0, ActionPushRight)
	if !out.Lunge {
		t.Fatal("Push at 12 units should lunge")
	}
	if out.StaminaDamage != 0 {
		t.Errorf("Lunge reported %.1f stamina damage", out.StaminaDamage)
	}
	if e.p2.Stamina != e.tuning.StaminaMax {
		t.Errorf("Opponent stamina = %.1f, want untouched %.1f", e.p2.Stamina, e.tuning.StaminaMax)
	}
	if hasEvent(e.staged, EventSkillProc) || hasEvent(e.staged, EventCounter) {
		t.Errorf("Lunge emitted landed-hit events: %v", e.staged)
	}
	if hasEvent(e.log, EventSkillProc) || hasEvent(e.log, EventCounter) {
		t.Errorf("Lunge logged landed-hit events: %v", e.log)
	}
}

func TestPushRateLimit(t *testing.T) {
	e := fightingEngine(t, constRand(0.5), 5)

	first := e.resolvePush(0, ActionPush)
	stamina, vx := e.p1.Stamina, e.p2.VX
	second := e.resolvePush(0, ActionPush)

	if !first.Accepted || second.Accepted {
		t.Fatalf("accepted = %v/%v, want true/false", first.Accepted, second.Accepted)
	}
	if e.p1.PushCount != 1 || e.p1.Stamina != stamina || e.p2.VX != vx {
		t.Error("Rate limited push changed state")
	}

	e.timestamp += e.tuning.InputCooldown
	if !e.resolvePush(0, ActionPush).Accepted {
		t.Error("Push after the cooldown should be accepted")
	}
}

func TestPredictabilityPenalty(t *testing.T) {
	e := fightingEngine(t, constRand(0.5), 5)

	var outs []pushOutcome
	for i := 0; i < e.tuning.StreakLength+1; i++ {
		place(e, 5)
		outs = append(outs, e.resolvePush(0, ActionPushRight))
		e.timestamp += e.tuning.InputCooldown
	}

	for i, out := range outs {
		want := 1.0
		if i+1 >= e.tuning.StreakLength {
			want = e.tuning.PredictabilityPenalty
		}
		if out.PredictMult != want {
			t.Errorf("push %d: PredictMult = %.2f, want %.2f", i+1, out.PredictMult, want)
		}
	}

	place(e, 5)
	if out := e.resolvePush(0, ActionPushLeft); out.PredictMult != 1 {
		t.Error("Switching direction should reset the streak")
	}
}

// TestFatigueReducesForce pushes past STAMINA_MAX/STAMINA_COST_PUSH without rest
func TestFatigueReducesForce(t *testing.T) {
	e := fightingEngine(t, constRand(0.5), 5)
	fresh := 0.0
	fullPushes := int(e.tuning.StaminaMax / e.tuning.StaminaCostPush)

	for i := 0; i <= fullPushes; i++ {
		place(e, 5)
		out := e.resolvePush(0, ActionPush)
		if i == 0 {
			fresh = out.Force
		}
		if i < fullPushes && out.Exhausted {
			t.Fatalf("push %d exhausted too early (stamina %.1f)", i+1, e.p1.Stamina)
		}
		if i == fullPushes {
			if !out.Exhausted {
				t.Fatalf("push %d should be exhausted", i+1)
			}
			if out.Force >= fresh {
				t.Errorf("Exhausted force %.4f not below fresh %.4f", out.Force, fresh)
			}
			if !almostEqual(out.Force, fresh*e.tuning.FatigueMult) {
				t.Errorf("Exhausted force %.4f, want %.4f", out.Force, fresh*e.tuning.FatigueMult)
			}
			if e.p1.Stamina != 0 {
				t.Errorf("Exhausted stamina = %.2f, want 0", e.p1.Stamina)
			}
		}
		e.timestamp += e.tuning.InputCooldown
	}
}

func TestReboundOnExhaustion(t *testing.T) {
	// First draw is the rebound roll, second the variance
	e := fightingEngine(t, &scriptRand{draws: []float64{0.01, 0.5}}, 5)
	e.p1.Stamina = 1

	out := e.resolvePush(0, ActionPush)
	if !out.Exhausted || !out.Rebound {
		t.Fatalf("Expected exhausted rebound, got %+v", out)
	}
	if e.p1.VX >= 0 {
		t.Errorf("Rebound should push the attacker back, vx = %.3f", e.p1.VX)
	}
	if !hasEvent(e.staged, EventRebound) {
		t.Error("Missing rebound event")
	}
}

// TestSkillProcs verifies the best multiplier wins, damage stacks and the first proc names the event
func TestSkillProcs(t *testing.T) {
	// tech_1, str_2 and spd_1 proc, tech_2 misses, then the variance draw
	r := &scriptRand{draws: []float64{0.1, 0.1, 0.1, 0.9, 0.5}}
	e := fightingEngine(t, r, 5)
	e.p1.UnlockedSkills = []string{"tech_1", "str_2", "spd_1", "tech_2", "unknown"}

	out := e.resolvePush(0, ActionPush)
	if out.SkillMult != 2.0 {
		t.Errorf("SkillMult = %.2f, want 2.0", out.SkillMult)
	}
	if out.StaminaDamage != 10 {
		t.Errorf("StaminaDamage = %.1f, want 10", out.StaminaDamage)
	}
	if out.Proc == nil || out.Proc.ID != "tech_1" {
		t.Fatalf("First proc = %+v, want tech_1", out.Proc)
	}
	if e.p2.Stamina != e.tuning.StaminaMax-10 {
		t.Errorf("Opponent stamina = %.1f, want %.1f", e.p2.Stamina, e.tuning.StaminaMax-10)
	}

	var ev *Event
	for i := range e.staged {
		if e.staged[i].Type == EventSkillProc {
			ev = &e.staged[i]
		}
	}
	if ev == nil {
		t.Fatal("Missing skill_proc event")
	}
	if ev.SkillID != "tech_1" || ev.Multiplier != 2.0 || ev.WrestlerID != "east" {
		t.Errorf("Unexpected skill_proc event %+v", ev)
	}
}

func TestLookupProcSkill(t *testing.T) {
	tests := []struct {
		id   string
		stat SkillStat
		ok   bool
	}{
		{"str_1", StatStrength, true},
		{"tech_2", StatTechnique, true},
		{"spd_9", StatSpeed, true},
		{"kiai", "", false},
	}
	for _, tt := range tests {
		s, ok := LookupProcSkill(tt.id)
		if ok != tt.ok || s.Stat != tt.stat {
			t.Errorf("LookupProcSkill(%q) = %+v, %v", tt.id, s, ok)
		}
	}
}

func TestEdgeResistance(t *testing.T) {
	center := fightingEngine(t, constRand(0.5), 5)
	edge := fightingEngine(t, constRand(0.5), 5)
	edge.p1.X += 7
	edge.p2.X += 7

	c := center.resolvePush(0, ActionPush)
	x := edge.resolvePush(0, ActionPush)
	if x.EdgeResist <= c.EdgeResist || x.Force >= c.Force {
		t.Errorf("Edge push should be harder: %.3f/%.3f vs %.3f/%.3f", x.EdgeResist, x.Force, c.EdgeResist, c.Force)
	}
}

func TestDeflect(t *testing.T) {
	for _, dir := range []Direction{DirLeft, DirRight, DirNone} {
		fx, fy := deflect(0.6, 0.8, dir, 0.15)
		if math.Abs(math.Hypot(fx, fy)-1) > 1e-9 {
			t.Errorf("%q: deflected vector not unit length", dir)
		}
	}
	lx, ly := deflect(1, 0, DirLeft, 0.15)
	rx, ry := deflect(1, 0, DirRight, 0.15)
	if lx != rx || ly != -ry {
		t.Error("Left and right deflection should mirror")
	}
}

// TestStaminaStaysBounded runs long bot bouts and checks the stamina range every tick
func TestStaminaStaysBounded(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		e, _ := newTestEngine(t, NewRand(seed), func(tu *Tuning) { tu.RingRadius = 1000 })
		e.p1.UnlockedSkills = []string{"tech_2", "str_1"}
		e.p2.UnlockedSkills = []string{"tech_1", "tech_2", "spd_2"}
		masher := Personas["masher"]
		e.SetBot("east", &masher)
		e.SetBot("west", &masher)

		for i := 0; i < 60*60; i++ {
			snap := e.Tick(frame)
			for _, w := range []WrestlerSnapshot{snap.P1, snap.P2} {
				if w.Stamina < 0 || w.Stamina > e.tuning.StaminaMax {
					t.Fatalf("seed %d tick %d: %s stamina %.2f out of range", seed, i, w.ID, w.Stamina)
				}
			}
		}
		if e.p1.PushCount == 0 || e.p2.PushCount == 0 {
			t.Errorf("seed %d: bots never pushed", seed)
		}
	}
}
