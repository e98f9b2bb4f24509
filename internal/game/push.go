package game

import "math"

// pushOutcome records how a push was resolved
type pushOutcome struct {
	Accepted  bool
	Lunge     bool
	Counter   bool
	Clash     bool
	Exhausted bool
	Rebound   bool

	Cost          float64
	CounterMult   float64
	PredictMult   float64
	SkillMult     float64
	Fatigue       float64
	EdgeResist    float64
	Variance      float64
	Force         float64
	StaminaDamage float64
	Proc          *ProcSkill
}

// resolvePush applies one push from side during FIGHTING
func (e *Engine) resolvePush(side int, act Action) pushOutcome {
	t := e.tuning
	me, opp := e.wrestler(side), e.wrestler(1-side)
	out := pushOutcome{CounterMult: 1, PredictMult: 1, SkillMult: 1, Fatigue: 1}

	// Rate limit
	if e.timestamp-me.LastPushTime < t.InputCooldown-1e-9 {
		return out
	}
	out.Accepted = true
	me.LastPushTime = e.timestamp
	me.PushCount++
	dir := act.direction()

	// Skill procs: best multiplier wins, damage stacks
	for _, id := range me.UnlockedSkills {
		s, ok := LookupProcSkill(id)
		if !ok || e.rng.Float64() >= t.SkillProcChance {
			continue
		}
		if out.Proc == nil {
			proc := s
			out.Proc = &proc
		}
		if s.ForceMult > out.SkillMult {
			out.SkillMult = s.ForceMult
		}
		out.StaminaDamage += s.StaminaDamage
	}

	cost := t.StaminaCostPush
	actionMult := 1.0
	if act == ActionKiai {
		cost *= t.KiaiCostMult
		actionMult = t.KiaiForceMult
	}

	// Counter or clash against the opponent's recent direction
	if dir != DirNone && opp.LastActionDirection != DirNone && e.timestamp-opp.LastActionTime <= t.CounterWindow {
		switch dir {
		case opp.LastActionDirection.Opposite():
			out.Counter = true
			out.CounterMult = t.CounterBonus * math.Max(1, me.Technique)
		case opp.LastActionDirection:
			out.Clash = true
			cost *= t.ClashCostMult
		}
	}

	// Predictability
	switch {
	case dir == DirNone:
		me.ActionStreakCount = 0
	case dir == me.LastActionDirection:
		me.ActionStreakCount++
	default:
		me.ActionStreakCount = 1
	}
	if dir != DirNone && me.ActionStreakCount >= t.StreakLength {
		out.PredictMult = t.PredictabilityPenalty
	}
	me.LastActionDirection = dir
	me.LastActionTime = e.timestamp

	// Stamina gate
	out.Cost = cost
	if me.Stamina >= cost {
		me.setStamina(me.Stamina-cost, t.StaminaMax)
	} else {
		me.setStamina(0, t.StaminaMax)
		out.Exhausted = true
		out.Fatigue = t.FatigueMult
		out.Rebound = e.rng.Float64() < t.ReboundChance
	}

	out.EdgeResist = 1 + t.EdgeResistance*e.edgeDanger(opp)
	if out.Counter {
		out.Variance = between(e.rng, t.CounterVarianceMin, t.CounterVarianceMax)
	} else {
		out.Variance = between(e.rng, t.VarianceMin, t.VarianceMax)
	}
	out.Force = t.PushForceBase * me.Strength * out.Fatigue * out.CounterMult * actionMult *
		out.PredictMult * out.SkillMult / out.EdgeResist * out.Variance

	dx, dy := opp.X-me.X, opp.Y-me.Y
	dist := math.Hypot(dx, dy)
	nx, ny := 1.0, 0.0
	if side == 1 {
		nx = -1
	}
	if dist > 1e-9 {
		nx, ny = dx/dist, dy/dist
	}

	if dist > t.HitRange {
		// nothing lands on a lunge: no proc damage, no counter
		out.Lunge = true
		out.StaminaDamage = 0
		me.VX += nx * t.LungeForce * me.Speed
		me.VY += ny * t.LungeForce * me.Speed
	} else {
		fx, fy := deflect(nx, ny, dir, t.LateralFactor)
		opp.VX += fx * out.Force / opp.Mass
		opp.VY += fy * out.Force / opp.Mass
		if out.StaminaDamage > 0 {
			opp.setStamina(opp.Stamina-out.StaminaDamage, t.StaminaMax)
		}
		if out.Rebound {
			recoil := out.Force * t.ReboundFactor / me.Mass
			me.VX -= nx * recoil
			me.VY -= ny * recoil
		}
	}

	e.emitPushEvents(me, opp, out)
	return out
}

// deflect bends the push normal sideways for directional pushes
func deflect(nx, ny float64, dir Direction, lateral float64) (float64, float64) {
	var px, py float64
	switch dir {
	case DirRight:
		px, py = -ny, nx
	case DirLeft:
		px, py = ny, -nx
	default:
		return nx, ny
	}
	fx, fy := nx+px*lateral, ny+py*lateral
	l := math.Hypot(fx, fy)
	return fx / l, fy / l
}

func (e *Engine) emitPushEvents(me, opp *Wrestler, out pushOutcome) {
	if out.Counter && !out.Lunge {
		ev := e.actorEvent(EventCounter, me)
		ev.TargetID = opp.ID
		ev.Multiplier = out.CounterMult
		e.emit(ev)
	}
	if out.Clash {
		ev := e.actorEvent(EventClash, me)
		ev.TargetID = opp.ID
		e.emit(ev)
	}
	if out.Proc != nil && !out.Lunge {
		ev := e.actorEvent(EventSkillProc, me)
		ev.TargetID = opp.ID
		ev.SkillID = out.Proc.ID
		ev.SkillName = out.Proc.Name
		ev.Multiplier = out.SkillMult
		ev.StaminaDamage = out.StaminaDamage
		e.emit(ev)
	}
	if out.Rebound && !out.Lunge {
		e.emit(e.actorEvent(EventRebound, me))
	}
}
