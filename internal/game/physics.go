package game

import "math"

// stepPhysics runs one FIGHTING tick: motion, contact, ring-out
func (e *Engine) stepPhysics(dt float64) {
	t := e.tuning
	frames := dt * t.ReferenceFPS
	decay := math.Pow(t.Friction, frames)

	for _, w := range []*Wrestler{e.p1, e.p2} {
		w.VX *= decay
		w.VY *= decay
		if speed := math.Hypot(w.VX, w.VY); speed > t.MaxSpeed {
			w.VX = w.VX / speed * t.MaxSpeed
			w.VY = w.VY / speed * t.MaxSpeed
		}
		w.X += w.VX * frames
		w.Y += w.VY * frames

		if e.timestamp-w.LastPushTime >= t.StaminaRegenDelay {
			w.setStamina(w.Stamina+t.StaminaRegenRate*dt, t.StaminaMax)
		}
	}

	e.resolveContact(frames)
	e.checkRingOut()
}

// resolveContact separates overlapping wrestlers and pulls clinched ones together
func (e *Engine) resolveContact(frames float64) {
	t := e.tuning
	p1, p2 := e.p1, e.p2

	dx, dy := p2.X-p1.X, p2.Y-p1.Y
	dist := math.Hypot(dx, dy)
	nx, ny := 1.0, 0.0
	if dist > 1e-9 {
		nx, ny = dx/dist, dy/dist
	}

	switch {
	case dist < t.MinCollisionDist:
		half := (t.MinCollisionDist - dist) / 2
		p1.X -= nx * half
		p1.Y -= ny * half
		p2.X += nx * half
		p2.Y += ny * half

		// Closing speed along the normal is partially handed over
		if closing := (p1.VX-p2.VX)*nx + (p1.VY-p2.VY)*ny; closing > 0 {
			imp := closing * t.CollisionPushback * 0.5
			p1.VX -= imp * nx
			p1.VY -= imp * ny
			p2.VX += imp * nx
			p2.VY += imp * ny
		}

		p1.Y += (e.rng.Float64()*2 - 1) * t.JitterIntensity
		p2.Y += (e.rng.Float64()*2 - 1) * t.JitterIntensity

		e.maybeFlavor()

	case dist < t.ClinchMaxDist:
		f := t.ClinchForce * frames
		p1.VX += nx * f
		p1.VY += ny * f
		p2.VX -= nx * f
		p2.VY -= ny * f
	}
}

// maybeFlavor emits a kimarite event for whoever is holding the center
func (e *Engine) maybeFlavor() {
	t := e.tuning
	if e.rng.Float64() >= t.FlavorChance {
		return
	}

	cx, cy := t.Center()
	d1, d2 := e.p1.DistanceTo(cx, cy), e.p2.DistanceTo(cx, cy)
	leader, trailer := e.p1, e.p2
	if d2 < d1 {
		leader, trailer = e.p2, e.p1
		d1, d2 = d2, d1
	}
	dominance := (d2 - d1) / t.RingRadius

	actor := leader
	if e.rng.Float64() >= math.Min(0.9, 0.5+dominance) {
		actor = trailer
		dominance = 0
	}
	if e.timestamp-actor.lastFlavorTime < t.FlavorCooldown {
		return
	}
	actor.lastFlavorTime = e.timestamp

	k := pickKimarite(e.rng, actor, dominance, t.FlavorDominance)
	ev := e.actorEvent(EventSkill, actor)
	ev.SkillID = k.ID
	ev.SkillName = k.Name
	ev.SkillJP = k.JP
	e.emit(ev)
}

func (e *Engine) checkRingOut() {
	cx, cy := e.tuning.Center()
	r := e.tuning.RingRadius
	d1, d2 := e.p1.DistanceTo(cx, cy), e.p2.DistanceTo(cx, cy)

	switch {
	case d1 <= r && d2 <= r:
		return
	case d1 > d2:
		e.enterRingOut(1)
	default:
		e.enterRingOut(0)
	}
}
