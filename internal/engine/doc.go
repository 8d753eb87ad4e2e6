// Package engine runs the colony simulation one tick at a time.
//
// Each tick the systems run in a fixed order under the engine lock:
// rest, health, surgery, then the hemogen policy. The policy only
// evaluates on ticks divisible by rules.EvaluationInterval, so it always
// sees the vitals the earlier systems produced for that same tick.
package engine
