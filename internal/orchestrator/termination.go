package orchestrator

import "github.com/tracklap/simharness/internal/config"

// terminationTracker ports interface.py's _is_termination_condition_met:
// the agent's termination condition is only counted at every
// checkEveryN-th observation (the first checkpoint is observation index
// checkEveryN; 0 counts every observation), and only fires once it has
// reported failure maxConsecutiveFailures times in a row at those
// checkpoints. A negative checkEveryN disables the check entirely.
type terminationTracker struct {
	checkEveryN            int
	maxConsecutiveFailures int
	stepsSinceCheck        int
	consecutiveFailures    int
}

func newTerminationTracker(cfg *config.TerminationConfig) *terminationTracker {
	t := &terminationTracker{checkEveryN: -1}
	if cfg == nil {
		return t
	}
	if cfg.CheckEveryN != nil {
		t.checkEveryN = *cfg.CheckEveryN
	}
	if cfg.MaxConsecutiveFailures != nil {
		t.maxConsecutiveFailures = *cfg.MaxConsecutiveFailures
	}
	return t
}

// shouldTerminate is called once per observation with the agent's own
// TerminationCondition result for that observation, and reports whether
// the session should now end.
func (t *terminationTracker) shouldTerminate(failed bool) bool {
	if t.checkEveryN < 0 {
		return false
	}
	if t.checkEveryN > t.stepsSinceCheck {
		t.stepsSinceCheck++
		return false
	}
	t.stepsSinceCheck = 1

	if failed {
		t.consecutiveFailures++
	} else {
		t.consecutiveFailures = 0
	}
	return t.consecutiveFailures >= t.maxConsecutiveFailures
}
