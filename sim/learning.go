package sim

// UpdateEstimate applies one constant-step exponential moving average step:
// v0 + alpha*(reward - v0). The fixed step keeps weighting recent rewards,
// so the estimate tracks a drifting target.
func UpdateEstimate(v0, reward, alpha float64) float64 {
	return v0 + alpha*(reward-v0)
}

// LatencyReward maps an observed latency to a reward; lower latency is better.
func LatencyReward(observedLatency float64) float64 {
	return -observedLatency
}

// Learn updates arm's estimate from an observed latency and returns the reward used.
func Learn(arm *Arm, observedLatency, alpha float64) float64 {
	reward := LatencyReward(observedLatency)
	arm.EstimatedValue = UpdateEstimate(arm.EstimatedValue, reward, alpha)
	return reward
}
