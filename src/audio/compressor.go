package audio

import "math"

const (
	rmsWindowSeconds = 0.025
	minCompTime      = 0.0001 // s
	maxCompTime      = 10.0
)

// ----- RMS Compressor ----- //

// compressor is a feed-forward compressor driven by a sliding RMS window.
// Gain reduction is smoothed in dB and applied to the unmodified input.
type compressor struct {
	sampleRate float64
	threshold  float64 // dB
	ratio      float64
	attack     float64 // s
	release    float64 // s
	makeupGain float64 // dB
	knee       float64 // dB

	attackCoeff  float64
	releaseCoeff float64

	reduction float64 // smoothed gain reduction in dB
	rmsSum    float64
	rmsBuffer []float64 // squared samples
	rmsIndex  int
}

func newCompressor(threshold, ratio, attack, release, makeupGain, knee, sampleRate float64) *compressor {
	size := int(rmsWindowSeconds * sampleRate)
	if size < 1 {
		size = 1
	}
	c := &compressor{
		sampleRate: sampleRate,
		rmsBuffer:  make([]float64, size),
	}
	c.setThreshold(threshold)
	c.setMakeupGain(makeupGain)
	c.setRatio(ratio)
	c.setKnee(knee)
	c.setAttack(attack)
	c.setRelease(release)
	return c
}

func smoothingCoeff(seconds float64, sampleRate float64) float64 {
	return math.Exp(-1 / (seconds * sampleRate))
}

func (c *compressor) updateRMS(in float64) float64 {
	sq := in * in
	c.rmsSum += sq - c.rmsBuffer[c.rmsIndex]
	c.rmsBuffer[c.rmsIndex] = sq
	c.rmsIndex++
	if c.rmsIndex >= len(c.rmsBuffer) {
		c.rmsIndex = 0
	}
	if c.rmsSum < 0 {
		// rounding drift
		c.rmsSum = 0
	}
	return math.Sqrt(c.rmsSum / float64(len(c.rmsBuffer)))
}

// targetReduction returns the static gain reduction (>= 0 dB) for a level.
func (c *compressor) targetReduction(levelDB float64) float64 {
	slope := 1 - 1/c.ratio
	over := levelDB - c.threshold
	if c.knee > 0 {
		halfKnee := c.knee / 2
		if over <= -halfKnee {
			return 0
		}
		if over >= halfKnee {
			return over * slope
		}
		x := over + halfKnee
		return slope * x * x / (2 * c.knee)
	}
	if over > 0 {
		return over * slope
	}
	return 0
}

func (c *compressor) Process(in float64, _ float64) float64 {
	levelDB := linearToDB(c.updateRMS(in))
	target := c.targetReduction(levelDB)
	coeff := c.releaseCoeff
	if target > c.reduction {
		coeff = c.attackCoeff
	}
	c.reduction = coeff*(c.reduction-target) + target
	return in * dbToLinear(c.makeupGain-c.reduction)
}
func (c *compressor) Kind() moduleKind { return moduleCompressor }
func (c *compressor) Name() string     { return "Compressor" }
func (c *compressor) clone() Module {
	cc := *c
	cc.rmsBuffer = make([]float64, len(c.rmsBuffer))
	copy(cc.rmsBuffer, c.rmsBuffer)
	return &cc
}
func (c *compressor) adopt(src Module) {
	s, ok := src.(*compressor)
	if !ok {
		return
	}
	c.threshold = s.threshold
	c.ratio = s.ratio
	c.attack = s.attack
	c.release = s.release
	c.makeupGain = s.makeupGain
	c.knee = s.knee
	c.attackCoeff = s.attackCoeff
	c.releaseCoeff = s.releaseCoeff
}

func (c *compressor) setThreshold(db float64)  { c.threshold = clamp(db, minDB, 0) }
func (c *compressor) setRatio(ratio float64)   { c.ratio = atLeast(ratio, 1) }
func (c *compressor) setMakeupGain(db float64) { c.makeupGain = clamp(db, minDB, maxDB) }
func (c *compressor) setKnee(db float64)       { c.knee = clamp(db, 0, maxDB) }
func (c *compressor) setAttack(seconds float64) {
	c.attack = clamp(seconds, minCompTime, maxCompTime)
	c.attackCoeff = smoothingCoeff(c.attack, c.sampleRate)
}
func (c *compressor) setRelease(seconds float64) {
	c.release = clamp(seconds, minCompTime, maxCompTime)
	c.releaseCoeff = smoothingCoeff(c.release, c.sampleRate)
}

// gainReduction is the current smoothed reduction in dB.
func (c *compressor) gainReduction() float64 { return c.reduction }
