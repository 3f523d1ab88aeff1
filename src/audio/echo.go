package audio

const (
	minEchoMs   = 10.0
	maxEchoMs   = 2000.0
	maxFeedback = 0.95
)

// ----- Echo ----- //

// echo is a feedback delay mixed on top of the dry signal.
type echo struct {
	sampleRate   float64
	delayMs      float64
	delay        *delay
	feedbackGain float64 // [0,0.95]
	mix          float64 // [0,1]
}

func newEcho(delayMs float64, feedbackGain float64, mix float64, sampleRate float64) *echo {
	e := &echo{sampleRate: sampleRate, delay: &delay{}}
	e.setDelayMs(delayMs)
	e.setFeedback(feedbackGain)
	e.setMix(mix)
	return e
}

func (e *echo) Process(in float64, _ float64) float64 {
	delayed := e.delay.getDelayed()
	e.delay.step(in + delayed*e.feedbackGain)
	return in + delayed*e.mix
}
func (e *echo) Kind() moduleKind { return moduleEcho }
func (e *echo) Name() string     { return "Echo" }
func (e *echo) clone() Module {
	c := *e
	c.delay = e.delay.clone()
	return &c
}
func (e *echo) adopt(src Module) {
	s, ok := src.(*echo)
	if !ok {
		return
	}
	if s.delayMs != e.delayMs || s.sampleRate != e.sampleRate {
		e.sampleRate = s.sampleRate
		e.setDelayMs(s.delayMs)
	}
	e.feedbackGain = s.feedbackGain
	e.mix = s.mix
}

// setDelayMs clears the line when its length changes.
func (e *echo) setDelayMs(ms float64) {
	e.delayMs = clamp(ms, minEchoMs, maxEchoMs)
	length := msToSamples(e.delayMs, e.sampleRate)
	if length != e.delay.length() {
		e.delay.resize(length)
	}
}
func (e *echo) setFeedback(g float64) { e.feedbackGain = clamp(g, 0, maxFeedback) }
func (e *echo) setMix(mix float64)    { e.mix = clamp(mix, 0, 1) }
