package audio

// ----- Delay ----- //

// delay is a fixed-length circular buffer: getDelayed returns the sample
// written len(past) steps ago.
type delay struct {
	cursor int
	past   []float64
}

func newDelay(length int) *delay {
	d := &delay{}
	d.resize(length)
	return d
}

func msToSamples(millis float64, sampleRate float64) int {
	n := int(millis/1000*sampleRate + 0.5)
	if n < 0 {
		return 0
	}
	return n
}

// resize may allocate; it is only called on explicit configuration changes.
func (d *delay) resize(length int) {
	if length < 1 {
		length = 1
	}
	if cap(d.past) >= length {
		d.past = d.past[0:length]
		for i := range d.past {
			d.past[i] = 0
		}
	} else {
		d.past = make([]float64, length)
	}
	d.cursor = 0
}

func (d *delay) step(in float64) {
	d.past[d.cursor] = in
	d.cursor++
	if d.cursor >= len(d.past) {
		d.cursor = 0
	}
}

func (d *delay) getDelayed() float64 {
	return d.past[d.cursor]
}

func (d *delay) length() int {
	return len(d.past)
}

func (d *delay) clone() *delay {
	past := make([]float64, len(d.past))
	copy(past, d.past)
	return &delay{cursor: d.cursor, past: past}
}
