package audio

import "math/rand"

// ----- Gain ----- //

type gain struct {
	db float64
}

func newGain(db float64) *gain {
	return &gain{db: db}
}

func (g *gain) Process(in float64, _ float64) float64 {
	return in * dbToLinear(g.db)
}
func (g *gain) Kind() moduleKind { return moduleGain }
func (g *gain) Name() string     { return "Gain" }
func (g *gain) clone() Module {
	c := *g
	return &c
}
func (g *gain) adopt(src Module) {
	if s, ok := src.(*gain); ok {
		g.db = s.db
	}
}

func (g *gain) setDB(db float64) { g.db = clamp(db, minDB, maxDB) }
func (g *gain) getDB() float64   { return g.db }

// ----- Noise ----- //

type noise struct {
	amount float64 // 0-1
	rng    *rand.Rand
}

func newNoise(amount float64) *noise {
	n := &noise{rng: rand.New(rand.NewSource(rand.Int63()))}
	n.setAmount(amount)
	return n
}

func (n *noise) Process(in float64, _ float64) float64 {
	return clamp(in+(n.rng.Float64()*2-1)*n.amount, -1, 1)
}
func (n *noise) Kind() moduleKind { return moduleNoise }
func (n *noise) Name() string     { return "Noise" }
func (n *noise) clone() Module {
	return newNoise(n.amount)
}
func (n *noise) adopt(src Module) {
	if s, ok := src.(*noise); ok {
		n.amount = s.amount
	}
}

func (n *noise) setAmount(amount float64) { n.amount = clamp(amount, 0, 1) }
func (n *noise) getAmount() float64       { return n.amount }
