package metrics

import (
	"math"

	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/sim"
)

// MaxPenetration is the deepest residual overlap seen after correction.
type MaxPenetration struct {
	name  string
	depth float64
}

func NewMaxPenetration() *MaxPenetration {
	return &MaxPenetration{name: "max_penetration"}
}

func (m *MaxPenetration) Name() string { return m.name }

func (m *MaxPenetration) Observe(sc *scene.Scene, rep sim.StepReport) {
	m.depth = math.Max(m.depth, rep.MaxPenetration)
}

func (m *MaxPenetration) Value() float64 { return m.depth }
func (m *MaxPenetration) Reset()         { m.depth = 0 }

// Contacts is the mean number of touching pairs per step.
type Contacts struct {
	name    string
	total   int
	samples int
}

func NewContacts() *Contacts {
	return &Contacts{name: "contacts"}
}

func (c *Contacts) Name() string { return c.name }

func (c *Contacts) Observe(sc *scene.Scene, rep sim.StepReport) {
	c.total += rep.Contacts
	c.samples++
}

func (c *Contacts) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.total) / float64(c.samples)
}

func (c *Contacts) Reset() {
	c.total = 0
	c.samples = 0
}
