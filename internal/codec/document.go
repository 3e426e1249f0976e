package codec

// CurrentVersion is the document version written by Encode.
//
// Version 1 documents carry no material, collidable, colour, sleep or
// gravity scale fields. They decode with default values.
const (
	CurrentVersion = 2
	MinVersion     = 1
)

const (
	shapeCircle  = "circle"
	shapePolygon = "polygon"

	typeHinge  = "hinge"
	typeSpring = "spring"
)

// Document is the persisted form of a scene. Bodies and constraints are
// listed in ascending id order.
type Document struct {
	Version      int             `json:"version" yaml:"version"`
	NextID       uint64          `json:"next_id" yaml:"next_id"`
	Gravity      Vec             `json:"gravity" yaml:"gravity"`
	GravityScale *float64        `json:"gravity_scale,omitempty" yaml:"gravity_scale,omitempty"`
	Bodies       []BodyDoc       `json:"bodies" yaml:"bodies"`
	Constraints  []ConstraintDoc `json:"constraints" yaml:"constraints"`
}

type Vec struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

type ShapeDoc struct {
	Type     string  `json:"type" yaml:"type"`
	Radius   float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
	Vertices []Vec   `json:"vertices,omitempty" yaml:"vertices,omitempty"`
}

type MaterialDoc struct {
	Density     float64 `json:"density" yaml:"density"`
	Friction    float64 `json:"friction" yaml:"friction"`
	Restitution float64 `json:"restitution" yaml:"restitution"`
}

type BodyDoc struct {
	ID              uint64       `json:"id" yaml:"id"`
	Label           string       `json:"label,omitempty" yaml:"label,omitempty"`
	Shape           ShapeDoc     `json:"shape" yaml:"shape"`
	Mass            float64      `json:"mass" yaml:"mass"`
	Material        *MaterialDoc `json:"material,omitempty" yaml:"material,omitempty"`
	Position        Vec          `json:"position" yaml:"position"`
	Angle           float64      `json:"angle" yaml:"angle"`
	Velocity        Vec          `json:"velocity" yaml:"velocity"`
	AngularVelocity float64      `json:"angular_velocity" yaml:"angular_velocity"`
	Static          bool         `json:"static" yaml:"static"`
	Collidable      *bool        `json:"collidable,omitempty" yaml:"collidable,omitempty"`
	Color           []int        `json:"color,omitempty" yaml:"color,omitempty,flow"`
	Sleeping        bool         `json:"sleeping,omitempty" yaml:"sleeping,omitempty"`
	SleepSteps      int          `json:"sleep_steps,omitempty" yaml:"sleep_steps,omitempty"`
}

// ConstraintDoc holds either a hinge or a spring, selected by Type.
// Spring fields are zero for hinges.
type ConstraintDoc struct {
	Type             string  `json:"type" yaml:"type"`
	ID               uint64  `json:"id" yaml:"id"`
	BodyA            uint64  `json:"body_a" yaml:"body_a"`
	BodyB            uint64  `json:"body_b" yaml:"body_b"`
	AnchorA          Vec     `json:"anchor_a" yaml:"anchor_a"`
	AnchorB          Vec     `json:"anchor_b" yaml:"anchor_b"`
	CollideConnected bool    `json:"collide_connected,omitempty" yaml:"collide_connected,omitempty"`
	RestLength       float64 `json:"rest_length,omitempty" yaml:"rest_length,omitempty"`
	Stiffness        float64 `json:"stiffness,omitempty" yaml:"stiffness,omitempty"`
	Damping          float64 `json:"damping,omitempty" yaml:"damping,omitempty"`
}
