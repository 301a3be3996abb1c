package topic

// Reliability is the DDS-style reliability policy of a topic.
type Reliability int

const (
	BestEffort Reliability = iota
	Reliable
)

func (r Reliability) String() string {
	if r == Reliable {
		return "reliable"
	}
	return "best-effort"
}

// Durability is the DDS-style durability policy of a topic.
type Durability int

const (
	Volatile Durability = iota
	TransientLocal
)

func (d Durability) String() string {
	if d == TransientLocal {
		return "transient-local"
	}
	return "volatile"
}

// QoS holds the recognized QoS options for a topic (spec.md §3).
type QoS struct {
	Reliability Reliability
	Durability  Durability
	Depth       int
	Partitions  bool
	Ownership   bool
	Keyed       bool

	// Downsampling keeps 1 of every N samples considered. A value <= 1
	// means no downsampling.
	Downsampling int

	// MaxReceptionRate bounds forwarded samples per second. 0 means
	// unlimited.
	MaxReceptionRate float64
}

// DefaultQoS returns the QoS in effect when nothing overrides it.
func DefaultQoS() QoS {
	return QoS{
		Reliability:      BestEffort,
		Durability:       Volatile,
		Depth:            1,
		Downsampling:     1,
		MaxReceptionRate: 0,
	}
}

// Override holds QoS fields a manual-topics entry may set; nil fields
// keep the discovered/default value (spec.md §4.2).
type Override struct {
	Reliability      *Reliability
	Durability       *Durability
	Depth            *int
	Partitions       *bool
	Ownership        *bool
	Keyed            *bool
	Downsampling     *int
	MaxReceptionRate *float64
}

// Apply returns base with every field the override specifies replaced.
func (o Override) Apply(base QoS) QoS {
	out := base
	if o.Reliability != nil {
		out.Reliability = *o.Reliability
	}
	if o.Durability != nil {
		out.Durability = *o.Durability
	}
	if o.Depth != nil {
		out.Depth = *o.Depth
	}
	if o.Partitions != nil {
		out.Partitions = *o.Partitions
	}
	if o.Ownership != nil {
		out.Ownership = *o.Ownership
	}
	if o.Keyed != nil {
		out.Keyed = *o.Keyed
	}
	if o.Downsampling != nil {
		out.Downsampling = *o.Downsampling
	}
	if o.MaxReceptionRate != nil {
		out.MaxReceptionRate = *o.MaxReceptionRate
	}
	return out
}

// IsZero reports whether the override specifies nothing at all.
func (o Override) IsZero() bool {
	return o.Reliability == nil && o.Durability == nil && o.Depth == nil &&
		o.Partitions == nil && o.Ownership == nil && o.Keyed == nil &&
		o.Downsampling == nil && o.MaxReceptionRate == nil
}
