package participant

import (
	"github.com/ddspipe/ddspipe-go/pkg/topic"
)

// WriteResult classifies the outcome of Writer.Write (spec.md §6, §7).
type WriteResult int

const (
	// WriteOK means the sample was accepted.
	WriteOK WriteResult = iota
	// WriteRecoverable means a transient failure occurred; the sample
	// is dropped but the writer stays in the track.
	WriteRecoverable
	// WriteFatal means the writer is unusable and must be removed from
	// every track that holds it.
	WriteFatal
)

// Payload is the minimal shape a participant needs to forward a sample
// without depending on the payload package's refcounting machinery.
// pkg/payload.Payload satisfies this.
type Payload interface {
	Bytes() []byte
}

// Reader is a source of samples for one topic, borrowed by exactly one
// Track at a time (spec.md §4.6, §9).
type Reader interface {
	GUID() string
	Topic() topic.DistributedTopic

	// Enable/Disable control whether Take/the data-available callback
	// produce samples; they are independent of the borrowing Track's own
	// enabled state (original_source/CommonReader.hpp).
	Enable() error
	Disable() error

	// Take returns the oldest available sample, or ok=false if none is
	// available right now.
	Take() (data Payload, ok bool, err error)

	// SetDataAvailable registers a callback invoked when a new sample
	// may be available to Take. Replaces any previously registered
	// callback.
	SetDataAvailable(func())
}

// Writer is a sink for samples, shared across every Track whose route
// selects it.
type Writer interface {
	GUID() string
	Topic() topic.DistributedTopic
	Write(Payload) WriteResult
}

// Participant is the external contract the core consumes (spec.md §6):
// an identified endpoint contributing readers and/or writers. Concrete
// wire-protocol participants are out of scope for this module (spec.md
// §1); pkg/memparticipant is the one trivial stand-in used to exercise
// the core.
type Participant interface {
	ID() ID

	// IsRepeater reports whether this participant may receive its own
	// published data back (spec.md invariant 3).
	IsRepeater() bool

	// IsRTPSKind reports whether this participant is backed by a
	// wire-protocol (e.g. RTPS) transport, as opposed to an internal
	// data source.
	IsRTPSKind() bool

	CreateReader(t topic.DistributedTopic) (Reader, error)
	CreateWriter(t topic.DistributedTopic) (Writer, error)
}
