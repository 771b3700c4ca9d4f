package codec

import (
	"errors"
	"fmt"
	"io"
	"iter"
)

// Option configures a Decoder.
type Option func(*Decoder)

// WithSentinel makes the decoder stop at two consecutive Erased readings in addition
// to the first fully erased Group.
func WithSentinel() Option {
	return func(d *Decoder) {
		d.sentinel = true
	}
}

// Decoder reads Groups from a region and yields readings until end of log.
// End of log is the first erased Group or the end of the region.
type Decoder struct {
	r        io.ReaderAt
	start    int64
	size     int64
	sentinel bool
	err      error
}

// NewDecoder creates a decoder over the first size bytes of r.
func NewDecoder(r io.ReaderAt, size int64, opts ...Option) *Decoder {
	d := &Decoder{
		r:    r,
		size: size,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// At returns a decoder with the same options starting at offset.
// The offset must be a multiple of GroupSize.
func (d *Decoder) At(offset int64) (*Decoder, error) {
	if offset%GroupSize != 0 {
		return nil, fmt.Errorf("offset %d: %w", offset, ErrUnaligned)
	}
	if offset < 0 || offset > d.size {
		return nil, fmt.Errorf("offset %d: %w", offset, ErrOutOfRange)
	}

	nd := *d
	nd.start = offset
	nd.err = nil
	return &nd, nil
}

// Err returns the read error that ended the last iteration, if any.
func (d *Decoder) Err() error {
	return d.err
}

// Values returns the readings of the log. Every call restarts from the decoder's offset.
func (d *Decoder) Values() iter.Seq[uint16] {
	return func(yield func(uint16) bool) {
		d.err = nil

		var g Group
		held := false // one Erased reading waiting to see whether it starts a sentinel
		for off := d.start; off+GroupSize <= d.size; off += GroupSize {
			if err := d.readGroup(&g, off); err != nil {
				d.err = err
				return
			}
			if g.IsErased() {
				return
			}

			for _, v := range g.Unpack() {
				if !d.sentinel {
					if !yield(v) {
						return
					}
					continue
				}

				if v == Erased {
					if held {
						return
					}
					held = true
					continue
				}
				if held {
					held = false
					if !yield(Erased) {
						return
					}
				}
				if !yield(v) {
					return
				}
			}
		}

		if held {
			yield(Erased)
		}
	}
}

// Records groups the readings into records of the given channel count. A trailing
// partial record is yielded as a shorter slice. Each yielded slice is freshly allocated.
func (d *Decoder) Records(channels int) iter.Seq[[]uint16] {
	if channels < 1 {
		channels = 1
	}

	return func(yield func([]uint16) bool) {
		rec := make([]uint16, 0, channels)
		for v := range d.Values() {
			rec = append(rec, v)
			if len(rec) < channels {
				continue
			}
			if !yield(rec) {
				return
			}
			rec = make([]uint16, 0, channels)
		}

		if len(rec) > 0 {
			yield(rec)
		}
	}
}

func (d *Decoder) readGroup(g *Group, off int64) error {
	n, err := d.r.ReadAt(g[:], off)
	if n == GroupSize {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read group at %d: %w", off, err)
}
