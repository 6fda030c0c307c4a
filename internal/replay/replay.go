// Package replay records matches as a msgpack stream (one header, then one
// record per frame, then the result) and re-simulates them to prove
// determinism.
package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/match"
)

// FormatVersion is written into every header.
const FormatVersion = 1

// FileExt is the extension of replay files written by FileSinks.
const FileExt = ".replay"

// ErrVersion is returned when a stream has an unsupported format version.
var ErrVersion = errors.New("unsupported replay version")

// Header opens every replay stream.
type Header struct {
	Version      int              `msgpack:"version"`
	MatchID      uuid.UUID        `msgpack:"matchId"`
	Seed         uint64           `msgpack:"seed"`
	Genomes      [2]genome.Genome `msgpack:"genomes"`
	TickInterval time.Duration    `msgpack:"tickInterval"`
	CreatedAt    time.Time        `msgpack:"createdAt"`
}

type recordKind uint8

const (
	kindFrame recordKind = iota + 1
	kindResult
)

type record struct {
	Kind   recordKind    `msgpack:"k"`
	Frame  *match.Frame  `msgpack:"f,omitempty"`
	Result *match.Result `msgpack:"r,omitempty"`
}

// EncodeEvents returns the canonical byte form of a tick's events. Equal event
// slices always encode to equal bytes.
func EncodeEvents(events []combat.Event) ([]byte, error) {
	if events == nil {
		events = []combat.Event{}
	}
	b, err := msgpack.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encoding events: %w", err)
	}
	return b, nil
}

// Writer appends frames to a replay stream. It implements match.FrameSink.
// Not safe for concurrent use.
type Writer struct {
	buf    *bufio.Writer
	enc    *msgpack.Encoder
	closer io.Closer
	frames int
}

// NewWriter writes h to w and returns a Writer for the frames. If w is an
// io.Closer it is closed by Finish.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	h.Version = FormatVersion
	buf := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&h); err != nil {
		return nil, fmt.Errorf("writing replay header: %w", err)
	}
	rw := &Writer{buf: buf, enc: enc}
	if c, ok := w.(io.Closer); ok {
		rw.closer = c
	}
	return rw, nil
}

// WriteFrame appends one frame.
func (w *Writer) WriteFrame(f match.Frame) error {
	if err := w.enc.Encode(&record{Kind: kindFrame, Frame: &f}); err != nil {
		return fmt.Errorf("writing replay frame %d: %w", f.Snapshot.Tick, err)
	}
	w.frames++
	return nil
}

// Frames returns how many frames were written.
func (w *Writer) Frames() int { return w.frames }

// Finish appends the result, flushes and closes the underlying writer.
func (w *Writer) Finish(r match.Result) error {
	err := w.enc.Encode(&record{Kind: kindResult, Result: &r})
	if err == nil {
		err = w.buf.Flush()
	}
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("finishing replay: %w", err)
	}
	return nil
}

// Path returns the replay file path for a match under dir.
func Path(dir string, id uuid.UUID) string {
	return filepath.Join(dir, id.String()+FileExt)
}

// FileSinks returns a match.SinkFactory writing one file per match into dir.
func FileSinks(dir string, tickInterval time.Duration) match.SinkFactory {
	return func(id uuid.UUID, seed uint64, genomes [2]genome.Genome) (match.FrameSink, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating replay dir: %w", err)
		}
		f, err := os.Create(Path(dir, id))
		if err != nil {
			return nil, fmt.Errorf("creating replay file: %w", err)
		}
		w, err := NewWriter(f, Header{
			MatchID:      id,
			Seed:         seed,
			Genomes:      genomes,
			TickInterval: tickInterval,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return w, nil
	}
}

// Reader decodes a replay stream.
type Reader struct {
	dec    *msgpack.Decoder
	header Header
	result *match.Result
}

// NewReader reads and checks the header.
//
// Postcondition: Returns an error wrapping ErrVersion for foreign versions.
func NewReader(r io.Reader) (*Reader, error) {
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("reading replay header: %w", err)
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	return &Reader{dec: dec, header: h}, nil
}

// Header returns the stream header.
func (r *Reader) Header() Header { return r.header }

// Next returns the next frame, or io.EOF after the last one. A stream cut
// short without a result record ends with io.ErrUnexpectedEOF.
func (r *Reader) Next() (match.Frame, error) {
	if r.result != nil {
		return match.Frame{}, io.EOF
	}
	var rec record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return match.Frame{}, io.ErrUnexpectedEOF
		}
		return match.Frame{}, fmt.Errorf("reading replay record: %w", err)
	}
	switch rec.Kind {
	case kindFrame:
		if rec.Frame == nil {
			return match.Frame{}, fmt.Errorf("replay frame record without frame")
		}
		return *rec.Frame, nil
	case kindResult:
		if rec.Result == nil {
			return match.Frame{}, fmt.Errorf("replay result record without result")
		}
		r.result = rec.Result
		return match.Frame{}, io.EOF
	default:
		return match.Frame{}, fmt.Errorf("unknown replay record kind %d", rec.Kind)
	}
}

// Result returns the recorded result once Next has returned io.EOF.
func (r *Reader) Result() (match.Result, bool) {
	if r.result == nil {
		return match.Result{}, false
	}
	return *r.result, true
}
