package progif

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"time"

	"progif/compose"
	"progif/formats"
	"progif/lzw"
)

// Decoder emits the frames of a parsed GIF stream one at a time. It is not
// safe for concurrent use; separate decoders over the same bytes are
// independent.
type Decoder struct {
	doc  *formats.Document
	opts Options
	log  *slog.Logger

	plan   []int   // image block indices to emit
	stride float64 // delay multiplier in preview mode
	pos    int

	history  compose.History
	disposal formats.Disposal // disposal of the last emitted frame

	anomalies []DecodeAnomaly
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))

// NewDecoder parses data and plans which frames to emit. A structurally
// invalid stream returns an error matching ErrFormat.
func NewDecoder(data []byte, opts *Options) (*Decoder, error) {
	d := &Decoder{log: discardLogger}
	if opts != nil {
		d.opts = *opts
	}
	if d.opts.Logger != nil {
		d.log = d.opts.Logger
	}

	doc, err := formats.Parse(data)
	if err != nil {
		d.log.Error("gif parse failed", "err", err)
		return nil, fmt.Errorf("progif: %w", err)
	}
	d.doc = doc
	d.log.Debug("gif parsed", "document", doc)

	for _, w := range doc.Warnings {
		d.anomaly(-1, w)
	}
	if len(doc.Images) == 0 {
		d.anomaly(-1, ErrNoImages)
	}

	d.plan, d.stride = planFrames(len(doc.Images), d.opts.Mode, d.opts.MaxFrames)
	return d, nil
}

// planFrames returns the image block indices to emit and the delay
// multiplier. Preview mode samples floor(k*total/maxFrames) for each k.
func planFrames(total int, mode Mode, maxFrames int) ([]int, float64) {
	if total == 0 {
		return nil, 1
	}
	if mode != ModePreview || maxFrames <= 0 || maxFrames > total {
		maxFrames = total
	}
	stride := float64(total) / float64(maxFrames)

	plan := make([]int, 0, maxFrames)
	for k := 0; k < maxFrames; k++ {
		i := int(float64(k) * stride)
		if i >= total {
			break
		}
		plan = append(plan, i)
	}
	return plan, stride
}

// Width returns the logical screen width.
func (d *Decoder) Width() int { return int(d.doc.Width) }

// Height returns the logical screen height.
func (d *Decoder) Height() int { return int(d.doc.Height) }

// LoopCount returns the animation loop count; 0 means forever or unspecified.
func (d *Decoder) LoopCount() int { return d.doc.LoopCount() }

// FrameCount returns the number of frames Next will emit in total.
func (d *Decoder) FrameCount() int { return len(d.plan) }

// Document returns the parsed block stream.
func (d *Decoder) Document() *formats.Document { return d.doc }

// Anomalies returns the non-fatal problems recorded so far.
func (d *Decoder) Anomalies() []DecodeAnomaly { return d.anomalies }

// Next composites and returns the next frame, or io.EOF when every planned
// frame has been emitted. The returned image belongs to the caller.
func (d *Decoder) Next() (Frame, error) {
	if d.pos >= len(d.plan) {
		return Frame{}, io.EOF
	}
	i := d.plan[d.pos]
	d.pos++

	img := d.doc.Images[i]
	gc := img.Control

	indices, issues := d.indices(img)
	for _, err := range issues {
		d.anomaly(i, err)
	}

	canvas, issues := compose.Compose(d.history.Baseline(d.disposal), compose.NewParams(d.doc, i, indices))
	releaseBuffer(indices)
	for _, err := range issues {
		d.anomaly(i, err)
	}

	d.history.Push(canvas)
	d.disposal = compose.Disposal(gc)

	delay := compose.Delay(gc)
	if d.opts.Mode == ModePreview && d.stride > 1 {
		delay = time.Duration(float64(delay) * d.stride)
	}

	d.log.Debug("frame decoded",
		"frame", i,
		"emitted", d.pos,
		"of", len(d.plan),
		"delay", delay,
		"disposal", d.disposal,
	)

	return Frame{
		Image:  cloneRGBA(canvas),
		Delay:  delay,
		Index:  i,
		Filter: d.opts.Filter,
		Wrap:   d.opts.Wrap,
	}, nil
}

// maxExpansion bounds the indices a single LZW code can expand to.
const maxExpansion = 1 << 12

// indexBudget returns how many indices of img to decode. Progressive rows
// below the canvas are never drawn, so they are not decoded. No code stream
// yields more than maxExpansion indices per code, so larger declared sizes
// are cut to that; capped reports when this happened.
func (d *Decoder) indexBudget(img *formats.ImageBlock) (n int, capped bool) {
	w, h := int(img.Width), int(img.Height)
	if !img.Interlaced {
		h = min(h, max(int(d.doc.Height)-int(img.Top), 0))
	}
	n = w * h

	width := min(max(int(img.MinCodeSize), 1), 11) + 1
	if limit := len(img.Data) * 8 / width * maxExpansion; n > limit {
		return limit, true
	}
	return n, false
}

// indices decompresses an image block into a pooled buffer in natural row
// order. The caller releases the buffer.
func (d *Decoder) indices(img *formats.ImageBlock) ([]byte, []error) {
	n, capped := d.indexBudget(img)

	var issues []error
	if capped {
		issues = append(issues, fmt.Errorf("%w: %dx%d declared, at most %d indices in %d data bytes",
			ErrImageTooLarge, img.Width, img.Height, n, len(img.Data)))
	}

	buf := borrowBuffer(n)
	_, lzwIssues := lzw.DecodeInto(buf, img.Data, int(img.MinCodeSize))
	issues = append(issues, lzwIssues...)

	w, h := int(img.Width), int(img.Height)
	if img.Interlaced && n > 0 {
		// the first pass alone places row r at 8r
		rows := min(h, max(int(d.doc.Height)-int(img.Top), 0), 8*(n/w+1))
		natural := borrowBuffer(rows * w)
		clear(natural)
		compose.Deinterlace(natural, buf, w, h)
		releaseBuffer(buf)
		buf = natural
	}
	return buf, issues
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := *src
	dst.Pix = bytes.Clone(src.Pix)
	return &dst
}

func (d *Decoder) anomaly(frame int, err error) {
	a := DecodeAnomaly{Frame: frame, Err: err}
	d.anomalies = append(d.anomalies, a)
	d.log.Warn("gif decode anomaly", "frame", frame, "err", err)
}

// Decode decodes every planned frame of data.
//
// Example:
//
//	res, err := progif.Decode(data, &progif.Options{Mode: progif.ModePreview, MaxFrames: 10})
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, f := range res.Frames {
//		fmt.Println(f.Index, f.Delay)
//	}
func Decode(data []byte, opts *Options) (*Result, error) {
	d, err := NewDecoder(data, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{
		LoopCount: d.LoopCount(),
		Width:     d.Width(),
		Height:    d.Height(),
		Frames:    make([]Frame, 0, d.FrameCount()),
	}
	for {
		f, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		res.Frames = append(res.Frames, f)
	}
	res.Anomalies = d.Anomalies()
	return res, nil
}
