package formats

import (
	"bytes"
	"fmt"
)

// maxStrayBytes bounds how many zero padding bytes between blocks are
// tolerated before the stream is rejected.
const maxStrayBytes = 16

// Parse parses a complete GIF byte stream into a Document. Structural
// violations return a *FormatError; problems the decoder can work around are
// recorded in Document.Warnings.
func Parse(data []byte) (*Document, error) {
	c := &cursor{buf: data}
	doc := &Document{}

	if err := doc.readHeader(c); err != nil {
		return nil, err
	}
	if err := doc.readBlocks(c); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) readHeader(c *cursor) error {
	// Read GIF signature (6 bytes)
	sig, err := c.next(6, "header")
	if err != nil {
		return err
	}
	if !hasSignature(sig) {
		return formatError(0, ErrBadSignature, "got %q", sig[:3])
	}
	if !supportedVersion(sig[3:6]) {
		return formatError(3, ErrUnsupportedVersion, "got %q", sig[3:6])
	}
	d.Version = string(sig[3:6])

	// Read Logical Screen Descriptor (7 bytes)
	lsd, err := c.next(7, "logical screen descriptor")
	if err != nil {
		return err
	}
	d.Width = le16(lsd[0:2])
	d.Height = le16(lsd[2:4])

	packed := lsd[4]
	d.GlobalColorTableFlag = packed&0x80 != 0
	d.ColorResolution = colorResolution[(packed>>4)&0x07]
	d.SortFlag = packed&0x08 != 0
	d.BackgroundIndex = lsd[5]
	d.PixelAspectRatio = lsd[6]

	if d.GlobalColorTableFlag {
		d.GlobalColorTable, err = c.colorTable(colorTableLen(packed), "global color table")
		if err != nil {
			return err
		}
	}
	return nil
}

// readBlocks consumes blocks until the trailer. Each block reader returns
// stop=true when the stream was cut short and parsing should end early.
func (d *Document) readBlocks(c *cursor) error {
	prev := -1
	stray := 0
	for {
		start := c.off
		if start <= prev {
			return formatError(start, ErrNoProgress, "block loop stalled")
		}
		prev = start

		if c.remaining() == 0 {
			d.warn(fmt.Errorf("%w: stream ends at offset %d", ErrMissingTrailer, start))
			return nil
		}

		introducer, _ := c.readByte("block introducer")

		var (
			stop bool
			err  error
		)
		switch introducer {
		case introducerImage:
			stop, err = d.readImage(c, start)
		case introducerExtension:
			stop, err = d.readExtension(c, start)
		case introducerTrailer:
			d.Trailer = true
			return nil
		case 0x00:
			stray++
			if stray > maxStrayBytes {
				return formatError(start, ErrUnknownBlock, "more than %d padding bytes", maxStrayBytes)
			}
			continue
		default:
			return formatError(start, ErrUnknownBlock, "introducer 0x%02x", introducer)
		}
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

func (d *Document) readImage(c *cursor, start int) (bool, error) {
	desc, err := c.next(9, "image descriptor")
	if err != nil {
		return false, err
	}

	img := &ImageBlock{
		Left:   le16(desc[0:2]),
		Top:    le16(desc[2:4]),
		Width:  le16(desc[4:6]),
		Height: le16(desc[6:8]),
	}
	packed := desc[8]
	img.LocalColorTableFlag = packed&0x80 != 0
	img.Interlaced = packed&0x40 != 0
	img.SortFlag = packed&0x20 != 0

	// local color table comes first
	if img.LocalColorTableFlag {
		img.LocalColorTable, err = c.colorTable(colorTableLen(packed), "local color table")
		if err != nil {
			return false, err
		}
	}

	img.MinCodeSize, err = c.readByte("LZW minimum code size")
	if err != nil {
		return false, err
	}

	err = c.subBlocks(func(p []byte) {
		img.Data = append(img.Data, p...)
	})

	img.Control, d.pending = d.pending, nil
	d.Images = append(d.Images, img)
	d.Blocks = append(d.Blocks, img)

	if err != nil {
		img.Truncated = true
		d.warn(fmt.Errorf("%w: image %d at offset %d has %d data bytes", ErrTruncatedData, len(d.Images)-1, start, len(img.Data)))
		return true, nil
	}
	return false, nil
}

func (d *Document) readExtension(c *cursor, start int) (bool, error) {
	label, err := c.readByte("extension label")
	if err != nil {
		return false, err
	}

	switch label {
	case labelGraphicControl:
		return d.readGraphicControl(c, start)
	case labelComment:
		return d.readComment(c, start)
	case labelPlainText:
		return d.readPlainText(c, start)
	case labelApplication:
		return d.readApplication(c, start)
	default:
		return d.readUnknownExtension(c, start, label)
	}
}

func (d *Document) readGraphicControl(c *cursor, start int) (bool, error) {
	body, exact, err := c.fixedBlock(graphicControlSize, "graphic control extension")
	if err != nil {
		return false, err
	}
	if !exact {
		d.warn(fmt.Errorf("%w: graphic control at offset %d", ErrMalformedExtension, start))
	}

	gc := &GraphicControl{
		Disposal:         disposalFromPacked(body[0]),
		UserInput:        body[0]&0x02 != 0,
		TransparentFlag:  body[0]&0x01 != 0,
		DelayTime:        le16(body[1:3]),
		TransparentIndex: body[3],
	}
	d.GraphicControls = append(d.GraphicControls, gc)
	d.Blocks = append(d.Blocks, gc)
	d.pending = gc

	// block terminator, plus any sub-blocks a writer appended
	if err := c.subBlocks(func([]byte) {}); err != nil {
		return d.truncatedExtension("graphic control", start)
	}
	return false, nil
}

func (d *Document) readComment(c *cursor, start int) (bool, error) {
	var text bytes.Buffer
	if err := c.subBlocks(func(p []byte) { text.Write(p) }); err != nil {
		return d.truncatedExtension("comment", start)
	}

	ce := &CommentExtension{Text: text.String()}
	d.Comments = append(d.Comments, ce)
	d.Blocks = append(d.Blocks, ce)
	return false, nil
}

func (d *Document) readPlainText(c *cursor, start int) (bool, error) {
	body, exact, err := c.fixedBlock(plainTextSize, "plain text extension")
	if err != nil {
		return false, err
	}
	if !exact {
		d.warn(fmt.Errorf("%w: plain text at offset %d", ErrMalformedExtension, start))
	}

	pt := &PlainTextExtension{
		GridLeft:        le16(body[0:2]),
		GridTop:         le16(body[2:4]),
		GridWidth:       le16(body[4:6]),
		GridHeight:      le16(body[6:8]),
		CellWidth:       body[8],
		CellHeight:      body[9],
		ForegroundIndex: body[10],
		BackgroundIndex: body[11],
	}

	var text bytes.Buffer
	if err := c.subBlocks(func(p []byte) { text.Write(p) }); err != nil {
		return d.truncatedExtension("plain text", start)
	}
	pt.Text = text.String()

	d.PlainTexts = append(d.PlainTexts, pt)
	d.Blocks = append(d.Blocks, pt)
	return false, nil
}

func (d *Document) readApplication(c *cursor, start int) (bool, error) {
	body, exact, err := c.fixedBlock(applicationSize, "application extension")
	if err != nil {
		return false, err
	}
	if !exact {
		d.warn(fmt.Errorf("%w: application extension at offset %d", ErrMalformedExtension, start))
	}

	app := &ApplicationExtension{
		Identifier: string(body[0:8]),
		AuthCode:   string(body[8:11]),
	}
	if err := c.subBlocks(func(p []byte) {
		app.SubBlocks = append(app.SubBlocks, bytes.Clone(p))
	}); err != nil {
		return d.truncatedExtension("application", start)
	}

	d.Applications = append(d.Applications, app)
	d.Blocks = append(d.Blocks, app)
	return false, nil
}

func (d *Document) readUnknownExtension(c *cursor, start int, label byte) (bool, error) {
	ext := &UnknownExtension{Label: label}
	if err := c.subBlocks(func(p []byte) {
		ext.SubBlocks = append(ext.SubBlocks, bytes.Clone(p))
	}); err != nil {
		return d.truncatedExtension(fmt.Sprintf("extension 0x%02x", label), start)
	}

	d.Unknown = append(d.Unknown, ext)
	d.Blocks = append(d.Blocks, ext)
	return false, nil
}

// truncatedExtension records an extension whose sub-blocks ran past the end
// of the buffer. Only a graphic control survives, since its fields precede
// the sub-blocks; parsing stops either way.
func (d *Document) truncatedExtension(kind string, start int) (bool, error) {
	d.warn(fmt.Errorf("%w: %s extension at offset %d", ErrTruncatedData, kind, start))
	return true, nil
}
