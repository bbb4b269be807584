package progif

import (
	"time"

	"progif/compose"
	"progif/formats"
)

// ExtractGIFMetadata fills md from a parsed GIF document.
func ExtractGIFMetadata(doc *formats.Document, md *ImageMetadata) {
	md.Format = "GIF" + doc.Version
	md.Width = int(doc.Width)
	md.Height = int(doc.Height)
	md.ColorSpace = "Indexed"
	md.ColorDepth = doc.ColorResolution
	md.FrameCount = len(doc.Images)
	md.LoopCount, md.Looping = doc.Loop()
	md.HasTransparency = doc.HasTransparency()

	md.setAdditional("Version", doc.Version)
	md.setAdditional("GlobalColorTable", doc.GlobalColorTableFlag)
	md.setAdditional("GlobalColorTableSize", len(doc.GlobalColorTable))
	md.setAdditional("ColorResolution", doc.ColorResolution)
	md.setAdditional("SortFlag", doc.SortFlag)
	md.setAdditional("BackgroundColorIndex", int(doc.BackgroundIndex))
	md.setAdditional("PixelAspectRatio", doc.PixelAspectRatio)

	var (
		duration    time.Duration
		interlaced  int
		localTables int
	)
	for _, img := range doc.Images {
		duration += compose.Delay(img.Control)
		if img.Interlaced {
			interlaced++
		}
		if img.LocalColorTableFlag {
			localTables++
		}
	}
	md.Duration = duration
	md.setAdditional("Animated", len(doc.Images) > 1)
	md.setAdditional("InterlacedFrames", interlaced)
	md.setAdditional("LocalColorTables", localTables)

	for _, c := range doc.Comments {
		md.Comments = append(md.Comments, c.Text)
	}

	if len(doc.Applications) > 0 {
		apps := make([]string, len(doc.Applications))
		for i, app := range doc.Applications {
			apps[i] = app.Identifier + app.AuthCode
		}
		md.setAdditional("Applications", apps)
	}
	if len(doc.PlainTexts) > 0 {
		md.setAdditional("PlainTextBlocks", len(doc.PlainTexts))
	}
	if len(doc.Warnings) > 0 {
		md.setAdditional("Warnings", len(doc.Warnings))
	}
	if !doc.Trailer {
		md.setAdditional("Truncated", true)
	}
}
