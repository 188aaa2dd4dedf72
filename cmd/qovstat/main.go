// Command qovstat is a read-only diagnostic for QOV files. It opens the
// file given as its only argument, runs the decoder's public index-build
// surface, and prints the resulting FileStats. It takes no
// encoding-affecting flags and writes nothing back to the file.
package main

import (
	"fmt"
	"os"

	"qov"
	"qov/qovsrc"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <path.qov>\n", os.Args[0])
		os.Exit(2)
	}

	if err := run(os.Args[1]); err != nil {
		fmt.Fprintln(os.Stderr, "qovstat:", err)
		os.Exit(1)
	}
}

func run(path string) error {
	src, err := qovsrc.OpenMmapSource(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer src.Close()

	d := qov.NewDecoder(src, nil)
	if err := d.ParseHeader(); err != nil {
		return fmt.Errorf("parse header: %w", err)
	}
	if err := d.BuildIndex(); err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	stats, err := d.FileStats()
	if err != nil {
		return fmt.Errorf("file stats: %w", err)
	}

	printStats(path, stats)
	return nil
}

func printStats(path string, s qov.FileStats) {
	h := s.Header
	fmt.Printf("%s\n", path)
	fmt.Printf("  version:       %d\n", h.Version)
	fmt.Printf("  dimensions:    %dx%d\n", h.Width, h.Height)
	fmt.Printf("  fps:           %d/%d\n", h.FPSNum, h.FPSDen)
	fmt.Printf("  colorspace:    0x%02x\n", h.Colorspace)
	fmt.Printf("  has_alpha:     %v\n", h.HasAlpha())
	fmt.Printf("  has_index:     %v\n", h.HasIndex())
	fmt.Printf("  total_frames:  %d (header) / %d (counted)\n", h.TotalFrames, s.TotalFrames)
	fmt.Printf("  total_duration: %d\n", s.TotalDuration)
	fmt.Printf("  keyframes:     %v\n", s.KeyframeIndices)
	fmt.Printf("  chunks:        %d\n", len(s.Chunks))
	for i, c := range s.Chunks {
		fmt.Printf("    [%d] type=0x%02x flags=0x%02x offset=%d body_size=%d frame_index=%d keyframe=%v\n",
			i, c.Type, c.Flags, c.Offset, c.BodySize, c.FrameIndex, c.IsKeyframe)
	}
}
