// Command gptagscan detects and decodes GP-Tag markers in image files.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	gptag "github.com/S-SB/gp-tag-mobile"
	"github.com/S-SB/gp-tag-mobile/detector"
	"github.com/S-SB/gp-tag-mobile/logger"
	"github.com/S-SB/gp-tag-mobile/pose"
	"github.com/S-SB/gp-tag-mobile/scan"
)

func main() {
	withPose := flag.Bool("pose", false, "estimate the camera-relative tag pose")
	fx := flag.Float64("fx", pose.DefaultIntrinsics.Fx, "camera focal length x in pixels")
	fy := flag.Float64("fy", pose.DefaultIntrinsics.Fy, "camera focal length y in pixels")
	cx := flag.Float64("cx", pose.DefaultIntrinsics.Cx, "camera principal point x in pixels")
	cy := flag.Float64("cy", pose.DefaultIntrinsics.Cy, "camera principal point y in pixels")
	threshold := flag.String("threshold", string(scan.StrategyReference),
		"data threshold strategy: reference, global or fixed")
	fixedCut := flag.Float64("fixed-cut", 128, "luminance cut for the fixed threshold strategy")
	verbose := flag.Bool("v", false, "log per-stage rejection details")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gptagscan [flags] <image-file> [image-file...]\n\n")
		fmt.Fprintf(os.Stderr, "Detect and decode GP-Tag markers in image files (PNG, JPEG, GIF).\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	if *verbose {
		if err := logger.InitDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
	}

	strategy, err := scan.ParseStrategy(*threshold)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	reader := scan.NewReaderConfig(scan.Config{
		Detector: detector.DefaultConfig(),
		Strategy: strategy,
		FixedCut: *fixedCut,
	})
	k := pose.Intrinsics{Fx: *fx, Fy: *fy, Cx: *cx, Cy: *cy}

	exitCode := 0
	for _, path := range flag.Args() {
		result, err := scanFile(reader, path)
		if err != nil {
			if scan.IsNoTag(err) {
				fmt.Fprintf(os.Stderr, "%s: no tag found\n", path)
			} else {
				fmt.Fprintf(os.Stderr, "%s: error: %v\n", path, err)
			}
			exitCode = 1
			continue
		}
		prefix := ""
		if flag.NArg() > 1 {
			prefix = path + ": "
		}
		printResult(prefix, result)
		if *withPose {
			printPose(prefix, reader, result, k)
		}
	}
	os.Exit(exitCode)
}

func scanFile(reader *scan.Reader, path string) (*gptag.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return reader.Read(img)
}

func printResult(prefix string, r *gptag.Result) {
	d := r.Data
	fmt.Printf("%stag %d v%d  lat %.7f  lon %.7f  alt %.2fm  acc %d  scale %.4f cells/mm\n",
		prefix, d.TagID, d.VersionID, d.Latitude, d.Longitude, d.Altitude, d.Accuracy, d.Scale)
	fmt.Printf("%s  corrected %d+%d symbols, confidence %.2f, corners",
		prefix, r.ErrorsCorrected, r.IDErrorsCorrected, r.Confidence)
	for _, c := range r.Corners {
		fmt.Printf(" (%.1f,%.1f)", c.X, c.Y)
	}
	fmt.Println()
}

func printPose(prefix string, reader *scan.Reader, r *gptag.Result, k pose.Intrinsics) {
	g := reader.Detector().Template().Geometry
	p, err := pose.EstimateFromCorners(r.Corners, g, r.Data.Scale, k)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s  pose: %v\n", prefix, err)
		return
	}
	roll, pitch, yaw := pose.EulerNegY(p.Rotation)
	fmt.Printf("%s  pose x %.1fmm y %.1fmm z %.1fmm  roll %.1f pitch %.1f yaw %.1f  dist %.0fmm\n",
		prefix, p.Translation[0], p.Translation[1], p.Translation[2], roll, pitch, yaw, p.Distance())
}
