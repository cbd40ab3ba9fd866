package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"github.com/swdee/go-cvlab/config"
	"github.com/swdee/go-cvlab/preprocess"
	"github.com/swdee/go-cvlab/render"
	"github.com/swdee/go-cvlab/tracker"
	"github.com/swdee/go-cvlab/vision"
	"gocv.io/x/gocv"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
)

const (
	// exitUsage is returned when the command line arguments are wrong
	exitUsage = 1
	// exitFatal is returned when the inputs can not be read
	exitFatal = 255

	keyEsc = 27
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "USAGE: %s [flags] IMAGES_PATH VIDEO_PATH\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(flag.CommandLine.Output(), "IMAGES_PATH: folder or glob of the reference images of the objects to track.")
	fmt.Fprintln(flag.CommandLine.Output(), "VIDEO_PATH: video file or capture device id.")
	flag.PrintDefaults()
}

func fatalf(format string, args ...interface{}) {
	log.Printf(format, args...)
	os.Exit(exitFatal)
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	cfgFile := flag.String("config", "", "HuJSON tuning file, flags below override it")
	scale := flag.Float64("scale", 0.5, "Resize factor applied to every video frame")
	workers := flag.Int("workers", 1, "Number of objects updated concurrently")
	homography := flag.String("homography", config.HomographyCV, "Frame to frame homography estimator, cv or dlt")
	trailLen := flag.Int("trail", 0, "Length of the boundary center trail to draw, 0 disables")
	wait := flag.Int("wait", 10, "Milliseconds to wait for a key press between frames")
	headless := flag.Bool("headless", false, "Process the video without opening any windows")

	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(exitUsage)
	}

	imagesPath, videoPath := flag.Arg(0), flag.Arg(1)

	cfg := config.DefaultTracking()

	if *cfgFile != "" {
		if err := config.Load(*cfgFile, cfg); err != nil {
			fatalf("Error loading config: %v", err)
		}
	}

	// flags given on the command line take precedence over the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scale":
			cfg.Scale = *scale
		case "workers":
			cfg.Workers = *workers
		case "homography":
			cfg.Homography = *homography
		case "trail":
			cfg.TrailLength = *trailLen
		case "wait":
			cfg.WaitMillis = *wait
		}
	})

	if err := cfg.Validate(); err != nil {
		fatalf("Invalid settings: %v", err)
	}

	backend := vision.NewCV(cfg.CVParams())
	defer backend.Close()

	refs := loadReferences(backend, imagesPath)

	defer func() {
		for _, ref := range refs {
			ref.Image.Close()
		}
	}()

	scaler, err := preprocess.NewScaler(cfg.Scale)

	if err != nil {
		fatalf("Error creating scaler: %v", err)
	}

	video, err := vision.OpenVideo(videoPath, scaler)

	if err != nil {
		fatalf("Error opening video: %v", err)
	}

	defer video.Close()

	first, err := video.Next()

	if errors.Is(err, io.EOF) {
		fatalf("Empty video!")
	}

	if err != nil {
		fatalf("Error reading first frame: %v", err)
	}

	seed, err := tracker.Seed(backend, refs, first, cfg.SeedParams())

	if err != nil {
		first.Close()
		fatalf("Error locating objects: %v", err)
	}

	for _, miss := range seed.Misses {
		log.Printf("Object %d (%s) excluded from tracking: %v", miss.Index+1, miss.Name, miss.Err)
	}

	log.Printf("Tracking %d of %d objects in %s", len(seed.Objects), len(refs), video.Source())

	d := &display{
		headless: *headless,
		wait:     cfg.WaitMillis,
		style:    render.DefaultObjectStyle(),
		windows:  make(map[string]*gocv.Window),
	}
	defer d.Close()

	if cfg.TrailLength > 0 {
		d.trail = tracker.NewTrail(cfg.TrailLength)
	}

	d.showSeeding(refs, first, seed, cfg.MatchScale)

	// select the frame to frame homography backend
	var estimator vision.HomographyEstimator = backend
	var transformer vision.PointTransformer = backend

	if cfg.Homography == config.HomographyDLT {
		pure := vision.NewPure(cfg.RansacThreshold)
		estimator, transformer = pure, pure
	}

	params := cfg.TrackerParams()
	params.Logger = log.Default()

	tr, err := tracker.NewTracker(tracker.Backend{
		Flow:        backend,
		Estimator:   estimator,
		Transformer: transformer,
	}, first, seed.Objects, params)

	if err != nil {
		first.Close()
		fatalf("Error creating tracker: %v", err)
	}

	defer tr.Close()

	// stop cleanly on ctrl-c
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d.start = time.Now()

	err = tr.Run(ctx, video, func(frame vision.Frame, rep tracker.StepReport) error {
		return d.showFrame(frame, tr.Objects(), rep)
	})

	switch {
	case errors.Is(err, context.Canceled):
		log.Println("Interrupted")
	case err != nil:
		log.Printf("Tracking stopped with error: %v", err)
	}

	log.Printf("Processed %d frames in %s", d.frames, time.Since(d.start).Round(time.Millisecond))

	d.hold()
}

// loadReferences reads every reference image, exiting if any can't be read
func loadReferences(dec vision.Decoder, path string) []tracker.Reference {

	files, err := preprocess.ListImages(path)

	if err != nil {
		fatalf("Error listing reference images: %v", err)
	}

	refs := make([]tracker.Reference, 0, len(files))

	for _, file := range files {
		img, err := dec.Decode(file)

		if err != nil {
			fatalf("File not found: %s: %v", file, err)
		}

		refs = append(refs, tracker.Reference{Name: filepath.Base(file), Image: img})
	}

	return refs
}

// display renders the tracking results to windows
type display struct {
	headless bool
	wait     int
	style    render.ObjectStyle
	trail    *tracker.Trail
	windows  map[string]*gocv.Window
	// frames counts the frames shown, used for FPS
	frames int
	start  time.Time
}

// show displays img in the named window, creating it on first use
func (d *display) show(name string, img gocv.Mat) {

	win, ok := d.windows[name]

	if !ok {
		win = gocv.NewWindow(name)
		d.windows[name] = win
	}

	win.IMShow(img)
}

// showSeeding displays the matches of each object against the first frame
// and the first frame with the located objects
func (d *display) showSeeding(refs []tracker.Reference, first vision.Frame,
	seed *tracker.SeedResult, matchScale float64) {

	if d.headless {
		return
	}

	firstImg := first.(*vision.CVFrame).Mat

	for _, obj := range seed.Objects {
		s := seed.Seedings[obj.ID]
		refImg := refs[obj.ID].Image.(*vision.CVFrame).Mat

		matches := render.Matches(refImg, s.RefKeypoints, firstImg,
			seed.FrameKeypoints, s.Matches, matchScale)

		d.show(fmt.Sprintf("Match with object n. %d", obj.ID+1), matches)
		matches.Close()
	}

	img := firstImg.Clone()
	defer img.Close()

	render.Keypoints(&img, seed.FrameKeypoints, render.Gray, 2, false)
	render.Objects(&img, seed.Objects, d.style)

	d.show("Keypoints of first frame", img)
}

// showFrame draws the tracked objects over the frame.  ErrStop is returned
// when q or escape is pressed.
func (d *display) showFrame(frame vision.Frame, objs []*tracker.Object,
	rep tracker.StepReport) error {

	d.frames++

	if d.trail != nil {
		for _, obj := range objs {
			d.trail.Add(obj)
		}
	}

	if d.headless {
		if rep.Frozen() > 0 {
			log.Printf("Frame %d: %d of %d boundaries frozen", rep.FrameID, rep.Frozen(), len(objs))
		}
		return nil
	}

	img := frame.(*vision.CVFrame).Mat.Clone()
	defer img.Close()

	render.Objects(&img, objs, d.style)

	if d.trail != nil {
		render.Trail(&img, objs, d.trail, render.DefaultTrailStyle())
	}

	fps := float64(d.frames) / time.Since(d.start).Seconds()

	render.StatusBar(&img, fmt.Sprintf("Frame: %d, FPS: %.1f, Objects: %d, Frozen: %d",
		rep.FrameID, fps, len(objs), rep.Frozen()), render.DefaultFont())

	d.show("Frame", img)

	key := d.windows["Frame"].WaitKey(max(d.wait, 1))

	if key == 'q' || key == keyEsc {
		return tracker.ErrStop
	}

	return nil
}

// hold keeps the windows open until a key is pressed
func (d *display) hold() {

	if d.headless {
		return
	}

	for _, win := range d.windows {
		win.WaitKey(0)
		return
	}
}

// Close destroys all windows
func (d *display) Close() {
	for _, win := range d.windows {
		win.Close()
	}
}
