package main

import (
	"errors"
	"flag"
	"github.com/swdee/go-cvlab/config"
	"github.com/swdee/go-cvlab/hough"
	"github.com/swdee/go-cvlab/preprocess"
	"github.com/swdee/go-cvlab/render"
	"gocv.io/x/gocv"
	"image"
	"log"
	"os"
)

// exitFatal is returned when the input can not be processed
const exitFatal = 255

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	imgFile := flag.String("i", "../input.png", "Road image to detect the lane and circles in")
	outFile := flag.String("o", "", "Optional file to save the output image to")
	cfgFile := flag.String("config", "", "HuJSON tuning file")
	lines := flag.Bool("lines", false, "Draw every detected line")
	headless := flag.Bool("headless", false, "Do not open any windows")

	flag.Parse()

	cfg := config.DefaultHough()

	if *cfgFile != "" {
		if err := config.Load(*cfgFile, cfg); err != nil {
			log.Printf("Error loading config: %v", err)
			os.Exit(exitFatal)
		}
	}

	img, err := preprocess.LoadImage(*imgFile)

	if err != nil {
		log.Printf("Unable to find image: %v", err)
		os.Exit(exitFatal)
	}

	defer img.Close()

	res, err := hough.Detect(img, cfg.Params())

	if err != nil {
		log.Printf("Error running detection: %v", err)
		os.Exit(exitFatal)
	}

	defer res.Close()

	log.Printf("Found %d lines and %d circles", len(res.Lines), len(res.Circles))

	out := img.Clone()
	defer out.Close()

	if *lines {
		render.Lines(&out, res.Lines, render.Blue, 1)
	}

	lane, err := hough.Lane(res.Lines, image.Pt(img.Cols(), img.Rows()))

	switch {
	case errors.Is(err, hough.ErrNoLane):
		log.Printf("Lane not drawn: %v", err)
	case err != nil:
		log.Printf("Error finding lane: %v", err)
	default:
		render.Polygon(&out, lane, render.Red, cfg.LaneAlpha)
	}

	render.Circles(&out, res.Circles, render.Green, -1)

	if *outFile != "" {
		if err := render.SaveImage(*outFile, out); err != nil {
			log.Printf("Error saving output: %v", err)
		}
	}

	if *headless {
		return
	}

	orig := gocv.NewWindow("Original image")
	defer orig.Close()
	orig.IMShow(img)

	edges := gocv.NewWindow("Canny Output")
	defer edges.Close()
	edges.IMShow(res.Edges)

	output := gocv.NewWindow("Output image")
	defer output.Close()
	output.IMShow(out)

	output.WaitKey(0)
}
