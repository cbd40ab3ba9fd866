package main

import (
	"bufio"
	"flag"
	"fmt"
	"github.com/swdee/go-cvlab/calib"
	"github.com/swdee/go-cvlab/config"
	"github.com/swdee/go-cvlab/preprocess"
	"gocv.io/x/gocv"
	"golang.org/x/term"
	"gonum.org/v1/gonum/mat"
	"io"
	"log"
	"os"
	"strings"
)

// exitFatal is returned when calibration can not be completed
const exitFatal = 255

func fatalf(format string, args ...interface{}) {
	log.Printf(format, args...)
	os.Exit(exitFatal)
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	cfgFile := flag.String("config", "", "HuJSON tuning file")
	testImg := flag.String("test", "", "Image to undistort with the calibration, defaults to the config test image")
	plotFile := flag.String("plot", "", "Optional file to save a chart of the per image errors to")
	headless := flag.Bool("headless", false, "Do not open any windows")

	flag.Parse()

	cfg := config.DefaultCalibration()

	if *cfgFile != "" {
		if err := config.Load(*cfgFile, cfg); err != nil {
			fatalf("Error loading config: %v", err)
		}
	}

	if *testImg != "" {
		cfg.TestImage = *testImg
	}

	path := flag.Arg(0)

	if path == "" {
		path = promptPath(os.Stdin)
	}

	if path == "" {
		fatalf("Unable to find images")
	}

	files, err := preprocess.ListImages(path)

	if err != nil {
		fatalf("Unable to find images: %v", err)
	}

	board := cfg.Board()

	log.Println("Loading images...")

	views, size, err := calib.DetectViews(files, board, log.Default())

	if err != nil {
		fatalf("Error finding corners: %v", err)
	}

	log.Printf("Found the board in %d of %d images", len(views), len(files))
	log.Println("Calibrating, this might take a while...")

	res, err := calib.Calibrate(views, board, size)

	if err != nil {
		fatalf("Error calibrating camera: %v", err)
	}

	fmt.Printf("Camera error: %f\n", res.RMS)
	fmt.Printf("Camera matrix:\n%v\n", mat.Formatted(res.Camera.Matrix, mat.Prefix(""), mat.Squeeze()))
	fmt.Printf("Distortion coefficients: %v\n", res.Camera.Dist)
	fmt.Printf("Mean reprojection error: %f\n", res.MeanError)

	best, worst := res.Views[res.Best], res.Views[res.Worst]

	fmt.Printf("Best calibration image name: %s, with error: %f\n", best.File, best.Error)
	fmt.Printf("Worst calibration image name: %s, with error: %f\n", worst.File, worst.Error)

	if *plotFile != "" {
		if err := calib.WritePlot(res, *plotFile); err != nil {
			log.Printf("Error writing plot: %v", err)
		}
	}

	if *headless {
		return
	}

	scaler, err := preprocess.NewScaler(cfg.DisplayScale)

	if err != nil {
		fatalf("Error creating scaler: %v", err)
	}

	var windows []*gocv.Window

	defer func() {
		for _, w := range windows {
			w.Close()
		}
	}()

	show := func(name string, img gocv.Mat) {
		small := gocv.NewMat()
		defer small.Close()

		scaler.Scale(img, &small)

		w := gocv.NewWindow(name)
		w.IMShow(small)
		windows = append(windows, w)
	}

	for _, v := range []struct {
		name string
		file string
	}{
		{"Best image", best.File},
		{"Worst image", worst.File},
	} {
		img, err := preprocess.LoadImage(v.file)

		if err != nil {
			log.Printf("Error loading %s: %v", v.file, err)
			continue
		}

		show(v.name, img)
		img.Close()
	}

	test, err := preprocess.LoadImage(cfg.TestImage)

	if err != nil {
		log.Printf("Error loading test image: %v", err)
	} else {
		undistorted := calib.Undistort(test, res.Camera)

		show("Original test image", test)
		show("Undistorted test image", undistorted)

		test.Close()
		undistorted.Close()
	}

	if len(windows) > 0 {
		windows[0].WaitKey(0)
	}
}

// promptPath asks for the image path when stdin is a terminal, otherwise it
// reads the first line of stdin
func promptPath(in *os.File) string {

	if term.IsTerminal(int(in.Fd())) {
		fmt.Println("Please insert the path of the checkerboard images")
	}

	line, err := bufio.NewReader(in).ReadString('\n')

	if err != nil && err != io.EOF {
		return ""
	}

	return strings.TrimSpace(line)
}
