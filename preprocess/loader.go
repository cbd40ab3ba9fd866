package preprocess

import (
	"fmt"
	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/webp" // register WebP decoder
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// imageExts are the file extensions treated as images when listing a
// directory
var imageExts = map[string]bool{
	".bmp":  true,
	".gif":  true,
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// LoadImage decodes an image file into a BGR Mat.  EXIF orientation is
// applied so photos taken on a rotated camera load upright.
func LoadImage(path string) (gocv.Mat, error) {

	img, err := imaging.Open(path, imaging.AutoOrientation(true))

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("error decoding image %s: %w", path, err)
	}

	mat, err := gocv.ImageToMatRGB(img)

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("error converting image %s to Mat: %w", path, err)
	}

	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("image %s is empty", path)
	}

	return mat, nil
}

// LoadGray decodes an image file into a single channel grayscale Mat
func LoadGray(path string) (gocv.Mat, error) {

	img, err := LoadImage(path)

	if err != nil {
		return img, err
	}

	defer img.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	return gray, nil
}

// ListImages returns the image files found at path, sorted by name.  Path
// may be a directory or a glob pattern such as "data/*.png".
func ListImages(path string) ([]string, error) {

	if path == "" {
		return nil, fmt.Errorf("no image path given")
	}

	info, err := os.Stat(path)

	if err == nil && info.IsDir() {
		entries, err := os.ReadDir(path)

		if err != nil {
			return nil, fmt.Errorf("error reading directory %s: %w", path, err)
		}

		files := make([]string, 0, len(entries))

		for _, entry := range entries {
			if entry.IsDir() || !IsImageFile(entry.Name()) {
				continue
			}

			files = append(files, filepath.Join(path, entry.Name()))
		}

		sort.Strings(files)

		return files, nil
	}

	matches, err := filepath.Glob(path)

	if err != nil {
		return nil, fmt.Errorf("invalid image pattern %s: %w", path, err)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("no images found at %s", path)
	}

	sort.Strings(matches)

	return matches, nil
}

// IsImageFile reports whether name has a supported image extension
func IsImageFile(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}
