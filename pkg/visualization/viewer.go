// Package visualization renders frames and volume slices of a stack to 16-bit
// grayscale images, scaled for display by the cached value ranges.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"hyperstack/pkg/frames"
	"hyperstack/pkg/stack"
	"hyperstack/pkg/volume"
)

// Viewer renders the frames of a stack and slices through one of its axes.
type Viewer[T frames.Numeric] struct {
	stack *stack.Stack[T]

	// depthAxis names the frame axis slices are taken through
	depthAxis string

	quality int
	workers int
}

// NewViewer creates a viewer over s.  Slices are taken through the first frame
// axis of s.
func NewViewer[T frames.Numeric](s *stack.Stack[T]) *Viewer[T] {
	return &Viewer[T]{
		stack:     s,
		depthAxis: s.Dimensions().Axes()[0].Name(),
		quality:   90,
	}
}

// WithDepthAxis selects the frame axis slices are taken through.
func (v *Viewer[T]) WithDepthAxis(name string) *Viewer[T] {
	v.depthAxis = name
	return v
}

// WithQuality sets the JPEG quality of saved images.
func (v *Viewer[T]) WithQuality(q int) *Viewer[T] {
	v.quality = q
	return v
}

// WithWorkers sets the parallelism used to extract slices.
func (v *Viewer[T]) WithWorkers(n int) *Viewer[T] {
	v.workers = n
	return v
}

// Render maps data, a row-major w by h plane, onto 16-bit gray so that lo is
// black and hi is white.  Values outside [lo, hi] are clamped; an empty or NaN
// range renders black.
func Render[T frames.Numeric](data []T, w, h int, lo, hi float64) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	span := hi - lo
	if !(span > 0) {
		return img
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f := (float64(data[y*w+x]) - lo) / span * 65535
			value := uint16(math.Max(0, math.Min(65535, math.Round(f))))
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	return img
}

// RenderFrame renders a frame scaled by its own value range.
func (v *Viewer[T]) RenderFrame(frame int) (*image.Gray16, error) {
	data, err := v.stack.FrameView(frame)
	if err != nil {
		return nil, err
	}
	rng, err := v.stack.ValueRange(frame)
	if err != nil {
		return nil, err
	}
	return Render(data, v.stack.XCount(), v.stack.YCount(), rng.Min[0], rng.Max[0]), nil
}

func (v *Viewer[T]) volume() (*volume.Volume[T], error) {
	vol, err := volume.FromStack(v.stack, v.depthAxis)
	if err != nil {
		return nil, err
	}
	return vol.WithWorkers(v.workers), nil
}

// ExtractSlice extracts a 2D slice through the volume along the specified
// axis ("x", "y" or "z").  Every slice is scaled by the value range of the
// whole stack so that a sequence of slices shares one brightness scale.
func (v *Viewer[T]) ExtractSlice(axis string, position int) (image.Image, error) {
	dir, err := volume.ParseDirection(axis)
	if err != nil {
		return nil, err
	}
	vol, err := v.volume()
	if err != nil {
		return nil, err
	}
	return v.extract(vol, dir, position)
}

func (v *Viewer[T]) extract(vol *volume.Volume[T], dir volume.Direction, position int) (image.Image, error) {
	slice, err := vol.SliceAt(dir, position)
	if err != nil {
		return nil, err
	}
	defer slice.Close()
	rng, err := v.stack.Range()
	if err != nil {
		return nil, err
	}
	data, err := slice.FrameView(0)
	if err != nil {
		return nil, err
	}
	return Render(data, slice.XCount(), slice.YCount(), rng.Min[0], rng.Max[0]), nil
}

// ExtractRegion extracts a 3D subregion of the volume as consecutive
// row-major planes.
func (v *Viewer[T]) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) ([]T, error) {
	// Validate parameters
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}

	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}

	vol, err := v.volume()
	if err != nil {
		return nil, err
	}
	if startX+sizeX > vol.Width() || startY+sizeY > vol.Height() || startZ+sizeZ > vol.Depth() {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := make([]T, sizeX*sizeY*sizeZ)
	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				region[z*sizeX*sizeY+y*sizeX+x] = vol.At(startX+x, startY+y, startZ+z)
			}
		}
	}
	return region, nil
}

// SaveSlice saves an image as a JPEG file
func (v *Viewer[T]) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: v.quality})
}

// SaveFrame renders a frame and saves it as a JPEG file.
func (v *Viewer[T]) SaveFrame(frame int, filename string) error {
	img, err := v.RenderFrame(frame)
	if err != nil {
		return err
	}
	return v.SaveSlice(img, filename)
}

// SaveFrameSequence saves every frame of the stack as frame_NNN.jpg.
func (v *Viewer[T]) SaveFrameSequence(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	for f := 0; f < v.stack.FrameCount(); f++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("frame_%03d.jpg", f))
		if err := v.SaveFrame(f, filename); err != nil {
			return err
		}
	}
	return nil
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer[T]) SaveSliceSequence(axis string, outputDir string) error {
	dir, err := volume.ParseDirection(axis)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	vol, err := v.volume()
	if err != nil {
		return err
	}

	var maxPos int
	switch dir {
	case volume.X:
		maxPos = vol.Width()
	case volume.Y:
		maxPos = vol.Height()
	case volume.Z:
		maxPos = vol.Depth()
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.extract(vol, dir, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
