// Package aruco implements marker.Detector with OpenCV's ArUco detector.
package aruco

import (
	"fmt"
	"sort"
	"sync"

	"github.com/teslashibe/automatar/internal/log"
	"github.com/teslashibe/automatar/pkg/marker"
	"gocv.io/x/gocv"
)

// Dictionaries maps config names to OpenCV predefined dictionaries.
var Dictionaries = map[string]gocv.ArucoDictionaryCode{
	"4x4_50":   gocv.ArucoDict4x4_50,
	"4x4_100":  gocv.ArucoDict4x4_100,
	"4x4_250":  gocv.ArucoDict4x4_250,
	"5x5_50":   gocv.ArucoDict5x5_50,
	"5x5_100":  gocv.ArucoDict5x5_100,
	"6x6_50":   gocv.ArucoDict6x6_50,
	"6x6_250":  gocv.ArucoDict6x6_250,
	"original": gocv.ArucoDictArucoOriginal,
}

// Config holds detector configuration
type Config struct {
	Dictionary string // key into Dictionaries
}

// DefaultConfig returns the dictionary the printed kit boards use
func DefaultConfig() Config {
	return Config{Dictionary: "4x4_50"}
}

// Detector finds ArUco markers in JPEG frames
type Detector struct {
	detector gocv.ArucoDetector
	config   Config
	mu       sync.Mutex // OpenCV detector is not safe for concurrent use
}

// New creates an ArUco detector for the configured dictionary
func New(cfg Config) (*Detector, error) {
	code, ok := Dictionaries[cfg.Dictionary]
	if !ok {
		return nil, fmt.Errorf("unknown aruco dictionary %q (known: %v)", cfg.Dictionary, DictionaryNames())
	}

	dict := gocv.GetPredefinedDictionary(code)
	params := gocv.NewArucoDetectorParameters()

	return &Detector{
		detector: gocv.NewArucoDetectorWithParams(dict, params),
		config:   cfg,
	}, nil
}

// Detect decodes the JPEG and returns every marker found.
// Corners are in image pixels, clockwise from top-left as OpenCV reports them.
func (d *Detector) Detect(jpeg []byte) ([]marker.Marker, error) {
	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	return d.DetectMat(img), nil
}

// DetectMat runs detection on an already decoded frame
func (d *Detector) DetectMat(img gocv.Mat) []marker.Marker {
	d.mu.Lock()
	corners, ids, _ := d.detector.DetectMarkers(img)
	d.mu.Unlock()

	markers := make([]marker.Marker, 0, len(ids))
	for i, id := range ids {
		if i >= len(corners) || len(corners[i]) < 4 {
			continue
		}
		m := marker.Marker{ID: id}
		for j := 0; j < 4; j++ {
			m.Corners[j] = marker.Point{X: float64(corners[i][j].X), Y: float64(corners[i][j].Y)}
		}
		markers = append(markers, m)
	}

	if len(markers) > 0 {
		log.Debug("aruco markers found", "count", len(markers))
	}

	return marker.Dedupe(markers)
}

// Close releases the detector resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}

// DictionaryNames lists the supported dictionary names, sorted
func DictionaryNames() []string {
	names := make([]string, 0, len(Dictionaries))
	for name := range Dictionaries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ marker.Detector = (*Detector)(nil)
