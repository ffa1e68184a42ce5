package aruco

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNew_UnknownDictionary(t *testing.T) {
	_, err := New(Config{Dictionary: "7x7_9000"})
	if err == nil {
		t.Fatal("expected error for unknown dictionary")
	}
}

func TestDictionaryNames_Sorted(t *testing.T) {
	names := DictionaryNames()
	if len(names) != len(Dictionaries) {
		t.Fatalf("got %d names, want %d", len(names), len(Dictionaries))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("names not sorted: %v", names)
		}
	}
}

func TestDetect_InvalidJPEG(t *testing.T) {
	d, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if _, err := d.Detect([]byte("not a jpeg")); err == nil {
		t.Error("expected error for invalid image")
	}
}

func TestDetect_BlankFrame(t *testing.T) {
	d, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	img := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	defer buf.Close()

	markers, err := d.Detect(buf.GetBytes())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(markers) != 0 {
		t.Errorf("blank frame should have no markers, got %d", len(markers))
	}
}
