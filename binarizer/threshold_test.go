package binarizer

import (
	"errors"
	"image"
	"testing"
)

func TestFixed(t *testing.T) {
	th := Fixed{Cut: 128}
	if !th.IsBlack(10) {
		t.Error("10 should be black")
	}
	if th.IsBlack(200) {
		t.Error("200 should be white")
	}
	if th.IsBlack(128) {
		t.Error("the cut itself classifies as white")
	}
}

func TestNewReference(t *testing.T) {
	th, err := NewReference(30, 220)
	if err != nil {
		t.Fatalf("NewReference: %v", err)
	}
	if th.Cut != 125 {
		t.Errorf("cut = %v, want 125", th.Cut)
	}
	if !th.IsBlack(60) || th.IsBlack(190) {
		t.Error("reference threshold misclassifies")
	}

	if _, err := NewReference(100, 110); !errors.Is(err, ErrNoContrast) {
		t.Errorf("close references: err = %v, want ErrNoContrast", err)
	}
}

func TestNewGlobalBimodal(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		if i%3 == 0 {
			img.Pix[i] = 35
		} else {
			img.Pix[i] = 210
		}
	}
	th, err := NewGlobal(img)
	if err != nil {
		t.Fatalf("NewGlobal: %v", err)
	}
	if !th.IsBlack(35) || th.IsBlack(210) {
		t.Errorf("cut = %v does not separate the two modes", th.Cut)
	}
}

func TestNewGlobalFlat(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	if _, err := NewGlobal(img); !errors.Is(err, ErrNoContrast) {
		t.Errorf("flat image: err = %v, want ErrNoContrast", err)
	}
}
