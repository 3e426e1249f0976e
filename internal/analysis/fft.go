package analysis

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var ErrTooShort = errors.New("analysis: series too short")

// PowerSpectrum returns the magnitude of the first half of the transform
// of data zero-padded to the next power of two.
func PowerSpectrum(data []float64) []float64 {
	bins := fft.FFTReal(pad(data))
	ps := make([]float64, len(bins)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(bins[i])
	}
	return ps
}

func pad(data []float64) []float64 {
	n := 1
	for n < len(data) {
		n *= 2
	}
	padded := make([]float64, n)
	copy(padded, data)
	return padded
}

// Spectrum is a power spectrum with the frequency of each bin.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// Analyze removes the mean from a series sampled every dt seconds and
// returns its spectrum.
func Analyze(series []float64, dt float64) (*Spectrum, error) {
	if len(series) < 4 {
		return nil, ErrTooShort
	}
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))
	centred := make([]float64, len(series))
	for i, v := range series {
		centred[i] = v - mean
	}

	ps := PowerSpectrum(centred)
	n := 2 * len(ps)
	freqs := make([]float64, len(ps))
	for i := range freqs {
		freqs[i] = float64(i) / (float64(n) * dt)
	}
	return &Spectrum{Freqs: freqs, Power: ps}, nil
}

// Dominant returns the frequency of the strongest non-zero bin, or 0 for
// a flat series.
func (s *Spectrum) Dominant() float64 {
	best, idx := 0.0, 0
	for i := 1; i < len(s.Power); i++ {
		if s.Power[i] > best {
			best, idx = s.Power[i], i
		}
	}
	return s.Freqs[idx]
}
