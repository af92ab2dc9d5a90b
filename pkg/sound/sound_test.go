package sound

import (
	"math"
	"testing"
	"time"

	"github.com/faiface/beep"
)

func drain(s beep.Streamer) [][2]float64 {
	var out [][2]float64
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		out = append(out, buf[:n]...)
		if !ok {
			return out
		}
	}
}

func TestToneStreamerLength(t *testing.T) {
	sr := beep.SampleRate(1000)
	tones := []Tone{
		{Freq: 100, Duration: 100 * time.Millisecond},
		{Freq: 0, Duration: 50 * time.Millisecond},
		{Freq: 200, Duration: 100 * time.Millisecond},
	}
	samples := drain(ToneStreamer(sr, tones))
	if len(samples) != 250 {
		t.Fatalf("Expected 250 samples, got %d", len(samples))
	}
	for i := 100; i < 150; i++ {
		if samples[i][0] != 0 || samples[i][1] != 0 {
			t.Fatalf("Expected silence during rest, got %v at %d", samples[i], i)
		}
	}
}

func TestToneStreamerAmplitude(t *testing.T) {
	samples := drain(ToneStreamer(beep.SampleRate(8000), UpTones))
	for i, s := range samples {
		if math.Abs(s[0]) > 1 || s[0] != s[1] {
			t.Fatalf("Bad sample %v at %d", s, i)
		}
	}
}

func TestEmptyToneSequence(t *testing.T) {
	if len(drain(ToneStreamer(beep.SampleRate(8000), nil))) != 0 {
		t.Fatal("Expected no samples")
	}
}
