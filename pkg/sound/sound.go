package sound

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

const sampleRate = beep.SampleRate(44100)

// Tone is one note of a feedback sequence.  A zero frequency is a rest.
type Tone struct {
	Freq     float64
	Duration time.Duration
}

var (
	BeepTones = []Tone{{Freq: 880, Duration: 120 * time.Millisecond}}
	UpTones   = []Tone{
		{Freq: 523, Duration: 90 * time.Millisecond},
		{Freq: 659, Duration: 90 * time.Millisecond},
		{Freq: 784, Duration: 90 * time.Millisecond},
		{Freq: 1047, Duration: 90 * time.Millisecond},
		{Freq: 0, Duration: 60 * time.Millisecond},
	}
	BuzzTones = []Tone{{Freq: 110, Duration: 400 * time.Millisecond}}
)

type request struct {
	path  string
	tones []Tone
}

// Player plays wav files and synthesised tone sequences on the speaker.
// Requests are dropped rather than queued if the player is busy.
type Player struct {
	requests chan request
}

func New() *Player {
	p := &Player{requests: make(chan request)}
	go p.loop()
	return p
}

func (p *Player) Play(path string) {
	p.send(request{path: path})
}

func (p *Player) Beep() {
	p.send(request{tones: BeepTones})
}

func (p *Player) BeepSequenceUp() {
	p.send(request{tones: UpTones})
}

func (p *Player) Buzz() {
	p.send(request{tones: BuzzTones})
}

func (p *Player) Close() {
	close(p.requests)
}

func (p *Player) send(r request) {
	defer func() {
		recover() // Don't die if the channel is already closed.
	}()
	select {
	case p.requests <- r:
		return
	case <-time.After(10 * time.Millisecond):
		fmt.Println("Timed out trying to play sound: ", r.path, r.tones)
	}
}

func (p *Player) loop() {
	defer func() {
		recover()
		for r := range p.requests {
			fmt.Println("Unable to play", r.path, r.tones)
		}
	}()
	err := speaker.Init(sampleRate, sampleRate.N(time.Second/5))
	if err != nil {
		fmt.Println("Failed to open speaker", err)
		for r := range p.requests {
			fmt.Println("Unable to play", r.path, r.tones)
		}
		return
	}
	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	for r := range p.requests {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			s.Close()
			s = nil
		}

		var streamer beep.Streamer
		if r.path != "" {
			f, err := os.Open(r.path)
			if err != nil {
				fmt.Println("Failed to open sound", err)
				continue
			}
			s, _, err = wav.Decode(f)
			if err != nil {
				fmt.Println("Failed to decode sound", err)
				continue
			}
			streamer = s
		} else {
			streamer = ToneStreamer(sampleRate, r.tones)
		}
		ctrl = &beep.Ctrl{Streamer: streamer}
		speaker.Play(ctrl)
	}
}

// ToneStreamer synthesises the given tones back to back as sine waves.
func ToneStreamer(sr beep.SampleRate, tones []Tone) beep.Streamer {
	const amplitude = 0.3
	toneIdx := 0
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		for n < len(samples) && toneIdx < len(tones) {
			t := tones[toneIdx]
			if pos >= sr.N(t.Duration) {
				toneIdx++
				pos = 0
				continue
			}
			v := amplitude * math.Sin(2*math.Pi*t.Freq*float64(pos)/float64(sr))
			samples[n][0] = v
			samples[n][1] = v
			pos++
			n++
		}
		return n, n > 0
	})
}
