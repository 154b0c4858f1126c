package notify

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*ChimeNotifier)(nil)

// Audio format of generated chimes: 16-bit little-endian mono.
const (
	SampleRate   = 44100
	ChannelCount = 1
)

// Player plays raw PCM in the chime format. It blocks until playback ends.
type Player interface {
	Play(pcm []byte) error
}

// OtoPlayer plays PCM through the system audio device via oto.
type OtoPlayer struct {
	ctx *oto.Context
	log *logger.Logger
	mu  sync.Mutex
}

// NewOtoPlayer initializes the system audio context. Returns an error if
// the audio device is unavailable. Only one may exist per process.
func NewOtoPlayer(log *logger.Logger) (*OtoPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &OtoPlayer{ctx: ctx, log: log}, nil
}

// Play plays pcm synchronously. Calls are serialized.
func (p *OtoPlayer) Play(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	p.log.Debug("audio player: playing %d bytes of PCM", len(pcm))

	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return player.Close()
}

// Tone renders a sine tone at freq Hz with a short fade in and out so it
// does not click.
func Tone(freq float64, d time.Duration, volume float64) []byte {
	n := int(d.Seconds() * SampleRate)
	fade := SampleRate / 100 // 10ms
	buf := make([]byte, n*2)

	for i := 0; i < n; i++ {
		amp := volume
		if i < fade {
			amp *= float64(i) / float64(fade)
		} else if n-i < fade {
			amp *= float64(n-i) / float64(fade)
		}
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/SampleRate)
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*math.MaxInt16)))
	}
	return buf
}

// Silence renders d of silence.
func Silence(d time.Duration) []byte {
	return make([]byte, int(d.Seconds()*SampleRate)*2)
}

// ChimeNotifier plays a chime for each notification: one tone for normal
// ones, two higher tones for urgent ones. Playback happens on a background
// goroutine so callers never wait for audio; chimes that arrive while the
// queue is full are dropped.
type ChimeNotifier struct {
	player Player
	log    *logger.Logger
	queue  chan []byte
	done   chan struct{}
	once   sync.Once

	normal []byte
	urgent []byte
}

// NewChimeNotifier starts the playback goroutine. Call Close to stop it.
func NewChimeNotifier(player Player, log *logger.Logger) *ChimeNotifier {
	c := &ChimeNotifier{
		player: player,
		log:    log,
		queue:  make(chan []byte, 4),
		done:   make(chan struct{}),
		normal: Tone(880, 250*time.Millisecond, 0.4),
	}
	hi := Tone(1175, 180*time.Millisecond, 0.5)
	gap := Silence(90 * time.Millisecond)
	c.urgent = append(append(append([]byte{}, hi...), gap...), hi...)

	go c.loop()
	return c
}

func (c *ChimeNotifier) Notify(ctx context.Context, message string) error {
	c.enqueue(c.normal)
	return nil
}

func (c *ChimeNotifier) NotifyUrgent(ctx context.Context, message string) error {
	c.enqueue(c.urgent)
	return nil
}

// Close stops playback after the current chime.
func (c *ChimeNotifier) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *ChimeNotifier) enqueue(pcm []byte) {
	select {
	case <-c.done:
	case c.queue <- pcm:
	default:
		c.log.Debug("chime: queue full, dropping chime")
	}
}

func (c *ChimeNotifier) loop() {
	for {
		select {
		case <-c.done:
			return
		case pcm := <-c.queue:
			if err := c.player.Play(pcm); err != nil {
				c.log.Warn("chime: playback failed: %v", err)
			}
		}
	}
}
