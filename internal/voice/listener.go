// Package voice provides hands-free input for the follow view: it records
// short microphone chunks, transcribes them with a local Whisper model and
// emits what the cook said as text.
package voice

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Option configures the Listener.
type Option func(*Listener)

// WithChunkDuration sets how long each recording chunk lasts.
func WithChunkDuration(d time.Duration) Option {
	return func(l *Listener) { l.chunkDuration = d }
}

// WithTempDir sets the directory for temporary WAV files.
func WithTempDir(dir string) Option {
	return func(l *Listener) { l.tempDir = dir }
}

// WithSilentChunks sets how many empty chunks end an utterance once the
// cook has started talking.
func WithSilentChunks(n int) Option {
	return func(l *Listener) { l.silentChunks = n }
}

// WithMaxUtterance caps how long a single utterance may run.
func WithMaxUtterance(d time.Duration) Option {
	return func(l *Listener) { l.maxUtterance = d }
}

// recordFunc records one chunk of the given length and returns the raw
// transcription.
type recordFunc func(ctx context.Context, d time.Duration) string

// Listener turns speech into text lines. Chunks are accumulated until the
// cook pauses, then the combined utterance is sent on C.
type Listener struct {
	whisperBin string
	modelPath  string
	tempDir    string
	log        *logger.Logger
	record     recordFunc

	chunkDuration time.Duration
	silentChunks  int
	maxUtterance  time.Duration

	mu     sync.Mutex
	muted  bool
	textCh chan string
}

// New creates a listener backed by the whisper-cli binary at whisperBin
// and the GGML model at modelPath.
func New(whisperBin, modelPath string, log *logger.Logger, opts ...Option) *Listener {
	l := &Listener{
		whisperBin:    whisperBin,
		modelPath:     modelPath,
		tempDir:       ".kitchenctl-stt",
		log:           log,
		chunkDuration: 2 * time.Second,
		silentChunks:  1,
		maxUtterance:  10 * time.Second,
		textCh:        make(chan string, 8),
	}
	l.record = l.recordChunk
	for _, opt := range opts {
		opt(l)
	}

	if _, err := exec.LookPath(l.whisperBin); err != nil {
		log.Error("voice: whisper binary %q not found in PATH: %v", l.whisperBin, err)
	}
	return l
}

// C returns the channel that receives transcribed utterances.
func (l *Listener) C() <-chan string {
	return l.textCh
}

// Mute temporarily disables listening.
func (l *Listener) Mute() {
	l.mu.Lock()
	l.muted = true
	l.mu.Unlock()
	l.log.Debug("voice: muted")
}

// Unmute re-enables listening.
func (l *Listener) Unmute() {
	l.mu.Lock()
	l.muted = false
	l.mu.Unlock()
	l.log.Debug("voice: unmuted")
}

func (l *Listener) isMuted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.muted
}

// Run listens until ctx is cancelled. Call this in a goroutine.
func (l *Listener) Run(ctx context.Context) {
	l.log.Info("voice: started (chunk=%s, max=%s)", l.chunkDuration, l.maxUtterance)

	for {
		select {
		case <-ctx.Done():
			l.log.Info("voice: stopped")
			return
		default:
		}

		if l.isMuted() {
			select {
			case <-time.After(200 * time.Millisecond):
			case <-ctx.Done():
			}
			continue
		}

		if text := l.utterance(ctx); text != "" {
			l.log.Info("voice: heard %q", text)
			select {
			case l.textCh <- text:
			case <-ctx.Done():
			}
		}
	}
}

// utterance records chunks until the cook has spoken and then paused, or
// the utterance limit is reached. Returns "" if nothing was said.
func (l *Listener) utterance(ctx context.Context) string {
	var parts []string
	empty := 0
	deadline := time.Now().Add(l.maxUtterance)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ""
		}

		chunk := CleanTranscription(l.record(ctx, l.chunkDuration))
		if chunk == "" {
			if len(parts) == 0 {
				// Nothing said yet; let Run check mute and ctx again.
				return ""
			}
			empty++
			if empty >= l.silentChunks {
				break
			}
			continue
		}

		empty = 0
		l.log.Debug("voice: chunk %q", chunk)
		parts = append(parts, chunk)
	}

	return strings.TrimSpace(strings.Join(parts, " "))
}

// recordChunk does one recording cycle with the given duration and
// returns the transcribed text.
func (l *Listener) recordChunk(ctx context.Context, duration time.Duration) string {
	var result string
	var wg sync.WaitGroup
	wg.Add(1)

	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := l.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(
		l.whisperBin,
		l.modelPath,
		l.tempDir,
		"wav",
		callback,
		verbose,
	)
	if err != nil {
		l.log.Error("voice: transcriber init failed: %v", err)
		sleep(ctx, 2*time.Second)
		return ""
	}

	if err := t.Start(); err != nil {
		l.log.Error("voice: recording start failed: %v", err)
		sleep(ctx, 2*time.Second)
		return ""
	}

	select {
	case <-time.After(duration):
	case <-ctx.Done():
		t.Stop()
		wg.Wait()
		return ""
	}

	t.Stop()
	wg.Wait()
	return result
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
