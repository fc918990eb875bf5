package audio

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/jmylchreest/overbar/internal/model"
)

type decoder func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// decoders maps lower-case file extensions to beep decoders.
var decoders = map[string]decoder{
	".wav": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(rc)
	},
	".ogg": vorbis.Decode,
	".mp3": mp3.Decode,
}

// speakerLatency is the speaker buffer length.
const speakerLatency = 100 * time.Millisecond

// slot is the sound bound to one message type. A nil buffer means the file
// has not been decoded yet, or was invalidated after it changed on disk.
type slot struct {
	path   string
	buffer *beep.Buffer
}

// Player holds one decoded sound per message type and plays it through the
// speaker. It is safe for concurrent use.
type Player struct {
	mu     sync.Mutex
	logger *slog.Logger
	slots  map[model.MessageType]*slot
	volume float64

	// Speaker backend, replaced in tests.
	rate         beep.SampleRate
	speakerOn    bool
	initSpeaker  func(beep.SampleRate, int) error
	playSpeaker  func(...beep.Streamer)
	closeSpeaker func()
}

// NewPlayer creates a player with no sounds loaded.
func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		logger:       logger,
		slots:        make(map[model.MessageType]*slot),
		volume:       1,
		initSpeaker:  speaker.Init,
		playSpeaker:  speaker.Play,
		closeSpeaker: speaker.Close,
	}
}

// Load binds path to t and decodes it. The binding is kept when decoding
// fails, so Play retries once the file is fixed. An empty path unbinds t.
func (p *Player) Load(t model.MessageType, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if path == "" {
		delete(p.slots, t)
		return nil
	}
	s := &slot{path: path}
	p.slots[t] = s
	return p.decodeLocked(t, s)
}

// Path returns the file bound to t.
func (p *Player) Path(t model.MessageType) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[t]
	if !ok {
		return "", false
	}
	return s.path, true
}

// loaded reports whether the sound for t is decoded and ready.
func (p *Player) loaded(t model.MessageType) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[t]
	return ok && s.buffer != nil
}

// Play starts the sound bound to t and returns without waiting for it to
// finish. Types without a sound are ignored.
func (p *Player) Play(t model.MessageType) error {
	p.mu.Lock()
	s, ok := p.slots[t]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	if s.buffer == nil {
		if err := p.decodeLocked(t, s); err != nil {
			p.mu.Unlock()
			return err
		}
	}
	streamer := p.streamerLocked(s.buffer)
	p.mu.Unlock()

	p.playSpeaker(streamer)
	return nil
}

// InvalidateCache drops the decoded sound of every slot bound to path.
func (p *Player) InvalidateCache(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for t, s := range p.slots {
		if s.path == path && s.buffer != nil {
			s.buffer = nil
			p.logger.Debug("sound invalidated", "type", t, "path", path)
		}
	}
}

// Reset unbinds all sounds.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.slots)
}

// SetVolume sets the linear playback volume, clamped to 0..1.
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = math.Min(math.Max(volume, 0), 1)
}

// Close stops playback and unbinds all sounds.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.speakerOn {
		p.closeSpeaker()
		p.speakerOn = false
	}
	clear(p.slots)
}

func (p *Player) decodeLocked(t model.MessageType, s *slot) error {
	ext := strings.ToLower(filepath.Ext(s.path))
	decode, ok := decoders[ext]
	if !ok {
		return fmt.Errorf("unsupported audio format %q for %s sound", ext, t)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open %s sound: %w", t, err)
	}
	defer func() { _ = f.Close() }()

	stream, format, err := decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode %s sound: %w", t, err)
	}
	defer func() { _ = stream.Close() }()

	if !p.speakerOn {
		if err := p.initSpeaker(format.SampleRate, format.SampleRate.N(speakerLatency)); err != nil {
			return fmt.Errorf("failed to initialize speaker: %w", err)
		}
		p.rate = format.SampleRate
		p.speakerOn = true
		p.logger.Debug("speaker initialized", "sample_rate", format.SampleRate)
	}

	buffer := beep.NewBuffer(format)
	buffer.Append(stream)
	s.buffer = buffer
	p.logger.Debug("sound loaded", "type", t, "path", s.path)
	return nil
}

// streamerLocked wraps buffer for the speaker's rate and the current volume.
func (p *Player) streamerLocked(buffer *beep.Buffer) beep.Streamer {
	var streamer beep.Streamer = buffer.Streamer(0, buffer.Len())
	if rate := buffer.Format().SampleRate; rate != p.rate {
		streamer = beep.Resample(4, rate, p.rate, streamer)
	}
	if p.volume < 1 {
		streamer = &effects.Volume{
			Streamer: streamer,
			Base:     2,
			Volume:   volumeExponent(p.volume),
			Silent:   p.volume == 0,
		}
	}
	return streamer
}

// volumeExponent converts a linear volume to the base-2 exponent used by
// effects.Volume.
func volumeExponent(volume float64) float64 {
	if volume <= 0 {
		return -10
	}
	return math.Log2(volume)
}
