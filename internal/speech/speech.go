// Package speech reads practice lines aloud. Synthesis goes through Deepgram's
// speak endpoint and the resulting PCM is handed to a Player.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

const (
	DefaultEndpoint = "https://api.deepgram.com/v1/speak"
	DefaultVoice    = "aura-asteria-en"
	SampleRate      = 16000
)

// ErrDisabled is returned by Nop, used when no API key is configured.
var ErrDisabled = errors.New("speech is disabled")

// Speaker reads text aloud in the given BCP 47 locale.
type Speaker interface {
	Speak(ctx context.Context, text, locale string) error
}

// Player plays mono little-endian 16-bit PCM.
type Player interface {
	PlayPCM16(ctx context.Context, pcm []byte, sampleRate int) error
}

type Nop struct{}

func (Nop) Speak(context.Context, string, string) error { return ErrDisabled }

type Deepgram struct {
	apiKey     string
	endpoint   string
	voice      string
	voices     map[string]string
	httpClient *http.Client
	player     Player
	log        *slog.Logger
}

type Option func(*Deepgram)

func WithEndpoint(endpoint string) Option {
	return func(d *Deepgram) {
		if endpoint != "" {
			d.endpoint = endpoint
		}
	}
}

func WithVoice(voice string) Option {
	return func(d *Deepgram) {
		if voice != "" {
			d.voice = voice
		}
	}
}

// WithLanguageVoice picks voice for every locale whose base language is lang.
func WithLanguageVoice(lang, voice string) Option {
	return func(d *Deepgram) {
		base := baseLanguage(lang)
		if base != "" && voice != "" {
			d.voices[base] = voice
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(d *Deepgram) {
		if c != nil {
			d.httpClient = c
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(d *Deepgram) {
		if log != nil {
			d.log = log
		}
	}
}

func NewDeepgram(apiKey string, player Player, opts ...Option) *Deepgram {
	d := &Deepgram{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		voice:      DefaultVoice,
		voices:     map[string]string{},
		httpClient: &http.Client{},
		player:     player,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With("component", "speech.deepgram")
	return d
}

type speakPayload struct {
	Text string `json:"text"`
}

// Synthesize returns raw linear16 PCM at SampleRate for text.
func (d *Deepgram) Synthesize(ctx context.Context, text, locale string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("nothing to say")
	}
	body, err := json.Marshal(speakPayload{Text: text})
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("model", d.voiceFor(locale))
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(SampleRate))
	q.Set("container", "none")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/x-raw;encoding=linear16;rate=16000;channels=1")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram speak: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("deepgram speak: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("deepgram speak: read audio: %w", err)
	}
	d.log.DebugContext(ctx, "synthesized", "locale", locale, "bytes", len(audio))
	return audio, nil
}

func (d *Deepgram) Speak(ctx context.Context, text, locale string) error {
	audio, err := d.Synthesize(ctx, text, locale)
	if err != nil {
		return err
	}
	if d.player == nil {
		return ErrDisabled
	}
	return d.player.PlayPCM16(ctx, audio, SampleRate)
}

func (d *Deepgram) voiceFor(locale string) string {
	if v, ok := d.voices[baseLanguage(locale)]; ok {
		return v
	}
	return d.voice
}

func baseLanguage(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, _ := t.Base()
	return base.String()
}
