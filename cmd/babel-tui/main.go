package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"babelbridge/internal/api"
	"babelbridge/internal/logger"
	"babelbridge/internal/session"
	"babelbridge/internal/speech"
	"babelbridge/internal/speech/portaudio"
)

type appConfig struct {
	apiURL      string
	dataDir     string
	logFile     string
	logLevel    string
	httpTimeout time.Duration
	deepgramKey string
	ttsVoice    string
	ttsVoices   map[string]string
	altScreen   bool
}

func parseFlags() appConfig {
	// A missing .env is normal.
	_ = godotenv.Load()

	dataDirDefault, err := session.DefaultDir()
	if err != nil {
		dataDirDefault = ".babelbridge"
	}

	cfg := appConfig{}
	flag.StringVar(&cfg.apiURL, "api-url", envOr("BABEL_API_URL", api.DefaultBaseURL), "Babel Bridge service base URL")
	flag.StringVar(&cfg.dataDir, "data-dir", envOr("BABEL_DATA_DIR", dataDirDefault), "Directory for the local session store")
	flag.StringVar(&cfg.logFile, "log-file", envOr("BABEL_LOG_FILE", ""), "Log file (default <data-dir>/babel-tui.log)")
	flag.StringVar(&cfg.logLevel, "log-level", envOr("BABEL_LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")
	timeoutSeconds := envOrInt("BABEL_HTTP_TIMEOUT", 0)
	flag.IntVar(&timeoutSeconds, "http-timeout", timeoutSeconds, "HTTP timeout seconds (0 uses the transport default)")
	flag.StringVar(&cfg.deepgramKey, "deepgram-key", envOr("DEEPGRAM_API_KEY", ""), "Deepgram API key; empty disables speech")
	flag.StringVar(&cfg.ttsVoice, "tts-voice", envOr("BABEL_TTS_VOICE", speech.DefaultVoice), "Deepgram voice model")
	voices := envOr("BABEL_TTS_VOICES", "")
	flag.StringVar(&voices, "tts-voices", voices, "Per-language Deepgram voices, e.g. es=aura-2-celeste-es,ru=<voice>")
	flag.BoolVar(&cfg.altScreen, "alt-screen", envOrBool("BABEL_ALT_SCREEN", true), "Use alternate screen buffer")
	flag.Parse()

	cfg.apiURL = strings.TrimRight(strings.TrimSpace(cfg.apiURL), "/")
	cfg.ttsVoices = parseVoiceMap(voices)
	cfg.httpTimeout = time.Duration(clampInt(timeoutSeconds, 0, 600)) * time.Second
	if strings.TrimSpace(cfg.logFile) == "" {
		cfg.logFile = filepath.Join(cfg.dataDir, "babel-tui.log")
	}
	return cfg
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// parseVoiceMap reads "lang=voice" pairs separated by commas. Malformed pairs
// are skipped.
func parseVoiceMap(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		lang, voice, ok := strings.Cut(pair, "=")
		lang, voice = strings.TrimSpace(lang), strings.TrimSpace(voice)
		if !ok || lang == "" || voice == "" {
			continue
		}
		out[lang] = voice
	}
	return out
}

// speakerOptions maps the speech settings onto Deepgram options.
func speakerOptions(cfg appConfig) []speech.Option {
	opts := []speech.Option{speech.WithVoice(cfg.ttsVoice)}
	for lang, voice := range cfg.ttsVoices {
		opts = append(opts, speech.WithLanguageVoice(lang, voice))
	}
	return opts
}

// newSpeaker returns a Deepgram speaker backed by PortAudio, or speech.Nop
// when no key is set or the audio device cannot be opened. The returned func
// releases the audio device.
func newSpeaker(cfg appConfig) (speech.Speaker, func()) {
	if cfg.deepgramKey == "" {
		return speech.Nop{}, func() {}
	}
	player, err := portaudio.Open()
	if err != nil {
		slog.Warn("speech disabled", "err", err)
		return speech.Nop{}, func() {}
	}
	speaker := speech.NewDeepgram(cfg.deepgramKey, player, speakerOptions(cfg)...)
	return speaker, func() {
		if err := player.Close(); err != nil {
			slog.Warn("closing audio device", "err", err)
		}
	}
}

func main() {
	cfg := parseFlags()

	logCloser, err := logger.Setup(cfg.logFile, cfg.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "babel-tui: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	store, err := session.Open(cfg.dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "babel-tui: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	client := api.NewClient(cfg.apiURL,
		api.WithTimeout(cfg.httpTimeout),
		api.WithTokenSource(func() string {
			token, _, _ := store.Token()
			return token
		}),
	)
	speaker, closeSpeaker := newSpeaker(cfg)
	defer closeSpeaker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("starting", "api", client.BaseURL(), "data_dir", cfg.dataDir, "tts_voices", len(cfg.ttsVoices))
	m := newModel(ctx, cfg, deps{
		client:  client,
		meta:    api.NewMetaCache(client),
		store:   store,
		speaker: speaker,
	})
	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if cfg.altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, opts...)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "babel-tui fatal error: %v\n", err)
		os.Exit(1)
	}
}
