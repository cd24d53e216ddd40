package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	log "log/slog"

	"vaani/internal/actions"
	"vaani/internal/audio"
	"vaani/internal/audio/file"
	"vaani/internal/audio/mic"
	"vaani/internal/catalog"
	"vaani/internal/config"
	"vaani/internal/connectivity"
	"vaani/internal/dispatch"
	"vaani/internal/duck"
	"vaani/internal/events"
	"vaani/internal/health"
	"vaani/internal/intent"
	"vaani/internal/ipc"
	"vaani/internal/metrics"
	"vaani/internal/notify"
	"vaani/internal/proxy"
	"vaani/internal/session"
	"vaani/internal/speech"
	"vaani/internal/speech/remote"
	"vaani/internal/speech/vosk"
	"vaani/internal/speech/whisper"
	"vaani/internal/tts"
	"vaani/internal/wake"
)

func main() {
	configFile := cli.StringP("config", "c", "", "Config file path")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cli.StringP("proxy", "p", "", "Socks proxy address")
	cli.StringP("log", "l", "info", "Log level")
	cli.StringP("input", "i", "", "Replay an audio file instead of the microphone")
	cli.Parse()

	godotenv.Load(*envFile)

	cfg, err := config.Load(*configFile, cli.CommandLine)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	config.SetupLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error("Assistant stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log.Info("Booting up")

	source, closeSource, err := openSource(cfg.Audio)
	if err != nil {
		return err
	}
	defer closeSource()

	log.Debug("Loaded audio source", "input", cfg.Audio.Input)

	engines, err := loadEngines(cfg)
	if err != nil {
		return err
	}

	httpClient, err := proxy.NewClient(cfg.Proxy, cfg.Remote.Timeout)
	if err != nil {
		return fmt.Errorf("proxy %s: %w", cfg.Proxy, err)
	}

	rem, closeRemote, err := newRemote(ctx, cfg, httpClient)
	if err != nil {
		return err
	}
	defer closeRemote()

	dialer, err := proxy.Dialer(cfg.Proxy)
	if err != nil {
		return fmt.Errorf("proxy %s: %w", cfg.Proxy, err)
	}
	probe := &connectivity.Probe{
		Address: cfg.Connectivity.Address,
		Timeout: cfg.Connectivity.Timeout,
		Dialer:  dialer,
	}

	selector := speech.NewSelector(engines, rem, probe)
	defer selector.Close()

	registry, err := actions.NewRegistry(cfg.Actions, actions.Deps{
		Summarizer: actions.NewWikipedia(httpClient),
	})
	if err != nil {
		return fmt.Errorf("actions: %w", err)
	}

	var speaker session.Speaker = tts.Log{}
	if cfg.TTS.Enabled {
		speaker = tts.NewEspeak()
	}

	var chime func()
	if cfg.Notify.Chime != "" {
		c, err := notify.LoadChime(cfg.Notify.Chime)
		if err != nil {
			log.Warn("Chime disabled", "err", err)
		} else {
			chime = c.Play
		}
	}

	var ducker session.Ducker
	if cfg.Duck.Enabled {
		d := duck.New(duck.Pactl{}, cfg.Duck.Ignore...)
		d.Factor = cfg.Duck.Factor
		d.Fade = cfg.Duck.Fade
		ducker = d
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Bus.URL != "" {
		bus, err := events.NewBus(ctx, cfg.Bus.URL)
		if err != nil {
			log.Warn("Event bus unavailable", "url", cfg.Bus.URL, "err", err)
		} else {
			defer bus.Close()
			publisher = bus
		}
	}

	m := metrics.New("vaani")

	ctrl := session.New(session.Deps{
		Source:   source,
		Selector: selector,
		Wake:     wake.New(cfg.WakeWords()...),
		Matcher:  intent.NewMatcher(cfg.Commands, cfg.Intent.Threshold),
		Table:    dispatch.NewTable(cfg.Commands),
		Actions:  registry,
		Speaker:  speaker,
	}, session.Options{
		Timeout:  cfg.Session.Timeout,
		Language: cfg.Language(),
		Greet:    cfg.Session.Greet,
		Chime:    chime,
		Duck:     ducker,
		Events:   publisher,
		Metrics:  m,
	})

	srv, err := ipc.Listen(ctx, cfg.Control.Socket, controlHandler(ctrl))
	if err != nil {
		return fmt.Errorf("control socket: %w", err)
	}
	defer srv.Close()

	if cfg.Health.Port > 0 {
		hs := health.New(cfg.Health.Port, m.Handler())
		hs.SetReady(true)
		go func() {
			if err := hs.ListenAndServe(ctx); err != nil {
				log.Error("Health server failed", "err", err)
			}
		}()
	}

	log.Info("Boot up - successful", "lang", cfg.Language(), "wake", cfg.WakeWords(), "remote", cfg.Remote.Backend)

	err = ctrl.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("Shutting down")
		return nil
	}
	return err
}

func openSource(cfg config.AudioConfig) (audio.Source, func(), error) {
	if cfg.Input != "" {
		src, err := file.NewSource(cfg.Input)
		if err != nil {
			return nil, nil, err
		}
		src.Block = cfg.BlockSize
		src.Realtime = cfg.Realtime
		return src, func() {}, nil
	}

	src, err := mic.New(cfg.BlockSize)
	if err != nil {
		return nil, nil, err
	}
	return src, func() { src.Close() }, nil
}

// loadEngines opens one local engine per configured language. A missing
// model only disables that language.
func loadEngines(cfg *config.Config) (map[speech.Language]speech.Streamer, error) {
	engines := make(map[speech.Language]speech.Streamer)
	for code, path := range cfg.Local.Models {
		if path == "" {
			continue
		}
		lang, err := speech.ParseLanguage(code)
		if err != nil {
			return nil, err
		}

		var engine speech.Streamer
		switch cfg.Local.Engine {
		case "whisper":
			engine, err = whisper.New(path, whisper.Options{
				Language: string(lang),
				Threads:  cfg.Local.Threads,
				Prompt:   vocabulary(cfg.Commands, lang),
			})
		default:
			engine, err = vosk.New(path)
		}
		if err != nil {
			log.Warn("Local model unavailable", "lang", lang, "path", path, "err", err)
			continue
		}

		log.Debug("Loaded local model", "lang", lang, "engine", cfg.Local.Engine, "path", path)
		engines[lang] = engine
	}

	if len(engines) == 0 {
		return nil, speech.ErrNoModel
	}
	if _, ok := engines[cfg.Language()]; !ok {
		return nil, fmt.Errorf("%w: %s", speech.ErrNoModel, cfg.Language())
	}
	return engines, nil
}

func newRemote(ctx context.Context, cfg *config.Config, client *http.Client) (*speech.Remote, func(), error) {
	nop := func() {}

	var backend speech.Backend
	switch cfg.Remote.Backend {
	case "openai":
		if cfg.Remote.OpenAI.APIKey == "" {
			log.Warn("OPENAI_API_KEY not set, remote recognition disabled")
			return nil, nop, nil
		}
		backend = remote.NewOpenAI(cfg.Remote.OpenAI.APIKey, cfg.Remote.OpenAI.Model, client)

	case "google":
		g, err := remote.NewGoogle(ctx, cfg.Remote.Google.Language, cfg.Remote.Google.Credentials)
		if err != nil {
			log.Warn("Google speech unavailable, remote recognition disabled", "err", err)
			return nil, nop, nil
		}
		backend = g
		nop = func() { g.Close() }

	default:
		return nil, nop, nil
	}

	return speech.NewRemote(backend, cfg.Audio.Calibration, cfg.Remote.Timeout, cfg.Audio.MaxPhrase), nop, nil
}

// vocabulary biases whisper towards the phrases it is expected to hear.
func vocabulary(entries []catalog.Entry, lang speech.Language) string {
	var phrases []string
	for _, e := range entries {
		if e.Lang == lang {
			phrases = append(phrases, e.Phrase)
		}
	}
	return strings.Join(phrases, ", ")
}

func controlHandler(ctrl *session.Controller) ipc.Handler {
	return func(req ipc.Request) ipc.Reply {
		switch req.Cmd {
		case ipc.CmdWake:
			ctrl.Wake()
		case ipc.CmdQuit:
			ctrl.Quit()
		case ipc.CmdLang:
			lang, err := speech.ParseLanguage(req.Arg)
			if err == nil {
				err = ctrl.SetLanguage(lang)
			}
			if err != nil {
				return ipc.Reply{Error: err.Error()}
			}
		case ipc.CmdStatus:
		default:
			log.Warn("Unknown command", "cmd", req.Cmd)
			return ipc.Reply{Error: fmt.Sprintf("unknown command %q", req.Cmd)}
		}

		state, lang := ctrl.Status()
		return ipc.Reply{OK: true, State: state.String(), Lang: string(lang)}
	}
}
