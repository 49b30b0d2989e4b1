package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/hush/internal/audio"
	"github.com/chaz8081/hush/internal/config"
	"github.com/chaz8081/hush/internal/models"
	"github.com/chaz8081/hush/internal/transcribe"
)

func runHosts(_ *config.Config, args []string) error {
	fs := flag.NewFlagSet("hosts", flag.ExitOnError)
	_ = fs.Parse(args)

	for _, h := range audio.Hosts() {
		fmt.Println(h.Name)
	}
	return nil
}

func runDevices(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("devices", flag.ExitOnError)
	host := fs.String("host", cfg.Audio.Host, "audio backend (see 'hush hosts')")
	_ = fs.Parse(args)

	ctx, err := audio.OpenContext(*host)
	if err != nil {
		return err
	}
	defer ctx.Close()

	devices, err := ctx.InputDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Printf("No input devices on host %s\n", ctx.Host())
		return nil
	}
	for _, d := range devices {
		fmt.Printf("  [%d] %s\n", d.Index, d)
	}
	return nil
}

// recordOptions are the parsed flags of the record command.
type recordOptions struct {
	duration time.Duration
	output   string
	device   int
	host     string
}

func parseRecordFlags(cfg *config.Config, args []string, errorHandling flag.ErrorHandling) (recordOptions, error) {
	fs := flag.NewFlagSet("record", errorHandling)
	seconds := fs.Uint("duration", 5, "seconds to record")
	output := fs.String("output", "recorded.wav", "WAV file to write")
	device := fs.Int("device", cfg.Audio.DeviceIndex, "input device index, -1 for the default")
	host := fs.String("host", cfg.Audio.Host, "audio backend (see 'hush hosts')")
	if err := fs.Parse(args); err != nil {
		return recordOptions{}, err
	}
	if *seconds == 0 {
		return recordOptions{}, fmt.Errorf("-duration must be at least 1 second")
	}
	return recordOptions{
		duration: time.Duration(*seconds) * time.Second,
		output:   *output,
		device:   *device,
		host:     *host,
	}, nil
}

func runRecord(cfg *config.Config, args []string) error {
	opts, err := parseRecordFlags(cfg, args, flag.ExitOnError)
	if err != nil {
		return err
	}

	ctx, err := audio.OpenContext(opts.host)
	if err != nil {
		return err
	}
	defer ctx.Close()

	dev, err := ctx.Resolve(opts.device)
	if err != nil {
		return err
	}
	streamCfg, err := ctx.DefaultStreamConfig(dev)
	if err != nil {
		return err
	}
	streamCfg.BufferFrames = cfg.Audio.BufferFrames

	sink, err := audio.CreateFileSink(opts.output, streamCfg)
	if err != nil {
		return err
	}

	stream, err := audio.Open(ctx, dev, streamCfg, sink)
	if err != nil {
		_ = sink.Finalize()
		return err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Stop()
		_ = sink.Finalize()
		return err
	}
	fmt.Printf("Recording %s from %s (%s)... Ctrl+C to stop early.\n", opts.duration, dev, streamCfg)

	waitFor(opts.duration)

	if err := stream.Stop(); err != nil {
		slog.Warn("[audio] stopping stream", "error", err)
	}
	if err := sink.Finalize(); err != nil {
		if errors.Is(err, audio.ErrEmptyRecording) {
			return fmt.Errorf("no audio captured from %s: %w", dev, err)
		}
		return err
	}
	fmt.Printf("Recording complete: %s (%.1fs)\n", opts.output,
		float64(sink.Samples())/float64(streamCfg.Channels*streamCfg.SampleRate))
	return nil
}

func runTranscribe(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("transcribe", flag.ExitOnError)
	file := fs.String("file", "", "16kHz WAV file to transcribe")
	timestamps := fs.Bool("timestamps", false, "prefix each segment with its time range")
	_ = fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	engine, err := loadEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	start := time.Now()
	segments, err := transcribe.TranscribeFile(engine, *file, cfg.Audio.WindowSamples(transcribe.SampleRate))
	if err != nil {
		return err
	}
	slog.Info("[transcribe] done", "file", *file, "segments", len(segments), "elapsed", time.Since(start).Round(time.Millisecond))

	transcribe.PrintSegments(os.Stdout, *timestamps)(segments)
	return nil
}

func runLive(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("live", flag.ExitOnError)
	device := fs.Int("device", cfg.Audio.DeviceIndex, "input device index, -1 for the default")
	host := fs.String("host", cfg.Audio.Host, "audio backend (see 'hush hosts')")
	timestamps := fs.Bool("timestamps", false, "prefix each segment with its time range")
	_ = fs.Parse(args)

	engine, err := loadEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, err := audio.OpenContext(*host)
	if err != nil {
		return err
	}
	defer ctx.Close()

	dev, err := ctx.Resolve(*device)
	if err != nil {
		return err
	}

	sink, err := transcribe.NewWindowSink(engine, transcribe.WindowOptions{
		Capacity:   cfg.Audio.WindowSamples(transcribe.SampleRate),
		SampleRate: transcribe.SampleRate,
		QueueDepth: cfg.Audio.QueueDepth,
	}, transcribe.PrintSegments(os.Stdout, *timestamps))
	if err != nil {
		return err
	}
	defer sink.Close()

	streamCfg := audio.TranscriptionConfig()
	streamCfg.BufferFrames = cfg.Audio.BufferFrames

	stream, err := audio.Open(ctx, dev, streamCfg, sink)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Stop()
		return err
	}
	fmt.Fprintf(os.Stderr, "Listening on %s (%gs windows). Ctrl+C to quit.\n", dev, cfg.Audio.WindowSecs)

	waitFor(0)

	// Stop before the deferred sink.Close so no callback races the worker shutdown.
	return stream.Stop()
}

func runModel(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("model", flag.ExitOnError)
	name := fs.String("name", models.DefaultWhisperModel, "whisper model name, e.g. base.en, small, medium.en")
	dir := fs.String("dir", config.DefaultModelsDir(), "directory to download into")
	_ = fs.Parse(args)

	path, err := models.DownloadWhisper(*name, *dir, os.Stdout)
	if err != nil {
		return err
	}
	if path != cfg.Transcribe.ModelPath {
		fmt.Printf("Set transcribe.model_path to %s to use this model.\n", path)
	}
	return nil
}

func loadEngine(cfg *config.Config) (transcribe.Transcriber, error) {
	slog.Info("[transcribe] loading model", "path", cfg.Transcribe.ModelPath)
	start := time.Now()
	engine, err := transcribe.New(&cfg.Transcribe)
	if err != nil {
		return nil, fmt.Errorf("%w\n\nRun 'hush model' to download a model", err)
	}
	slog.Info("[transcribe] model loaded", "elapsed", time.Since(start).Round(time.Millisecond))
	return engine, nil
}

// waitFor blocks until d elapses or SIGINT/SIGTERM arrives. A zero d waits
// for the signal only.
func waitFor(d time.Duration) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case sig := <-sigCh:
		slog.Info("received signal, stopping", "signal", sig)
	case <-timeout:
	}
}
