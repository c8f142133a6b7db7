package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"dictafield/audio"
	"dictafield/beep"
	"dictafield/clipboard"
	"dictafield/config"
	"dictafield/dictation"
	"dictafield/doctor"
	"dictafield/encoder"
	"dictafield/hotkey"
	"dictafield/log"
	"dictafield/notify"
	"dictafield/recorder"
	"dictafield/shutdown"
	"dictafield/tray"
)

var version = "dev"

// pipelineDrain bounds how long shutdown waits for in-flight transcriptions.
const pipelineDrain = 15 * time.Second

var (
	uiToggleCh       = make(chan struct{}, 1)
	deviceSelectChan = make(chan struct{}, 1)
)

func nudge(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func initCrashLog() {
	dir, err := log.ResolveDir("")
	if err != nil {
		return
	}
	log.SetDir(dir)
	if log.EnsureDir() != nil {
		return
	}
	crashFile, err := os.OpenFile(filepath.Join(dir, "crash_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func fatalf(format string, args ...any) {
	log.Errorf(format, args...)
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	log.Close()
	os.Exit(1)
}

// surfaces are the places a pipeline reports to.
type surfaces struct {
	notifier     notify.Notifier
	indicators   []recorder.Indicator
	onLevel      func(float64)
	onTranscript func(string)
	onFieldValue func(string)
}

// newPipeline wires a recorder on actx to a dictation widget writing into
// cfg.Target through caller.
func newPipeline(ctx context.Context, cfg *config.Config, actx audio.Context, device *audio.DeviceInfo, caller dictation.Caller, s surfaces) (*recorder.Controller, *dictation.Widget, error) {
	format, err := encoder.ParseFormat(cfg.Audio.Format)
	if err != nil {
		return nil, nil, err
	}
	rec := recorder.New(actx, device, recorder.Config{
		Format:     format,
		AutoStop:   cfg.Audio.AutoStop,
		Notifier:   s.notifier,
		Indicators: s.indicators,
		OnLevel:    s.onLevel,
	})

	opts := dictation.Options{OnTranscript: s.onTranscript}
	if s.onFieldValue != nil {
		opts.Refresher = dictation.NewRecordReader(caller, func(_ dictation.FieldBinding, v string) {
			s.onFieldValue(v)
		})
	}
	widget, err := dictation.NewWidget(ctx, rec, caller, cfg.Target, s.notifier, opts)
	if err != nil {
		return nil, nil, err
	}
	return rec, widget, nil
}

func run() {
	configFlag := flag.String("config", "", "Config file (default: "+config.DefaultPath()+")")
	envFlag := flag.String("env", "", "Env file with DICTAFIELD_* settings (default: .env next to config, then ./.env)")
	urlFlag := flag.String("url", "", "Server URL, e.g. https://odoo.example.com")
	dbFlag := flag.String("db", "", "Database name")
	loginFlag := flag.String("login", "", "Login (password comes from DICTAFIELD_PASSWORD)")
	modelFlag := flag.String("model", "", "Model of the target record, e.g. crm.lead")
	fieldFlag := flag.String("field", "", "Text field transcriptions are appended to")
	recordFlag := flag.Int("record", 0, "ID of the target record")
	formatFlag := flag.String("format", "", "Audio format: wav or flac")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device and save it to the config file")
	hotkeyFlag := flag.String("hotkey", "", "Global hotkey, e.g. ctrl+shift+space or f9")
	autoStopFlag := flag.Bool("autostop", false, "Stop recording after 30s without voice")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	trayFlag := flag.Bool("tray", true, "Show system tray icon")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven, replays a WAV file)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("dictafield %s\n", version)
		os.Exit(0)
	}

	if *logPathFlag != "" {
		logPath, err := log.ResolveDir(*logPathFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
			os.Exit(1)
		}
		log.SetDir(logPath)
		if err := log.EnsureDir(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
		}
	}

	cfgPath := *configFlag
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}

	if *setupFlag {
		os.Exit(runSetup(cfgPath))
	}

	cfg, err := config.Load(*configFlag, *envFlag)
	if err != nil {
		fatalf("%v", err)
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	overlay := map[string]*string{
		"url": &cfg.Server.URL, "db": &cfg.Server.DB, "login": &cfg.Server.Login,
		"model": &cfg.Target.Model, "field": &cfg.Target.Field,
		"format": &cfg.Audio.Format, "device": &cfg.Audio.Device, "hotkey": &cfg.Hotkey.Combo,
	}
	values := map[string]string{
		"url": *urlFlag, "db": *dbFlag, "login": *loginFlag,
		"model": *modelFlag, "field": *fieldFlag,
		"format": *formatFlag, "device": *deviceFlag, "hotkey": *hotkeyFlag,
	}
	for name, dst := range overlay {
		if set[name] {
			*dst = values[name]
		}
	}
	if set["record"] {
		cfg.Target.RecordID = *recordFlag
	}
	if set["autostop"] {
		cfg.Audio.AutoStop = *autoStopFlag
	}

	if *doctorFlag {
		os.Exit(doctor.Run(cfg))
	}

	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}
	combo, err := hotkey.ParseCombo(cfg.Hotkey.Combo)
	if err != nil {
		fatalf("%v", err)
	}

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: dictafield -test <wav-file>")
			os.Exit(1)
		}
		runTestMode(cfg, args[0])
		return
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	log.SessionStart(cfg.Server.URL, cfg.Target.String(), cfg.Audio.Format)

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	client, err := cfg.Server.Connect(ctx)
	if err != nil {
		fatalf("connecting to %s: %v", cfg.Server.URL, err)
	}
	go client.Warm()

	actx, err := audio.NewContext()
	if err != nil {
		fatalf("initializing audio: %v", err)
	}
	defer actx.Close()

	var device *audio.DeviceInfo
	if cfg.Audio.Device != "" {
		device, err = audio.FindDevice(actx, cfg.Audio.Device)
		if err != nil || device == nil {
			log.Warnf("device %q not available, using system default", cfg.Audio.Device)
		}
	}

	var notifiers notify.Multi
	notifiers = append(notifiers, notify.Log{})
	if cfg.Notify.Desktop {
		notifiers = append(notifiers, notify.NewDesktop("dictafield", notify.Type(cfg.Notify.MinType)))
	}
	if cfg.Notify.Sounds {
		notifiers = append(notifiers, notify.NewSounds())
	} else {
		beep.Disable()
	}
	indicators := []recorder.Indicator{}
	if *trayFlag {
		indicators = append(indicators, tray.Indicator{})
		notifiers = append(notifiers, notify.Func(func(n notify.Notification) {
			if n.Type == notify.Danger {
				tray.SetError(n.Message)
			}
		}))
	}
	if *tuiFlag {
		indicators = append(indicators, tuiSink{})
		notifiers = append(notifiers, tuiSink{})
	}

	// remote calls of a pipeline outlive the signal; pipelineDrain bounds them
	rec, widget, err := newPipeline(context.WithoutCancel(ctx), cfg, actx, device, client, surfaces{
		notifier:   notifiers,
		indicators: indicators,
		onLevel:    func(l float64) { tuiSend(AudioLevelMsg{Level: l}) },
		onTranscript: func(text string) {
			tray.SetLastText(text)
			tuiSend(TranscriptionMsg{Text: text})
		},
		onFieldValue: func(v string) { tuiSend(FieldValueMsg{Value: v}) },
	})
	if err != nil {
		fatalf("%v", err)
	}

	devices := newDeviceManager(actx, rec, device)

	copyLast := func() {
		if text := widget.LastText(); text != "" {
			if err := clipboard.Copy(text); err != nil {
				log.Warnf("copy failed: %v", err)
			}
		}
	}
	pasteLast := func() {
		if text := widget.LastText(); text != "" {
			if err := clipboard.CopyAndPaste(text); err != nil {
				log.Warnf("paste failed: %v", err)
			}
		}
	}
	go func() {
		if err := clipboard.Init(); err != nil {
			log.Warnf("paste init failed: %v", err)
		}
	}()

	if *tuiFlag {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram(tuiActions{
			toggle:       func() { nudge(uiToggleCh) },
			copyLast:     copyLast,
			selectDevice: func() { nudge(deviceSelectChan) },
		}, InfoMsg{
			Server: cfg.Server.URL,
			Target: cfg.Target.String(),
			Device: rec.DeviceName(),
			Hotkey: combo.String(),
		})
		p := tuiProgram
		tuiMu.Unlock()

		go func() {
			if _, err := p.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			stop()
		}()
	}

	var trayQuit <-chan struct{}
	if *trayFlag {
		tray.SetTarget(cfg.Target.String())
		tray.OnCopyLast(copyLast)
		tray.OnPasteLast(pasteLast)
		tray.SetBTCheck(audio.IsBluetooth)
		devices.attachTray()
		trayQuit = tray.Init()
	}
	go devices.poll(ctx, *trayFlag)

	var hkToggles <-chan struct{}
	hk := hotkey.New(combo)
	if err := hk.Register(); err != nil {
		if !*tuiFlag && !*trayFlag {
			fatalf("registering hotkey %s: %v", combo, err)
		}
		log.Warnf("hotkey %s unavailable: %v", combo, err)
	} else {
		defer hk.Unregister()
		hkToggles = hotkey.NewToggler(hk, cfg.Hotkey.Hold, func() bool {
			return rec.State() != recorder.StateIdle
		}).Toggles()
	}

	if !*tuiFlag {
		fmt.Printf("dictafield %s: %s into %s, press %s to dictate\n", version, cfg.Server.URL, cfg.Target, combo)
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-trayQuit:
			break loop
		case <-hkToggles:
			log.Info("hotkey_toggle")
			rec.Toggle()
		case <-tray.Toggles():
			log.Info("tray_toggle")
			rec.Toggle()
		case <-uiToggleCh:
			log.Info("tui_toggle")
			rec.Toggle()
		case <-deviceSelectChan:
			devices.choose()
		}
	}

	log.Info("shutdown")
	rec.Close()
	if !waitTimeout(widget.Wait, pipelineDrain) {
		log.Warn("shutdown: pipelines still running")
	}
	log.SessionEnd(widget.Written())
	if *trayFlag {
		tray.Close()
	}
	tuiMu.Lock()
	if tuiProgram != nil {
		tuiProgram.Quit()
	}
	tuiMu.Unlock()
	log.Close()
}

func waitTimeout(wait func(), d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// runSetup picks a microphone interactively and stores it in the config
// file at path. Only the file's own settings are written back.
func runSetup(path string) int {
	cfg, err := config.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	actx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer actx.Close()

	dev, err := audio.SelectDevice(actx)
	if errors.Is(err, audio.ErrSelectionCanceled) {
		fmt.Println("Canceled.")
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	cfg.Audio.Device = dev.Name
	if err := cfg.Save(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		return 1
	}
	fmt.Printf("Saved microphone %q to %s\n", dev.Name, path)
	return 0
}
