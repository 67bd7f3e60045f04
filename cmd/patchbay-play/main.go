package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vsariola/patchbay"
	"github.com/vsariola/patchbay/logging"
	"github.com/vsariola/patchbay/nodes"
	"github.com/vsariola/patchbay/oscctl"
	"github.com/vsariola/patchbay/oto"
	"github.com/vsariola/patchbay/version"
	"github.com/vsariola/patchbay/vm"
)

const (
	defaultSampleRate  = 44100
	instantiateTimeout = 5 * time.Second
	// offline rendering advances the automation once per block
	offlineBlock = 256
)

var log = logging.Get(logging.APP)

func main() {
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, the files are placed in the working directory.")
	rawOut := flag.Bool("r", false, "Render the patch offline and output it as .raw file, as stereo float32 samples.")
	wavOut := flag.Bool("w", false, "Render the patch offline and output it as .wav file.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting files or playing.")
	length := flag.Float64("t", 0, "Length of offline renders in seconds. By default, one second past the end of the automation.")
	rate := flag.Int("rate", 0, "Sample rate. By default, the rate given in the patch, or 44100.")
	gain := flag.Float64("gain", 1, "Output gain.")
	oscAddr := flag.String("osc", "", "Listen for OSC control messages on this UDP address while playing, e.g. 127.0.0.1:9000.")
	watch := flag.Bool("watch", false, "Reload the patch when the file changes while playing.")
	logLevels := flag.String("log", "", "Comma separated log levels by category, e.g. node=debug,param=info.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.Long())
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if err := setLogLevels(*logLevels); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	types, err := nodes.Types()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load node types: %v\n", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	offline := *rawOut || *wavOut
	var out *oto.Output
	var player vm.Player
	process := func(filename string) error {
		p, err := readPatch(filename)
		if err != nil {
			return err
		}
		sampleRate := *rate
		if sampleRate <= 0 {
			sampleRate = p.SampleRate
		}
		if sampleRate <= 0 {
			sampleRate = defaultSampleRate
		}
		s, err := newSession(ctx, p, types, sampleRate)
		if err != nil {
			return err
		}
		s.program.SetGain(float32(*gain))
		if offline {
			buffer, err := s.renderOffline(*length)
			if err != nil {
				return err
			}
			return writeOutputs(filename, *directory, buffer, sampleRate, *rawOut, *wavOut, *pcm)
		}
		if out == nil {
			if out, err = oto.NewOutput(sampleRate, &player, *pcm); err != nil {
				return fmt.Errorf("could not open audio output: %v", err)
			}
		}
		return s.play(ctx, filename, out, &player, playOptions{osc: *oscAddr, watch: *watch, gain: float32(*gain)})
	}
	retval := 0
	for _, param := range flag.Args() {
		files := []string{param}
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			if files, err = filepath.Glob(filepath.Join(param, "*.yml")); err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for yml files: %v\n", param, err)
				retval = 1
				continue
			}
		}
		for _, file := range files {
			if err := process(file); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
				retval = 1
			}
			if ctx.Err() != nil {
				break
			}
		}
	}
	if out != nil {
		if n := out.Errors(); n > 0 {
			log.Warn("render errors during playback", "count", n)
		}
		out.Close()
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "patchbay command line utility for playing and rendering .yml patch files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}

func setLogLevels(s string) error {
	if s == "" {
		return nil
	}
	for _, kv := range strings.Split(s, ",") {
		name, level, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid log level %q, want category=level", kv)
		}
		c, ok := logging.ParseCategory(strings.TrimSpace(name))
		if !ok {
			return fmt.Errorf("unknown log category %q", name)
		}
		var l slog.Level
		if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
			return fmt.Errorf("log category %v: %v", c, err)
		}
		logging.SetCategoryLevel(c, l)
	}
	return nil
}

func readPatch(filename string) (*patchbay.Patch, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read file %v: %v", filename, err)
	}
	return patchbay.ParsePatch(data)
}

// session is one built patch: its graph, bound to a vm engine, and the
// program rendering it.
type session struct {
	patch   *patchbay.Patch
	types   patchbay.NodeTypes
	engine  *vm.Engine
	graph   *patchbay.Graph
	program *vm.Program
}

// newSession builds the patch and waits for its nodes. Nodes that fail to
// instantiate are logged and the patch plays without them.
func newSession(ctx context.Context, p *patchbay.Patch, types patchbay.NodeTypes, sampleRate int) (*session, error) {
	engine := vm.NewEngine(sampleRate)
	if err := engine.RegisterTypes(types); err != nil {
		return nil, err
	}
	registerKernels(engine)
	return buildSession(ctx, p, types, engine)
}

func buildSession(ctx context.Context, p *patchbay.Patch, types patchbay.NodeTypes, engine *vm.Engine) (*session, error) {
	g, err := p.Build(patchbay.NewRack(engine), types)
	if err != nil {
		return nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, instantiateTimeout)
	defer cancel()
	if err := g.Wait(waitCtx); err != nil {
		if waitCtx.Err() != nil {
			return nil, fmt.Errorf("nodes were not instantiated in time: %w", err)
		}
		log.Warn("some nodes failed to instantiate, playing without them", "err", err)
	}
	program, err := vm.Compile(g.Output())
	if err != nil {
		return nil, err
	}
	log.Info("patch built", "nodes", len(g.Nodes()), "order", program.Nodes(), "rate", engine.SampleRate())
	return &session{patch: p, types: types, engine: engine, graph: g, program: program}, nil
}

func (s *session) renderOffline(length float64) (patchbay.AudioBuffer, error) {
	if length <= 0 {
		length = s.patch.Duration() + 1
	}
	rate := s.engine.SampleRate()
	buffer := make(patchbay.AudioBuffer, int(length*float64(rate)))
	schedule := patchbay.NewSchedule(s.patch.Automation)
	for i := 0; i < len(buffer); i += offlineBlock {
		if err := schedule.Advance(float64(i)/float64(rate), s.graph); err != nil {
			log.Warn("automation", "err", err)
		}
		if err := s.program.Render(buffer[i:min(i+offlineBlock, len(buffer))]); err != nil {
			return nil, err
		}
	}
	return buffer, nil
}

func writeOutputs(filename, directory string, buffer patchbay.AudioBuffer, rate int, raw, wav, pcm bool) error {
	output := func(extension string, contents []byte) error {
		_, name := filepath.Split(filename)
		dir := directory
		if dir == "" {
			var err error
			if dir, err = os.Getwd(); err != nil {
				return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
			}
		}
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %v", dir, err)
		}
		f := filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+extension)
		if err := os.WriteFile(f, contents, 0644); err != nil {
			return fmt.Errorf("could not write file %v: %v", f, err)
		}
		return nil
	}
	if raw {
		data, err := buffer.Raw(pcm)
		if err != nil {
			return fmt.Errorf("could not generate .raw file: %v", err)
		}
		if err := output(".raw", data); err != nil {
			return fmt.Errorf("error outputting .raw file: %v", err)
		}
	}
	if wav {
		data, err := buffer.Wav(rate, pcm)
		if err != nil {
			return fmt.Errorf("could not generate .wav file: %v", err)
		}
		if err := output(".wav", data); err != nil {
			return fmt.Errorf("error outputting .wav file: %v", err)
		}
	}
	return nil
}

// liveGraph is the graph currently played. Automation and reloads share it,
// so a rebuilt graph takes over the remaining automation.
type liveGraph struct {
	atomic.Pointer[patchbay.Graph]
}

func (l *liveGraph) Apply(ev patchbay.AutomationEvent) error {
	return l.Load().Apply(ev)
}

type playOptions struct {
	osc   string
	watch bool
	gain  float32
}

// play plays the session in realtime until its automation has finished, or,
// when controlled over OSC or watching the file, until interrupted.
func (s *session) play(ctx context.Context, filename string, out *oto.Output, player *vm.Player, opts playOptions) error {
	if old := player.SetProgram(s.program); old != nil {
		player.WaitIdle(ctx)
	}
	out.Play()
	defer out.Pause()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	interactive := opts.osc != "" || opts.watch
	live := &liveGraph{}
	live.Store(s.graph)
	schedule := patchbay.NewSchedule(s.patch.Automation)
	errs := make(chan error, 2)
	var ctl *oscctl.Controller
	if opts.osc != "" {
		ctl = oscctl.New(s.graph)
		go func() {
			if err := ctl.ListenAndServe(ctx, opts.osc); err != nil && ctx.Err() == nil {
				errs <- fmt.Errorf("osc: %w", err)
			}
		}()
		log.Info("listening for OSC", "addr", opts.osc)
	}
	if opts.watch {
		w, err := newWatcher(filename)
		if err != nil {
			return err
		}
		defer w.Close()
		go w.run(ctx, func() {
			if err := s.reload(ctx, filename, player, live, ctl, opts.gain); err != nil {
				log.Error("reload failed", "file", filename, "err", err)
			}
		})
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		schedule.Run(ctx, live, time.Now(), func(err error) { log.Warn("automation", "err", err) })
		if !interactive {
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}()
	meter := time.NewTicker(time.Second)
	defer meter.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			return err
		case <-done:
			if !interactive {
				return nil
			}
			done = nil
		case <-meter.C:
			if p := player.Program(); p != nil {
				peak := p.Peak()
				logging.Get(logging.RENDER).Debug("peak", "left", peak[0], "right", peak[1])
			}
		}
	}
}

// reload reads the patch again. A patch with the same topology only updates
// the parameter values of the running graph; otherwise the graph is rebuilt
// and swapped in without stopping the audio, and live and ctl (if not nil)
// are pointed at it. The running automation is kept.
func (s *session) reload(ctx context.Context, filename string, player *vm.Player, live *liveGraph, ctl *oscctl.Controller, gain float32) error {
	p, err := readPatch(filename)
	if err != nil {
		return err
	}
	if p.SameTopology(s.patch) {
		s.patch = p
		log.Info("patch values reloaded", "file", filename)
		return p.ApplyValues(s.graph)
	}
	next, err := buildSession(ctx, p, s.types, s.engine)
	if err != nil {
		return err
	}
	next.program.SetGain(gain)
	player.SetProgram(next.program)
	if err := player.WaitIdle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	live.Store(next.graph)
	if ctl != nil {
		ctl.SetGraph(next.graph)
	}
	*s = *next
	log.Info("patch rebuilt", "file", filename)
	return nil
}
