package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/gridstep/internal/analysis"
	"github.com/san-kum/gridstep/internal/audio"
	"github.com/san-kum/gridstep/internal/automation"
	"github.com/san-kum/gridstep/internal/config"
	"github.com/san-kum/gridstep/internal/experiment"
	"github.com/san-kum/gridstep/internal/export"
	"github.com/san-kum/gridstep/internal/gui"
	"github.com/san-kum/gridstep/internal/metrics"
	"github.com/san-kum/gridstep/internal/session"
	"github.com/san-kum/gridstep/internal/storage"
	"github.com/san-kum/gridstep/internal/trigger"
	"github.com/san-kum/gridstep/internal/viz"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string
	mode       string
	bpm        float64
	gridSize   int
	seed       int64
	frameRate  int
	theme      string
	// audio
	song     string
	useInput bool
	// offline runs
	duration float64
	runID    string
	svgPath  string
	plotPath string
	midiPath string
	saveRun  bool
	// sweeps
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
)

const logFile = "gridstep.log"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gridstep",
		Short: "audio-reactive cube-grid visualizer",
		Long: "gridstep stacks a random grid of coloured cubes on every beat or onset\n" +
			"and glides the camera along to follow the stack.",
		Args:              cobra.NoArgs,
		PersistentPreRunE: setupLogging,
		RunE:              runLive,
		SilenceUsage:      true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".gridstep", "data directory")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&mode, "mode", config.ModePeak, "trigger mode (tempo|peak|manual)")
	pf.Float64Var(&bpm, "bpm", config.DefaultBPM, "tempo in beats per minute")
	pf.IntVar(&gridSize, "grid", config.DefaultGridSize, "grid side length")
	pf.Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	pf.IntVar(&frameRate, "fps", config.DefaultFPS, "frame rate")

	rootCmd.Flags().StringVar(&song, "song", "", "mp3 file or synthetic track (click, click@120, silence)")
	rootCmd.Flags().BoolVar(&useInput, "input", false, "react to the default audio input instead of a song")
	rootCmd.Flags().StringVar(&theme, "theme", "", "terminal theme ("+strings.Join(viz.ThemeNames(), "|")+")")
	rootCmd.Flags().BoolVar(&saveRun, "save", false, "save the steps of the session on quit")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the terminal visualizer",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	runCmd.Flags().AddFlagSet(rootCmd.Flags())

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "run the visualizer in a raylib window",
		Args:  cobra.NoArgs,
		RunE:  runGUI,
	}
	guiCmd.Flags().StringVar(&song, "song", "", "mp3 file or synthetic track")
	guiCmd.Flags().BoolVar(&useInput, "input", false, "react to the default audio input")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [song]",
		Short: "render a song offline and save the run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeSong,
	}
	analyzeCmd.Flags().Float64Var(&duration, "duration", 0, "seconds to render (0 = whole track)")
	analyzeCmd.Flags().StringVar(&runID, "id", "", "run id (default derived from song and time)")
	analyzeCmd.Flags().StringVar(&svgPath, "svg", "", "write the grid history as an svg contact sheet")
	analyzeCmd.Flags().StringVar(&plotPath, "plot", "", "write the band energy with step markers as svg")

	waveformCmd := &cobra.Command{
		Use:   "waveform [song]",
		Short: "plot the amplitude envelope of a song",
		Args:  cobra.ExactArgs(1),
		RunE:  plotWaveform,
	}
	waveformCmd.Flags().Float64Var(&duration, "duration", 0, "seconds to plot (0 = whole track)")

	notesCmd := &cobra.Command{
		Use:   "notes [song]",
		Short: "experimental: dominant note at every onset",
		Long: "notes reports the strongest spectral bin at every onset as a note name.\n" +
			"It is a rough guide for monophonic input, not a pitch tracker.",
		Args: cobra.ExactArgs(1),
		RunE: detectNotes,
	}
	notesCmd.Flags().Float64Var(&duration, "duration", 0, "seconds to analyze (0 = whole track)")
	notesCmd.Flags().StringVar(&midiPath, "midi", "", "write the notes as a standard midi file")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a yaml scenario of offline renders",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [song]",
		Short: "render a song across a range of one parameter",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&sweepParam, "param", "sensitivity", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.9, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "n", 5, "number of values")
	sweepCmd.Flags().Float64Var(&duration, "duration", 10, "seconds per render")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportMIDICmd := &cobra.Command{
		Use:   "export-midi [run_id]",
		Short: "export the steps of a run as a standard midi file",
		Args:  cobra.ExactArgs(1),
		RunE:  exportMIDI,
	}
	exportMIDICmd.Flags().StringVarP(&midiPath, "out", "o", "", "output file (default <run_id>.mid)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, guiCmd, analyzeCmd, waveformCmd, notesCmd, scenarioCmd, sweepCmd, listCmd, exportCmd, exportMIDICmd, presetsCmd)
	return rootCmd
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// setupLogging installs a text handler on stderr. The terminal UI owns
// the screen, so its logs go to a file in the data directory instead.
func setupLogging(cmd *cobra.Command, args []string) error {
	lvl, err := parseLevel(logLevel)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stderr
	if cmd.Name() == "run" || cmd == cmd.Root() {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return err
		}
		f, err := os.OpenFile(filepath.Join(dataDir, logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		w = f
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// buildConfig applies defaults < preset < config file < changed flags.
func buildConfig(changed func(string) bool) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if changed("mode") {
		cfg.Mode = mode
	}
	if changed("bpm") {
		cfg.Tempo.BPM = bpm
	}
	if changed("grid") {
		cfg.GridSize = gridSize
	}
	if changed("seed") {
		cfg.Seed = seed
	}
	if changed("fps") {
		cfg.Render.FPS = frameRate
	}
	if changed("theme") {
		cfg.Render.Theme = theme
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func commandConfig(cmd *cobra.Command) (*config.Config, error) {
	return buildConfig(cmd.Flags().Changed)
}

// liveAudio is the transport and analysis input of an interactive session.
type liveAudio struct {
	source   trigger.Source
	resumer  trigger.Resumer
	analyzer *analysis.Analyzer
	close    func() error
}

func openAudio(cfg *config.Config) (*liveAudio, error) {
	switch {
	case useInput:
		in, err := audio.OpenInput(slog.Default())
		if err != nil {
			return nil, err
		}
		return &liveAudio{
			source:   in,
			analyzer: analysis.NewAnalyzer(in.Tap(), cfg.Analysis.Smoothing, cfg.Analysis.Bins),
			close:    in.Close,
		}, nil

	case song != "":
		track, err := experiment.NewRegistry().Track(song, 0)
		if err != nil {
			return nil, err
		}
		player, err := audio.NewPlayer(track)
		if err != nil {
			return nil, err
		}
		return &liveAudio{
			source:   player,
			resumer:  player,
			analyzer: analysis.NewAnalyzer(player.Tap(), cfg.Analysis.Smoothing, cfg.Analysis.Bins),
			close:    player.Close,
		}, nil
	}
	return &liveAudio{close: func() error { return nil }}, nil
}

func newLiveSession(cmd *cobra.Command) (*session.Session, *config.Config, *liveAudio, error) {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	la, err := openAudio(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []session.Option{session.WithLogger(slog.Default())}
	if la.source != nil {
		opts = append(opts, session.WithSource(la.source))
	}
	if la.analyzer != nil {
		opts = append(opts, session.WithAnalyzer(la.analyzer))
	}
	if la.resumer != nil {
		opts = append(opts, session.WithResumer(la.resumer))
	}

	sess, err := session.New(cfg, opts...)
	if err != nil {
		la.close()
		return nil, nil, nil, err
	}
	return sess, cfg, la, nil
}

func runLive(cmd *cobra.Command, args []string) error {
	sess, cfg, la, err := newLiveSession(cmd)
	if err != nil {
		return err
	}
	defer la.close()

	start := time.Now()
	if err := viz.Run(sess); err != nil {
		return err
	}
	if !saveRun {
		return nil
	}
	return saveSession(cmd.OutOrStdout(), sess, cfg, time.Since(start))
}

func runGUI(cmd *cobra.Command, args []string) error {
	sess, _, la, err := newLiveSession(cmd)
	if err != nil {
		return err
	}
	defer la.close()

	gui.Run(sess, slog.Default())
	return nil
}

func saveSession(out io.Writer, sess *session.Session, cfg *config.Config, elapsed time.Duration) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	steps := sess.Steps()
	ms := metrics.Defaults()
	metrics.ObserveAll(ms, steps)

	name := song
	if useInput {
		name = "input"
	}
	id, err := st.Save(storage.RunMetadata{
		Song:     name,
		Mode:     cfg.Mode,
		Seed:     cfg.Seed,
		BPM:      sess.BPM(),
		GridSize: cfg.GridSize,
		Duration: elapsed.Seconds(),
		Metrics:  metrics.Collect(ms),
	}, steps)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run id: %s (%d steps)\n", id, len(steps))
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func analyzeSong(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	track, err := experiment.NewRegistry().Track(args[0], seconds(duration))
	if err != nil {
		return err
	}
	exp, err := experiment.New(experiment.Config{
		Session:  cfg,
		Track:    track,
		Duration: seconds(duration),
		Seed:     cfg.Seed,
		Logger:   slog.Default(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()

	fmt.Fprintf(out, "analyzing %s (%s mode)...\n", args[0], cfg.Mode)
	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	id, err := st.Save(storage.RunMetadata{
		ID:       runID,
		Song:     args[0],
		Mode:     cfg.Mode,
		Seed:     cfg.Seed,
		BPM:      exp.Session().BPM(),
		GridSize: cfg.GridSize,
		Duration: result.Duration,
		Metrics:  result.Metrics,
	}, result.Steps)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "completed in %v\n", time.Since(start))
	fmt.Fprintf(out, "run id: %s\n", id)
	fmt.Fprintf(out, "steps: %d\n", len(result.Steps))
	if len(result.Energy) > 1 {
		fmt.Fprintln(out, asciigraph.Plot(downsample(result.Energy, 100),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("band energy")))
	}
	fmt.Fprintln(out, "\nmetrics:")
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Fprintf(out, "  %s: %.3f\n", name, result.Metrics[name])
	}

	if svgPath != "" {
		if err := os.WriteFile(svgPath, []byte(export.HistoryToSVG(exp.Session().Grids(), 10)), 0644); err != nil {
			return err
		}
		fmt.Fprintf(out, "grid history written to %s\n", svgPath)
	}
	if plotPath != "" {
		points := make([]export.Point, len(result.Times))
		for i := range result.Times {
			points[i] = export.Point{X: result.Times[i], Y: result.Energy[i]}
		}
		markers := make([]float64, len(result.Steps))
		for i, ev := range result.Steps {
			markers[i] = ev.At.Seconds()
		}
		if err := os.WriteFile(plotPath, []byte(export.SeriesToSVG(points, markers, 800, 200, "#0088ff")), 0644); err != nil {
			return err
		}
		fmt.Fprintf(out, "energy plot written to %s\n", plotPath)
	}
	return nil
}

// downsample keeps at most n values by taking the peak of each bucket.
func downsample(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	out := make([]float64, n)
	per := float64(len(values)) / float64(n)
	for i := range out {
		lo, hi := int(float64(i)*per), int(float64(i+1)*per)
		for _, v := range values[lo:hi] {
			if v > out[i] {
				out[i] = v
			}
		}
	}
	return out
}

func plotWaveform(cmd *cobra.Command, args []string) error {
	track, err := experiment.NewRegistry().Track(args[0], seconds(duration))
	if err != nil {
		return err
	}
	mono := track.Mono
	if duration > 0 {
		if n := int(duration * float64(track.SampleRate)); n < len(mono) {
			mono = mono[:n]
		}
	}
	if len(mono) < 2 {
		return audio.ErrNoAudio
	}

	env := make([]float64, len(mono))
	for i, v := range mono {
		if v < 0 {
			v = -v
		}
		env[i] = v
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %v at %d Hz\n\n", args[0], track.Duration().Round(time.Millisecond), track.SampleRate)
	fmt.Fprintln(out, asciigraph.Plot(downsample(env, 120),
		asciigraph.Height(12),
		asciigraph.Width(120),
		asciigraph.Caption("amplitude envelope")))
	return nil
}

func detectNotes(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	track, err := experiment.NewRegistry().Track(args[0], seconds(duration))
	if err != nil {
		return err
	}
	exp, err := experiment.New(experiment.Config{
		Session:     cfg,
		Track:       track,
		Duration:    seconds(duration),
		Seed:        cfg.Seed,
		DetectNotes: true,
		Logger:      slog.Default(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(result.Notes) == 0 {
		fmt.Fprintln(out, "no notes detected")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tNOTE\tFREQ\tCENTS\tVEL")
	for _, n := range result.Notes {
		fmt.Fprintf(w, "%.2fs\t%s\t%.1fHz\t%+.0f\t%d\n",
			n.At.Seconds(),
			n.Note,
			n.Note.Frequency,
			n.Note.Cents,
			n.Velocity,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if midiPath == "" {
		return nil
	}
	f, err := os.Create(midiPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := storage.WriteNotesMIDI(f, result.Notes, cfg.Tempo.BPM); err != nil {
		return err
	}
	fmt.Fprintf(out, "midi written to %s\n", midiPath)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()
	summaries, err := automation.RunScenario(ctx, scenario, experiment.NewRegistry(), st, slog.Default())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scenario %s: %d runs\n\n", scenario.Name, len(summaries))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSONG\tSTEPS\tSTEPS/MIN\tJITTER")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f\t%.1fms\n",
			s.RunID,
			s.Song,
			s.Steps,
			s.Metrics["steps_per_min"],
			s.Metrics["jitter_ms"],
		)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptContext()
	defer cancel()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Song:      args[0],
		Preset:    preset,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
		Duration:  duration,
	}, experiment.NewRegistry(), slog.Default())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTEPS\tSTEPS/MIN\tJITTER\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%d\t%.1f\t%.1fms\n", r.ParamValue, r.Steps, r.StepsPerMin, r.Jitter)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSONG\tMODE\tTIME\tDURATION\tSTEPS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%d\n",
			run.ID,
			run.Song,
			run.Mode,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Steps,
		)
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	steps, err := st.LoadSteps(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(cmd.OutOrStdout(), *meta, steps)
}

func exportMIDI(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	steps, err := st.LoadSteps(args[0])
	if err != nil {
		return err
	}

	tempo := meta.BPM
	if tempo <= 0 {
		tempo = config.DefaultBPM
	}
	path := midiPath
	if path == "" {
		path = meta.ID + ".mid"
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := storage.WriteMIDI(f, steps, tempo); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d steps written to %s\n", len(steps), path)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tMODE\tBPM\tSENSITIVITY\tCOOLDOWN")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.2f\t%dms\n",
			name,
			cfg.Mode,
			cfg.Tempo.BPM,
			cfg.Peak.Sensitivity,
			cfg.Peak.CooldownMs,
		)
	}
	return w.Flush()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
