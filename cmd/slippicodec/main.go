// Command slippicodec is a thin CLI driver over the slippi parser, codec,
// shuffler, and analyzer packages: load a replay, optionally dump parsed
// JSON or analysis JSON, optionally transform (encode/decode) it, and
// save the result. This mirrors spec.md §6's fixed flag surface; batch
// directory-walking beyond this single-file driver is out of scope.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	slippi "github.com/slippicodec/go-slippi-codec"
	"github.com/slippicodec/go-slippi-codec/analyzer"
	"github.com/slippicodec/go-slippi-codec/codec"
	"github.com/slippicodec/go-slippi-codec/compressor"
	"github.com/slippicodec/go-slippi-codec/shuffle"
)

// Exit codes, per spec.md §6: 0 ok, otherwise one of this fixed set.
const (
	exitOK             = 0
	exitLoadError      = 2
	exitValidateError  = 3
	exitOutputError    = 4
	exitMissingInput   = -1
	exitBadOutputDir   = -2
)

var (
	flagInput      string
	flagJSONOut    string
	flagAnalysisOut string
	flagFullFrames bool
	flagTransform  bool
	flagOutPath    string
	flagDebug      int
	flagSkipSave   bool
	flagRawEnc     bool
	flagDumpGecko  bool
	flagConfigPath string
)

func main() {
	root := &cobra.Command{
		Use:   "slippicodec",
		Short: "Parse, encode/decode, and analyze Slippi replay files",
		RunE:  run,
	}

	flags := root.Flags()
	flags.StringVarP(&flagInput, "input", "i", "", "input .slp/.zlp file")
	flags.StringVarP(&flagJSONOut, "json", "j", "", "write parsed replay as JSON to path ('-' for stdout)")
	flags.StringVarP(&flagAnalysisOut, "analysis", "a", "", "write analysis as JSON to path ('-' for stdout)")
	flags.BoolVarP(&flagFullFrames, "full-frames", "f", false, "emit full per-frame JSON instead of the latest-frame delta")
	flags.BoolVarP(&flagTransform, "transform", "x", false, "encode or decode, direction inferred from the input's encoded flag")
	flags.StringVarP(&flagOutPath, "out", "X", "", "output path for a transform")
	flags.IntVarP(&flagDebug, "debug", "d", 0, "debug verbosity 0..9")
	flags.BoolVar(&flagSkipSave, "skip-save", false, "run the transform but don't write the result")
	flags.BoolVar(&flagRawEnc, "raw-enc", false, "treat the input as already raw-encoded (skip compressor sniffing)")
	flags.BoolVar(&flagDumpGecko, "dump-gecko", false, "when the input is an encoded container, save its gecko-codes blob instead of the decoded replay")
	flags.StringVar(&flagConfigPath, "config", "", "optional YAML config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(codeFor(err))
	}
}

// cliError tags an error with the exit code it should produce.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func fail(code int, err error) error { return &cliError{code: code, err: err} }

func codeFor(err error) int {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitLoadError
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagConfigPath)
	if err != nil {
		return fail(exitLoadError, err)
	}
	if !cmd.Flags().Changed("debug") {
		flagDebug = cfg.DebugLevel
	}
	if !cmd.Flags().Changed("skip-save") {
		flagSkipSave = cfg.SkipSave
	}
	if !cmd.Flags().Changed("raw-enc") {
		flagRawEnc = cfg.RawEnc
	}
	if !cmd.Flags().Changed("dump-gecko") {
		flagDumpGecko = cfg.DumpGecko
	}

	if flagInput == "" {
		return fail(exitMissingInput, errors.New("no input file given (-i)"))
	}

	raw, err := os.ReadFile(flagInput)
	if err != nil {
		return fail(exitMissingInput, errors.Wrap(err, "read input"))
	}

	wasCompressed := false
	if !flagRawEnc && compressor.Sniff(raw) {
		raw, err = compressor.Decompress(raw)
		if err != nil {
			return fail(exitLoadError, errors.Wrap(err, "decompress"))
		}
		wasCompressed = true
	}

	// A file this driver itself produced via -x encode is its own
	// shuffled, codec-transformed container, not a typed-event stream;
	// NewSlpGameFromBytes would desync trying to parse it as one. Detect
	// and branch before attempting the normal parse.
	if isEncodedContainer(raw) {
		return runDecode(raw, wasCompressed)
	}

	game, err := slippi.NewSlpGameFromBytes(raw, nil)
	if err != nil {
		return fail(exitLoadError, errors.Wrap(err, "parse replay"))
	}
	defer game.Close()

	gameInfo, err := game.GetGameInfo()
	if err != nil {
		return fail(exitLoadError, errors.Wrap(err, "read game info"))
	}
	frames, err := game.GetFrames()
	if err != nil {
		return fail(exitLoadError, errors.Wrap(err, "read frames"))
	}

	if flagDebug > 0 {
		fmt.Fprintf(os.Stderr, "loaded %s replay: %s, %d frames, %s\n",
			humanize.Bytes(uint64(len(raw))), gameInfo.Version.String(), len(frames),
			map[bool]string{true: "was compressed", false: "raw"}[wasCompressed])
	}

	if flagJSONOut != "" {
		if err := writeJSON(flagJSONOut, buildReplayJSON(gameInfo, frames, flagFullFrames)); err != nil {
			return fail(exitOutputError, err)
		}
	}

	if flagAnalysisOut != "" {
		p0, p1, ok := activePlayerIndices(gameInfo)
		if !ok {
			return fail(exitLoadError, errors.New("analysis requires exactly two active players"))
		}
		analysis := analyzer.Analyze(frames, defaultBlastzoneX, defaultBlastzoneY, p0, p1)
		if err := writeJSON(flagAnalysisOut, analysis); err != nil {
			return fail(exitOutputError, err)
		}
	}

	if flagTransform {
		gameEnd, gameEndErr := game.GetGameEnd()
		if gameEndErr != nil {
			return fail(exitValidateError, errors.New("cannot encode a replay with no GAME_END event"))
		}
		outBytes, err := encodeForSave(gameInfo, frames, gameEnd)
		if err != nil {
			return fail(exitValidateError, err)
		}
		if flagSkipSave {
			return nil
		}
		if err := saveTransformed(outBytes, flagInput, true); err != nil {
			return err
		}
	}

	return nil
}

// runDecode handles -x applied to this driver's own encoded container:
// unshuffle, reverse the codec transform, and write a genuine raw .slp
// via slippi.WriteReplay.
func runDecode(raw []byte, wasCompressed bool) error {
	gi, shuffled, gameEnd, encoderTag, err := readEncodedContainer(raw)
	if err != nil {
		return fail(exitLoadError, errors.Wrap(err, "read encoded container"))
	}

	frames, geckoCodes, err := shuffle.Unshuffle(shuffled)
	if err != nil {
		return fail(exitLoadError, errors.Wrap(err, "unshuffle"))
	}

	decoded, err := codec.Decode(gi.Version, frames, codec.Options{})
	if err != nil {
		return fail(exitValidateError, errors.Wrap(err, "codec decode"))
	}

	if flagDebug > 0 {
		fmt.Fprintf(os.Stderr, "loaded %s encoded replay: %s, %d frames, %s\n",
			humanize.Bytes(uint64(len(raw))), gi.Version.String(), len(decoded),
			map[bool]string{true: "was compressed", false: "raw"}[wasCompressed])
	}

	if flagJSONOut != "" {
		if err := writeJSON(flagJSONOut, buildReplayJSON(gi, decoded, flagFullFrames)); err != nil {
			return fail(exitOutputError, err)
		}
	}

	if flagAnalysisOut != "" {
		p0, p1, ok := activePlayerIndices(gi)
		if !ok {
			return fail(exitLoadError, errors.New("analysis requires exactly two active players"))
		}
		analysis := analyzer.Analyze(decoded, defaultBlastzoneX, defaultBlastzoneY, p0, p1)
		if err := writeJSON(flagAnalysisOut, analysis); err != nil {
			return fail(exitOutputError, err)
		}
	}

	if flagDumpGecko {
		if flagSkipSave {
			return nil
		}
		return saveTransformed(geckoCodes, flagInput, false)
	}

	if !flagTransform {
		return nil
	}

	out, err := slippi.WriteReplay(gi, decoded, gameEnd, 0, codec.DecodeGeckoList(encoderTag, geckoCodes))
	if err != nil {
		return fail(exitValidateError, errors.Wrap(err, "write replay"))
	}
	if flagSkipSave {
		return nil
	}
	return saveTransformed(out, flagInput, false)
}

// encodeForSave runs the codec (validating its transform), the shuffler,
// this driver's container framing, and compressor.Compress over frames,
// returning the compressed bytes ready to save.
func encodeForSave(gi *slippi.GameInfo, frames map[int32]slippi.FrameEntry, gameEnd *slippi.GameEndPayload) ([]byte, error) {
	opts := codec.Options{}
	result, err := codec.EncodeReplay(gi.Version, frames, true, opts)
	if err != nil {
		return nil, errors.Wrap(err, "codec encode")
	}

	// GeckoList events aren't captured by the parser (component C4 does
	// not model MESSAGE_SPLITTER reassembly), so the gecko-codes blob
	// carried through shuffle's split_msg bin is empty on this path.
	shuffled, err := shuffle.Shuffle(result.Frames, nil)
	if err != nil {
		return nil, errors.Wrap(err, "shuffle")
	}

	body, err := writeEncodedContainer(gi, shuffled, gameEnd, result.EncoderTag)
	if err != nil {
		return nil, errors.Wrap(err, "write encoded container")
	}

	compressed, err := compressor.Compress(body)
	if err != nil {
		return nil, errors.Wrap(err, "compress")
	}
	return compressed, nil
}

// saveTransformed resolves the output path (per spec.md's .slp/.zlp
// extension rule) and writes bytes there, refusing to overwrite.
func saveTransformed(bytes []byte, input string, encoded bool) error {
	outPath, err := resolveOutPath(flagOutPath, input, encoded)
	if err != nil {
		return fail(exitBadOutputDir, err)
	}
	if _, err := os.Stat(outPath); err == nil {
		return fail(exitOutputError, errors.Errorf("refusing to overwrite existing file %s", outPath))
	}
	if err := os.WriteFile(outPath, bytes, 0o644); err != nil {
		return fail(exitOutputError, errors.Wrap(err, "write output"))
	}
	return nil
}

// defaultBlastzoneX/Y approximate Battlefield's blastzones; a full
// per-stage table is out of spec.md's scope (stage data is read but not
// otherwise interpreted), so the analyzer uses one representative
// constant pair rather than branching on gameInfo.Stage.
const (
	defaultBlastzoneX float32 = 224
	defaultBlastzoneY float32 = 200
)

func activePlayerIndices(gi *slippi.GameInfo) (uint8, uint8, bool) {
	if len(gi.Players) != 2 {
		return 0, 0, false
	}
	return gi.Players[0].Index, gi.Players[1].Index, true
}

// resolveOutPath applies spec.md's extension rule: .zlp if the output is
// encoded, .slp otherwise, refusing a user-supplied path that disagrees.
func resolveOutPath(explicit, input string, encoded bool) (string, error) {
	wantExt := ".slp"
	if encoded {
		wantExt = ".zlp"
	}
	if explicit == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		return base + "-out" + wantExt, nil
	}
	if filepath.Ext(explicit) != wantExt {
		return "", errors.Errorf("output path %s must have extension %s", explicit, wantExt)
	}
	dir := filepath.Dir(explicit)
	if _, err := os.Stat(dir); err != nil {
		return "", errors.Wrapf(err, "output directory %s", dir)
	}
	return explicit, nil
}

func buildReplayJSON(gi *slippi.GameInfo, frames map[int32]slippi.FrameEntry, full bool) interface{} {
	if full {
		return struct {
			GameInfo *slippi.GameInfo            `json:"gameInfo"`
			Frames   map[int32]slippi.FrameEntry `json:"frames"`
		}{gi, frames}
	}
	latest := latestFrameNumber(frames)
	return struct {
		GameInfo    *slippi.GameInfo `json:"gameInfo"`
		LatestFrame int32            `json:"latestFrame"`
	}{gi, latest}
}

func latestFrameNumber(frames map[int32]slippi.FrameEntry) int32 {
	var max int32 = -1000
	for fn := range frames {
		if fn > max {
			max = fn
		}
	}
	return max
}

func writeJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal json")
	}
	if path == "-" {
		_, err := os.Stdout.Write(append(b, '\n'))
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("refusing to overwrite existing file %s", path)
	}
	return errors.Wrap(os.WriteFile(path, b, 0o644), "write json")
}
