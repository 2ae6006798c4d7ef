//go:build js && wasm

package main

import (
	"bytes"
	"log/slog"
	"os"
	"syscall/js"

	rd "rawdemosaic/pkg/rawdemosaic"
)

var (
	lastOutput *rd.OutputImage
	lastTitle  string
)

func main() {
	js.Global().Set("demosaicRaw", js.FuncOf(demosaicRaw))
	js.Global().Set("renderPreview", js.FuncOf(renderPreview))
	select {} // block forever
}

func demosaicRaw(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("usage: demosaicRaw(fileBytes, options)")
	}

	jsBytes := args[0]
	fileBytes := make([]byte, jsBytes.Get("length").Int())
	js.CopyBytesToGo(fileBytes, jsBytes)

	var opts js.Value
	if len(args) >= 2 && args[1].Type() == js.TypeObject {
		opts = args[1]
	}

	cfg, err := rd.ProfileConfig(rd.Profile(stringOption(opts, "profile", string(rd.ProfileLinear))))
	if err != nil {
		return errorResult(err.Error())
	}

	frame, pattern, err := decodeFrame(fileBytes, intOption(opts, "width", 0))
	if err != nil {
		return errorResult("raw parse error: " + err.Error())
	}
	if pattern != "" {
		cfg.BayerPattern = pattern
	}
	if err := applyOptions(&cfg, opts); err != nil {
		return errorResult(err.Error())
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pipeline, err := rd.NewPipeline(cfg, logger)
	if err != nil {
		return errorResult(err.Error())
	}
	result, err := pipeline.Process(frame)
	if err != nil {
		return errorResult("demosaic error: " + err.Error())
	}

	var png bytes.Buffer
	if err := rd.EncodeImage(&png, result.Output, rd.FormatPNG); err != nil {
		return errorResult("encode error: " + err.Error())
	}
	lastOutput = &result.Output
	lastTitle = stringOption(opts, "title", frame.String())

	pngArray := js.Global().Get("Uint8Array").New(png.Len())
	js.CopyBytesToJS(pngArray, png.Bytes())
	return js.ValueOf(map[string]interface{}{
		"width":    result.Output.Width,
		"height":   result.Output.Height,
		"bitDepth": result.Output.BitDepth,
		"pattern":  string(cfg.BayerPattern),
		"strategy": cfg.Interpolation.String(),
		"backend":  rd.Backend,
		"png":      pngArray,
	})
}

// decodeFrame sniffs the container: .npy by magic, anything else as FITS.
// A FITS BAYERPAT card is returned as the pattern.
func decodeFrame(data []byte, width int) (rd.RawFrame, rd.BayerPattern, error) {
	if bytes.HasPrefix(data, []byte("\x93NUMPY")) {
		arr, err := rd.ReadNPY(bytes.NewReader(data))
		if err != nil {
			return rd.RawFrame{}, "", err
		}
		var meta *rd.FrameMetadata
		if width > 0 {
			meta = &rd.FrameMetadata{Width: width, Format: rd.FormatUnpacked16}
			if arr.ElemSize == 1 {
				meta.Format = rd.FormatPacked12
			}
		}
		frame, err := rd.FrameFromNPY(arr, meta)
		return frame, "", err
	}
	frame, meta, err := rd.ReadFitsFrameFromBytes(data)
	if err != nil {
		return rd.RawFrame{}, "", err
	}
	pattern, _ := meta.BayerPattern()
	return frame, pattern, nil
}

func applyOptions(cfg *rd.Config, opts js.Value) error {
	var err error
	if s := stringOption(opts, "bayer", ""); s != "" {
		if cfg.BayerPattern, err = rd.ParseBayerPattern(s); err != nil {
			return err
		}
	}
	if s := stringOption(opts, "strategy", ""); s != "" {
		if cfg.Interpolation, err = rd.ParseStrategy(s); err != nil {
			return err
		}
	}
	if s := stringOption(opts, "toneMap", ""); s != "" {
		if cfg.ToneMap, err = rd.ParseToneMapMode(s); err != nil {
			return err
		}
	}
	cfg.OutputBitDepth = intOption(opts, "bitDepth", cfg.OutputBitDepth)
	cfg.BlackLevel = intOption(opts, "blackLevel", cfg.BlackLevel)
	if opts.Type() == js.TypeObject && opts.Get("gamma").Type() == js.TypeNumber {
		cfg.Gamma = opts.Get("gamma").Float()
	}
	return cfg.Validate()
}

func renderPreview(this js.Value, args []js.Value) interface{} {
	if lastOutput == nil {
		return js.Null()
	}

	jpegBytes, err := rd.RenderPreviewBytes(*lastOutput, lastTitle)
	if err != nil {
		return js.Null()
	}

	uint8Array := js.Global().Get("Uint8Array").New(len(jpegBytes))
	js.CopyBytesToJS(uint8Array, jpegBytes)
	return uint8Array
}

func stringOption(opts js.Value, key, fallback string) string {
	if opts.Type() != js.TypeObject {
		return fallback
	}
	if v := opts.Get(key); v.Type() == js.TypeString {
		return v.String()
	}
	return fallback
}

func intOption(opts js.Value, key string, fallback int) int {
	if opts.Type() != js.TypeObject {
		return fallback
	}
	if v := opts.Get(key); v.Type() == js.TypeNumber {
		return v.Int()
	}
	return fallback
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{
		"error": msg,
	})
}
