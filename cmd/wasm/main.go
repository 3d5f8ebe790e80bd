//go:build js && wasm

// Command wasm exposes the seeing estimator to JavaScript. It registers
// measureSeeing, renderOverlay and renderHistogram on the global object.
package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"syscall/js"

	"seeingmetrics/internal/diagnostics"
	"seeingmetrics/internal/report"
	"seeingmetrics/pkg/fitsimage"
	"seeingmetrics/pkg/seeing"
)

var last struct {
	result *seeing.Result
	width  int
	height int
}

func main() {
	js.Global().Set("measureSeeing", js.FuncOf(measureSeeing))
	js.Global().Set("renderOverlay", js.FuncOf(renderOverlay))
	js.Global().Set("renderHistogram", js.FuncOf(renderHistogram))
	select {} // block forever
}

// measureSeeing(fileBytes, options) returns the report of the image as a
// plain object. options may set fwhm, threshold, halfWidth, pixelScale and
// debayer.
func measureSeeing(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorResult("usage: measureSeeing(fileBytes, options)")
	}

	data := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(data, args[0])

	params := seeing.NewParams()
	pixelScale := 0.0
	debayer := false
	if len(args) >= 2 && args[1].Type() == js.TypeObject {
		opts := args[1]
		params.Detector.FWHM = floatOption(opts, "fwhm", params.Detector.FWHM)
		params.Detector.Threshold = floatOption(opts, "threshold", params.Detector.Threshold)
		params.CutoutHalfWidth = int(floatOption(opts, "halfWidth", float64(params.CutoutHalfWidth)))
		pixelScale = floatOption(opts, "pixelScale", 0)
		if v := opts.Get("debayer"); v.Type() == js.TypeBoolean {
			debayer = v.Bool()
		}
	}

	frame, err := fitsimage.LoadBytes(data)
	if err != nil {
		return errorResult("image decode error: " + err.Error())
	}
	img := frame.Image
	if debayer {
		img = fitsimage.DebayerRGGB(img)
	}
	if pixelScale == 0 {
		pixelScale, _ = frame.Metadata.PixelScale()
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	estimator, err := seeing.NewEstimator(params, seeing.WithLogger(logger))
	if err != nil {
		return errorResult(err.Error())
	}
	res, runErr := estimator.Estimate(context.Background(), img, nil)
	if res == nil {
		return errorResult(runErr.Error())
	}
	last.result, last.width, last.height = res, img.Width, img.Height

	encoded, err := json.Marshal(report.New("image", img.Width, img.Height, res, runErr, pixelScale))
	if err != nil {
		return errorResult(err.Error())
	}
	return js.Global().Get("JSON").Call("parse", string(encoded))
}

func renderOverlay(this js.Value, args []js.Value) any {
	if last.result == nil || last.result.Field == nil {
		return js.Null()
	}
	jpegBytes, err := diagnostics.FieldOverlayJPEG(last.result.Field, last.width, last.height)
	if err != nil {
		return js.Null()
	}
	return toUint8Array(jpegBytes)
}

func renderHistogram(this js.Value, args []js.Value) any {
	if last.result == nil {
		return js.Null()
	}
	pngBytes, err := diagnostics.HistogramPNG(last.result.FWHMs(), last.result.Seeing)
	if err != nil {
		return js.Null()
	}
	return toUint8Array(pngBytes)
}

func toUint8Array(b []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(b))
	js.CopyBytesToJS(arr, b)
	return arr
}

func floatOption(opts js.Value, name string, def float64) float64 {
	if v := opts.Get(name); v.Type() == js.TypeNumber {
		return v.Float()
	}
	return def
}

func errorResult(msg string) any {
	return js.ValueOf(map[string]any{
		"error": msg,
	})
}
