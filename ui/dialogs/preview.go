// Package dialogs provides the exporter's secondary windows.
package dialogs

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"
	"sync"

	"raster-export/internal/apperr"
	"raster-export/internal/colormap"
	"raster-export/internal/config"
	"raster-export/internal/export"
	"raster-export/internal/preview"
	"raster-export/internal/render"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// DPIChoices are the export resolutions offered in the preview window.
var DPIChoices = []string{"250", "300", "400"}

// FormatChoices are the export encodings offered in the preview window.
var FormatChoices = []string{"PNG", "JPG"}

const (
	defaultDPIChoice    = "300"
	defaultFormatChoice = "PNG"
)

// Outcome is what the preview window reports when it closes.
type Outcome struct {
	Confirmed bool
	Path      string
	Params    render.Params
}

// PreviewWindow lets the user tune range and palette before exporting.
type PreviewWindow struct {
	win     fyne.Window
	session *preview.Session
	onClose func(Outcome)
	once    sync.Once

	image    *fynecanvas.Image
	status   *widget.Label
	minEntry *widget.Entry
	maxEntry *widget.Entry
	cmapSel  *widget.Select
	dpiSel   *widget.Select
	fmtSel   *widget.Select
	saveBtn  *widget.Button
	applyBtn *widget.Button
	resetBtn *widget.Button
}

// ShowPreview opens the preview for job. onClose runs once, after the
// export is written or the window is dismissed.
func ShowPreview(a fyne.App, job *export.Job, engine *render.Engine, cfg *config.Config,
	dpi int, format string, onClose func(Outcome)) (*PreviewWindow, error) {
	pw := &PreviewWindow{win: a.NewWindow("Preview - Adjust Settings"), onClose: onClose}

	sess, err := preview.NewSession(job.Grid, job.Stats, engine, cfg, colormap.AutoName, job, preview.Callbacks{
		OnFrame: pw.showFrame,
		OnError: pw.showError,
	})
	if err != nil {
		return nil, err
	}
	pw.session = sess

	pw.setupUI(dpi, format)
	pw.win.SetCloseIntercept(pw.cancel)
	pw.win.Resize(fyne.NewSize(1000, 760))
	pw.win.Show()
	return pw, nil
}

func (pw *PreviewWindow) setupUI(dpi int, format string) {
	banner := widget.NewLabel(pw.session.Stats().String())
	banner.Alignment = fyne.TextAlignCenter

	pw.image = fynecanvas.NewImageFromImage(image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	pw.image.FillMode = fynecanvas.ImageFillContain
	pw.image.SetMinSize(fyne.NewSize(950, 500))

	pw.status = widget.NewLabel("Generating preview...")

	p := pw.session.Params()
	pw.minEntry = widget.NewEntry()
	pw.minEntry.SetText(formatValue(p.VMin))
	pw.maxEntry = widget.NewEntry()
	pw.maxEntry.SetText(formatValue(p.VMax))
	pw.applyBtn = widget.NewButton("Apply", pw.applyRange)
	pw.resetBtn = widget.NewButton("Reset", pw.resetRange)

	labels := make([]string, 0, len(colormap.Choices()))
	for _, name := range colormap.Choices() {
		labels = append(labels, colormap.Label(name))
	}
	pw.cmapSel = widget.NewSelect(labels, pw.selectColormap)
	pw.cmapSel.SetSelected(colormap.AutoName)

	pw.dpiSel = widget.NewSelect(DPIChoices, func(string) { pw.applyExportChoice() })
	pw.dpiSel.SetSelected(choiceOr(DPIChoices, strconv.Itoa(dpi), defaultDPIChoice))
	pw.fmtSel = widget.NewSelect(FormatChoices, func(string) { pw.applyExportChoice() })
	pw.fmtSel.SetSelected(choiceOr(FormatChoices, strings.ToUpper(format), defaultFormatChoice))

	pw.saveBtn = widget.NewButton("Save & Export", pw.confirm)
	pw.saveBtn.Importance = widget.HighImportance
	cancelBtn := widget.NewButton("Cancel", pw.cancel)

	rangeRow := container.NewHBox(
		widget.NewLabel("Min:"), pw.minEntry,
		widget.NewLabel("Max:"), pw.maxEntry,
		pw.applyBtn, pw.resetBtn,
	)
	styleRow := container.NewHBox(
		widget.NewLabel("Colormap:"), pw.cmapSel,
		widget.NewLabel("DPI:"), pw.dpiSel,
		widget.NewLabel("Format:"), pw.fmtSel,
	)
	buttons := container.NewHBox(pw.saveBtn, cancelBtn)

	pw.win.SetContent(container.NewBorder(
		banner,
		container.NewVBox(rangeRow, styleRow, container.NewBorder(nil, nil, pw.status, buttons)),
		nil, nil,
		pw.image,
	))
}

// choiceOr returns want when it is one of options, def otherwise.
func choiceOr(options []string, want, def string) string {
	for _, o := range options {
		if o == want {
			return want
		}
	}
	return def
}

func formatValue(v float64) string { return fmt.Sprintf("%.4f", v) }

type rangeEditor interface {
	ApplyRange(vmin, vmax float64) error
	Params() render.Params
}

// submitRange applies the typed range. Rejected input leaves ed untouched
// and returns the texts of the range still in effect.
func submitRange(ed rangeEditor, minText, maxText string) (string, string, bool) {
	lo, errLo := strconv.ParseFloat(strings.TrimSpace(minText), 64)
	hi, errHi := strconv.ParseFloat(strings.TrimSpace(maxText), 64)
	if errLo == nil && errHi == nil && ed.ApplyRange(lo, hi) == nil {
		return minText, maxText, true
	}
	p := ed.Params()
	return formatValue(p.VMin), formatValue(p.VMax), false
}

// nameForLabel maps a menu label back to a palette name.
func nameForLabel(label string) string {
	for _, name := range colormap.Choices() {
		if colormap.Label(name) == label {
			return name
		}
	}
	return label
}

func (pw *PreviewWindow) showFrame(res *render.Result) {
	pw.image.Image = res.Image
	pw.image.Refresh()
	pw.status.SetText(fmt.Sprintf("Preview: %s, %.4f to %.4f", colormap.Label(res.Legend.Colormap), res.Legend.Min, res.Legend.Max))
}

func (pw *PreviewWindow) showError(err error) {
	pw.status.SetText("Preview failed")
	dialog.ShowInformation(errorTitle(err), err.Error(), pw.win)
}

func (pw *PreviewWindow) applyRange() {
	lo, hi, ok := submitRange(pw.session, pw.minEntry.Text, pw.maxEntry.Text)
	if !ok {
		pw.minEntry.SetText(lo)
		pw.maxEntry.SetText(hi)
		return
	}
	pw.status.SetText("Updating preview...")
}

func (pw *PreviewWindow) resetRange() {
	if err := pw.session.ResetRange(); err != nil {
		return
	}
	p := pw.session.Params()
	pw.minEntry.SetText(formatValue(p.VMin))
	pw.maxEntry.SetText(formatValue(p.VMax))
	pw.status.SetText("Updating preview...")
}

func (pw *PreviewWindow) selectColormap(label string) {
	if pw.session == nil {
		return
	}
	if err := pw.session.SetColormap(nameForLabel(label)); err != nil {
		return
	}
	pw.status.SetText("Updating preview...")
}

func (pw *PreviewWindow) applyExportChoice() {
	if pw.dpiSel == nil || pw.fmtSel == nil || pw.dpiSel.Selected == "" || pw.fmtSel.Selected == "" {
		return
	}
	dpi, err := strconv.Atoi(pw.dpiSel.Selected)
	if err != nil {
		return
	}
	_ = pw.session.SetExport(dpi, strings.ToLower(pw.fmtSel.Selected))
}

func (pw *PreviewWindow) setControlsEnabled(on bool) {
	for _, w := range []fyne.Disableable{pw.saveBtn, pw.applyBtn, pw.resetBtn, pw.cmapSel, pw.dpiSel, pw.fmtSel} {
		if on {
			w.Enable()
		} else {
			w.Disable()
		}
	}
}

func (pw *PreviewWindow) confirm() {
	pw.setControlsEnabled(false)
	pw.status.SetText("Exporting...")

	go func() {
		path, err := pw.session.Confirm(context.Background())
		if err != nil {
			pw.status.SetText("Export failed")
			pw.setControlsEnabled(true)
			dialog.ShowInformation(errorTitle(err), err.Error(), pw.win)
			return
		}
		var params render.Params
		if f := pw.session.Frame(); f != nil {
			params = f.Params
		}
		params.DPI, params.Format = pw.session.ExportSettings()
		pw.finish(Outcome{Confirmed: true, Path: path, Params: params})
	}()
}

func (pw *PreviewWindow) cancel() {
	pw.session.Cancel()
	pw.finish(Outcome{})
}

func (pw *PreviewWindow) finish(o Outcome) {
	pw.once.Do(func() {
		pw.win.Close()
		if pw.onClose != nil {
			pw.onClose(o)
		}
	})
}

// SuccessMessage is the text shown after a completed export.
func SuccessMessage(o Outcome) string {
	return fmt.Sprintf("Image exported successfully!\n\nResolution: %d DPI\nFormat: %s\nColormap: %s",
		o.Params.DPI, strings.ToUpper(o.Params.Format), o.Params.Colormap)
}

func errorTitle(err error) string { return apperr.Title(err) }
