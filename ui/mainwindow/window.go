// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"log"
	"path/filepath"
	"strconv"

	"raster-export/internal/app"
	"raster-export/internal/apperr"
	"raster-export/internal/config"
	"raster-export/internal/export"
	"raster-export/internal/raster"
	"raster-export/internal/version"
	"raster-export/ui/dialogs"
	"raster-export/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app      fyne.App
	state    *app.State
	prefs    *prefs.Prefs
	cfg      *config.Config
	pipeline *export.Pipeline

	rasterEntry *widget.Entry
	vectorEntry *widget.Entry
	outputEntry *widget.Entry
	exportBtn   *widget.Button
	progress    *widget.ProgressBarInfinite
	statusBar   *widget.Label
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs, cfg *config.Config) *MainWindow {
	win := fyneApp.NewWindow("Raster Export " + version.Version)

	mw := &MainWindow{
		Window:   win,
		app:      fyneApp,
		state:    state,
		prefs:    p,
		cfg:      cfg,
		pipeline: export.New(cfg),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.rasterEntry = widget.NewEntry()
	mw.rasterEntry.SetPlaceHolder("Select a single-band raster...")
	mw.rasterEntry.OnChanged = func(s string) {
		if err := mw.state.SetRaster(s); err != nil && s != "" {
			mw.updateStatus("Unsupported raster format")
		}
	}

	mw.vectorEntry = widget.NewEntry()
	mw.vectorEntry.SetPlaceHolder("Optional boundary shapefile (auto-detect region when empty)")
	mw.vectorEntry.OnChanged = func(s string) { _ = mw.state.SetVector(s) }

	mw.outputEntry = widget.NewEntry()
	mw.outputEntry.SetPlaceHolder("Output image")
	mw.outputEntry.OnChanged = mw.state.SetOutput

	rasterBtn := widget.NewButton("Browse...", mw.onBrowseRaster)
	vectorBtn := widget.NewButton("Browse...", mw.onBrowseVector)
	clearBtn := widget.NewButton("Clear", func() { mw.vectorEntry.SetText("") })
	outputBtn := widget.NewButton("Browse...", mw.onBrowseOutput)

	form := widget.NewForm(
		widget.NewFormItem("Raster", container.NewBorder(nil, nil, nil, rasterBtn, mw.rasterEntry)),
		widget.NewFormItem("Boundary", container.NewBorder(nil, nil, nil, container.NewHBox(vectorBtn, clearBtn), mw.vectorEntry)),
		widget.NewFormItem("Output", container.NewBorder(nil, nil, nil, outputBtn, mw.outputEntry)),
	)

	mw.exportBtn = widget.NewButton("Export", mw.onExport)
	mw.exportBtn.Importance = widget.HighImportance
	mw.exportBtn.Disable()

	mw.progress = widget.NewProgressBarInfinite()
	mw.progress.Stop()
	mw.progress.Hide()

	appearance := widget.NewRadioGroup([]string{"dark", "light"}, func(s string) {
		mw.state.SetAppearance(app.ParseAppearance(s))
	})
	appearance.Horizontal = true
	appearance.SetSelected(app.CurrentAppearance().String())

	mw.statusBar = widget.NewLabel("Ready")

	content := container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		container.NewVBox(
			form,
			mw.exportBtn,
			mw.progress,
			container.NewHBox(widget.NewLabel("Appearance:"), appearance),
		),
	)

	mw.SetContent(content)
	mw.Resize(fyne.NewSize(720, 320))
}

func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Raster...", mw.onBrowseRaster),
		fyne.NewMenuItem("Open Boundary...", mw.onBrowseVector),
		fyne.NewMenuItem("Export...", mw.onExport),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, helpMenu))
}

// setupEventHandlers wires state events to widgets.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventInputsChanged, func(interface{}) {
		mw.refreshExportButton()
	})

	mw.state.On(app.EventBusyChanged, func(data interface{}) {
		if data.(bool) {
			mw.progress.Show()
			mw.progress.Start()
			mw.updateStatus("Processing...")
		} else {
			mw.progress.Stop()
			mw.progress.Hide()
		}
		mw.refreshExportButton()
	})

	mw.state.On(app.EventJobPrepared, func(data interface{}) {
		job := data.(*export.Job)
		mw.updateStatus(fmt.Sprintf("%dx%d cells, %d valid | %s",
			job.Grid.Cols, job.Grid.Rows, job.Grid.ValidCount(), job.Stats.String()))
	})

	mw.state.On(app.EventExportFailed, func(data interface{}) {
		err := data.(error)
		log.Printf("export failed: %v", err)
		mw.updateStatus("Export failed")
		dialog.ShowInformation(apperr.Title(err), err.Error(), mw.Window)
	})

	mw.state.On(app.EventExportCancelled, func(interface{}) {
		mw.updateStatus("Export cancelled")
	})

	mw.state.On(app.EventExportComplete, func(data interface{}) {
		mw.updateStatus(fmt.Sprintf("Saved %s", data.(string)))
	})

	mw.state.On(app.EventAppearanceChanged, func(data interface{}) {
		mw.prefs.SetString(prefs.KeyAppearance, data.(app.Appearance).String())
		mw.app.Settings().SetTheme(&app.ExporterTheme{})
	})
}

func (mw *MainWindow) refreshExportButton() {
	if mw.state.CanExport() {
		mw.exportBtn.Enable()
	} else {
		mw.exportBtn.Disable()
	}
}

func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir, "")
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir stores the directory of filePath for the next file dialog.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
	if err := mw.prefs.Save(); err != nil {
		log.Printf("failed to save preferences: %v", err)
	}
}

func (mw *MainWindow) openFile(exts []string, onPick func(path string)) {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()
		mw.saveLastDir(path)
		onPick(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(exts))
	if dir := mw.getLastDir(); dir != nil {
		fd.SetLocation(dir)
	}
	fd.Show()
}

func (mw *MainWindow) onBrowseRaster() {
	mw.openFile(raster.SupportedFormats(), func(path string) {
		mw.rasterEntry.SetText(path)
		if mw.outputEntry.Text == "" {
			base := path[:len(path)-len(filepath.Ext(path))]
			mw.outputEntry.SetText(base + "_export.png")
		}
	})
}

func (mw *MainWindow) onBrowseVector() {
	mw.openFile([]string{".shp"}, mw.vectorEntry.SetText)
}

func (mw *MainWindow) onBrowseOutput() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()
		mw.saveLastDir(path)
		mw.outputEntry.SetText(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg"}))
	fd.SetFileName("export.png")
	if dir := mw.getLastDir(); dir != nil {
		fd.SetLocation(dir)
	}
	fd.Show()
}

// onExport prepares the job in the background, then opens the preview.
func (mw *MainWindow) onExport() {
	if !mw.state.CanExport() {
		return
	}
	dpi := mw.prefs.Int(prefs.KeyExportDPI, mw.cfg.ExportDPI)
	format := mw.prefs.String(prefs.KeyFormat, mw.cfg.Format)

	go func() {
		job, err := mw.state.Prepare(mw.pipeline)
		if err != nil {
			return
		}

		_, err = dialogs.ShowPreview(mw.app, job, mw.pipeline.Engine(), mw.cfg, dpi, format, func(o dialogs.Outcome) {
			if !o.Confirmed {
				mw.state.Cancel()
				return
			}
			mw.prefs.SetString(prefs.KeyFormat, o.Params.Format)
			mw.prefs.SetInt(prefs.KeyExportDPI, o.Params.DPI)
			if err := mw.prefs.Save(); err != nil {
				log.Printf("failed to save preferences: %v", err)
			}
			mw.state.Complete(o.Path)
			dialog.ShowInformation("Success", dialogs.SuccessMessage(o), mw.Window)
		})
		if err != nil {
			mw.state.Fail(err)
		}
	}()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Raster Export",
		"Raster Export "+version.String()+"\n\nExtracts a region from a single-band raster\n"+
			"and exports it as a colour-mapped image.\n\nDefault DPI: "+strconv.Itoa(mw.cfg.ExportDPI),
		mw.Window)
}
