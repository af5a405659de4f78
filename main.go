// Package main provides the entry point for the Raster Export application.
package main

import (
	"flag"
	"log"

	"raster-export/internal/app"
	"raster-export/internal/config"
	"raster-export/internal/version"
	"raster-export/ui/mainwindow"
	"raster-export/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
)

const appTitle = "Raster Export"

func main() {
	configPath := flag.String("config", "", "Tuning file (.json)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.Version)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
	}

	appPrefs := prefs.Load()
	appState := app.NewState()
	appState.SetAppearance(app.ParseAppearance(appPrefs.String(prefs.KeyAppearance, "dark")))

	a := fyneapp.NewWithID("org.rasterexport.app")
	a.Settings().SetTheme(&app.ExporterTheme{})

	win := mainwindow.New(a, appState, appPrefs, cfg)
	win.SetMaster()
	win.ShowAndRun()

	if err := appPrefs.Save(); err != nil {
		log.Printf("Failed to save preferences: %v", err)
	}
}
