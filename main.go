package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	flag.Parse()

	settings, err := loadSettings(*settingsPathFlag)
	if err != nil {
		log.Fatalf("settings: %v", err)
	}
	if *portFlag != 0 {
		settings.Port = *portFlag
	}

	dir, ok := directivityByName(*directivityFlag)
	if !ok {
		log.Fatalf("unknown directivity %q (want isotropic or cos)", *directivityFlag)
	}

	var eval fieldEvaluator
	backendName := "cpu"
	if !*cpuEvaluatorFlag {
		if clEval, clErr := newOpenCLFieldEvaluator(dir); clErr != nil {
			log.Printf("OpenCL unavailable, using CPU evaluator: %v", clErr)
		} else {
			log.Printf("OpenCL field evaluator enabled (device: %s)", clEval.DeviceName())
			eval = clEval
			backendName = "opencl:" + clEval.DeviceName()
		}
	}
	if eval == nil {
		eval = newCPUFieldEvaluator(dir)
	}
	defer eval.Close()

	feed, err := newFeedServer(settings.Port)
	if err != nil {
		log.Fatalf("command feed: %v", err)
	}
	defer feed.Close()
	log.Printf("listening for device link on 127.0.0.1:%d", settings.Port)

	g := newGame(settings, eval, feed, dir, backendName)

	ebiten.SetWindowSize(settings.WindowWidth, settings.WindowHeight)
	ebiten.SetWindowTitle("AUTD Emulator")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil {
		log.Fatalf("run: %v", err)
	}

	if err := saveSettings(*settingsPathFlag, g.settings); err != nil {
		log.Printf("saving settings: %v", err)
	}
}
