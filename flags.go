package main

import "flag"

// Command-line flags that control optional rendering and runtime behavior.
var (
	// settingsPathFlag selects the TOML settings file loaded at startup and
	// rewritten on exit.
	settingsPathFlag = flag.String("settings", "settings.toml", "path to the viewer settings file")

	// portFlag overrides the TCP port the emulator command feed listens on.
	portFlag = flag.Int("port", 0, "command feed port (0 uses the settings file value)")

	// cpuEvaluatorFlag forces the CPU field evaluator even when OpenCL is
	// available.
	cpuEvaluatorFlag = flag.Bool("cpu", false, "evaluate the pressure field on the CPU instead of OpenCL")

	// directivityFlag selects the source directivity weighting.
	directivityFlag = flag.String("directivity", "isotropic", "directivity weighting: isotropic or cos")

	// debugFlag enables the FPS and synchronizer overlay.
	debugFlag = flag.Bool("debug", false, "show FPS and resource rebuild overlay")

	// enableAudioFlag toggles the audible probe of the field at the slice
	// center.
	enableAudioFlag = flag.Bool("enable-audio", false, "enable audio output from the slice-center field probe")
)
