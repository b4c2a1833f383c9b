package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/lumberjack"

	"niftibridge/pkg/bridge"
	"niftibridge/pkg/config"
)

const usage = `Usage:
  niftibridge [-config file] export -scan scan.nii.gz [-out dir]
  niftibridge [-config file] import -scan reference.nii.gz -annotations dir [-out segmentation.nii.gz]
  niftibridge [-config file] init-config
`

func main() {
	configPath := flag.String("config", "niftibridge.yaml", "YAML configuration file")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if flag.Arg(0) == "init-config" {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	setLogger(cfg)

	converter, err := bridge.NewConverter(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	switch flag.Arg(0) {
	case "export":
		runExport(converter, flag.Args()[1:])
	case "import":
		runImport(converter, flag.Args()[1:])
	default:
		flag.Usage()
		os.Exit(1)
	}
}

// setLogger sends log output to a rotating file when one is configured.
func setLogger(cfg *config.Config) {
	if cfg.Logging.File == "" {
		return
	}
	log.SetOutput(&lumberjack.Logger{
		Filename: cfg.Logging.File,
		MaxSize:  cfg.Logging.MaxSizeMB, // megabytes
		MaxAge:   cfg.Logging.MaxAgeDays, // days
	})
	fmt.Printf("Sending log messages to: %s\n", cfg.Logging.File)
}

func runExport(converter *bridge.Converter, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	scan := fs.String("scan", "", "NIfTI scan to convert (.nii.gz)")
	out := fs.String("out", "", "Output folder (default: <scan>_jpg)")
	fs.Parse(args)

	if *scan == "" {
		fs.Usage()
		os.Exit(1)
	}

	start := time.Now()
	res, err := converter.ConvertVolumeToImages(*scan, *out)
	if err != nil {
		log.Fatal(bridge.Message(err))
	}

	fmt.Printf("NIfTI to JPG conversion complete in %.2f seconds.\n", time.Since(start).Seconds())
	fmt.Printf("Output: %s\n", res.OutputDir)
	fmt.Printf("- %d slices, %s\n", res.SliceCount, humanize.Bytes(uint64(res.Bytes)))
	if len(res.Degenerate) > 0 {
		fmt.Printf("- %d constant slices: %v\n", len(res.Degenerate), res.Degenerate)
	}
}

func runImport(converter *bridge.Converter, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	scan := fs.String("scan", "", "Reference NIfTI scan (.nii.gz)")
	annotations := fs.String("annotations", "", "Folder containing annotation JSON files")
	out := fs.String("out", "", "Output label volume (default: segmentation.nii.gz next to the scan)")
	fs.Parse(args)

	sel := bridge.Selection{ScanPath: *scan, AnnotationDir: *annotations}

	start := time.Now()
	res, err := converter.ConvertAnnotationsToVolume(sel.AnnotationDir, sel.ScanPath, *out)
	if err != nil {
		log.Fatal(bridge.Message(err))
	}

	size := "unknown size"
	if info, err := os.Stat(res.OutputPath); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}

	fmt.Printf("JSON to NIfTI conversion complete in %.2f seconds.\n", time.Since(start).Seconds())
	fmt.Printf("Output: %s (%s)\n", res.OutputPath, size)
	fmt.Printf("- volume %v, %s labeled voxels\n", res.Shape, humanize.Comma(int64(res.LabeledVoxels)))
	fmt.Printf("- %d of %d annotation files imported\n", res.Imported(), len(res.Files))
	for _, f := range res.Skipped() {
		fmt.Printf("  skipped %s: %v\n", filepath.Base(f.Path), f.Reason)
	}
}
