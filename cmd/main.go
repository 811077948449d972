package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"photoconv/batch"
	"photoconv/config"
	"photoconv/contracts"
	"photoconv/converter"
	"photoconv/decoder"
	"photoconv/dispatcher"
	"photoconv/encoder"
	"photoconv/files_manager"
	"photoconv/logging"
	"photoconv/metadata"
)

// settleDelay is how long a new file in watch mode must stay unchanged.
const settleDelay = 500 * time.Millisecond

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := config.DefaultConfig()
	if err := config.ParseFlags(&cfg, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "[ERROR]: %v\n", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR]: %v\n", err)
		return 2
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR]: %v\n", err)
		return 1
	}
	defer log.Close()

	if cfg.ServeWorker {
		return serveWorker(&cfg, log)
	}

	if err := files_manager.CheckProvidedDirs(cfg.InputDir, cfg.OutputDir); err != nil {
		log.Error("%v", err)
		return 1
	}

	disp, err := buildDispatcher(&cfg, log)
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	defer disp.Close()

	writer, err := files_manager.NewOutputWriter(cfg.OutputDir)
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	orch := batch.New(disp, batch.NewLogReporter(log, writer), log)
	req := cfg.Request()

	startTime := time.Now()
	paths, size, err := files_manager.GetImagePaths(cfg.InputDir)
	if err != nil {
		log.Error("Error scanning input directory: %v", err)
		return 1
	}
	files, loadErrs := files_manager.LoadInputFiles(paths)
	for _, e := range loadErrs {
		log.Warn("%v", e)
	}
	log.Info("Found %d images (%d bytes) in %s, converting to %s", len(files), size, cfg.InputDir, req.TargetFormat)

	job := orch.Run(files, req)
	log.Info("Total time taken: %s", time.Since(startTime).Round(time.Millisecond))
	if n := disp.Fallbacks(); n > 0 {
		log.Info("%d HEIC files fell back to local conversion", n)
	}

	if cfg.Watch {
		return watch(&cfg, log, orch, req)
	}
	if len(job.Errors) > 0 || len(loadErrs) > 0 {
		return 1
	}
	return 0
}

func buildDispatcher(cfg *config.Config, log *logging.Logger) (*dispatcher.Dispatcher, error) {
	enc := encoder.New(encoder.Options{
		ThumbnailEdge:    cfg.Thumbnail.MaxEdge,
		ThumbnailQuality: cfg.Thumbnail.Quality,
	})
	localDec := decoder.NewFull(log)
	local := converter.New(localDec, enc, log)
	extractor := metadata.NewExtractor(localDec, log)

	var worker dispatcher.Worker
	switch cfg.Worker.Mode {
	case config.WorkerInProcess:
		workerConv := converter.New(decoder.NewWorker(log), enc, log)
		worker = dispatcher.NewInProcessWorker(dispatcher.NewConvertHandler(workerConv, log), log)
	case config.WorkerProcess:
		args := []string{
			"-thumb-edge", strconv.Itoa(cfg.Thumbnail.MaxEdge),
			"-thumb-quality", strconv.Itoa(cfg.Thumbnail.Quality),
			"-color", string(config.ColorNever),
		}
		if cfg.Verbose {
			args = append(args, "-v")
		}
		pw, err := dispatcher.StartProcessWorker(cfg.Worker.Command, args, log)
		if err != nil {
			return nil, err
		}
		worker = pw
	}
	log.Debug("worker mode: %s", cfg.Worker.Mode)
	return dispatcher.New(worker, local, extractor, log), nil
}

func serveWorker(cfg *config.Config, log *logging.Logger) int {
	enc := encoder.New(encoder.Options{
		ThumbnailEdge:    cfg.Thumbnail.MaxEdge,
		ThumbnailQuality: cfg.Thumbnail.Quality,
	})
	conv := converter.New(decoder.NewWorker(log), enc, log)
	if err := dispatcher.Serve(os.Stdin, os.Stdout, dispatcher.NewConvertHandler(conv, log), log); err != nil {
		log.Error("worker: %v", err)
		return 1
	}
	return 0
}

// watch converts every image that lands in the input directory as a batch
// of one until interrupted.
func watch(cfg *config.Config, log *logging.Logger, orch *batch.Orchestrator, req contracts.ConversionRequest) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := files_manager.NewWatcher(cfg.InputDir, settleDelay, log)
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	log.Info("Watching %s for new images (Ctrl+C to stop)", cfg.InputDir)

	err = w.Run(ctx, func(path string) {
		f, err := files_manager.LoadInputFile(path)
		if err != nil {
			log.Warn("%v", err)
			return
		}
		orch.Run([]contracts.InputFile{f}, req)
	})
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	return 0
}
