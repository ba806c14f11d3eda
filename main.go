package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agrovision/leafcheck/api"
	"github.com/agrovision/leafcheck/constants"
	"github.com/agrovision/leafcheck/inference"
	"github.com/agrovision/leafcheck/logging"
)

func main() {
	modelPath := flag.String("model", constants.DefaultModelPath,
		"Directory holding the saved model, config.yaml and labels file")
	addr := flag.String("addr", constants.DefaultListenAddr, "Listen address")
	flag.Parse()

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	clf, err := inference.New(inference.Config{ModelPath: *modelPath}, logger)
	if err != nil {
		logger.Fatal("failed to load model", zap.String("path", *modelPath), zap.Error(err))
	}
	defer clf.Close()

	r := gin.Default()
	r.MaxMultipartMemory = constants.MaxUploadSize

	a := api.APIs{
		C:      clf,
		Logger: logger,
	}
	a.RegisterRoutes(r)

	server := &http.Server{
		Addr:    *addr,
		Handler: r,
	}

	logger.Info("inference service listening",
		zap.String("addr", *addr),
		zap.String("model", clf.Name()),
		zap.Int("labels", clf.LabelCount()))
	if err := serve(server, 5*time.Second, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func serve(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
