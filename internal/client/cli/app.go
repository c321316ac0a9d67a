package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/pontos/internal/client/api"
	"github.com/dmitrijs2005/pontos/internal/client/config"
	"github.com/dmitrijs2005/pontos/internal/client/transfer"
	"github.com/dmitrijs2005/pontos/internal/client/uploader"
	"github.com/dmitrijs2005/pontos/internal/common"
	"github.com/dmitrijs2005/pontos/internal/logging"
)

type App struct {
	config   *config.Config
	reader   *bufio.Reader
	out      io.Writer
	logger   logging.Logger
	getenv   func(string) string
	ping     func(ctx context.Context, addr string) error
	transfer uploader.Transferer
}

func NewApp(cfg *config.Config, in io.Reader, out io.Writer) *App {
	return &App{
		config:   cfg,
		reader:   bufio.NewReader(in),
		out:      out,
		logger:   logging.New(os.Stderr, "text", cfg.LogLevel),
		getenv:   os.Getenv,
		ping:     api.Ping,
		transfer: transfer.New(),
	}
}

// Run uploads one file and files it for review.
func (a *App) Run(ctx context.Context, args []string) error {
	o, err := parseOptions(args)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if o.PontoID == "" || o.FilePath == "" {
		return fmt.Errorf("%w: -song and -file are required", common.ErrValidation)
	}
	if o.Interpreter == "" {
		if o.Interpreter, err = GetSimpleText(a.reader, "Interpreter name", a.out); err != nil {
			return err
		}
	}

	token, err := resolveToken(o, a.getenv, func() (string, error) { return GetToken(a.out) })
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("%w: no access token", common.ErrorUnauthorized)
	}

	if a.config.HealthAddrGRPC != "" {
		pctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
		if err := a.ping(pctx, a.config.HealthAddrGRPC); err != nil {
			a.logger.Warn(ctx, "health check failed, trying anyway", "error", err)
		}
		cancel()
	}

	req := uploader.Request{
		PontoID:         o.PontoID,
		InterpreterName: o.Interpreter,
		FilePath:        o.FilePath,
		MimeType:        o.MimeType,
		ConsentGranted:  o.Consent,
	}
	if o.Author != "" {
		req.AuthorName = &o.Author
	}
	if o.DurationMs > 0 {
		req.DurationMs = &o.DurationMs
	}

	backend := api.New(a.config.APIBaseURL, token, a.config.RequestTimeout)
	ctrl := uploader.NewController(req, backend, a.transfer,
		uploader.WithLogger(a.logger),
		uploader.WithTimeouts(uploader.Timeouts{
			Init:     a.config.RequestTimeout,
			Upload:   a.config.TransferTimeout,
			Finalize: 2 * a.config.RequestTimeout,
		}))
	ctrl.Subscribe(a.progressPrinter())

	res, err := ctrl.Start(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "Upload failed:", uploader.Describe(err))
		return err
	}

	fmt.Fprintf(a.out, "Submitted for review: submission %s, audio %s (%s/%s)\n",
		res.SubmissionID, res.AssetID, res.Bucket, res.Path)
	return nil
}

// progressPrinter prints phase changes and every further 10%.
func (a *App) progressPrinter() func(uploader.Snapshot) {
	var phase uploader.Phase
	step := -1
	return func(s uploader.Snapshot) {
		cur := int(s.Progress * 10)
		if s.Phase == phase && cur == step {
			return
		}
		phase, step = s.Phase, cur
		if s.Phase == uploader.PhaseError {
			return
		}
		fmt.Fprintf(a.out, "[%s] %3.0f%%\n", s.Phase, s.Progress*100)
	}
}
