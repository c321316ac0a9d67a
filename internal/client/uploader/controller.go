// Package uploader drives one audio submission from a local file to a
// pending review record: probe, init, transfer, finalize, submit.
package uploader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/pontos/internal/client/models"
	"github.com/dmitrijs2005/pontos/internal/client/probe"
	"github.com/dmitrijs2005/pontos/internal/client/transfer"
	"github.com/dmitrijs2005/pontos/internal/common"
	"github.com/dmitrijs2005/pontos/internal/logging"
	"golang.org/x/sync/singleflight"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseInit       Phase = "init"
	PhaseUpload     Phase = "upload"
	PhasePostUpload Phase = "post_upload"
	PhaseDone       Phase = "done"
	PhaseError      Phase = "error"
)

// Progress checkpoints. Transfer bytes are mapped onto
// [ProgressUploadStart, ProgressPostUpload].
const (
	ProgressInitDone    = 0.1
	ProgressUploadStart = 0.2
	ProgressPostUpload  = 0.85
	ProgressDone        = 1.0
)

// Transferer sends the file bytes to the signed destination.
type Transferer interface {
	UploadBytes(ctx context.Context, up models.SignedUpload, path, mimeType string, onProgress transfer.Progress) error
}

// Request is what the user picked and typed.
type Request struct {
	PontoID         string
	InterpreterName string
	FilePath        string
	// MimeType overrides the sniffed type when set.
	MimeType       string
	AuthorName     *string
	ConsentGranted bool
	DurationMs     *int64
}

type Result struct {
	AssetID      string
	Bucket       string
	Path         string
	SubmissionID string
}

// Snapshot is the observable controller state.
type Snapshot struct {
	Phase        Phase
	Progress     float64
	ErrorMessage string
	Err          error
	Result       *Result
}

type Timeouts struct {
	Init     time.Duration
	Upload   time.Duration
	Finalize time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{Init: 30 * time.Second, Upload: 5 * time.Minute, Finalize: 60 * time.Second}
}

type Option func(*Controller)

func WithLogger(l logging.Logger) Option { return func(c *Controller) { c.log = l } }

func WithTimeouts(t Timeouts) Option { return func(c *Controller) { c.timeouts = t } }

func WithProber(p func(string) probe.Info) Option { return func(c *Controller) { c.probe = p } }

// Controller runs at most one attempt at a time. It keeps state in
// memory only and is not safe to copy.
type Controller struct {
	req          Request
	backend      Backend
	transfer     Transferer
	materializer *Materializer
	probe        func(string) probe.Info
	timeouts     Timeouts
	log          logging.Logger

	inflight singleflight.Group

	mu        sync.Mutex
	phase     Phase
	progress  float64
	err       error
	result    *Result
	observers []func(Snapshot)
}

func NewController(req Request, b Backend, t Transferer, opts ...Option) *Controller {
	c := &Controller{
		req:          req,
		backend:      b,
		transfer:     t,
		materializer: NewMaterializer(b),
		probe:        probe.Probe,
		timeouts:     DefaultTimeouts(),
		log:          logging.Nop{},
		phase:        PhaseIdle,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("component", "uploader", "ponto_id", req.PontoID)
	return c
}

// Subscribe registers fn for every state change. fn runs on the attempt's
// goroutine and must not call back into the controller's Start.
func (c *Controller) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:        c.phase,
		Progress:     c.progress,
		ErrorMessage: Describe(c.err),
		Err:          c.err,
		Result:       c.result,
	}
}

// Start runs the pipeline. Concurrent calls share one attempt and get the
// same result. After success the cached result is returned; after an
// error a new attempt starts from init with a fresh upload token.
//
// The attempt is detached from ctx cancellation: once issued, network
// calls run to completion or to their phase timeout.
func (c *Controller) Start(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	if c.phase == PhaseDone {
		r := c.result
		c.mu.Unlock()
		return r, nil
	}
	c.mu.Unlock()

	v, err, _ := c.inflight.Do("start", func() (any, error) {
		return c.run(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// Reset returns a finished controller to idle. It fails while an attempt
// is running or before any attempt.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.phase != PhaseDone && c.phase != PhaseError {
		p := c.phase
		c.mu.Unlock()
		return fmt.Errorf("%w: reset from %s", common.ErrInvalidState, p)
	}
	c.phase = PhaseIdle
	c.progress = 0
	c.err = nil
	c.result = nil
	snap := c.snapshotLocked()
	obs := c.observers
	c.mu.Unlock()

	notify(obs, snap)
	return nil
}

func (c *Controller) run(ctx context.Context) (*Result, error) {
	c.update(func() {
		c.phase = PhaseInit
		c.progress = 0
		c.err = nil
		c.result = nil
	})

	res, err := c.attempt(ctx)
	if err != nil {
		c.log.Warn(ctx, "upload attempt failed", "error", err)
		c.update(func() {
			c.phase = PhaseError
			c.err = err
		})
		return nil, err
	}

	c.update(func() {
		c.phase = PhaseDone
		c.progress = ProgressDone
		c.result = res
	})
	c.log.Info(ctx, "upload submitted", "ponto_audio_id", res.AssetID, "submission_id", res.SubmissionID)
	return res, nil
}

func (c *Controller) attempt(ctx context.Context) (*Result, error) {
	info := c.probe(c.req.FilePath)

	mimeType := strings.TrimSpace(c.req.MimeType)
	if mimeType == "" {
		mimeType = info.MimeType
	}
	if mimeType == "" {
		return nil, fmt.Errorf("%w: could not determine the audio type", common.ErrValidation)
	}

	var size *int64
	if info.SizeKnown {
		if info.SizeBytes > common.MaxAudioSizeBytes {
			return nil, fmt.Errorf("%w: %d bytes", common.ErrPayloadTooLarge, info.SizeBytes)
		}
		s := info.SizeBytes
		size = &s
	}

	initCtx, cancel := context.WithTimeout(ctx, c.timeouts.Init)
	session, err := c.backend.InitUpload(initCtx, models.InitUploadRequest{
		PontoID:         c.req.PontoID,
		InterpreterName: c.req.InterpreterName,
		MimeType:        mimeType,
		SizeBytes:       size,
	})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("init upload: %w", err)
	}
	c.setProgress(ProgressInitDone)

	c.update(func() { c.phase = PhaseUpload })
	c.setProgress(ProgressUploadStart)

	uploadCtx, cancel := context.WithTimeout(ctx, c.timeouts.Upload)
	err = c.transfer.UploadBytes(uploadCtx, session.Upload, c.req.FilePath, mimeType, func(sent, total int64) {
		if total > 0 {
			c.setProgress(ProgressUploadStart + (ProgressPostUpload-ProgressUploadStart)*float64(sent)/float64(total))
		}
	})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("upload bytes: %w", err)
	}

	c.update(func() { c.phase = PhasePostUpload })
	c.setProgress(ProgressPostUpload)

	finCtx, cancel := context.WithTimeout(ctx, c.timeouts.Finalize)
	defer cancel()
	fin, err := c.materializer.FinalizeAudioUploadAndCreateSubmission(finCtx, FinalizeInput{
		PontoID:         c.req.PontoID,
		AssetID:         session.PontoAudioID,
		UploadToken:     session.UploadToken,
		InterpreterName: c.req.InterpreterName,
		AuthorName:      c.req.AuthorName,
		ConsentGranted:  c.req.ConsentGranted,
		SizeBytes:       size,
		DurationMs:      c.req.DurationMs,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		AssetID:      fin.AssetID,
		Bucket:       fin.Bucket,
		Path:         fin.Path,
		SubmissionID: fin.SubmissionID,
	}, nil
}

// setProgress only moves forward.
func (c *Controller) setProgress(p float64) {
	c.update(func() {
		if p > c.progress {
			c.progress = p
		}
	})
}

func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	snap := c.snapshotLocked()
	obs := c.observers
	c.mu.Unlock()

	notify(obs, snap)
}

func notify(obs []func(Snapshot), s Snapshot) {
	for _, fn := range obs {
		fn(s)
	}
}
