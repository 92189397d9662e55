package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sghealthtrack/healthtrack-api/internal/config"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
	"github.com/sghealthtrack/healthtrack-api/pkg/logger"
)

// maxStderr bounds the script output relayed to the caller.
const maxStderr = 2048

// Runner executes the generator script and returns its stderr.
type Runner interface {
	Run(ctx context.Context, bin string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// PDF is a generated report ready to stream.
type PDF struct {
	Filename string
	Content  []byte
}

// GenerationError carries the script's stderr alongside the 500.
type GenerationError struct {
	Details string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("PDF generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) StatusCode() int { return 500 }

func (e *GenerationError) PublicMessage() string { return "PDF generation failed" }

type Service struct {
	cfg    config.ReportConfig
	runner Runner
	logger *logger.Logger
}

func NewService(cfg config.ReportConfig, log *logger.Logger) *Service {
	return NewServiceWithRunner(cfg, execRunner{}, log)
}

func NewServiceWithRunner(cfg config.ReportConfig, runner Runner, log *logger.Logger) *Service {
	if cfg.PythonBin == "" {
		cfg.PythonBin = "python"
	}
	if cfg.TmpDir == "" {
		cfg.TmpDir = "tmp"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 60
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{cfg: cfg, runner: runner, logger: log}
}

// Generate runs the medical report script with {output, data} as its only
// argument and returns the PDF it wrote. The file is removed afterwards.
func (s *Service) Generate(ctx context.Context, data map[string]interface{}) (*PDF, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	if err := os.MkdirAll(s.cfg.TmpDir, 0o755); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create report directory: %w", err))
	}

	// Concurrent requests each get their own file.
	filename := "medical_report_" + uuid.NewString() + ".pdf"
	output, err := filepath.Abs(filepath.Join(s.cfg.TmpDir, filename))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	defer os.Remove(output)

	payload, err := json.Marshal(map[string]interface{}{"output": output, "data": data})
	if err != nil {
		return nil, apperrors.BadRequest("Invalid report data", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	stderr, err := s.runner.Run(ctx, s.cfg.PythonBin, s.cfg.Script, string(payload))
	if err != nil {
		details := string(stderr)
		if len(details) > maxStderr {
			details = details[len(details)-maxStderr:]
		}
		s.logger.Error(err, "report script failed", "script", s.cfg.Script, "stderr", details)
		return nil, &GenerationError{Details: details, Err: err}
	}

	content, err := os.ReadFile(output)
	if err != nil {
		return nil, &GenerationError{Details: "report script produced no file", Err: err}
	}
	return &PDF{Filename: filename, Content: content}, nil
}
