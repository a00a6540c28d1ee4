package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/hajime-dev/devicekb/internal/filestore"
	appErr "github.com/hajime-dev/devicekb/internal/pkg/errors"
	"github.com/hajime-dev/devicekb/internal/repo"
	"github.com/hajime-dev/devicekb/internal/template"
)

type TemplateService struct {
	devices *repo.DeviceRepo
	filler  *template.Filler
	files   filestore.Store
}

func NewTemplateService(devices *repo.DeviceRepo, filler *template.Filler, files filestore.Store) *TemplateService {
	return &TemplateService{devices: devices, filler: filler, files: files}
}

// FillResult is the outcome of one template fill. OutputKey points at the
// reconstructed document in the file store.
type FillResult struct {
	FilledFields  map[string]string `json:"filled_fields"`
	MissingFields []string          `json:"missing_fields"`
	Output        string            `json:"output"`
	OutputKey     string            `json:"output_key"`
}

func (s *TemplateService) Analyze(ctx context.Context, deviceID, source string) (map[string]template.FieldAnalysis, error) {
	device, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return s.filler.Analyze(ctx, device.Namespace(), source)
}

func (s *TemplateService) Fill(ctx context.Context, deviceID, source string) (*FillResult, error) {
	device, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	job, err := s.filler.Fill(ctx, device.Namespace(), source)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s_template_%d.txt", device.ID, time.Now().UnixMilli())
	out := bytes.NewReader([]byte(job.Output))
	if err := s.files.Save(ctx, key, nopCloser{out}, int64(out.Len())); err != nil {
		logutil.GetLogger(ctx).Error("save template output failed",
			zap.String("device_id", device.ID), zap.Error(err))
		key = ""
	}
	return &FillResult{
		FilledFields:  job.FilledFields,
		MissingFields: job.MissingFields,
		Output:        job.Output,
		OutputKey:     key,
	}, nil
}

// Open returns a previously produced fill output. Only template output keys
// are served through here; source documents go through the document service.
func (s *TemplateService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == "" || !strings.Contains(key, "_template_") {
		return nil, appErr.ErrNotFound
	}
	return s.files.Open(ctx, key)
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
