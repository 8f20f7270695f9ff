// Package transfer uploads single files through a driver and reports each
// upload's lifecycle to subscribers.
package transfer

import (
	"context"
	"time"

	"github.com/fairDataSociety/fairdrive-opfs/internal/logging"
	"github.com/fairDataSociety/fairdrive-opfs/internal/metrics"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/events"
)

// StartEvent is published before the upload is issued.
type StartEvent struct {
	File  *driver.File
	Mount driver.Mount
}

// CompleteEvent is published after every transfer, failed or not. A failed
// transfer carries the zero UploadResult.
type CompleteEvent struct {
	Result   driver.UploadResult
	Duration time.Duration
}

// FileSync drives uploads to one destination driver.
type FileSync struct {
	driver     driver.Driver
	onStart    *events.Subject[StartEvent]
	onComplete *events.Subject[CompleteEvent]
	onError    *events.Subject[error]
}

// New returns a FileSync uploading through d.
func New(d driver.Driver) *FileSync {
	return &FileSync{
		driver:     d,
		onStart:    events.NewSubject[StartEvent](),
		onComplete: events.NewSubject[CompleteEvent](),
		onError:    events.NewSubject[error](),
	}
}

func (s *FileSync) OnStart() *events.Subject[StartEvent] { return s.onStart }

// OnComplete fires once per transfer regardless of outcome. Success is only
// known by the absence of an OnError event for the same transfer.
func (s *FileSync) OnComplete() *events.Subject[CompleteEvent] { return s.onComplete }

func (s *FileSync) OnError() *events.Subject[error] { return s.onError }

// Transfer uploads file to mount, publishing Start, then Error on failure,
// then Complete. Subscribers run synchronously, so Transfer returns only after
// every notification has been delivered. There is no retry.
func (s *FileSync) Transfer(ctx context.Context, file *driver.File, mount driver.Mount) {
	start := time.Now()

	s.onStart.Publish(StartEvent{File: file, Mount: mount})
	metrics.RecordTransferEvent("start")

	result, err := s.driver.Upload(ctx, file, mount, driver.UploadOptions{})
	if err != nil {
		logging.Warn("transfer failed",
			logging.Mount(mount.Name, mount.Path),
			logging.String("file", file.Name),
			logging.Err(err))
		result = driver.UploadResult{}
		s.onError.Publish(err)
		metrics.RecordTransferEvent("error")
	}

	s.onComplete.Publish(CompleteEvent{Result: result, Duration: time.Since(start)})
	metrics.RecordTransferEvent("complete")
}
