package scene

import (
	"sync"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
	"cloudslam/pkg/logger"

	"go.uber.org/zap"
)

// Preview stands in for a compositor: it records which backend surface is
// attached.
type Preview struct {
	mu       sync.Mutex
	handle   domain.PreviewHandle
	attached bool
	logger   *zap.SugaredLogger
}

var _ ports.PreviewCompositor = (*Preview)(nil)

func NewPreview(log *zap.SugaredLogger) *Preview {
	return &Preview{logger: logger.OrNop(log)}
}

func (p *Preview) Attach(handle domain.PreviewHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handle = handle
	p.attached = true
	p.logger.Debugw("preview attached", "handle", uint64(handle))
	return nil
}

func (p *Preview) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attached {
		p.logger.Debugw("preview detached", "handle", uint64(p.handle))
	}
	p.attached = false
	p.handle = 0
}

func (p *Preview) Attached() (domain.PreviewHandle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle, p.attached
}
