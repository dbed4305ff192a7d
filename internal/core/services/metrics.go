package services

import (
	"time"

	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// nopMetrics discards every measurement.
type nopMetrics struct{}

var _ driven.Metrics = nopMetrics{}

func (nopMetrics) DocumentIndexed(string)        {}
func (nopMetrics) ChunksStored(int)              {}
func (nopMetrics) EmbeddingRequest(bool)         {}
func (nopMetrics) SearchCompleted(time.Duration) {}
func (nopMetrics) ContextBuilt(int)              {}
