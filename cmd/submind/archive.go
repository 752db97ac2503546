package main

import (
	"context"

	"github.com/BaSui01/submind/export"
	"github.com/BaSui01/submind/orchestrator"
	"github.com/BaSui01/submind/store"
	"go.uber.org/zap"
)

// Archiver saves finished discussions to the store and, when an exporter is
// configured, writes them to files. Failed discussions are archived too so
// their partial transcript stays available.
type Archiver struct {
	store    store.Store
	exporter *export.Exporter
	logger   *zap.Logger
}

// NewArchiver creates an archiver. exporter may be nil.
func NewArchiver(st store.Store, exporter *export.Exporter, logger *zap.Logger) *Archiver {
	if st == nil {
		st = store.NopStore{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		store:    st,
		exporter: exporter,
		logger:   logger.With(zap.String("component", "archiver")),
	}
}

// Archive implements handlers.Archiver. Store and export failures are logged
// and do not affect the discussion outcome.
func (a *Archiver) Archive(ctx context.Context, s *orchestrator.Summary) map[string]string {
	if s == nil || !s.State.Terminal() {
		return nil
	}
	log := a.logger.With(zap.String("discussion_id", s.ID), zap.String("state", string(s.State)))

	if err := a.store.Save(ctx, s); err != nil {
		log.Error("failed to archive discussion", zap.Error(err))
	} else {
		log.Debug("discussion archived")
	}

	if a.exporter == nil {
		return nil
	}
	files, err := a.exporter.Export(s)
	if err != nil {
		log.Error("failed to export discussion", zap.Error(err))
	}
	if len(files) == 0 {
		return nil
	}
	out := make(map[string]string, len(files))
	for f, path := range files {
		out[string(f)] = path
	}
	return out
}
