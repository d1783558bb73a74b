package invoice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store persists invoices keyed by order.
type Store interface {
	Save(ctx context.Context, inv *Invoice) error
	Load(ctx context.Context, orderID uuid.UUID) (*Invoice, error)
}

// fileStore keeps invoices as gzipped files in a local directory.
type fileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore creates a store writing to dir, creating it if needed.
func NewFileStore(dir string, logger zerolog.Logger) (Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create invoice directory %s: %w", dir, err)
	}
	return &fileStore{
		dir:    dir,
		logger: logger.With().Str("component", "invoice-file-store").Logger(),
	}, nil
}

func (s *fileStore) Save(ctx context.Context, inv *Invoice) error {
	var buf bytes.Buffer
	if err := Encode(&buf, inv); err != nil {
		return err
	}

	path := filepath.Join(s.dir, objectName(inv.OrderID))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o640); err != nil {
		s.logger.Error().Err(err).Str("file", tmp).Msg("failed to write invoice file")
		return fmt.Errorf("failed to write invoice file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move invoice file into place: %w", err)
	}

	s.logger.Info().
		Str("file", path).
		Str("invoice", inv.Number).
		Msg("invoice stored on local file system")

	return nil
}

func (s *fileStore) Load(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	path := filepath.Join(s.dir, objectName(orderID))

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		s.logger.Error().Err(err).Str("file", path).Msg("failed to open invoice file")
		return nil, fmt.Errorf("failed to open invoice file %s: %w", path, err)
	}
	defer file.Close()

	return Decode(file)
}

// fallbackStore writes to S3 when enabled and falls back to the local store.
type fallbackStore struct {
	s3Store   Store
	fileStore Store
	s3Enabled bool
	logger    zerolog.Logger
}

// NewFallbackStore creates a store that tries S3 first, then the local file system.
// If s3Store is nil, only the file store is used.
func NewFallbackStore(s3Store, fileStore Store, s3Enabled bool, logger zerolog.Logger) Store {
	return &fallbackStore{
		s3Store:   s3Store,
		fileStore: fileStore,
		s3Enabled: s3Enabled,
		logger:    logger.With().Str("component", "invoice-fallback-store").Logger(),
	}
}

func (s *fallbackStore) useS3() bool {
	return s.s3Enabled && s.s3Store != nil
}

func (s *fallbackStore) Save(ctx context.Context, inv *Invoice) error {
	if s.useS3() {
		err := s.s3Store.Save(ctx, inv)
		if err == nil {
			return nil
		}
		s.logger.Warn().
			Err(err).
			Str("order_id", inv.OrderID.String()).
			Msg("failed to store invoice in S3, falling back to local file system")
	}

	return s.fileStore.Save(ctx, inv)
}

func (s *fallbackStore) Load(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	if s.useS3() {
		inv, err := s.s3Store.Load(ctx, orderID)
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().
				Err(err).
				Str("order_id", orderID.String()).
				Msg("failed to load invoice from S3, falling back to local file system")
		}
	}

	return s.fileStore.Load(ctx, orderID)
}
