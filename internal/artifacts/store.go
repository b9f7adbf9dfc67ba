package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// ModelMetaStore reads model metadata artifacts written by the external
// training job. A missing artifact is a normal condition, not an error:
// most products are served by the in-process engines and never get an
// offline model.
type ModelMetaStore interface {
	GetModelMeta(ctx context.Context, cadence domain.Cadence, productCode string) (*domain.ModelMeta, error)
}

type minioStore struct {
	client *minio.Client
	bucket string
}

type noopStore struct{}

// NewModelMetaStore connects to the object store when artifacts are
// enabled, and degrades to a store that finds nothing otherwise.
func NewModelMetaStore(cfg config.ArtifactsConfig) (ModelMetaStore, error) {
	if !cfg.Enabled {
		return &noopStore{}, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect artifact store: %w", err)
	}

	return &minioStore{client: client, bucket: cfg.Bucket}, nil
}

func NewNoopModelMetaStore() ModelMetaStore {
	return &noopStore{}
}

func metaObjectKey(cadence domain.Cadence, productCode string) string {
	return fmt.Sprintf("%s/%s_meta.json", cadence, productCode)
}

func (s *minioStore) GetModelMeta(ctx context.Context, cadence domain.Cadence, productCode string) (*domain.ModelMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	obj, err := s.client.GetObject(ctx, s.bucket, metaObjectKey(cadence, productCode), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get model meta: %w", err)
	}
	defer obj.Close()

	payload, err := io.ReadAll(obj)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, fmt.Errorf("read model meta: %w", err)
	}

	var meta domain.ModelMeta
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("decode model meta for %s: %w", productCode, err)
	}
	return &meta, nil
}

func (n *noopStore) GetModelMeta(ctx context.Context, cadence domain.Cadence, productCode string) (*domain.ModelMeta, error) {
	return nil, nil
}
