package settings

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/autopeer-io/groundlink/pkg/log"
	"github.com/autopeer-io/groundlink/pkg/options"
)

var _ Store = (*S3Store)(nil)

// S3Store keeps settings in one JSON object. Save only updates memory and
// marks the store dirty; Run uploads the object in the background.
type S3Store struct {
	client *minio.Client
	bucket string
	key    string

	mu     sync.RWMutex
	values map[string]string

	dirty chan struct{}
}

func NewS3Store(opts *options.S3Options, key string) (*S3Store, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure:    opts.UseSSL,
		Region:    opts.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &S3Store{
		client: client,
		bucket: opts.BucketName,
		key:    key,
		values: make(map[string]string),
		dirty:  make(chan struct{}, 1),
	}, nil
}

// Init makes sure the bucket exists and loads the settings object.
func (s *S3Store) Init(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("Bucket does not exist, creating...", "bucket", s.bucket)
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to get settings object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			log.Info("No settings object yet", "bucket", s.bucket, "key", s.key)
			return nil
		}
		return fmt.Errorf("failed to read settings object: %w", err)
	}

	values, err := decodeValues(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

func (s *S3Store) Load(key, defaultValue string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.values[key]; ok {
		return v
	}
	return defaultValue
}

func (s *S3Store) Save(key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()

	select {
	case s.dirty <- struct{}{}:
	default:
	}
	return nil
}

// OnChange is a no-op; the object is only written by this process.
func (s *S3Store) OnChange(func()) {}

// Run uploads the settings whenever they changed, and once more on shutdown.
func (s *S3Store) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			select {
			case <-s.dirty:
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return s.flush(flushCtx)
			default:
				return nil
			}
		case <-s.dirty:
			if err := s.flush(ctx); err != nil {
				log.Error(err, "Failed to upload settings", "bucket", s.bucket, "key", s.key)
			}
		}
	}
}

func (s *S3Store) flush(ctx context.Context) error {
	s.mu.RLock()
	data, err := encodeValues(s.values)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to put settings object: %w", err)
	}
	return nil
}

func encodeValues(values map[string]string) ([]byte, error) {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return data, nil
}

func decodeValues(data []byte) (map[string]string, error) {
	values := make(map[string]string)
	if len(bytes.TrimSpace(data)) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return values, nil
}
