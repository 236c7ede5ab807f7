package s3store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const largeObjectMinSize = 10 * 1024 * 1024

type Config struct {
	// "http://127.0.0.1:9000"; empty for AWS itself
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// Connect builds an S3 client for AWS or an S3 compatible server.
func Connect(config Config) *s3.Client {
	return s3.NewFromConfig(aws.Config{Region: config.Region}, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		if config.AccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, "")
		} else {
			o.Credentials = aws.AnonymousCredentials{}
		}
		o.UsePathStyle = config.PathStyle
	})
}

// Uploader copies backup archives into a bucket.
type Uploader struct {
	bucket   string
	prefix   string
	uploader *manager.Uploader
	log      *slog.Logger
}

func NewUploader(config Config) (*Uploader, error) {
	if config.Bucket == "" {
		return nil, errors.New("s3 bucket is not set")
	}
	if config.Region == "" {
		return nil, errors.New("s3 region is not set")
	}

	client := Connect(config)
	return &Uploader{
		bucket: config.Bucket,
		prefix: config.Prefix,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = largeObjectMinSize
		}),
		log: slog.Default().With("component", "s3"),
	}, nil
}

// ObjectKey places a backup file under prefix/project/.
func ObjectKey(prefix, project, file string) string {
	parts := []string{}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, project, filepath.Base(file))
	return path.Join(parts...)
}

// Upload stores the file at localPath and returns its s3:// location.
func (u *Uploader) Upload(ctx context.Context, project, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", localPath, err)
	}
	defer f.Close()

	key := ObjectKey(u.prefix, project, localPath)
	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/gzip"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %q to bucket %q: %w", key, u.bucket, err)
	}

	location := "s3://" + u.bucket + "/" + key
	u.log.Info("backup uploaded", "location", location)
	return location, nil
}
