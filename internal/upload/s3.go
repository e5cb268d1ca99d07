package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config はS3Storeの接続設定。
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // MinIOなどS3互換ストレージの場合に指定する
	AccessKey string
	SecretKey string
}

// objectClient はS3クライアントのうちS3Storeが使用する操作。
type objectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store は画像をS3互換オブジェクトストレージに保存する。
type S3Store struct {
	client  objectClient
	bucket  string
	baseURL string
}

// NewS3Store は静的クレデンシャルでS3クライアントを構築し、S3Storeを生成する。
// Endpointを指定した場合はパス形式のアドレッシングを使用する。
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return newS3Store(client, cfg), nil
}

func newS3Store(client objectClient, cfg S3Config) *S3Store {
	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	if cfg.Endpoint != "" {
		baseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return &S3Store{client: client, bucket: cfg.Bucket, baseURL: baseURL}
}

// Save は画像をアップロードし、オブジェクトのURLを返す。
func (s *S3Store) Save(ctx context.Context, r io.Reader) (string, error) {
	body, contentType, ext, err := sniff(r)
	if err != nil {
		return "", err
	}

	// 署名にはシーク可能なボディが必要なため、メモリに読み込む。
	// サイズ上限はハンドラー側で適用済み。
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	key := "products/" + objectName(ext)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object: %w", err)
	}

	slog.Debug("image stored in bucket",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
	)
	return s.baseURL + "/" + key, nil
}

// Delete はSaveが返したURLのオブジェクトを削除する。
// S3のDeleteObjectは存在しないキーに対しても成功する。
func (s *S3Store) Delete(ctx context.Context, location string) error {
	key, ok := strings.CutPrefix(location, s.baseURL+"/")
	if !ok || !strings.HasPrefix(key, "products/") {
		return ErrForeignLocation
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	slog.Debug("image removed from bucket",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
	)
	return nil
}
