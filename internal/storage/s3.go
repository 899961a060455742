package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/inboxgraph/backend/internal/util"
	"github.com/inboxgraph/backend/pkg/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func NewS3Client(ctx context.Context) *s3.Client {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client
}

// S3Archive stores raw provider messages as JSON objects, keyed per run,
// for audit and later re-analysis.
type S3Archive struct {
	client *s3.Client
	bucket string
}

// NewS3Archive wraps an S3 client as a raw-message archive. The bucket
// comes from AWS_BUCKET.
func NewS3Archive(client *s3.Client) *S3Archive {
	return &S3Archive{
		client: client,
		bucket: util.GetEnv("AWS_BUCKET"),
	}
}

// ArchiveMessage uploads the raw message under runs/<runID>/raw/<id>.json
// and returns the object key.
func (a *S3Archive) ArchiveMessage(ctx context.Context, runID string, msg mail.RawMessage) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal raw message %s: %v", msg.ID, err)
	}

	key := fmt.Sprintf("runs/%s/raw/%s.json", runID, msg.ID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload raw message to S3: %v", err)
	}

	return key, nil
}

// GetArchivedMessage fetches a previously archived raw message by key.
func (a *S3Archive) GetArchivedMessage(ctx context.Context, key string) (mail.RawMessage, error) {
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return mail.RawMessage{}, fmt.Errorf("failed to get raw message from S3: %v", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return mail.RawMessage{}, fmt.Errorf("failed to read raw message contents: %v", err)
	}

	var msg mail.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &msg); err != nil {
		return mail.RawMessage{}, fmt.Errorf("failed to decode raw message %s: %v", key, err)
	}
	return msg, nil
}
