package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	s3Client   *s3.Client
	bucketName string
	region     string
)

func InitStorage() error {
	bucketName = os.Getenv("S3_BUCKET")
	if bucketName == "" {
		bucketName = "vidora-media"
	}
	region = os.Getenv("S3_REGION")
	if region == "" {
		region = "eu-central-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}

	// Açık credential verilmişse onu kullan, yoksa varsayılan zincir
	accessKey := os.Getenv("S3_ACCESS_KEY_ID")
	secretKey := os.Getenv("S3_SECRET_ACCESS_KEY")
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %v", err)
	}

	s3Client = s3.NewFromConfig(cfg)
	return nil
}

// UploadBuffer işlenmiş içeriği S3'e yükler ve public URL döndürür.
// Dosya adı: user_id/prefix/timestamp_name
func UploadBuffer(buf *bytes.Buffer, contentType string, userID uint, prefix, name string) (string, error) {
	fileName := fmt.Sprintf("%d/%s/%d_%s", userID, prefix, time.Now().Unix(), name)

	_, err := s3Client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(bucketName),
		Key:         aws.String(fileName),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("could not upload to S3: %v", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucketName, region, fileName), nil
}

// DeleteObject URL'den key'i çıkarıp nesneyi siler
func DeleteObject(objectURL string) error {
	parts := strings.Split(objectURL, "/")
	if len(parts) < 4 {
		return fmt.Errorf("invalid object URL: %s", objectURL)
	}
	key := strings.Join(parts[3:], "/")

	_, err := s3Client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	})

	return err
}
