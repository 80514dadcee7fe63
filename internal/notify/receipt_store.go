package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"yard_parking/internal/domain"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ReceiptStore keeps the printable assignment receipt in object storage, where the gate
// printer picks it up.
type ReceiptStore struct {
	client ObjectPutter
	bucket string
}

func NewReceiptStore(client ObjectPutter, bucket string) *ReceiptStore {
	return &ReceiptStore{client: client, bucket: bucket}
}

// NewMinioClient connects to a MinIO (or any S3-compatible) endpoint.
func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("notify: minio client for %s: %w", endpoint, err)
	}
	return client, nil
}

// ObjectName is where the receipt of one assignment is stored.
func ObjectName(r domain.AssignmentReceipt) string {
	return fmt.Sprintf("%s/%s/%s.json", r.IssuedAt.UTC().Format(domain.DateLayout), r.SlotNumber, r.AssignmentID)
}

func (s *ReceiptStore) Put(ctx context.Context, receipt domain.AssignmentReceipt) error {
	body, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return fmt.Errorf("notify: encode receipt: %w", err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, ObjectName(receipt), bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("notify: upload receipt %s: %w", receipt.AssignmentID, err)
	}
	return nil
}
