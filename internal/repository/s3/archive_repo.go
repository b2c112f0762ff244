package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/banking/sar-workbench/internal/config"
	"github.com/banking/sar-workbench/internal/domain"
	"github.com/google/uuid"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Sealer encrypts narrative text before it leaves the process.
type Sealer interface {
	Encrypt(plaintext string) (string, int, error)
}

// ArchiveRepository stores filed SARs and closed-session audit logs in S3
type ArchiveRepository struct {
	client        objectPutter
	archiveBucket string
	reportsBucket string
	sealer        Sealer
}

// NewArchiveRepository creates a new S3 archive repository
func NewArchiveRepository(ctx context.Context, cfg appConfig.S3Config, sealer Sealer) (*ArchiveRepository, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO
		}
	})

	return newArchiveRepository(client, cfg, sealer), nil
}

func newArchiveRepository(client objectPutter, cfg appConfig.S3Config, sealer Sealer) *ArchiveRepository {
	reports := cfg.ReportsBucket
	if reports == "" {
		reports = cfg.ArchiveBucket
	}
	return &ArchiveRepository{
		client:        client,
		archiveBucket: cfg.ArchiveBucket,
		reportsBucket: reports,
		sealer:        sealer,
	}
}

// archivedSubmission is the stored form of a SAR; the narrative only travels encrypted.
type archivedSubmission struct {
	domain.SARSubmission
	NarrativeCiphertext string `json:"narrative_ciphertext"`
	KeyVersion          int    `json:"key_version"`
}

// ArchiveSubmission uploads a filed SAR with its narrative encrypted
func (r *ArchiveRepository) ArchiveSubmission(ctx context.Context, sub domain.SARSubmission) (string, error) {
	if r.sealer == nil {
		return "", fmt.Errorf("archive submission: no encryptor configured")
	}
	ciphertext, keyVersion, err := r.sealer.Encrypt(sub.Narrative)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt narrative: %w", err)
	}

	data, err := json.Marshal(archivedSubmission{
		SARSubmission:       sub,
		NarrativeCiphertext: ciphertext,
		KeyVersion:          keyVersion,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal submission: %w", err)
	}

	// Key format: sar/year/month/day/caseID/sessionID-vN-seqS.json
	// A session may file the same version more than once; the event sequence keeps each filing.
	at := sub.SubmittedAt.UTC()
	key := fmt.Sprintf("sar/%d/%02d/%02d/%s/%s-v%d-seq%d.json",
		at.Year(), at.Month(), at.Day(), sub.CaseID, sub.SessionID, sub.Version, sub.Sequence)
	if err := r.put(ctx, r.reportsBucket, key, data); err != nil {
		return "", fmt.Errorf("failed to upload submission to s3: %w", err)
	}
	return key, nil
}

// ArchiveAuditLog uploads a session's full audit log
func (r *ArchiveRepository) ArchiveAuditLog(ctx context.Context, sessionID uuid.UUID, events []domain.AuditEvent, closedAt time.Time) (string, error) {
	if len(events) == 0 {
		return "", nil
	}

	data, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("failed to marshal events for archive: %w", err)
	}

	// Key format: audit/year/month/day/sessionID.json
	at := closedAt.UTC()
	key := fmt.Sprintf("audit/%d/%02d/%02d/%s.json", at.Year(), at.Month(), at.Day(), sessionID)
	if err := r.put(ctx, r.archiveBucket, key, data); err != nil {
		return "", fmt.Errorf("failed to upload audit log to s3: %w", err)
	}
	return key, nil
}

func (r *ArchiveRepository) put(ctx context.Context, bucket, key string, data []byte) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}
