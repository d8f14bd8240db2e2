package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/Sunbirds/config"
	"github.com/lshigami/Sunbirds/internal/model"
	"github.com/lshigami/Sunbirds/internal/repository"
	"github.com/lshigami/Sunbirds/internal/submission"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// MediaService stores speaking recordings in object storage and records the
// upload against the attempt. Implements submission.AudioUploader.
type MediaService interface {
	submission.AudioUploader
}

type mediaService struct {
	client     *minio.Client
	bucket     string
	publicURL  string
	maxBytes   int64
	uploadRepo repository.SpeakingUploadRepository
}

func NewMinioClient(cfg *config.Config) (*minio.Client, error) {
	client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}

func NewMediaService(client *minio.Client, cfg *config.Config, uploadRepo repository.SpeakingUploadRepository) MediaService {
	return &mediaService{
		client:     client,
		bucket:     cfg.Minio.Bucket,
		publicURL:  cfg.Minio.PublicURL,
		maxBytes:   cfg.Attempt.MaxAudioUploadBytes,
		uploadRepo: uploadRepo,
	}
}

func (s *mediaService) Upload(ctx context.Context, attemptID, questionID uint, clip submission.AudioClip) (*submission.UploadedFile, error) {
	if clip.SizeBytes <= 0 {
		return nil, fmt.Errorf("audio file is empty")
	}
	if s.maxBytes > 0 && clip.SizeBytes > s.maxBytes {
		return nil, fmt.Errorf("audio file of %d bytes exceeds the %d byte limit", clip.SizeBytes, s.maxBytes)
	}

	fileUploadID := uuid.NewString()
	objectName := fmt.Sprintf("attempts/%d/questions/%d/%s%s",
		attemptID, questionID, fileUploadID, audioExtension(clip))

	contentType := clip.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectName, clip.Body, clip.SizeBytes, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store audio for question %d: %w", questionID, err)
	}

	audioURL := s.objectURL(objectName)
	upload := &model.SpeakingUpload{
		AttemptID:       attemptID,
		QuestionID:      questionID,
		FileUploadID:    fileUploadID,
		AudioURL:        audioURL,
		FileSizeBytes:   clip.SizeBytes,
		DurationSeconds: clip.DurationSeconds,
		UploadedAt:      time.Now(),
	}
	if err := s.uploadRepo.ReplaceForQuestion(upload); err != nil {
		// The object is already in storage; without the row the upload does
		// not count, so report failure and let the student retry.
		log.Error().Err(err).Uint("attemptID", attemptID).Uint("questionID", questionID).
			Msg("Upload: failed to record speaking upload")
		return nil, fmt.Errorf("failed to record upload for question %d: %w", questionID, err)
	}

	return &submission.UploadedFile{
		FileUploadID:    fileUploadID,
		AudioURL:        audioURL,
		FileSizeBytes:   clip.SizeBytes,
		DurationSeconds: clip.DurationSeconds,
	}, nil
}

func (s *mediaService) objectURL(objectName string) string {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.publicURL, "/"), s.bucket, objectName)
	}
	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, objectName)
}

func audioExtension(clip submission.AudioClip) string {
	if ext := filepath.Ext(clip.Filename); ext != "" {
		return ext
	}
	switch clip.ContentType {
	case "audio/webm":
		return ".webm"
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	}
	return ".bin"
}
