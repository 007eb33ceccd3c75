package service

import (
	"context"
	"errors"

	apperrors "go-attack-planner/internal/errors"
	"go-attack-planner/internal/factory"
	"go-attack-planner/internal/imaging"
	"go-attack-planner/internal/logger"
	"go-attack-planner/pkg/validation"

	"github.com/sirupsen/logrus"
)

// ImageResolver turns image references into validated images.
type ImageResolver struct {
	validator *validation.ReferenceValidator
	storage   factory.StorageFactory
	decoder   *imaging.Decoder
}

// NewImageResolver creates a resolver
func NewImageResolver(validator *validation.ReferenceValidator, storage factory.StorageFactory, decoder *imaging.Decoder) *ImageResolver {
	return &ImageResolver{validator: validator, storage: storage, decoder: decoder}
}

// Resolve fetches ref and checks that it is a supported image. name labels
// the image in error messages ("army", "base").
func (r *ImageResolver) Resolve(ctx context.Context, name, ref string) (imaging.Image, error) {
	parsed, err := r.validator.Validate(ref)
	if err != nil {
		return imaging.Image{}, err
	}

	fetcher, err := r.storage.ForScheme(parsed.Scheme)
	if err != nil {
		return imaging.Image{}, apperrors.NewInputError("Image reference cannot be fetched", err)
	}

	obj, err := fetcher.Fetch(ctx, parsed.String())
	if err != nil {
		var fetchErr *apperrors.AppError
		if errors.Is(err, context.DeadlineExceeded) {
			fetchErr = apperrors.NewTimeoutError("Image fetch timeout", err)
		} else {
			fetchErr = apperrors.NewNetworkError("Failed to fetch image", err)
		}

		logger.WithError(err).WithFields(logrus.Fields{
			"image": name,
			"ref":   ref,
		}).Error("Failed to fetch image")
		return imaging.Image{}, fetchErr
	}

	logger.WithFields(logrus.Fields{
		"image":        name,
		"content_type": obj.ContentType,
		"bytes":        len(obj.Data),
	}).Debug("Image fetched")

	return r.decoder.FromBytes(name, obj.Data)
}

// Decoder returns the decoder used for fetched and uploaded images.
func (r *ImageResolver) Decoder() *imaging.Decoder {
	return r.decoder
}
