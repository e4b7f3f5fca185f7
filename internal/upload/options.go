package upload

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"nunu-cli/internal/infra/api"
	"nunu-cli/internal/metadata"
	apperrors "nunu-cli/internal/pkg/errors"
	"nunu-cli/internal/pkg/progress"
)

const (
	DefaultConcurrency = 4
	MaxConcurrency     = 32
)

// SessionObserver is called once per flow, right after the backend accepted
// the upload. uploadID is empty for single-part uploads.
type SessionObserver func(buildID, uploadID, objectKey string)

// Options configures the upload of one file. It must not be shared between files.
type Options struct {
	Name           string   `validate:"required"`
	Platform       string   `validate:"required,oneof=windows macos linux android ios-native ios-simulator xbox playstation"`
	Description    string   `validate:"-"`
	UploadTimeout  int      `validate:"omitempty,min=1,max=1440"` // minutes, 0 lets the backend decide
	Tags           []string `validate:"omitempty,dive,min=1,max=50"`
	AutoDelete     bool     `validate:"-"`
	DeletionPolicy string   `validate:"omitempty,oneof=least_recent oldest"`
	ForceMultipart bool     `validate:"-"`
	Concurrency    int      `validate:"min=1,max=32"`

	Progress  progress.Sink          `validate:"-"`
	OnSession SessionObserver        `validate:"-"`
	Details   *metadata.BuildDetails `validate:"-"`
}

var validate = validator.New()

// Validate checks the options, filling in the default concurrency
func (o *Options) Validate() error {
	if o.Concurrency == 0 {
		o.Concurrency = DefaultConcurrency
	}

	if err := validate.Struct(o); err != nil {
		var messages []string
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				messages = append(messages, fieldMessage(fe))
			}
		} else {
			messages = append(messages, err.Error())
		}
		return apperrors.NewConfigError("Invalid upload options: "+strings.Join(messages, "; "), nil)
	}

	if o.DeletionPolicy != "" && !o.AutoDelete {
		return apperrors.NewConfigError("Deletion policy requires auto-delete to be enabled", nil)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s=%v is out of range (%s %s)", fe.Field(), fe.Value(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// request builds the initiate/request body shared by both flows
func (o *Options) request(fileName string, fileSize int64) api.UploadRequest {
	req := api.UploadRequest{
		Name:          o.Name,
		Description:   o.Description,
		FileName:      fileName,
		FileSize:      fileSize,
		Platform:      o.Platform,
		AutoDelete:    o.AutoDelete,
		UploadTimeout: o.UploadTimeout,
		Details:       o.Details,
		Tags:          o.Tags,
	}
	req.DeletionPolicy = o.DeletionPolicy
	if req.DeletionPolicy == "" {
		req.DeletionPolicy = "least_recent"
	}
	return req
}
