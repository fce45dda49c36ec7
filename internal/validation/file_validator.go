package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"rfmbasket/internal/config"
	apperrors "rfmbasket/internal/errors"
)

var (
	// ErrInvalidUpload is wrapped by every rejection of a file name or body.
	ErrInvalidUpload = errors.New("invalid upload")
	// ErrFileTooLarge is returned when an upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")
)

// Upload describes a file handed to the analysis before it is read.
type Upload struct {
	FileName string `validate:"required,max=255,safe_filename,not_lock_file,upload_ext"`
	Size     int64  `validate:"gt=0"`
}

// FileValidator provides common file validation functions for all executables
type FileValidator struct {
	logger     *slog.Logger
	validate   *validator.Validate
	extensions []string
	maxBytes   int64
}

// NewFileValidator creates a new file validator. maxBytes <= 0 disables the
// size limit.
func NewFileValidator(logger *slog.Logger, maxBytes int64) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}

	v := &FileValidator{
		logger:     logger.With(slog.String("component", "file_validator")),
		validate:   validator.New(),
		extensions: config.AllowedUploadExtensions,
		maxBytes:   maxBytes,
	}
	v.validate.RegisterValidation("safe_filename", isSafeFilename)
	v.validate.RegisterValidation("not_lock_file", isNotLockFile)
	v.validate.RegisterValidation("upload_ext", v.hasAllowedExtension)
	return v
}

// MaxBytes returns the configured upload limit.
func (v *FileValidator) MaxBytes() int64 {
	return v.maxBytes
}

// ValidateUpload checks an uploaded file's name and size. A negative size
// means unknown and skips the emptiness check.
func (v *FileValidator) ValidateUpload(name string, size int64) error {
	if v.maxBytes > 0 && size > v.maxBytes {
		v.logger.Warn("Upload exceeds size limit",
			slog.String("file", name),
			slog.Int64("size", size),
			slog.Int64("limit", v.maxBytes))
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, name, size, v.maxBytes)
	}

	upload := Upload{FileName: name, Size: size}
	var err error
	if size < 0 {
		err = v.validate.StructExcept(upload, "Size")
	} else {
		err = v.validate.Struct(upload)
	}
	if err != nil {
		msg := describe(err)
		v.logger.Warn("Upload rejected",
			slog.String("file", name),
			slog.String("reason", msg))
		return fmt.Errorf("%w: %s", ErrInvalidUpload, msg)
	}
	return nil
}

// ValidateInputFile checks a local file given to the CLI the same way an
// upload is checked.
func (v *FileValidator) ValidateInputFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	return v.ValidateUpload(filepath.Base(path), info.Size())
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return apperrors.NewNotFoundError("file " + path).WithContext("path", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

func (v *FileValidator) hasAllowedExtension(fl validator.FieldLevel) bool {
	ext := strings.ToLower(filepath.Ext(fl.Field().String()))
	for _, allowed := range v.extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// isSafeFilename rejects names carrying a path.
func isSafeFilename(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return !strings.Contains(name, "..") && !strings.ContainsAny(name, `/\`)
}

// isNotLockFile rejects the "~$" owner files Office leaves next to open workbooks.
func isNotLockFile(fl validator.FieldLevel) bool {
	return !strings.HasPrefix(fl.Field().String(), "~$")
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return strings.Join(msgs, "; ")
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "file name is required"
	case "max":
		return fmt.Sprintf("file name must be at most %s characters", fe.Param())
	case "safe_filename":
		return "file name must not contain a path"
	case "not_lock_file":
		return "file is a temporary Office lock file"
	case "upload_ext":
		return fmt.Sprintf("unsupported file type %q, expected one of %s",
			filepath.Ext(fe.Value().(string)), strings.Join(config.AllowedUploadExtensions, ", "))
	case "gt":
		return "file is empty"
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
