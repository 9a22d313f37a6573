package models

import "fmt"

// AppError is a structured application error with a machine-readable code
// and an HTTP status for the API layer.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	SoundID string `json:"sound_id,omitempty"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

// Error constructors for the audio error taxonomy.
var (
	ErrSoundNotFound = func(id string) *AppError {
		return &AppError{Code: "SOUND_NOT_FOUND", Message: fmt.Sprintf("sound %q is not registered", id), SoundID: id, Status: 404}
	}
	ErrGroupNotFound = func(id string) *AppError {
		return &AppError{Code: "GROUP_NOT_FOUND", Message: fmt.Sprintf("group %q is not registered", id), SoundID: id, Status: 404}
	}
	ErrLoadFailed = func(id, msg string) *AppError {
		return &AppError{Code: "LOAD_FAILED", Message: msg, SoundID: id, Status: 502}
	}
	ErrAudioError = func(id, msg string) *AppError {
		return &AppError{Code: "AUDIO_ERROR", Message: msg, SoundID: id, Status: 502}
	}
	ErrPlayFailed = func(id, msg string) *AppError {
		return &AppError{Code: "PLAY_FAILED", Message: msg, SoundID: id, Status: 502}
	}
	ErrInitFailed = func(msg string) *AppError {
		return &AppError{Code: "INIT_FAILED", Message: msg, Status: 500}
	}
	ErrBadRequest = func(msg string) *AppError {
		return &AppError{Code: "BAD_REQUEST", Message: msg, Status: 400}
	}
	ErrInternal = func(msg string) *AppError {
		return &AppError{Code: "INTERNAL", Message: msg, Status: 500}
	}
)
