package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("pipeline: validation failed")
	ErrCollection = errors.New("pipeline: data collection failed")
	ErrAnalysis   = errors.New("pipeline: AI analysis failed")
)

const (
	StageCollect = "collect"
	StageAnalyze = "analyze"
)

// ValidationError descreve um campo de entrada inválido.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StageError embrulha a falha de um colaborador externo. Não há retry:
// uma única tentativa falha a requisição inteira.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	switch e.Stage {
	case StageCollect:
		return "Data collection failed: " + e.Err.Error()
	case StageAnalyze:
		return "AI analysis failed: " + e.Err.Error()
	}
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) Is(target error) bool {
	switch target {
	case ErrCollection:
		return e.Stage == StageCollect
	case ErrAnalysis:
		return e.Stage == StageAnalyze
	}
	return false
}
