package service

import "errors"

// Sentinel kinds for orchestration errors.
var (
	ErrSetup   = errors.New("run setup failed")
	ErrNoInput = errors.New("no events to analyze")

	ErrNoListener = errors.New("no metrics_addr configured")
)
